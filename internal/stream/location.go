package stream

import (
	"math"
	"time"

	"github.com/lox/fireweather/internal/solar"
)

// Location fixes a weather stream to a point on the ground and a local
// clock. Times inside a stream are always local standard time; DST only
// shifts which wall-clock hour counts as "noon" for observers.
type Location struct {
	// Latitude in degrees, south negative.
	Latitude float64
	// Longitude in degrees, east positive.
	Longitude float64
	// TimezoneOffset is the standard-time offset from UTC.
	TimezoneOffset time.Duration
	// DSTAmount is the daylight-saving shift, usually one hour. Zero
	// disables DST handling entirely.
	DSTAmount time.Duration
	// DSTStart and DSTEnd bound the DST period as offsets from the start
	// of the year. DST is considered inactive when DSTEnd <= DSTStart.
	DSTStart time.Duration
	DSTEnd   time.Duration
}

// Zone returns the fixed standard-time zone for the location.
func (l Location) Zone() *time.Location {
	return time.FixedZone("LST", int(l.TimezoneOffset/time.Second))
}

// HasDST reports whether the location observes daylight saving at all.
func (l Location) HasDST() bool {
	return l.DSTAmount > 0 && l.DSTEnd > l.DSTStart
}

// DSTActive reports whether daylight saving is in effect at t.
func (l Location) DSTActive(t time.Time) bool {
	if !l.HasDST() {
		return false
	}
	yearStart := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	off := t.Sub(yearStart)
	return off >= l.DSTStart && off < l.DSTEnd
}

// NoonClockHour returns the wall-clock hour that observers call noon on
// the given day: 12 in standard time, 13 under a one-hour DST shift.
// Stream internals always run on standard time; DST exists only at the
// boundary where files and users speak wall clock.
func (l Location) NoonClockHour(day time.Time) int {
	if l.DSTActive(day.Add(12 * time.Hour)) {
		return 12 + int(l.DSTAmount/time.Hour)
	}
	return 12
}

// Sun returns sunrise, solar noon and sunset for the day containing t,
// in the location's zone.
func (l Location) Sun(t time.Time) (rise, noon, set time.Time, flags solar.Flags) {
	return solar.RiseSetNoon(l.Latitude, l.Longitude, t.In(l.Zone()))
}

// CompassToRadians converts a meteorological compass bearing in degrees
// (clockwise from north) to the Cartesian radian form used internally
// (counterclockwise from east). Imports additionally map a zero result to
// 2π when wind is blowing, so that exactly zero always means calm.
func CompassToRadians(deg float64) float64 {
	c := math.Mod(90-deg, 360)
	if c < 0 {
		c += 360
	}
	return c * math.Pi / 180
}

// RadiansToCompass is the inverse of CompassToRadians.
func RadiansToCompass(rad float64) float64 {
	d := math.Mod(90-rad*180/math.Pi, 360)
	if d < 0 {
		d += 360
	}
	return d
}
