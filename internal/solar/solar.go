package solar

import (
	"math"
	"time"
)

// Flags reports degenerate sun geometry for a day at high latitudes.
type Flags int

const (
	// NoRise is set when the sun never rises on the requested day.
	NoRise Flags = 1 << iota
	// NoSet is set when the sun never sets on the requested day.
	NoSet
)

const zenith = 90.833 // official sunrise/sunset zenith, degrees

// RiseSetNoon computes sunrise, solar noon and sunset for the calendar day
// containing t, at the given latitude/longitude (degrees, east positive).
// Returned times are in t's location. When the sun never rises or sets the
// corresponding flag is set and the returned instant is clamped to the start
// (sunrise) or end (sunset) of the day.
func RiseSetNoon(lat, lon float64, t time.Time) (rise, noon, set time.Time, flags Flags) {
	year, month, day := t.Date()
	loc := t.Location()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)

	doy := float64(dayStart.YearDay())
	// Fractional year, radians. Noon is close enough for the whole day.
	gamma := 2 * math.Pi / 365 * (doy - 1 + 0.5)

	eqtime := 229.18 * (0.000075 +
		0.001868*math.Cos(gamma) - 0.032077*math.Sin(gamma) -
		0.014615*math.Cos(2*gamma) - 0.040849*math.Sin(2*gamma))
	decl := 0.006918 -
		0.399912*math.Cos(gamma) + 0.070257*math.Sin(gamma) -
		0.006758*math.Cos(2*gamma) + 0.000907*math.Sin(2*gamma) -
		0.002697*math.Cos(3*gamma) + 0.00148*math.Sin(3*gamma)

	latRad := lat * math.Pi / 180
	cosHA := (math.Cos(zenith*math.Pi/180) - math.Sin(latRad)*math.Sin(decl)) /
		(math.Cos(latRad) * math.Cos(decl))

	_, offsetSec := dayStart.Zone()
	offsetMin := float64(offsetSec) / 60

	noonMin := 720 - 4*lon - eqtime + offsetMin
	noon = dayStart.Add(time.Duration(noonMin * float64(time.Minute)))

	if cosHA > 1 {
		// Sun stays below the horizon all day.
		flags |= NoRise | NoSet
		rise = dayStart
		set = dayStart.Add(24*time.Hour - time.Second)
		return rise, noon, set, flags
	}
	if cosHA < -1 {
		// Sun stays above the horizon all day.
		flags |= NoRise | NoSet
		rise = dayStart
		set = dayStart.Add(24*time.Hour - time.Second)
		return rise, noon, set, flags
	}

	haDeg := math.Acos(cosHA) * 180 / math.Pi
	riseMin := 720 - 4*(lon+haDeg) - eqtime + offsetMin
	setMin := 720 - 4*(lon-haDeg) - eqtime + offsetMin

	rise = dayStart.Add(time.Duration(riseMin * float64(time.Minute)))
	set = dayStart.Add(time.Duration(setMin * float64(time.Minute)))
	return rise, noon, set, flags
}
