package stream

import (
	"database/sql"
	"time"

	"github.com/lox/fireweather/internal/solar"
)

// DayMode says which representation a day's weather arrived in. The two
// are exclusive: writing one representation converts the day and discards
// the other's provenance.
type DayMode int

const (
	// ModeDailySummary means the day carries min/max observations and its
	// hourly curves are synthesized.
	ModeDailySummary DayMode = iota
	// ModeHourly means the day carries real hourly observations.
	ModeHourly
)

// DailySummary is one day of min/max observations. RH is a fraction in
// [0,1], wind direction a Cartesian bearing in radians, precip the 24 h
// accumulation in mm.
type DailySummary struct {
	MinTemp, MaxTemp float64
	MinWS, MaxWS     float64
	MinGust, MaxGust float64
	RH               float64
	Precip           float64
	WD               float64
}

// HourlyReading is one hour of observed weather. RH is a fraction, WD a
// Cartesian bearing in radians (zero means calm). Gust and DewPoint are
// optional; an unset dew point is derived from temperature and humidity
// during calculation.
type HourlyReading struct {
	Temp     float64
	RH       float64
	WS       float64
	Gust     sql.NullFloat64
	WD       float64
	Precip   float64
	DewPoint sql.NullFloat64
}

// DailyCodes holds the once-per-day FWI values.
type DailyCodes struct {
	FFMC sql.NullFloat64
	DMC  sql.NullFloat64
	DC   sql.NullFloat64
	BUI  sql.NullFloat64
	ISI  sql.NullFloat64
	FWI  sql.NullFloat64
}

// HourlyCodes holds the per-hour FWI values.
type HourlyCodes struct {
	FFMC sql.NullFloat64
	ISI  sql.NullFloat64
	FWI  sql.NullFloat64
}

// fwiRecord keeps user-specified values separate from calculated ones so
// that recalculation never destroys user input and specified overrides
// can be switched on and off.
type fwiRecord struct {
	specDay  DailyCodes
	calcDay  DailyCodes
	specHour [24]HourlyCodes
	calcHour [24]HourlyCodes
}

// dayRecord is one contiguous day of the timeline. Hourly arrays are
// indexed by local standard hour. RH and daily RH are fractions, wind
// directions Cartesian radians.
type dayRecord struct {
	start time.Time
	mode  DayMode

	// originFile marks days whose weather came from an imported file
	// rather than the API.
	originFile bool

	// Hourly channels. For ModeDailySummary days these hold synthesized
	// curves after calculation.
	temp   [24]float64
	dew    [24]float64
	rh     [24]float64
	ws     [24]float64
	gust   [24]float64
	wd     [24]float64
	precip [24]float64

	gustSet      [24]bool
	dewSpecified [24]bool
	interpolated [24]bool
	corrected    [24]bool

	// Daily summary channels. For ModeHourly days these are aggregated
	// from the hourly arrays during calculation.
	minTemp, maxTemp float64
	minWS, maxWS     float64
	minGust, maxGust float64
	dailyRH          float64
	dailyPrecip      float64
	dailyWD          float64

	// Sun anchors and diurnal curve scratch, valid after calculation.
	sunrise, solarNoon, sunset time.Time
	sunFlags                   solar.Flags

	curveMin, curveMax, curveGamma float64
	curveSunset                    float64
	sunsetTemp                     float64
	tn, tx, ts                     time.Time

	fwi fwiRecord
}

func newDayRecord(start time.Time) *dayRecord {
	return &dayRecord{start: start}
}

// hourOf maps a time to this day's hour index, or -1 if t falls outside
// the day.
func (d *dayRecord) hourOf(t time.Time) int {
	h := int(t.Sub(d.start) / time.Hour)
	if h < 0 || h > 23 {
		return -1
	}
	return h
}

func (d *dayRecord) end() time.Time {
	return d.start.Add(23 * time.Hour)
}

// setSummary replaces the day's weather with a daily summary, discarding
// any hourly provenance.
func (d *dayRecord) setSummary(w DailySummary) {
	d.mode = ModeDailySummary
	d.minTemp, d.maxTemp = w.MinTemp, w.MaxTemp
	d.minWS, d.maxWS = w.MinWS, w.MaxWS
	d.minGust, d.maxGust = w.MinGust, w.MaxGust
	d.dailyRH = w.RH
	d.dailyPrecip = w.Precip
	d.dailyWD = w.WD
	for i := range d.gustSet {
		d.gustSet[i] = false
		d.dewSpecified[i] = false
		d.interpolated[i] = false
		d.corrected[i] = false
	}
}

func (d *dayRecord) summary() DailySummary {
	return DailySummary{
		MinTemp: d.minTemp, MaxTemp: d.maxTemp,
		MinWS: d.minWS, MaxWS: d.maxWS,
		MinGust: d.minGust, MaxGust: d.maxGust,
		RH:     d.dailyRH,
		Precip: d.dailyPrecip,
		WD:     d.dailyWD,
	}
}

// setHour writes one hourly reading, converting the day to hourly mode.
func (d *dayRecord) setHour(h int, r HourlyReading) {
	d.mode = ModeHourly
	d.temp[h] = r.Temp
	d.rh[h] = clamp01(r.RH)
	d.ws[h] = r.WS
	d.wd[h] = r.WD
	d.precip[h] = r.Precip
	if r.Gust.Valid {
		d.gust[h] = r.Gust.Float64
		d.gustSet[h] = true
	} else {
		d.gust[h] = 0
		d.gustSet[h] = false
	}
	if r.DewPoint.Valid {
		d.dew[h] = r.DewPoint.Float64
		d.dewSpecified[h] = true
	} else {
		d.dewSpecified[h] = false
	}
}

func (d *dayRecord) hour(h int) HourlyReading {
	r := HourlyReading{
		Temp:   d.temp[h],
		RH:     d.rh[h],
		WS:     d.ws[h],
		WD:     d.wd[h],
		Precip: d.precip[h],
	}
	if d.gustSet[h] {
		r.Gust = sql.NullFloat64{Float64: d.gust[h], Valid: true}
	}
	r.DewPoint = sql.NullFloat64{Float64: d.dew[h], Valid: true}
	return r
}

// aggregate fills the daily summary channels from the hourly arrays of an
// hourly-mode day. first and last bound the hours that actually hold data
// (partial first and last days of a stream).
func (d *dayRecord) aggregate(first, last int) {
	if d.mode != ModeHourly {
		return
	}
	d.minTemp, d.maxTemp = d.temp[first], d.temp[first]
	d.minWS, d.maxWS = d.ws[first], d.ws[first]
	var rhSum, precipSum float64
	var gustMin, gustMax float64
	haveGust := false
	for i := first; i <= last; i++ {
		if d.temp[i] < d.minTemp {
			d.minTemp = d.temp[i]
		}
		if d.temp[i] > d.maxTemp {
			d.maxTemp = d.temp[i]
		}
		if d.ws[i] < d.minWS {
			d.minWS = d.ws[i]
		}
		if d.ws[i] > d.maxWS {
			d.maxWS = d.ws[i]
		}
		if d.gustSet[i] {
			if !haveGust || d.gust[i] < gustMin {
				gustMin = d.gust[i]
			}
			if !haveGust || d.gust[i] > gustMax {
				gustMax = d.gust[i]
			}
			haveGust = true
		}
		rhSum += d.rh[i]
		precipSum += d.precip[i]
	}
	d.dailyRH = rhSum / float64(last-first+1)
	d.dailyPrecip = precipSum
	if haveGust {
		d.minGust, d.maxGust = gustMin, gustMax
	} else {
		d.minGust, d.maxGust = 0, 0
	}
	d.dailyWD = d.wd[last]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
