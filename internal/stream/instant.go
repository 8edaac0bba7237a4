package stream

import (
	"database/sql"
	"math"
	"time"

	"github.com/lox/fireweather/internal/fwi"
)

// InstantDaily carries the daily codes in effect at a queried instant.
// Unset values are -1.
type InstantDaily struct {
	FFMC, DMC, DC, BUI, ISI, FWI                           float64
	FFMCSpecified, DMCSpecified, DCSpecified, BUISpecified bool
}

// Instant is the weather and FWI state at an arbitrary time, linearly
// interpolated between the bracketing hours when requested.
type Instant struct {
	Temp, RH, WS, WD, Precip, DewPoint float64
	Gust                               sql.NullFloat64
	Interpolated, Corrected            bool

	FFMC, ISI, FWI float64
	FFMCSpecified  bool

	Daily InstantDaily
}

func (s *Stream) fillDaily(t time.Time, out *InstantDaily) {
	out.FFMC, out.FFMCSpecified, _ = s.dailyFFMCRef(t)
	out.DC, out.DCSpecified, _ = s.dcRef(t)
	out.DMC, out.DMCSpecified, _ = s.dmcRef(t)
	out.BUI, out.BUISpecified, _ = s.buiRef(t)
	out.ISI = -1
	out.FWI = -1
	if idx, before, ok := s.noonDayIndex(t); ok && !before {
		out.ISI = fv(s.days[idx].fwi.calcDay.ISI)
		out.FWI = fv(s.days[idx].fwi.calcDay.FWI)
	}
}

// seedDailyISI covers queries on the first day before its own noon: the
// daily codes in effect are the seed values, which carry no ISI, so one
// is derived from the seed FFMC and the day's noon wind.
func (s *Stream) seedDailyISI(d *dayRecord, out *InstantDaily) {
	if out.FFMC >= 0 && out.ISI == -1 && d != nil {
		out.ISI = fwi.ISI(out.FFMC, d.ws[12], 24*time.Hour)
		out.FWI = fwi.FWI(out.ISI, out.BUI)
	}
}

// Instantaneous returns the weather and FWI values at t. With
// interpolate set, values between hours blend the bracketing readings;
// otherwise the containing hour's values are returned as-is. The Daily
// codes are filled even when t precedes the timeline (from the seed) and
// ok is false.
func (s *Stream) Instantaneous(t time.Time, interpolate bool) (Instant, bool) {
	s.ensureCalculated()

	var inst Instant
	inst.FFMC, inst.ISI, inst.FWI = -1, -1, -1

	var nt1 time.Time
	if len(s.days) > 0 {
		off := t.Sub(s.start)
		if off >= 0 {
			nt1 = s.start.Add(off - off%time.Hour)
		} else {
			nt1 = s.start.Add(-((-off + time.Hour - 1) / time.Hour * time.Hour))
		}
	} else {
		nt1 = t
	}
	nt2 := nt1.Add(time.Hour)
	d1 := s.dayAt(nt1)
	d2 := s.dayAt(nt2)

	exact := t.Equal(nt1)

	if d1 == nil || d2 == nil || t.Equal(nt2) || !interpolate {
		if d1 != nil {
			h := d1.hourOf(nt1)
			r := d1.hour(h)
			inst.Temp = r.Temp
			inst.RH = r.RH
			inst.Precip = r.Precip
			inst.WS = r.WS
			inst.WD = r.WD
			inst.DewPoint = r.DewPoint.Float64
			inst.Gust = r.Gust
			if interpolate && d2 == nil && !exact {
				inst.Precip = 0
			}
			inst.Interpolated = d1.interpolated[h]
			inst.Corrected = d1.corrected[h]

			inst.FFMC = fv(d1.fwi.calcHour[h].FFMC)
			inst.ISI = fv(d1.fwi.calcHour[h].ISI)
			inst.FWI = fv(d1.fwi.calcHour[h].FWI)
			inst.FFMCSpecified = d1.fwi.specHour[h].FFMC.Valid
		}
		s.fillDaily(t, &inst.Daily)
		s.seedDailyISI(d1, &inst.Daily)
		return inst, d1 != nil
	}

	h1 := d1.hourOf(nt1)
	h2 := d2.hourOf(nt2)
	r1 := d1.hour(h1)
	r2 := d2.hour(h2)

	perc2 := t.Sub(nt1).Seconds() / 3600
	perc1 := 1 - perc2

	inst.Temp = r1.Temp*perc1 + r2.Temp*perc2
	inst.DewPoint = r1.DewPoint.Float64*perc1 + r2.DewPoint.Float64*perc2
	inst.RH = r1.RH*perc1 + r2.RH*perc2
	inst.Precip = r2.Precip * perc2
	if r1.Gust.Valid && r2.Gust.Valid {
		inst.Gust = sql.NullFloat64{Float64: r1.Gust.Float64*perc1 + r2.Gust.Float64*perc2, Valid: true}
	}

	calm1 := r1.WS < 0.0001 && r1.WD < 0.0001
	calm2 := r2.WS < 0.0001 && r2.WD < 0.0001
	wdDiff := normalizeAngle(r2.WD - r1.WD)
	opposed := r1.WS >= 0.0001 && r2.WS >= 0.0001 &&
		wdDiff < 181*math.Pi/180 && wdDiff > 179*math.Pi/180

	switch {
	case calm1:
		inst.WD = r2.WD
	case calm2:
		inst.WD = r1.WD
	case opposed:
		// Nearly opposite directions have no meaningful blend; snap to
		// the nearer hour.
		if !t.After(nt1.Add(30 * time.Minute)) {
			inst.WD = r1.WD
		} else {
			inst.WD = r2.WD
		}
	default:
		if wdDiff > math.Pi {
			wdDiff -= 2 * math.Pi
		}
		inst.WD = normalizeAngle(r2.WD - perc1*wdDiff)
	}

	if opposed {
		if !t.After(nt1.Add(30 * time.Minute)) {
			inst.WS = r1.WS
		} else {
			inst.WS = r2.WS
		}
	} else {
		inst.WS = r1.WS*perc1 + r2.WS*perc2
	}
	inst.Interpolated = d1.interpolated[h1]

	s.fillDaily(t, &inst.Daily)
	s.seedDailyISI(d1, &inst.Daily)

	ffmc1 := fv(d1.fwi.calcHour[h1].FFMC)
	ffmc2 := fv(d2.fwi.calcHour[h2].FFMC)
	spec2 := d2.fwi.specHour[h2].FFMC.Valid

	dayStart := s.start.Add(time.Duration(s.dayIndex(t)) * 24 * time.Hour)
	if spec2 {
		inst.FFMCSpecified = true
		inst.FFMC = ffmc1*perc1 + ffmc2*perc2
	} else {
		switch s.opts.Policy {
		case PolicyHybrid:
			prevDaily, _, _ := s.dailyFFMCRef(dayStart)
			todayDaily, _, _ := s.dailyFFMCRef(dayStart.Add(18 * time.Hour))
			rain48 := make([]float64, 48)
			prevLoop := nt2
			stop := nt2.Add(-48 * time.Hour)
			for ii := 0; ii < 48 && prevLoop.After(stop); ii, prevLoop = ii+1, prevLoop.Add(-time.Hour) {
				rain48[ii] = s.hourlyRainAt(prevLoop)
			}
			inst.FFMC = fwi.HourlyFFMCHybrid(prevDaily, todayDaily, ffmc1, rain48,
				inst.Temp, inst.RH*100, inst.WS, t.Sub(dayStart))
		case PolicyLawson:
			prevDaily, _, _ := s.dailyFFMCRef(dayStart)
			todayDaily, _, _ := s.dailyFFMCRef(dayStart.Add(18 * time.Hour))
			inst.FFMC = fwi.HourlyFFMCLawson(prevDaily, todayDaily, t.Sub(dayStart))
		default:
			inst.FFMC = fwi.HourlyFFMCVanWagner(ffmc1, inst.Precip, inst.Temp,
				inst.RH*100, inst.WS, t.Sub(nt1))
		}
	}

	inst.ISI = fwi.ISI(inst.FFMC, inst.WS, 24*time.Hour)
	inst.FWI = fwi.FWI(inst.ISI, inst.Daily.BUI)
	return inst, true
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
