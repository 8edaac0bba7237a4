package stream

import (
	"time"

	"github.com/lox/fireweather/internal/fwi"
)

// FWI code calculation. Daily codes change at local noon: a lookup at
// time t resolves to the day whose noon most recently passed, so before
// noon a day reports yesterday's codes, and lookups before the timeline
// start fall back to the seed values.

// noonDayIndex maps t to the day whose daily codes are in effect at t.
// beforeStart is true when that day precedes the timeline.
func (s *Stream) noonDayIndex(t time.Time) (idx int, beforeStart, ok bool) {
	ref := t.Add(-12 * time.Hour)
	if ref.Before(s.start) {
		return 0, true, true
	}
	idx = int(ref.Sub(s.start) / (24 * time.Hour))
	if idx >= len(s.days) {
		return 0, false, false
	}
	return idx, false, true
}

// dailyFFMCRef resolves the daily FFMC in effect at t without triggering
// recalculation. Unset values come back as -1.
func (s *Stream) dailyFFMCRef(t time.Time) (v float64, specified, ok bool) {
	idx, before, ok := s.noonDayIndex(t)
	if !ok {
		return -1, false, false
	}
	if before {
		return fv(s.seed.FFMC), true, true
	}
	d := s.days[idx]
	return fv(d.fwi.calcDay.FFMC), d.fwi.specDay.FFMC.Valid, true
}

func (s *Stream) dcRef(t time.Time) (v float64, specified, ok bool) {
	idx, before, ok := s.noonDayIndex(t)
	if !ok {
		return -1, false, false
	}
	if before {
		return fv(s.seed.DC), true, true
	}
	d := s.days[idx]
	return fv(d.fwi.calcDay.DC), d.fwi.specDay.DC.Valid, true
}

func (s *Stream) dmcRef(t time.Time) (v float64, specified, ok bool) {
	idx, before, ok := s.noonDayIndex(t)
	if !ok {
		return -1, false, false
	}
	if before {
		return fv(s.seed.DMC), true, true
	}
	d := s.days[idx]
	return fv(d.fwi.calcDay.DMC), d.fwi.specDay.DMC.Valid, true
}

func (s *Stream) buiRef(t time.Time) (v float64, specified, ok bool) {
	idx, before, ok := s.noonDayIndex(t)
	if !ok {
		return -1, false, false
	}
	if before {
		if !s.seed.BUI.Valid {
			return fwi.BUI(fv(s.seed.DC), fv(s.seed.DMC)), false, true
		}
		return s.seed.BUI.Float64, true, true
	}
	d := s.days[idx]
	return fv(d.fwi.calcDay.BUI), d.fwi.specDay.BUI.Valid, true
}

// hourlyFFMCRef reads a calculated hourly FFMC without recalculating.
// Before the timeline it returns the seed hourly FFMC when no seed hour
// was pinned.
func (s *Stream) hourlyFFMCRef(t time.Time) (float64, bool) {
	d := s.dayAt(t)
	if d != nil {
		h := d.hourOf(t)
		if h < 0 {
			return -1, false
		}
		return fv(d.fwi.calcHour[h].FFMC), true
	}
	if t.Before(s.start) && !s.seed.HourlyFFMCAt.Valid {
		return fv(s.seed.HourlyFFMC), true
	}
	return -1, false
}

// calcFWIDay runs the full chain for one day: DC, DMC, BUI, the daily
// FFMC, the hourly FFMC series under the configured policy, then ISI and
// FWI. Days must be processed in chronological order.
func (s *Stream) calcFWIDay(idx int) {
	d := s.days[idx]
	rain := s.dailyRainOf(idx)
	noon := 12
	month := d.start.Add(12 * time.Hour).Month()
	lat := s.loc.Latitude

	if s.opts.UseSpecified && d.fwi.specDay.DC.Valid {
		d.fwi.calcDay.DC = d.fwi.specDay.DC
	} else {
		in, _, _ := s.dcRef(d.start)
		d.fwi.calcDay.DC = nf(fwi.DC(in, rain, d.temp[noon], lat, month))
	}

	if s.opts.UseSpecified && d.fwi.specDay.DMC.Valid {
		d.fwi.calcDay.DMC = d.fwi.specDay.DMC
	} else {
		in, _, _ := s.dmcRef(d.start)
		d.fwi.calcDay.DMC = nf(fwi.DMC(in, rain, d.temp[noon], lat, month, d.rh[noon]*100))
	}

	if s.opts.UseSpecified && d.fwi.specDay.BUI.Valid {
		d.fwi.calcDay.BUI = d.fwi.specDay.BUI
	} else {
		d.fwi.calcDay.BUI = nf(fwi.BUI(fv(d.fwi.calcDay.DC), fv(d.fwi.calcDay.DMC)))
	}

	if s.opts.UseSpecified && d.fwi.specDay.FFMC.Valid {
		d.fwi.calcDay.FFMC = d.fwi.specDay.FFMC
	} else {
		in, _, _ := s.dailyFFMCRef(d.start)
		d.fwi.calcDay.FFMC = nf(fwi.DailyFFMCVanWagner(in, rain, d.temp[noon], d.rh[noon]*100, d.ws[noon]))
	}

	s.calcHourlyFFMC(idx)
	s.calcRemainingFWI(idx)
}

// dailyRainOf accumulates the 24 h of precipitation ending at the day's
// noon. The first day additionally carries the seed rain that fell
// before the timeline began.
func (s *Stream) dailyRainOf(idx int) float64 {
	d := s.days[idx]
	if d.mode == ModeDailySummary {
		return d.dailyPrecip
	}
	noon := d.start.Add(12 * time.Hour)
	begin := s.start.Add(time.Duration(s.firstHour) * time.Hour)
	end := s.start.Add(time.Duration(len(s.days)-1)*24*time.Hour + time.Duration(s.lastHour)*time.Hour)

	var rain float64
	var loop time.Time
	if idx == 0 {
		rain = s.seed.Rain
		loop = d.start
	} else {
		loop = noon.Add(-23 * time.Hour)
	}
	if loop.Before(begin) {
		loop = begin
	}
	if noon.After(end) {
		noon = end
	}
	for ; !loop.After(noon); loop = loop.Add(time.Hour) {
		rain += s.hourlyRainAt(loop)
	}
	return rain
}

func (s *Stream) calcHourlyFFMC(idx int) {
	d := s.days[idx]
	streamBegin := s.start.Add(time.Duration(s.firstHour) * time.Hour)
	streamEnd := s.start.Add(time.Duration(len(s.days)-1)*24*time.Hour + time.Duration(s.lastHour)*time.Hour)
	end := d.end()

	var loop time.Time
	if idx == 0 {
		// Seed the series: either the daily FFMC applies at noon, or a
		// pinned hourly FFMC applies at its given hour. The hours before
		// the seed point are filled backwards.
		var inFFMC float64
		seedAtNoon := !s.seed.HourlyFFMCAt.Valid || s.opts.Policy != PolicyVanWagner
		if seedAtNoon {
			inFFMC = fv(d.fwi.calcDay.FFMC)
			loop = d.start.Add(12 * time.Hour)
		} else {
			at := s.seed.HourlyFFMCAt.Duration
			if at < time.Duration(s.firstHour)*time.Hour {
				at = time.Duration(s.firstHour) * time.Hour
				s.seed.HourlyFFMCAt.Duration = at
			}
			if at > 23*time.Hour {
				at = 23 * time.Hour
			}
			loop = d.start.Add(at)
			inFFMC = fv(s.seed.HourlyFFMC)
		}

		i := d.hourOf(loop)
		if s.opts.UseSpecified && d.fwi.specHour[i].FFMC.Valid {
			d.fwi.calcHour[i].FFMC = d.fwi.specHour[i].FFMC
		} else {
			d.fwi.calcHour[i].FFMC = nf(inFFMC)
		}

		sb := streamBegin
		if sb.Before(d.start) {
			sb = d.start
		}
		t := loop.Add(-time.Hour)
		for i--; i >= 0 && !t.Before(sb); i, t = i-1, t.Add(-time.Hour) {
			if s.opts.UseSpecified && d.fwi.specHour[i].FFMC.Valid {
				d.fwi.calcHour[i].FFMC = d.fwi.specHour[i].FFMC
				continue
			}
			var val float64
			switch s.opts.Policy {
			case PolicyHybrid, PolicyLawson:
				prevDaily, _, _ := s.dailyFFMCRef(d.start)
				val = fwi.HourlyFFMCLawson(prevDaily, fv(d.fwi.calcDay.FFMC), t.Sub(d.start))
			default:
				next := d.hour(i + 1)
				val = fwi.HourlyFFMCVanWagnerPrevious(fv(d.fwi.calcHour[i+1].FFMC),
					next.Precip, next.Temp, next.RH*100, next.WS)
			}
			d.fwi.calcHour[i].FFMC = nf(val)
		}

		if seedAtNoon {
			loop = d.start.Add(12 * time.Hour)
		} else {
			loop = d.start.Add(s.seed.HourlyFFMCAt.Duration).Add(time.Hour)
		}
	} else {
		loop = d.start
	}

	if end.After(streamEnd) {
		end = streamEnd
	}
	for i := d.hourOf(loop); i >= 0 && i < 24 && !loop.After(end); i, loop = i+1, loop.Add(time.Hour) {
		if s.opts.UseSpecified && d.fwi.specHour[i].FFMC.Valid {
			d.fwi.calcHour[i].FFMC = d.fwi.specHour[i].FFMC
			continue
		}
		w := d.hour(i)
		var val float64
		switch s.opts.Policy {
		case PolicyHybrid:
			prevDaily, _, _ := s.dailyFFMCRef(d.start)
			var prevHr float64
			if i == 0 {
				prevHr, _ = s.hourlyFFMCRef(loop.Add(-time.Hour))
			} else {
				prevHr = fv(d.fwi.calcHour[i-1].FFMC)
			}
			rain48 := make([]float64, 48)
			rain48[0] = w.Precip
			prevLoop := loop.Add(-time.Hour)
			stop := loop.Add(-48 * time.Hour)
			for ii := 1; ii < 48 && prevLoop.After(stop); ii, prevLoop = ii+1, prevLoop.Add(-time.Hour) {
				rain48[ii] = s.hourlyRainAt(prevLoop)
			}
			val = fwi.HourlyFFMCHybrid(prevDaily, fv(d.fwi.calcDay.FFMC), prevHr, rain48,
				w.Temp, w.RH*100, w.WS, loop.Sub(d.start))
		case PolicyLawson:
			prevDaily, _, _ := s.dailyFFMCRef(d.start)
			val = fwi.HourlyFFMCLawson(prevDaily, fv(d.fwi.calcDay.FFMC), loop.Sub(d.start))
		default:
			var in float64
			if i == 0 {
				in, _ = s.hourlyFFMCRef(loop.Add(-time.Hour))
			} else {
				in = fv(d.fwi.calcHour[i-1].FFMC)
			}
			val = fwi.HourlyFFMCVanWagner(in, w.Precip, w.Temp, w.RH*100, w.WS, time.Hour)
		}
		d.fwi.calcHour[i].FFMC = nf(val)
	}
}

// calcRemainingFWI derives the daily and hourly ISI and FWI from the
// FFMC series. The hourly FWI uses the BUI in effect at that hour, which
// before noon is the previous day's.
func (s *Stream) calcRemainingFWI(idx int) {
	d := s.days[idx]
	noonWS := d.ws[12]
	d.fwi.calcDay.ISI = nf(fwi.ISI(fv(d.fwi.calcDay.FFMC), noonWS, 24*time.Hour))
	d.fwi.calcDay.FWI = nf(fwi.FWI(fv(d.fwi.calcDay.ISI), fv(d.fwi.calcDay.BUI)))

	start := s.firstHourOfDay(idx)
	end := s.lastHourOfDay(idx)
	loop := d.start.Add(time.Duration(start) * time.Hour)
	for i := start; i <= end; i, loop = i+1, loop.Add(time.Hour) {
		if s.opts.UseSpecified && d.fwi.specHour[i].ISI.Valid {
			d.fwi.calcHour[i].ISI = d.fwi.specHour[i].ISI
		} else {
			d.fwi.calcHour[i].ISI = nf(fwi.ISI(fv(d.fwi.calcHour[i].FFMC), d.ws[i], time.Hour))
		}
		if s.opts.UseSpecified && d.fwi.specHour[i].FWI.Valid {
			d.fwi.calcHour[i].FWI = d.fwi.specHour[i].FWI
		} else {
			bui, _, _ := s.buiRef(loop)
			d.fwi.calcHour[i].FWI = nf(fwi.FWI(fv(d.fwi.calcHour[i].ISI), bui))
		}
	}
}

// Public accessors. Daily code lookups resolve at the day whose noon most
// recently passed; before the timeline they return the seed values.

// DailyFFMC returns the daily FFMC in effect at t and whether it was
// user-specified.
func (s *Stream) DailyFFMC(t time.Time) (v float64, specified, ok bool) {
	s.ensureCalculated()
	return s.dailyFFMCRef(t)
}

func (s *Stream) DC(t time.Time) (v float64, specified, ok bool) {
	s.ensureCalculated()
	return s.dcRef(t)
}

func (s *Stream) DMC(t time.Time) (v float64, specified, ok bool) {
	s.ensureCalculated()
	return s.dmcRef(t)
}

func (s *Stream) BUI(t time.Time) (v float64, specified, ok bool) {
	s.ensureCalculated()
	return s.buiRef(t)
}

// DailyISI returns the daily ISI in effect at t; -1 before the timeline.
func (s *Stream) DailyISI(t time.Time) (float64, bool) {
	s.ensureCalculated()
	idx, before, ok := s.noonDayIndex(t)
	if !ok {
		return -1, false
	}
	if before {
		return -1, true
	}
	return fv(s.days[idx].fwi.calcDay.ISI), true
}

func (s *Stream) DailyFWI(t time.Time) (float64, bool) {
	s.ensureCalculated()
	idx, before, ok := s.noonDayIndex(t)
	if !ok {
		return -1, false
	}
	if before {
		return -1, true
	}
	return fv(s.days[idx].fwi.calcDay.FWI), true
}

// HourlyFFMC returns the FFMC for the hour containing t. Before the
// timeline it returns the seed hourly FFMC when no seed hour is pinned.
func (s *Stream) HourlyFFMC(t time.Time) (float64, bool) {
	s.ensureCalculated()
	return s.hourlyFFMCRef(t)
}

func (s *Stream) HourlyISI(t time.Time) (float64, bool) {
	d := s.dayAt(t)
	if d == nil {
		return -1, false
	}
	h := d.hourOf(t)
	if h < 0 {
		return -1, false
	}
	s.ensureCalculated()
	return fv(d.fwi.calcHour[h].ISI), true
}

func (s *Stream) HourlyFWI(t time.Time) (float64, bool) {
	d := s.dayAt(t)
	if d == nil {
		return -1, false
	}
	h := d.hourOf(t)
	if h < 0 {
		return -1, false
	}
	s.ensureCalculated()
	return fv(d.fwi.calcHour[h].FWI), true
}

// IsHourlyFFMCSpecified reports whether the hour's FFMC came from user
// input rather than calculation.
func (s *Stream) IsHourlyFFMCSpecified(t time.Time) bool {
	d := s.dayAt(t)
	if d == nil {
		return false
	}
	h := d.hourOf(t)
	return h >= 0 && d.fwi.specHour[h].FFMC.Valid
}
