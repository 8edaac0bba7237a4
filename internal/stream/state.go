package stream

import (
	"database/sql"
	"time"
)

// HourState is one persisted hour: the raw reading plus its import
// provenance. DewPoint is set only when a dew point was observed rather
// than derived.
type HourState struct {
	Reading      HourlyReading
	Interpolated bool
	Corrected    bool
}

// DayState is one persisted day. Hours is empty for daily-summary days.
type DayState struct {
	Start      time.Time
	Mode       DayMode
	OriginFile bool

	Summary DailySummary
	Hours   []HourState

	SpecDay   DailyCodes
	SpecHours [24]HourlyCodes
}

// State is a snapshot of everything a stream needs to be rebuilt:
// location, seed values, options, curve parameters and the raw
// observations. Calculated values are never persisted; they are derived
// again on load.
type State struct {
	Location Location
	Start    time.Time
	Options  Options
	Seed     Seed
	Curve    CurveParams

	FirstHour int
	LastHour  int

	Days []DayState
}

// State captures the stream for persistence.
func (s *Stream) State() State {
	st := State{
		Location:  s.loc,
		Start:     s.start,
		Options:   s.opts,
		Seed:      s.seed,
		Curve:     s.CurveParams,
		FirstHour: s.firstHour,
		LastHour:  s.lastHour,
	}
	for _, d := range s.days {
		ds := DayState{
			Start:      d.start,
			Mode:       d.mode,
			OriginFile: d.originFile,
			Summary:    d.summary(),
			SpecDay:    d.fwi.specDay,
			SpecHours:  d.fwi.specHour,
		}
		if d.mode == ModeHourly {
			ds.Hours = make([]HourState, 24)
			for h := 0; h < 24; h++ {
				hs := HourState{
					Reading: HourlyReading{
						Temp:   d.temp[h],
						RH:     d.rh[h],
						WS:     d.ws[h],
						WD:     d.wd[h],
						Precip: d.precip[h],
					},
					Interpolated: d.interpolated[h],
					Corrected:    d.corrected[h],
				}
				if d.gustSet[h] {
					hs.Reading.Gust = sql.NullFloat64{Float64: d.gust[h], Valid: true}
				}
				if d.dewSpecified[h] {
					hs.Reading.DewPoint = sql.NullFloat64{Float64: d.dew[h], Valid: true}
				}
				ds.Hours[h] = hs
			}
		}
		st.Days = append(st.Days, ds)
	}
	return st
}

// FromState rebuilds a stream from a persisted snapshot.
func FromState(st State) *Stream {
	s := &Stream{
		CurveParams: st.Curve,
		loc:         st.Location,
		start:       st.Start,
		firstHour:   st.FirstHour,
		lastHour:    st.LastHour,
		opts:        st.Options,
		seed:        st.Seed,
	}
	for i, ds := range st.Days {
		d := newDayRecord(s.start.Add(time.Duration(i) * 24 * time.Hour))
		d.originFile = ds.OriginFile
		if ds.Mode == ModeHourly && len(ds.Hours) == 24 {
			for h, hs := range ds.Hours {
				d.setHour(h, hs.Reading)
				d.interpolated[h] = hs.Interpolated
				d.corrected[h] = hs.Corrected
			}
		} else {
			d.setSummary(ds.Summary)
		}
		d.fwi.specDay = ds.SpecDay
		d.fwi.specHour = ds.SpecHours
		s.days = append(s.days, d)
	}
	s.Invalidate()
	return s
}
