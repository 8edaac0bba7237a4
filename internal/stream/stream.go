// Package stream maintains a contiguous per-location weather timeline:
// observed hourly readings and daily summaries, diurnal curves
// synthesized for summary days, and the Canadian Fire Weather Index
// codes calculated over the whole of it. All times are local standard
// time at the stream's location; days are midnight-aligned and
// append-only.
package stream

import (
	"database/sql"
	"math"
	"time"

	"github.com/lox/fireweather/internal/solar"
)

// CurveParams are the diurnal curve fitting parameters: the morning
// minimum falls at sunrise plus alpha hours, the afternoon maximum at
// solar noon plus beta hours, and gamma shapes the overnight exponential
// decay.
type CurveParams struct {
	TempAlpha, TempBeta, TempGamma float64
	WindAlpha, WindBeta, WindGamma float64
}

// DefaultCurveParams are the Beck & Trevitt fits used when nothing else
// is configured.
func DefaultCurveParams() CurveParams {
	return CurveParams{
		TempAlpha: -0.77, TempBeta: 2.80, TempGamma: -2.20,
		WindAlpha: 1.00, WindBeta: 1.24, WindGamma: -3.59,
	}
}

// NullDuration is a duration that may be unset.
type NullDuration struct {
	Duration time.Duration
	Valid    bool
}

// Seed holds the starting conditions in effect before the first
// observation: the previous day's daily codes, rain already fallen, and
// optionally an hourly FFMC pinned to a specific hour of the first day.
type Seed struct {
	FFMC sql.NullFloat64
	DMC  sql.NullFloat64
	DC   sql.NullFloat64
	BUI  sql.NullFloat64

	HourlyFFMC   sql.NullFloat64
	HourlyFFMCAt NullDuration

	Rain float64
	Temp float64
	WS   float64
}

// Stream is one location's weather timeline.
type Stream struct {
	// CurveParams may be read freely; mutate through SetCurveParams so
	// calculated values are invalidated.
	CurveParams

	loc   Location
	start time.Time
	days  []*dayRecord

	firstHour int
	lastHour  int

	opts Options
	seed Seed

	calcValid bool
}

// New returns an empty stream at the given location with default curve
// parameters and the Van Wagner hourly FFMC policy.
func New(loc Location) *Stream {
	return &Stream{
		CurveParams: DefaultCurveParams(),
		loc:         loc,
	}
}

func (s *Stream) Location() Location { return s.loc }

// SetLocation moves the stream and invalidates everything derived from
// sun position.
func (s *Stream) SetLocation(loc Location) {
	s.loc = loc
	s.Invalidate()
}

func (s *Stream) Options() Options { return s.opts }

func (s *Stream) SetOptions(o Options) {
	if o == s.opts {
		return
	}
	s.opts = o
	s.Invalidate()
}

func (s *Stream) Seed() Seed { return s.seed }

func (s *Stream) SetSeed(seed Seed) {
	s.seed = seed
	s.Invalidate()
}

func (s *Stream) SetCurveParams(p CurveParams) {
	if p == s.CurveParams {
		return
	}
	s.CurveParams = p
	s.Invalidate()
}

// Invalidate marks all calculated values stale. The next accessor that
// needs them recalculates the whole timeline.
func (s *Stream) Invalidate() { s.calcValid = false }

// Start returns midnight of the first day, or the zero time for an empty
// stream.
func (s *Stream) Start() time.Time { return s.start }

// SetStart fixes the first day of an empty stream. It has no effect once
// readings exist.
func (s *Stream) SetStart(t time.Time) {
	if len(s.days) > 0 {
		return
	}
	lt := t.In(s.loc.Zone())
	s.start = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.loc.Zone())
	s.Invalidate()
}

// End returns the last second of the last day, or the zero time for an
// empty stream.
func (s *Stream) End() time.Time {
	if len(s.days) == 0 {
		return time.Time{}
	}
	return s.start.Add(time.Duration(len(s.days))*24*time.Hour - time.Second)
}

func (s *Stream) NumDays() int { return len(s.days) }

// FirstHour and LastHour bound the observed hours of the first and last
// days; intermediate days are always complete.
func (s *Stream) FirstHour() int { return s.firstHour }
func (s *Stream) LastHour() int  { return s.lastHour }

func (s *Stream) dayIndex(t time.Time) int {
	if len(s.days) == 0 || t.Before(s.start) {
		return -1
	}
	idx := int(t.Sub(s.start) / (24 * time.Hour))
	if idx >= len(s.days) {
		return -1
	}
	return idx
}

func (s *Stream) dayAt(t time.Time) *dayRecord {
	idx := s.dayIndex(t)
	if idx < 0 {
		return nil
	}
	return s.days[idx]
}

// getOrCreate returns the day containing t, appending a new day when t
// falls exactly one day past the current end and the last day is
// complete. Prepending and gaps are never allowed.
func (s *Stream) getOrCreate(t time.Time) *dayRecord {
	if t.Before(s.start) && len(s.days) > 0 {
		return nil
	}
	if len(s.days) == 0 {
		if s.start.IsZero() {
			s.SetStart(t)
		}
		if t.Before(s.start) {
			return nil
		}
	}
	idx := int(t.Sub(s.start) / (24 * time.Hour))
	if idx < len(s.days) {
		return s.days[idx]
	}
	if len(s.days) > 0 && (s.lastHour != 23 || idx != len(s.days)) {
		return nil
	}
	if len(s.days) == 0 && idx != 0 {
		return nil
	}
	d := newDayRecord(s.start.Add(time.Duration(idx) * 24 * time.Hour))
	s.days = append(s.days, d)
	s.Invalidate()
	return d
}

func (s *Stream) firstHourOfDay(idx int) int {
	if idx == 0 {
		return s.firstHour
	}
	return 0
}

func (s *Stream) lastHourOfDay(idx int) int {
	if idx == len(s.days)-1 {
		return s.lastHour
	}
	return 23
}

// hourlyRainAt reads an hour's precipitation without triggering
// recalculation; outside the timeline it is zero.
func (s *Stream) hourlyRainAt(t time.Time) float64 {
	d := s.dayAt(t)
	if d == nil {
		return 0
	}
	h := d.hourOf(t)
	if h < 0 {
		return 0
	}
	return d.precip[h]
}

// IsHourly reports whether the day containing t holds hourly
// observations. The second result is false when t is outside the
// timeline.
func (s *Stream) IsHourly(t time.Time) (bool, bool) {
	d := s.dayAt(t)
	if d == nil {
		return false, false
	}
	return d.mode == ModeHourly, true
}

// MakeHourlyObservations converts the day containing t to hourly mode,
// creating it if it directly follows the timeline.
func (s *Stream) MakeHourlyObservations(t time.Time) error {
	d := s.getOrCreate(t)
	if d == nil {
		return ErrAttemptAppend
	}
	if d.mode != ModeHourly {
		d.mode = ModeHourly
		s.Invalidate()
	}
	return nil
}

// MakeDailyObservations converts the day containing t to daily-summary
// mode.
func (s *Stream) MakeDailyObservations(t time.Time) error {
	d := s.getOrCreate(t)
	if d == nil {
		return ErrAttemptAppend
	}
	if d.mode != ModeDailySummary {
		d.mode = ModeDailySummary
		s.Invalidate()
	}
	return nil
}

// DailySummaryAt returns the day's summary values; for hourly days these
// are aggregated from the observations.
func (s *Stream) DailySummaryAt(t time.Time) (DailySummary, bool) {
	idx := s.dayIndex(t)
	if idx < 0 {
		return DailySummary{}, false
	}
	s.ensureCalculated()
	return s.days[idx].summary(), true
}

// SetDailySummary writes a day's min/max observations. The day must be
// in daily-summary mode (or new) and adjacent to the timeline.
func (s *Stream) SetDailySummary(t time.Time, w DailySummary) error {
	d := s.getOrCreate(t)
	if d == nil {
		return ErrAttemptAppend
	}
	if d.mode == ModeHourly {
		return ErrAttemptOverwrite
	}
	if len(s.days) == 1 && d == s.days[0] {
		s.firstHour = 0
	}
	s.lastHour = 23
	old := d.summary()
	d.setSummary(w)
	if !summariesClose(old, w) {
		s.opts.UseSpecified = false
	}
	s.Invalidate()
	return nil
}

// HourlyReadingAt returns the weather for the hour containing t. For
// daily-summary days this is the synthesized curve value.
func (s *Stream) HourlyReadingAt(t time.Time) (HourlyReading, bool) {
	d := s.dayAt(t)
	if d == nil {
		return HourlyReading{}, false
	}
	h := d.hourOf(t)
	if h < 0 {
		return HourlyReading{}, false
	}
	s.ensureCalculated()
	return d.hour(h), true
}

// IsInterpolated reports whether the hour containing t was filled by
// interpolation during import.
func (s *Stream) IsInterpolated(t time.Time) bool {
	d := s.dayAt(t)
	if d == nil {
		return false
	}
	h := d.hourOf(t)
	return h >= 0 && d.interpolated[h]
}

// IsCorrected reports whether the hour containing t was clamped into
// range during import.
func (s *Stream) IsCorrected(t time.Time) bool {
	d := s.dayAt(t)
	if d == nil {
		return false
	}
	h := d.hourOf(t)
	return h >= 0 && d.corrected[h]
}

// HasAnyCorrected reports whether any imported hour was corrected.
func (s *Stream) HasAnyCorrected() bool {
	for _, d := range s.days {
		for _, c := range d.corrected {
			if c {
				return true
			}
		}
	}
	return false
}

// SetHourlyReading writes one hour of observed weather. The hour must be
// inside the timeline or extend it by exactly one hour, and its day must
// be in hourly mode.
func (s *Stream) SetHourlyReading(t time.Time, r HourlyReading) error {
	// Contiguity is checked before anything is created or written, so a
	// rejected reading leaves the stream untouched. An hour past the last
	// written one counts as contiguous whether or not it crosses midnight.
	var end time.Time
	if len(s.days) > 0 {
		end = s.start.Add(time.Duration(len(s.days)-1)*24*time.Hour + time.Duration(s.lastHour)*time.Hour)
	} else if !s.start.IsZero() {
		end = s.start
	} else {
		lt := t.In(s.loc.Zone())
		end = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.loc.Zone())
	}
	diff := t.Sub(end)
	if diff > time.Hour {
		return ErrInvalidTime
	}
	d := s.getOrCreate(t)
	if d == nil {
		return ErrAttemptAppend
	}
	if d.mode != ModeHourly && s.dayIndex(t) < len(s.days)-1 {
		return ErrAttemptOverwrite
	}
	h := d.hourOf(t)
	if h < 0 {
		return ErrInvalidTime
	}
	if diff == time.Hour {
		s.lastHour = (s.lastHour + 1) % 24
	}
	if len(s.days) == 1 && h < s.firstHour {
		s.firstHour = h
	}
	old := d.hour(h)
	d.setHour(h, r)
	if !readingsClose(old, r) {
		s.opts.UseSpecified = false
	}
	d.interpolated[h] = false
	d.corrected[h] = false
	s.Invalidate()
	return nil
}

// Daily code setters. Out-of-range values are ignored; negative values
// clear the specified code.

func (s *Stream) SetDailyFFMC(t time.Time, v float64) {
	s.setDailyCode(t, v, 101, func(r *fwiRecord, n sql.NullFloat64) { r.specDay.FFMC = n })
}

func (s *Stream) SetDMC(t time.Time, v float64) {
	s.setDailyCode(t, v, 500, func(r *fwiRecord, n sql.NullFloat64) { r.specDay.DMC = n })
}

func (s *Stream) SetDC(t time.Time, v float64) {
	s.setDailyCode(t, v, 1500, func(r *fwiRecord, n sql.NullFloat64) { r.specDay.DC = n })
}

func (s *Stream) SetBUI(t time.Time, v float64) {
	s.setDailyCode(t, v, math.MaxFloat64, func(r *fwiRecord, n sql.NullFloat64) { r.specDay.BUI = n })
}

func (s *Stream) setDailyCode(t time.Time, v, max float64, set func(*fwiRecord, sql.NullFloat64)) {
	d := s.getOrCreate(t)
	if d == nil || v > max {
		return
	}
	set(&d.fwi, nf(v))
	s.Invalidate()
}

// Hourly code setters.

func (s *Stream) SetHourlyFFMC(t time.Time, v float64) {
	s.setHourlyCode(t, v, func(c *HourlyCodes, n sql.NullFloat64) { c.FFMC = n })
}

func (s *Stream) SetHourlyISI(t time.Time, v float64) {
	s.setHourlyCode(t, v, func(c *HourlyCodes, n sql.NullFloat64) { c.ISI = n })
}

func (s *Stream) SetHourlyFWI(t time.Time, v float64) {
	s.setHourlyCode(t, v, func(c *HourlyCodes, n sql.NullFloat64) { c.FWI = n })
}

func (s *Stream) setHourlyCode(t time.Time, v float64, set func(*HourlyCodes, sql.NullFloat64)) {
	d := s.getOrCreate(t)
	if d == nil {
		return
	}
	h := d.hourOf(t)
	if h < 0 {
		return
	}
	set(&d.fwi.specHour[h], nf(v))
	s.Invalidate()
}

// AnyCodesSpecified reports whether any day or hour carries a
// user-specified FWI value.
func (s *Stream) AnyCodesSpecified() bool {
	for _, d := range s.days {
		sd := d.fwi.specDay
		if sd.FFMC.Valid || sd.DMC.Valid || sd.DC.Valid || sd.BUI.Valid {
			return true
		}
		for _, h := range d.fwi.specHour {
			if h.FFMC.Valid || h.ISI.Valid || h.FWI.Valid {
				return true
			}
		}
	}
	return false
}

// ClearData removes every reading, leaving location, options and seed
// values in place.
func (s *Stream) ClearData() {
	s.days = nil
	s.start = time.Time{}
	s.firstHour = 0
	s.lastHour = 0
	s.Invalidate()
}

// SetEndTime grows or shrinks the timeline to end on the day containing
// endTime. Growth copies the last day's summary values forward as
// daily-summary days; shrinkage drops whole days from the end.
func (s *Stream) SetEndTime(endTime time.Time) {
	if len(s.days) == 0 {
		return
	}
	cur := s.start.Add(time.Duration(len(s.days)-1) * 24 * time.Hour)
	lt := endTime.In(s.loc.Zone())
	target := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, s.loc.Zone())
	if target.After(cur) {
		days := int(target.Sub(cur) / (24 * time.Hour))
		s.ensureCalculated()
		lastIdx := len(s.days) - 1
		sum := s.days[lastIdx].summary()
		for i := 0; i < days; i++ {
			s.lastHour = 23
			d := s.getOrCreate(cur.Add(time.Duration(i+1) * 24 * time.Hour))
			if d == nil {
				break
			}
			d.setSummary(sum)
		}
		s.Invalidate()
	} else if target.Before(cur) {
		days := int(cur.Sub(target) / (24 * time.Hour))
		if days >= len(s.days) {
			days = len(s.days)
		}
		s.days = s.days[:len(s.days)-days]
		if len(s.days) > 0 {
			s.lastHour = 23
		} else {
			s.start = time.Time{}
			s.firstHour = 0
			s.lastHour = 0
		}
		s.Invalidate()
	}
}

// WarnOnSunRiseSet reports whether any daily-summary day sits in polar
// day or night, where the diurnal curves cannot be anchored.
func (s *Stream) WarnOnSunRiseSet() solar.Flags {
	s.ensureCalculated()
	var flags solar.Flags
	for _, d := range s.days {
		if d.mode == ModeDailySummary {
			flags |= d.sunFlags
		}
	}
	return flags
}

// DailyMeanTemp returns the mean hourly temperature over the day
// containing t.
func (s *Stream) DailyMeanTemp(t time.Time) (float64, bool) {
	idx := s.dayIndex(t)
	if idx < 0 {
		return 0, false
	}
	s.ensureCalculated()
	d := s.days[idx]
	first, last := s.firstHourOfDay(idx), s.lastHourOfDay(idx)
	var sum float64
	for i := first; i <= last; i++ {
		sum += d.temp[i]
	}
	return sum / float64(last-first+1), true
}

// DailyMeanRH returns the mean hourly relative humidity (fraction) over
// the day containing t.
func (s *Stream) DailyMeanRH(t time.Time) (float64, bool) {
	idx := s.dayIndex(t)
	if idx < 0 {
		return 0, false
	}
	s.ensureCalculated()
	d := s.days[idx]
	if d.mode == ModeDailySummary {
		return d.dailyRH, true
	}
	first, last := s.firstHourOfDay(idx), s.lastHourOfDay(idx)
	var sum float64
	for i := first; i <= last; i++ {
		sum += d.rh[i]
	}
	return sum / float64(last-first+1), true
}

// ensureCalculated synthesizes curves and recomputes the FWI chain if
// anything changed since the last calculation. A trailing daily-summary
// day borrows a temporary copy of itself as "tomorrow" so its evening
// hours have a curve to follow.
func (s *Stream) ensureCalculated() {
	if s.calcValid {
		return
	}
	s.calcValid = true
	if len(s.days) == 0 {
		return
	}

	last := s.days[len(s.days)-1]
	var fake *dayRecord
	if last.mode == ModeDailySummary {
		fake = newDayRecord(last.start.Add(24 * time.Hour))
		fake.setSummary(last.summary())
		s.days = append(s.days, fake)
	}

	for i, d := range s.days {
		d.start = s.start.Add(time.Duration(i) * 24 * time.Hour)
		d.sunrise, d.solarNoon, d.sunset, d.sunFlags = s.loc.Sun(d.start.Add(12 * time.Hour))
	}

	for i, d := range s.days {
		var yd *dayRecord
		if i > 0 {
			yd = s.days[i-1]
		}
		s.synthDay(d, yd, i < len(s.days)-1)
		d.aggregate(s.firstHourOfDay(i), s.lastHourOfDay(i))
	}

	for i, d := range s.days {
		s.synthDew(d, s.firstHourOfDay(i), s.lastHourOfDay(i))
	}

	if fake != nil {
		s.days = s.days[:len(s.days)-1]
	}

	for i := range s.days {
		s.calcFWIDay(i)
	}
}

func summariesClose(a, b DailySummary) bool {
	return close5(a.MinTemp, b.MinTemp) && close5(a.MaxTemp, b.MaxTemp) &&
		close5(a.MinWS, b.MinWS) && close5(a.MaxWS, b.MaxWS) &&
		close5(a.MinGust, b.MinGust) && close5(a.MaxGust, b.MaxGust) &&
		close5(a.RH, b.RH) && close5(a.Precip, b.Precip) && close5(a.WD, b.WD)
}

func readingsClose(a, b HourlyReading) bool {
	return close5(a.Temp, b.Temp) && close5(a.RH, b.RH) && close5(a.WS, b.WS) &&
		close5(a.WD, b.WD) && close5(a.Precip, b.Precip) &&
		close5(nullOr(a.Gust, -1), nullOr(b.Gust, -1)) &&
		close5(nullOr(a.DewPoint, -300), nullOr(b.DewPoint, -300))
}

func close5(a, b float64) bool { return math.Abs(a-b) < 1e-5 }

func nullOr(n sql.NullFloat64, def float64) float64 {
	if n.Valid {
		return n.Float64
	}
	return def
}

// nf wraps a calculation result; negative sentinels become unset.
func nf(v float64) sql.NullFloat64 {
	if v < 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// fv unwraps for calculations, restoring the -1 sentinel the FWI
// equations treat as "no value".
func fv(n sql.NullFloat64) float64 {
	if !n.Valid {
		return -1
	}
	return n.Float64
}
