package stream

import (
	"database/sql"
	"errors"
	"math"
	"testing"
	"time"
)

func mustStart(t *testing.T, loc Location) (*Stream, time.Time) {
	t.Helper()
	s := New(loc)
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, loc.Zone())
	s.SetStart(start)
	return s, start
}

func fillHourlyDay(t *testing.T, s *Stream, day time.Time) {
	t.Helper()
	for h := 0; h < 24; h++ {
		r := HourlyReading{
			Temp:   10 + float64(h)/2,
			RH:     0.5,
			WS:     8,
			WD:     math.Pi / 2,
			Precip: 0,
		}
		if err := s.SetHourlyReading(day.Add(time.Duration(h)*time.Hour), r); err != nil {
			t.Fatalf("SetHourlyReading hour %d: %v", h, err)
		}
	}
}

func TestEmptyStream(t *testing.T) {
	s := New(testLoc())
	if s.NumDays() != 0 {
		t.Errorf("NumDays = %d, want 0", s.NumDays())
	}
	if !s.Start().IsZero() || !s.End().IsZero() {
		t.Error("empty stream has non-zero bounds")
	}
	if _, ok := s.DailySummaryAt(time.Now()); ok {
		t.Error("DailySummaryAt succeeded on empty stream")
	}
	if _, ok := s.HourlyReadingAt(time.Now()); ok {
		t.Error("HourlyReadingAt succeeded on empty stream")
	}
}

func TestSetStartNormalizesToMidnight(t *testing.T) {
	loc := testLoc()
	s := New(loc)
	s.SetStart(time.Date(2023, 6, 1, 15, 42, 7, 0, loc.Zone()))
	want := time.Date(2023, 6, 1, 0, 0, 0, 0, loc.Zone())
	if !s.Start().Equal(want) {
		t.Errorf("Start = %v, want %v", s.Start(), want)
	}
}

func TestHourlyAppendRules(t *testing.T) {
	s, start := mustStart(t, testLoc())

	r := HourlyReading{Temp: 15, RH: 0.5, WS: 5, WD: 0, Precip: 0}
	if err := s.SetHourlyReading(start, r); err != nil {
		t.Fatalf("first reading: %v", err)
	}
	// A two-hour jump leaves a gap.
	if err := s.SetHourlyReading(start.Add(2*time.Hour), r); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("gap err = %v, want ErrInvalidTime", err)
	}
	if err := s.SetHourlyReading(start.Add(time.Hour), r); err != nil {
		t.Fatalf("second reading: %v", err)
	}
	if s.FirstHour() != 0 || s.LastHour() != 1 {
		t.Errorf("hours = [%d, %d], want [0, 1]", s.FirstHour(), s.LastHour())
	}

	// A new day cannot start until the previous one is complete.
	if err := s.SetHourlyReading(start.Add(24*time.Hour), r); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("next-day err = %v, want ErrInvalidTime", err)
	}
}

func TestRejectedFirstReadingLeavesStreamEmpty(t *testing.T) {
	loc := testLoc()
	s := New(loc)
	r := HourlyReading{Temp: 15, RH: 0.5, WS: 5}

	// A first reading away from midnight is rejected without creating
	// the day or fixing the start time.
	at := time.Date(2023, 6, 1, 9, 0, 0, 0, loc.Zone())
	if err := s.SetHourlyReading(at, r); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("err = %v, want ErrInvalidTime", err)
	}
	if s.NumDays() != 0 {
		t.Errorf("NumDays = %d after rejected reading, want 0", s.NumDays())
	}
	if !s.Start().IsZero() {
		t.Errorf("Start = %v after rejected reading, want zero", s.Start())
	}

	if err := s.SetHourlyReading(time.Date(2023, 6, 1, 0, 0, 0, 0, loc.Zone()), r); err != nil {
		t.Fatalf("midnight reading after rejection: %v", err)
	}
	if s.NumDays() != 1 {
		t.Errorf("NumDays = %d, want 1", s.NumDays())
	}
}

func TestModeExclusivity(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)

	if err := s.SetDailySummary(start, DailySummary{MinTemp: 5, MaxTemp: 20}); !errors.Is(err, ErrAttemptOverwrite) {
		t.Errorf("summary over hourly err = %v, want ErrAttemptOverwrite", err)
	}

	// Daily summary days other than the last cannot take hourly readings.
	if err := s.SetDailySummary(start.Add(24*time.Hour), DailySummary{MinTemp: 5, MaxTemp: 20, RH: 0.5, MaxWS: 10}); err != nil {
		t.Fatalf("append summary: %v", err)
	}
	if err := s.SetDailySummary(start.Add(48*time.Hour), DailySummary{MinTemp: 5, MaxTemp: 20, RH: 0.5, MaxWS: 10}); err != nil {
		t.Fatalf("append summary: %v", err)
	}
	r := HourlyReading{Temp: 15, RH: 0.5, WS: 5}
	if err := s.SetHourlyReading(start.Add(30*time.Hour), r); !errors.Is(err, ErrAttemptOverwrite) {
		t.Errorf("hourly into mid daily err = %v, want ErrAttemptOverwrite", err)
	}

	if err := s.MakeHourlyObservations(start.Add(30 * time.Hour)); err != nil {
		t.Fatalf("MakeHourlyObservations: %v", err)
	}
	if hourly, _ := s.IsHourly(start.Add(30 * time.Hour)); !hourly {
		t.Error("day not hourly after conversion")
	}
}

func TestUseSpecifiedClearedByEdits(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)

	opts := s.Options()
	opts.UseSpecified = true
	s.SetOptions(opts)

	// Rewriting an hour with the same values keeps the flag.
	r, _ := s.HourlyReadingAt(start.Add(5 * time.Hour))
	if err := s.SetHourlyReading(start.Add(5*time.Hour), r); err != nil {
		t.Fatalf("SetHourlyReading: %v", err)
	}
	if !s.Options().UseSpecified {
		t.Error("UseSpecified cleared by identical rewrite")
	}

	r.Temp += 3
	if err := s.SetHourlyReading(start.Add(5*time.Hour), r); err != nil {
		t.Fatalf("SetHourlyReading: %v", err)
	}
	if s.Options().UseSpecified {
		t.Error("UseSpecified survived a changed reading")
	}
}

func TestClearData(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)
	seed := s.Seed()
	seed.FFMC = sql.NullFloat64{Float64: 85, Valid: true}
	s.SetSeed(seed)

	s.ClearData()
	if s.NumDays() != 0 {
		t.Errorf("NumDays = %d, want 0", s.NumDays())
	}
	if !s.Start().IsZero() {
		t.Error("Start not reset")
	}
	if !s.Seed().FFMC.Valid {
		t.Error("ClearData dropped the seed")
	}
}

func TestSetEndTimeGrowAndShrink(t *testing.T) {
	s, start := mustStart(t, testLoc())
	sum := DailySummary{MinTemp: 8, MaxTemp: 22, RH: 0.4, MinWS: 5, MaxWS: 15, Precip: 1, WD: math.Pi}
	if err := s.SetDailySummary(start, sum); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}

	s.SetEndTime(start.Add(3 * 24 * time.Hour))
	if s.NumDays() != 4 {
		t.Fatalf("NumDays = %d after grow, want 4", s.NumDays())
	}
	got, _ := s.DailySummaryAt(start.Add(3 * 24 * time.Hour))
	if got != sum {
		t.Errorf("grown day summary = %+v, want copy of %+v", got, sum)
	}

	s.SetEndTime(start.Add(24 * time.Hour))
	if s.NumDays() != 2 {
		t.Errorf("NumDays = %d after shrink, want 2", s.NumDays())
	}
	if s.LastHour() != 23 {
		t.Errorf("LastHour = %d after shrink, want 23", s.LastHour())
	}
}

func TestDailyMeans(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)

	// Temps run 10, 10.5, ... 21.5; the mean is 15.75.
	mean, ok := s.DailyMeanTemp(start)
	if !ok {
		t.Fatal("DailyMeanTemp failed")
	}
	if math.Abs(mean-15.75) > 1e-9 {
		t.Errorf("mean temp = %v, want 15.75", mean)
	}

	rh, ok := s.DailyMeanRH(start)
	if !ok {
		t.Fatal("DailyMeanRH failed")
	}
	if math.Abs(rh-0.5) > 1e-9 {
		t.Errorf("mean rh = %v, want 0.5", rh)
	}
}

func TestAggregatedSummaryForHourlyDay(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)

	sum, ok := s.DailySummaryAt(start)
	if !ok {
		t.Fatal("DailySummaryAt failed")
	}
	if sum.MinTemp != 10 || sum.MaxTemp != 21.5 {
		t.Errorf("temps = [%v, %v], want [10, 21.5]", sum.MinTemp, sum.MaxTemp)
	}
	if sum.MinWS != 8 || sum.MaxWS != 8 {
		t.Errorf("ws = [%v, %v], want [8, 8]", sum.MinWS, sum.MaxWS)
	}
}

func TestStateRoundTrip(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)
	if err := s.SetDailySummary(start.Add(24*time.Hour), DailySummary{
		MinTemp: 9, MaxTemp: 23, RH: 0.45, MinWS: 4, MaxWS: 14, Precip: 0.5, WD: math.Pi,
	}); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}
	seed := s.Seed()
	seed.FFMC = sql.NullFloat64{Float64: 85, Valid: true}
	seed.DMC = sql.NullFloat64{Float64: 25, Valid: true}
	seed.DC = sql.NullFloat64{Float64: 200, Valid: true}
	s.SetSeed(seed)

	rebuilt := FromState(s.State())

	if rebuilt.NumDays() != s.NumDays() {
		t.Fatalf("NumDays = %d, want %d", rebuilt.NumDays(), s.NumDays())
	}
	if !rebuilt.Start().Equal(s.Start()) {
		t.Errorf("Start = %v, want %v", rebuilt.Start(), s.Start())
	}

	for h := 0; h < 48; h++ {
		at := start.Add(time.Duration(h) * time.Hour)
		a, aok := s.HourlyReadingAt(at)
		b, bok := rebuilt.HourlyReadingAt(at)
		if aok != bok {
			t.Fatalf("hour %d: ok mismatch", h)
		}
		if !readingsClose(a, b) {
			t.Errorf("hour %d: reading %+v != %+v", h, b, a)
		}
		fa, _ := s.HourlyFFMC(at)
		fb, _ := rebuilt.HourlyFFMC(at)
		if math.Abs(fa-fb) > 1e-9 {
			t.Errorf("hour %d: FFMC %v != %v", h, fb, fa)
		}
	}
}

func TestRecalculationIsStable(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)

	noon := start.Add(12 * time.Hour)
	a, _, _ := s.DailyFFMC(noon)
	b, _, _ := s.DailyFFMC(noon)
	if a != b {
		t.Errorf("repeated lookup changed: %v then %v", a, b)
	}

	s.Invalidate()
	c, _, _ := s.DailyFFMC(noon)
	if a != c {
		t.Errorf("recalculation changed the value: %v then %v", a, c)
	}
}

func TestMutationInvalidates(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)

	noon := start.Add(12 * time.Hour)
	before, _, _ := s.DailyFFMC(noon)

	// A much wetter noon hour must lower the daily FFMC.
	r, _ := s.HourlyReadingAt(noon)
	r.Precip = 20
	r.RH = 0.95
	if err := s.SetHourlyReading(noon, r); err != nil {
		t.Fatalf("SetHourlyReading: %v", err)
	}
	after, _, _ := s.DailyFFMC(noon)
	if after >= before {
		t.Errorf("FFMC %v not below %v after heavy rain", after, before)
	}
}
