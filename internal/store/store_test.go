package store

import (
	"database/sql"
	"math"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lox/fireweather/internal/stream"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testState(t *testing.T) stream.State {
	t.Helper()
	loc := stream.Location{
		Latitude:       50.1,
		Longitude:      -95.2,
		TimezoneOffset: -6 * time.Hour,
		DSTAmount:      time.Hour,
		DSTStart:       70 * 24 * time.Hour,
		DSTEnd:         310 * 24 * time.Hour,
	}
	s := stream.New(loc)

	opts := s.Options()
	opts.Policy = stream.PolicyLawson
	opts.UseSpecified = true
	s.SetOptions(opts)

	seed := s.Seed()
	seed.FFMC = sql.NullFloat64{Float64: 85, Valid: true}
	seed.DMC = sql.NullFloat64{Float64: 25, Valid: true}
	seed.DC = sql.NullFloat64{Float64: 200, Valid: true}
	seed.HourlyFFMC = sql.NullFloat64{Float64: 80, Valid: true}
	seed.HourlyFFMCAt = stream.NullDuration{Duration: 16 * time.Hour, Valid: true}
	seed.Rain = 3.5
	s.SetSeed(seed)

	start := time.Date(2023, 6, 1, 0, 0, 0, 0, loc.Zone())
	s.SetStart(start)

	// Day 0: daily summary with a specified DMC.
	if err := s.SetDailySummary(start, stream.DailySummary{
		MinTemp: 9, MaxTemp: 24,
		MinWS: 4, MaxWS: 18,
		RH: 0.45, Precip: 1.2, WD: math.Pi / 3,
	}); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}
	s.SetDMC(start.Add(12*time.Hour), 30)

	// Day 1: hourly observations with one specified hourly FFMC.
	day1 := start.Add(24 * time.Hour)
	for h := 0; h < 24; h++ {
		r := stream.HourlyReading{
			Temp:   12 + float64(h)/2,
			RH:     0.5,
			WS:     10,
			WD:     math.Pi / 2,
			Precip: 0,
		}
		if h == 6 {
			r.Gust = sql.NullFloat64{Float64: 22, Valid: true}
		}
		if err := s.SetHourlyReading(day1.Add(time.Duration(h)*time.Hour), r); err != nil {
			t.Fatalf("SetHourlyReading hour %d: %v", h, err)
		}
	}
	s.SetHourlyFFMC(day1.Add(16*time.Hour), 88)

	// SetHourlyReading cleared UseSpecified; restore it so the round trip
	// exercises the flag.
	opts = s.Options()
	opts.UseSpecified = true
	s.SetOptions(opts)

	return s.State()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	in := testState(t)

	if err := store.SaveStream("brandon", in); err != nil {
		t.Fatalf("SaveStream: %v", err)
	}

	out, err := store.LoadStream("brandon")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	if out == nil {
		t.Fatal("LoadStream returned nil for a saved stream")
	}

	if out.Location.Latitude != in.Location.Latitude {
		t.Errorf("Latitude = %v, want %v", out.Location.Latitude, in.Location.Latitude)
	}
	if out.Location.TimezoneOffset != in.Location.TimezoneOffset {
		t.Errorf("TimezoneOffset = %v, want %v", out.Location.TimezoneOffset, in.Location.TimezoneOffset)
	}
	if out.Location.DSTAmount != in.Location.DSTAmount {
		t.Errorf("DSTAmount = %v, want %v", out.Location.DSTAmount, in.Location.DSTAmount)
	}
	if !out.Start.Equal(in.Start) {
		t.Errorf("Start = %v, want %v", out.Start, in.Start)
	}
	if out.Options.Policy != stream.PolicyLawson {
		t.Errorf("Policy = %v, want lawson", out.Options.Policy)
	}
	if !out.Options.UseSpecified {
		t.Error("UseSpecified not preserved")
	}
	if !out.Seed.FFMC.Valid || out.Seed.FFMC.Float64 != 85 {
		t.Errorf("Seed.FFMC = %+v, want 85", out.Seed.FFMC)
	}
	if !out.Seed.HourlyFFMCAt.Valid || out.Seed.HourlyFFMCAt.Duration != 16*time.Hour {
		t.Errorf("Seed.HourlyFFMCAt = %+v, want 16h", out.Seed.HourlyFFMCAt)
	}
	if out.Seed.Rain != 3.5 {
		t.Errorf("Seed.Rain = %v, want 3.5", out.Seed.Rain)
	}
	if out.Curve != in.Curve {
		t.Errorf("Curve = %+v, want %+v", out.Curve, in.Curve)
	}

	if len(out.Days) != 2 {
		t.Fatalf("len(Days) = %d, want 2", len(out.Days))
	}

	d0 := out.Days[0]
	if d0.Mode != stream.ModeDailySummary {
		t.Errorf("day 0 mode = %v, want daily summary", d0.Mode)
	}
	if d0.Summary != in.Days[0].Summary {
		t.Errorf("day 0 summary = %+v, want %+v", d0.Summary, in.Days[0].Summary)
	}
	if !d0.SpecDay.DMC.Valid || d0.SpecDay.DMC.Float64 != 30 {
		t.Errorf("day 0 spec DMC = %+v, want 30", d0.SpecDay.DMC)
	}

	d1 := out.Days[1]
	if d1.Mode != stream.ModeHourly {
		t.Errorf("day 1 mode = %v, want hourly", d1.Mode)
	}
	if len(d1.Hours) != 24 {
		t.Fatalf("day 1 hours = %d, want 24", len(d1.Hours))
	}
	if got := d1.Hours[6].Reading.Gust; !got.Valid || got.Float64 != 22 {
		t.Errorf("day 1 hour 6 gust = %+v, want 22", got)
	}
	if got := d1.Hours[7].Reading.Gust; got.Valid {
		t.Errorf("day 1 hour 7 gust = %+v, want unset", got)
	}
	if got := d1.Hours[10].Reading.Temp; got != 17 {
		t.Errorf("day 1 hour 10 temp = %v, want 17", got)
	}
	if !d1.SpecHours[16].FFMC.Valid || d1.SpecHours[16].FFMC.Float64 != 88 {
		t.Errorf("day 1 spec FFMC[16] = %+v, want 88", d1.SpecHours[16].FFMC)
	}
}

func TestSaveLoadRebuildsStream(t *testing.T) {
	store := setupTestStore(t)
	in := testState(t)

	if err := store.SaveStream("brandon", in); err != nil {
		t.Fatalf("SaveStream: %v", err)
	}
	out, err := store.LoadStream("brandon")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}

	s := stream.FromState(*out)
	if s.NumDays() != 2 {
		t.Fatalf("NumDays = %d, want 2", s.NumDays())
	}

	noon := s.Start().Add(12 * time.Hour)
	dmc, specified, ok := s.DMC(noon)
	if !ok {
		t.Fatal("DMC lookup failed")
	}
	if !specified || dmc != 30 {
		t.Errorf("DMC = %v specified=%v, want the specified 30", dmc, specified)
	}

	ffmc, ok := s.HourlyFFMC(s.Start().Add(40 * time.Hour))
	if !ok {
		t.Fatal("HourlyFFMC lookup failed")
	}
	if ffmc != 88 {
		t.Errorf("specified hourly FFMC = %v, want 88", ffmc)
	}
}

func TestSaveStream_Replaces(t *testing.T) {
	store := setupTestStore(t)
	in := testState(t)

	if err := store.SaveStream("brandon", in); err != nil {
		t.Fatalf("SaveStream: %v", err)
	}

	in.Days = in.Days[:1]
	if err := store.SaveStream("brandon", in); err != nil {
		t.Fatalf("SaveStream second: %v", err)
	}

	out, err := store.LoadStream("brandon")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	if len(out.Days) != 1 {
		t.Errorf("len(Days) = %d, want 1 after replace", len(out.Days))
	}

	infos, err := store.ListStreams()
	if err != nil {
		t.Fatalf("ListStreams: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("len(infos) = %d, want 1", len(infos))
	}
}

func TestLoadStream_Missing(t *testing.T) {
	store := setupTestStore(t)

	out, err := store.LoadStream("nope")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	if out != nil {
		t.Errorf("LoadStream = %+v, want nil for missing name", out)
	}
}

func TestListStreams(t *testing.T) {
	store := setupTestStore(t)
	in := testState(t)

	if err := store.SaveStream("one", in); err != nil {
		t.Fatalf("SaveStream one: %v", err)
	}
	if err := store.SaveStream("two", in); err != nil {
		t.Fatalf("SaveStream two: %v", err)
	}

	infos, err := store.ListStreams()
	if err != nil {
		t.Fatalf("ListStreams: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	for _, info := range infos {
		if info.Days != 2 {
			t.Errorf("stream %q days = %d, want 2", info.Name, info.Days)
		}
		if !info.Start.Valid {
			t.Errorf("stream %q start not set", info.Name)
		}
	}
}

func TestDeleteStream(t *testing.T) {
	store := setupTestStore(t)
	in := testState(t)

	if err := store.SaveStream("brandon", in); err != nil {
		t.Fatalf("SaveStream: %v", err)
	}
	if err := store.DeleteStream("brandon"); err != nil {
		t.Fatalf("DeleteStream: %v", err)
	}

	out, err := store.LoadStream("brandon")
	if err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	if out != nil {
		t.Error("stream still loadable after delete")
	}

	// Deleting a missing stream is not an error.
	if err := store.DeleteStream("brandon"); err != nil {
		t.Fatalf("DeleteStream again: %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	store := setupTestStore(t)

	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v < 2 {
		t.Errorf("MigrationVersion = %d, want >= 2", v)
	}
}
