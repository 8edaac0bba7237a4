package stream

import (
	"database/sql"
	"math"
	"testing"
	"time"
)

func TestInstantaneousExactHour(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)
	fillHourlyDay(t, s, start.Add(24*time.Hour))

	at := start.Add(10 * time.Hour)
	want, _ := s.HourlyReadingAt(at)

	for _, interpolate := range []bool{false, true} {
		inst, ok := s.Instantaneous(at, interpolate)
		if !ok {
			t.Fatalf("interpolate=%v: lookup failed", interpolate)
		}
		if inst.Temp != want.Temp || inst.RH != want.RH || inst.WS != want.WS {
			t.Errorf("interpolate=%v: %+v does not match the hour reading", interpolate, inst)
		}
		if inst.FFMC <= 0 {
			t.Errorf("interpolate=%v: FFMC = %v", interpolate, inst.FFMC)
		}
	}
}

func TestInstantaneousBlendsBetweenHours(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)
	fillHourlyDay(t, s, start.Add(24*time.Hour))

	// fillHourlyDay temps are linear in the hour, so the half-hour value
	// is the midpoint.
	at := start.Add(10*time.Hour + 30*time.Minute)
	inst, ok := s.Instantaneous(at, true)
	if !ok {
		t.Fatal("lookup failed")
	}
	a, _ := s.HourlyReadingAt(start.Add(10 * time.Hour))
	b, _ := s.HourlyReadingAt(start.Add(11 * time.Hour))
	if want := (a.Temp + b.Temp) / 2; math.Abs(inst.Temp-want) > 1e-9 {
		t.Errorf("temp = %v, want midpoint %v", inst.Temp, want)
	}
	if math.Abs(inst.RH-0.5) > 1e-9 {
		t.Errorf("rh = %v, want 0.5", inst.RH)
	}
	if math.Abs(inst.WS-8) > 1e-9 {
		t.Errorf("ws = %v, want 8", inst.WS)
	}
	if math.Abs(inst.WD-math.Pi/2) > 1e-9 {
		t.Errorf("wd = %v, want pi/2", inst.WD)
	}

	// Without interpolation the containing hour's values come back.
	inst, _ = s.Instantaneous(at, false)
	if inst.Temp != a.Temp {
		t.Errorf("temp = %v without interpolation, want %v", inst.Temp, a.Temp)
	}
}

func TestInstantaneousPrecipProration(t *testing.T) {
	s, start := mustStart(t, testLoc())
	fillHourlyDay(t, s, start)
	fillHourlyDay(t, s, start.Add(24*time.Hour))

	noon := start.Add(12 * time.Hour)
	r, _ := s.HourlyReadingAt(noon)
	r.Precip = 4
	if err := s.SetHourlyReading(noon, r); err != nil {
		t.Fatalf("SetHourlyReading: %v", err)
	}

	// A quarter of the way into the hour ending at noon, a quarter of its
	// rain has fallen.
	inst, _ := s.Instantaneous(start.Add(11*time.Hour+15*time.Minute), true)
	if math.Abs(inst.Precip-1) > 1e-9 {
		t.Errorf("precip = %v, want 1", inst.Precip)
	}
}

func TestInstantaneousWindBranches(t *testing.T) {
	s, start := mustStart(t, testLoc())
	r := HourlyReading{Temp: 15, RH: 0.5, WS: 0, WD: 0, Precip: 0}
	if err := s.SetHourlyReading(start, r); err != nil {
		t.Fatalf("hour 0: %v", err)
	}
	r.WS = 10
	r.WD = math.Pi / 2
	if err := s.SetHourlyReading(start.Add(time.Hour), r); err != nil {
		t.Fatalf("hour 1: %v", err)
	}
	r.WD = 3 * math.Pi / 2
	if err := s.SetHourlyReading(start.Add(2*time.Hour), r); err != nil {
		t.Fatalf("hour 2: %v", err)
	}

	// Calm at hour 0: the direction comes from the windy side.
	inst, _ := s.Instantaneous(start.Add(30*time.Minute), true)
	if math.Abs(inst.WD-math.Pi/2) > 1e-9 {
		t.Errorf("wd = %v out of calm, want pi/2", inst.WD)
	}

	// Hours 1 and 2 oppose exactly; the blend snaps to the nearer hour.
	inst, _ = s.Instantaneous(start.Add(time.Hour+10*time.Minute), true)
	if math.Abs(inst.WD-math.Pi/2) > 1e-9 {
		t.Errorf("wd = %v just past hour 1, want pi/2", inst.WD)
	}
	inst, _ = s.Instantaneous(start.Add(time.Hour+50*time.Minute), true)
	if math.Abs(inst.WD-3*math.Pi/2) > 1e-9 {
		t.Errorf("wd = %v close to hour 2, want 3pi/2", inst.WD)
	}
}

func TestInstantaneousGust(t *testing.T) {
	s, start := mustStart(t, testLoc())
	r := HourlyReading{Temp: 15, RH: 0.5, WS: 5, WD: math.Pi, Precip: 0}
	r.Gust = sql.NullFloat64{Float64: 10, Valid: true}
	if err := s.SetHourlyReading(start, r); err != nil {
		t.Fatalf("hour 0: %v", err)
	}
	r.Gust = sql.NullFloat64{Float64: 20, Valid: true}
	if err := s.SetHourlyReading(start.Add(time.Hour), r); err != nil {
		t.Fatalf("hour 1: %v", err)
	}
	r.Gust = sql.NullFloat64{}
	if err := s.SetHourlyReading(start.Add(2*time.Hour), r); err != nil {
		t.Fatalf("hour 2: %v", err)
	}

	inst, _ := s.Instantaneous(start.Add(30*time.Minute), true)
	if !inst.Gust.Valid || math.Abs(inst.Gust.Float64-15) > 1e-9 {
		t.Errorf("gust = %+v, want 15", inst.Gust)
	}

	// No blend when one side has no gust observation.
	inst, _ = s.Instantaneous(start.Add(time.Hour+30*time.Minute), true)
	if inst.Gust.Valid {
		t.Errorf("gust = %+v bracketed by a missing observation, want unset", inst.Gust)
	}
}

func TestInstantaneousDailyCodes(t *testing.T) {
	s, start := seededStream(t)
	fillHourlyDay(t, s, start)
	fillHourlyDay(t, s, start.Add(24*time.Hour))

	inst, ok := s.Instantaneous(start.Add(30*time.Hour+20*time.Minute), true)
	if !ok {
		t.Fatal("lookup failed")
	}
	wantDMC, _, _ := s.DMC(start.Add(30 * time.Hour))
	if inst.Daily.DMC != wantDMC {
		t.Errorf("Daily.DMC = %v, want %v", inst.Daily.DMC, wantDMC)
	}
	if inst.Daily.BUI < 0 {
		t.Errorf("Daily.BUI = %v", inst.Daily.BUI)
	}
	if inst.ISI < 0 || inst.FWI < 0 {
		t.Errorf("ISI = %v FWI = %v", inst.ISI, inst.FWI)
	}

	// Before the timeline the daily codes still resolve from the seeds.
	inst, ok = s.Instantaneous(start.Add(-3*time.Hour), true)
	if ok {
		t.Error("lookup before the timeline reported ok")
	}
	if inst.Daily.DMC != 25 || inst.Daily.DC != 200 {
		t.Errorf("seed codes = DMC %v DC %v, want 25 and 200", inst.Daily.DMC, inst.Daily.DC)
	}
}
