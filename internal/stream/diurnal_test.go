package stream

import (
	"math"
	"testing"
	"time"
)

func TestSynthesizedCurvesStayInBounds(t *testing.T) {
	s, start := mustStart(t, testLoc())
	sum := DailySummary{
		MinTemp: 10, MaxTemp: 20,
		MinWS: 5, MaxWS: 15,
		RH: 0.5, Precip: 4, WD: math.Pi,
	}
	if err := s.SetDailySummary(start, sum); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}

	for h := 0; h < 24; h++ {
		at := start.Add(time.Duration(h) * time.Hour)
		r, ok := s.HourlyReadingAt(at)
		if !ok {
			t.Fatalf("hour %d: lookup failed", h)
		}
		if r.Temp < sum.MinTemp-1e-6 || r.Temp > sum.MaxTemp+1e-6 {
			t.Errorf("hour %d: temp %v outside [%v, %v]", h, r.Temp, sum.MinTemp, sum.MaxTemp)
		}
		if r.RH < 0 || r.RH > 1 {
			t.Errorf("hour %d: rh %v outside [0, 1]", h, r.RH)
		}
		if r.WS < 0 || r.WS > sum.MaxWS+1e-6 {
			t.Errorf("hour %d: ws %v outside [0, %v]", h, r.WS, sum.MaxWS)
		}
		if r.WD != math.Pi {
			t.Errorf("hour %d: wd %v, want constant pi", h, r.WD)
		}
		wantPrecip := 0.0
		if h == 12 {
			wantPrecip = 4
		}
		if r.Precip != wantPrecip {
			t.Errorf("hour %d: precip %v, want %v", h, r.Precip, wantPrecip)
		}
		if !r.DewPoint.Valid {
			t.Errorf("hour %d: dew point not derived", h)
		}
		if r.DewPoint.Float64 > r.Temp+1e-6 {
			t.Errorf("hour %d: dew point %v above temperature %v", h, r.DewPoint.Float64, r.Temp)
		}
	}
}

func TestSynthesizedTempHitsExtremes(t *testing.T) {
	s, start := mustStart(t, testLoc())
	sum := DailySummary{MinTemp: 10, MaxTemp: 20, MinWS: 5, MaxWS: 15, RH: 0.5}
	if err := s.SetDailySummary(start, sum); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for h := 0; h < 24; h++ {
		r, _ := s.HourlyReadingAt(start.Add(time.Duration(h) * time.Hour))
		lo = math.Min(lo, r.Temp)
		hi = math.Max(hi, r.Temp)
	}
	// The hourly grid samples near, not exactly at, the curve anchors.
	if hi < sum.MaxTemp-1 {
		t.Errorf("peak temp %v nowhere near max %v", hi, sum.MaxTemp)
	}
	if lo > sum.MinTemp+3 {
		t.Errorf("overnight low %v nowhere near min %v", lo, sum.MinTemp)
	}
}

func TestSynthesisContinuityAcrossDays(t *testing.T) {
	s, start := mustStart(t, testLoc())
	for i := 0; i < 3; i++ {
		day := start.Add(time.Duration(i) * 24 * time.Hour)
		if err := s.SetDailySummary(day, DailySummary{
			MinTemp: 10, MaxTemp: 20, MinWS: 5, MaxWS: 15, RH: 0.5,
		}); err != nil {
			t.Fatalf("day %d: %v", i, err)
		}
	}

	// Identical summaries synthesize identical middle-day curves, and the
	// jump across each midnight stays small.
	for h := 1; h < 72; h++ {
		a, _ := s.HourlyReadingAt(start.Add(time.Duration(h-1) * time.Hour))
		b, _ := s.HourlyReadingAt(start.Add(time.Duration(h) * time.Hour))
		if diff := math.Abs(b.Temp - a.Temp); diff > 5 {
			t.Errorf("hour %d: temperature jumped %v degrees", h, diff)
		}
	}
}

func TestPolarDayFlagsSurface(t *testing.T) {
	loc := Location{Latitude: 80, Longitude: -95, TimezoneOffset: -6 * time.Hour}
	s := New(loc)
	start := time.Date(2023, 12, 21, 0, 0, 0, 0, loc.Zone())
	s.SetStart(start)
	if err := s.SetDailySummary(start, DailySummary{MinTemp: -30, MaxTemp: -20, MaxWS: 10, RH: 0.7}); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}
	if s.WarnOnSunRiseSet() == 0 {
		t.Error("no sun warning at 80N in December")
	}

	s2, start2 := mustStart(t, testLoc())
	if err := s2.SetDailySummary(start2, DailySummary{MinTemp: 10, MaxTemp: 20, MaxWS: 10, RH: 0.5}); err != nil {
		t.Fatalf("SetDailySummary: %v", err)
	}
	if s2.WarnOnSunRiseSet() != 0 {
		t.Error("sun warning at mid latitude in June")
	}
}
