package stream

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// ExportHourly writes every observed or synthesized hour as CSV in the
// same layout Import accepts. Times are wall clock at the stream's
// location; humidity is a percentage and wind direction a compass
// bearing. The gust column is present only when at least one hour
// carries a gust.
func (s *Stream) ExportHourly(w io.Writer) error {
	s.ensureCalculated()

	gust := false
	for _, d := range s.days {
		for _, set := range d.gustSet {
			if set {
				gust = true
				break
			}
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"hourly", "hour", "temp", "rh", "wd", "ws", "precip"}
	if gust {
		header = append(header, "wg")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, d := range s.days {
		for h := s.firstHourOfDay(i); h <= s.lastHourOfDay(i); h++ {
			t := d.start.Add(time.Duration(h) * time.Hour)
			if s.loc.DSTActive(t) {
				t = t.Add(s.loc.DSTAmount)
			}
			rec := []string{
				t.Format("2006-01-02"),
				t.Format("15:04"),
				fmtF(d.temp[h]),
				fmtF(d.rh[h] * 100),
				fmtF(RadiansToCompass(d.wd[h])),
				fmtF(d.ws[h]),
				fmtF(d.precip[h]),
			}
			if gust {
				v := 0.0
				if d.gustSet[h] {
					v = d.gust[h]
				}
				rec = append(rec, fmtF(v))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportDaily writes one summary row per day in the daily import layout.
// Hourly days export their aggregated values.
func (s *Stream) ExportDaily(w io.Writer) error {
	s.ensureCalculated()

	cw := csv.NewWriter(w)
	header := []string{"daily", "min_temp", "max_temp", "rh", "wd", "min_ws", "max_ws", "min_wg", "max_wg", "precip"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, d := range s.days {
		sum := d.summary()
		rec := []string{
			d.start.Format("2006-01-02"),
			fmtF(sum.MinTemp),
			fmtF(sum.MaxTemp),
			fmtF(sum.RH * 100),
			fmtF(RadiansToCompass(sum.WD)),
			fmtF(sum.MinWS),
			fmtF(sum.MaxWS),
			fmtF(sum.MinGust),
			fmtF(sum.MaxGust),
			fmtF(sum.Precip),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func fmtF(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
