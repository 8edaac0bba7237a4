package stream

import (
	"math"
	"time"

	"github.com/lox/fireweather/internal/solar"
)

// Diurnal curve synthesis for daily-summary days, after Beck & Trevitt
// (1989). Temperature rises along a half sine from the morning minimum
// (sunrise plus alpha) to the afternoon maximum (solar noon plus beta)
// and decays exponentially overnight from the previous sunset. Wind
// follows the same anchors with its own alpha/beta/gamma; humidity is
// scaled from temperature through the day's vapour pressure.

// curve carries the anchors and extremes for one synthesized channel.
type curve struct {
	min, max   float64
	gamma      float64
	sunsetVal  float64
	tn, tx, ts time.Time
}

// sin rises from min at tn to max at tx.
func (c curve) sin(t time.Time) float64 {
	f := t.Sub(c.tn).Seconds() / c.tx.Sub(c.tn).Seconds()
	return c.min + (c.max-c.min)*math.Sin(f*math.Pi/2)
}

// exp decays from the sunset value at ts toward min at tn.
func (c curve) exp(t time.Time) float64 {
	f := t.Sub(c.ts).Seconds() / c.tn.Sub(c.ts).Seconds()
	return c.min + (c.sunsetVal-c.min)*math.Exp(f*c.gamma)
}

// expWind falls from the sunset value at tx to min at tn along a quarter
// sine.
func (c curve) expWind(t time.Time) float64 {
	f := t.Sub(c.tx).Seconds() / c.tn.Sub(c.tx).Seconds()
	return c.sunsetVal - (c.sunsetVal-c.min)*math.Sin(f*math.Pi/2)
}

func durHours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// nextHour rounds t up to the next whole hour of the day grid anchored at
// dayStart. An exact hour still advances by one.
func nextHour(dayStart, t time.Time) time.Time {
	n := t.Sub(dayStart) / time.Hour
	return dayStart.Add((n + 1) * time.Hour)
}

// synthDay fills the hourly arrays of a daily-summary day from its
// min/max observations. hasNext pads the trailing hours past the last
// curve anchor when a later day exists to consume them.
func (s *Stream) synthDay(d, yd *dayRecord, hasNext bool) {
	if d.mode == ModeHourly {
		return
	}
	s.synthWD(d)
	s.synthPrecip(d)
	lastTemp := s.synthTemp(d, yd)
	if lastTemp < 1 || lastTemp > 24 {
		lastTemp = 1
	}
	s.synthRH(d)
	lastWS := s.synthWind(d, yd, d.minWS, d.maxWS, &d.ws, windChanWS)
	lastGust := s.synthWind(d, yd, d.minGust, d.maxGust, &d.gust, windChanGust)
	if lastWS < 1 || lastWS > 24 {
		lastWS = 1
	}
	if hasNext {
		for i := lastTemp; i < 24; i++ {
			d.temp[i] = d.temp[lastTemp-1]
			d.rh[i] = d.rh[lastTemp-1]
		}
		for i := lastWS; i < 24; i++ {
			d.ws[i] = d.ws[lastWS-1]
		}
		if lastGust >= 1 && lastGust <= 24 {
			for i := lastWS; i < 24; i++ {
				d.gust[i] = d.gust[lastGust-1]
			}
		}
	}
}

func (s *Stream) synthWD(d *dayRecord) {
	for i := range d.wd {
		d.wd[i] = d.dailyWD
	}
}

// synthPrecip places the whole daily accumulation at local noon.
func (s *Stream) synthPrecip(d *dayRecord) {
	for i := range d.precip {
		d.precip[i] = 0
	}
	d.precip[12] = d.dailyPrecip
}

func (s *Stream) synthTemp(d, yd *dayRecord) int {
	c := curve{
		min:   d.minTemp,
		max:   d.maxTemp,
		gamma: s.TempGamma,
		tn:    d.sunrise.Add(durHours(s.TempAlpha)),
		tx:    d.solarNoon.Add(durHours(s.TempBeta)),
	}
	d.sunsetTemp = c.sin(d.sunset)

	if yd != nil {
		c.ts = yd.sunset
		if yd.mode == ModeHourly {
			h := yd.hourOf(yd.sunset)
			if h < 0 {
				h = 23
			}
			h2 := h + 1
			if h2 > 23 {
				h2 = 23
			}
			frac := float64(yd.sunset.Sub(yd.start.Add(time.Duration(h)*time.Hour))) / float64(time.Hour)
			c.sunsetVal = yd.temp[h] + (yd.temp[h2]-yd.temp[h])*frac
		} else {
			c.sunsetVal = yd.sunsetTemp
			// Yesterday's post-sunset hours take today's overnight curve;
			// humidity tracks it at yesterday's constant moisture content.
			svpt0 := 6.108 * math.Exp(yd.maxTemp*17.27/(yd.maxTemp+237.3))
			qt0 := 217 * (svpt0 * yd.dailyRH) / (273.17 + yd.maxTemp)
			rhConst := 100 * qt0 / (6.108 * 217)

			t := nextHour(yd.start, c.ts)
			for i := yd.hourOf(c.ts) + 1; i >= 1 && i < 24 && t.Before(d.start); i++ {
				v := c.exp(t)
				yd.temp[i] = v
				yd.rh[i] = clamp01(rhConst * (273.17 + v) / math.Exp(17.27*v/(v+237.3)) * 0.01)
				t = t.Add(time.Hour)
			}
		}
	} else {
		c.ts = d.sunset.Add(-24 * time.Hour)
		c.sunsetVal = d.sunsetTemp
	}

	i := 0
	t := d.start
	for t.Before(c.tn) && i < 24 {
		d.temp[i] = c.exp(t)
		i++
		t = t.Add(time.Hour)
	}
	for !t.After(d.sunset) && i < 24 {
		d.temp[i] = c.sin(t)
		i++
		t = t.Add(time.Hour)
	}
	return i
}

func (s *Stream) synthRH(d *dayRecord) {
	svpt0 := 6.108 * math.Exp(d.maxTemp*17.27/(d.maxTemp+237.3))
	qt0 := 217 * (svpt0 * d.dailyRH) / (273.17 + d.maxTemp)
	rhConst := 100 * qt0 / (6.108 * 217)

	end := d.hourOf(d.sunset)
	if end < 0 {
		end = 23
	}
	for i := 0; i <= end; i++ {
		d.rh[i] = clamp01(rhConst * (273.17 + d.temp[i]) / math.Exp(17.27*d.temp[i]/(d.temp[i]+237.3)) * 0.01)
	}
}

type windChan int

const (
	windChanWS windChan = iota
	windChanGust
)

// synthWind synthesizes the wind speed or gust curve for d. It falls from
// yesterday's early-afternoon peak overnight, then rises along a sine to
// today's peak at solar noon plus beta.
func (s *Stream) synthWind(d, yd *dayRecord, minV, maxV float64, out *[24]float64, ch windChan) int {
	c := curve{
		min:   minV,
		max:   maxV,
		gamma: s.WindGamma,
		tn:    d.sunrise.Add(durHours(s.WindAlpha)),
	}

	if yd != nil {
		c.ts = yd.sunset
		c.tx = yd.solarNoon.Add(durHours(s.WindBeta))
		ydOut := &yd.ws
		ydMax := yd.maxWS
		if ch == windChanGust {
			ydOut = &yd.gust
			ydMax = yd.maxGust
		}
		if yd.mode == ModeDailySummary {
			h := yd.hourOf(c.tx)
			if h < 0 {
				h = 23
			}
			c.sunsetVal = ydOut[h]
			t := nextHour(yd.start, c.tx)
			for i := h + 1; i < 24 && t.Before(d.start); i++ {
				v := c.expWind(t)
				if v < 0 {
					v = 0
				}
				ydOut[i] = v
				t = t.Add(time.Hour)
			}
		} else {
			c.sunsetVal = ydMax
		}
	} else {
		// No previous day in the stream; anchor on the prior calendar
		// day's astronomical sunset and solar noon.
		_, pNoon, pSet, pFlags := s.loc.Sun(d.start.Add(-12 * time.Hour))
		if pFlags&solar.NoSet != 0 {
			c.ts = d.sunset.Add(-24 * time.Hour)
		} else {
			c.ts = pSet
		}
		c.tx = pNoon.Add(durHours(s.WindBeta))
		c.sunsetVal = maxV
	}

	i := 0
	t := d.start
	for t.Before(c.tn) && i < 24 {
		v := c.expWind(t)
		if v < 0 {
			v = 0
		}
		out[i] = v
		i++
		t = t.Add(time.Hour)
	}

	c.tx = d.solarNoon.Add(durHours(s.WindBeta))
	for !t.After(c.tx) && i < 24 {
		v := c.sin(t)
		if v < 0 {
			v = 0
		}
		out[i] = v
		i++
		t = t.Add(time.Hour)
	}
	return i
}

// synthDew derives dew point temperatures for every hour that did not
// arrive with one specified, by inverting the Magnus vapour pressure
// relation at the hour's temperature and humidity.
func (s *Stream) synthDew(d *dayRecord, first, last int) {
	for i := first; i <= last; i++ {
		if d.dewSpecified[i] {
			continue
		}
		vps := 0.6112 * math.Pow(10, 7.5*d.temp[i]/(237.7+d.temp[i]))
		vp := d.rh[i] * vps
		if vp > 0 {
			l := math.Log10(vp / 0.6112)
			d.dew[i] = 237.7 * l / (7.5 - l)
		} else {
			d.dew[i] = -273
		}
	}
}
