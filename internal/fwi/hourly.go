package fwi

import (
	"math"
	"time"
)

// HourlyFFMCVanWagner advances an hourly FFMC by one step of the given
// duration using that hour's weather (Van Wagner 1977).
func HourlyFFMCVanWagner(prevFFMC, rain, temp, rh, ws float64, duration time.Duration) float64 {
	if prevFFMC < 0 {
		prevFFMC = 0
	}
	t := duration.Hours()
	mo := MoistureFromFFMC(prevFFMC)

	if rain > 0 {
		mr := mo + 42.5*rain*math.Exp(-100/(251-mo))*(1-math.Exp(-6.93/rain))
		if mo > 150 {
			mr += 0.0015 * (mo - 150) * (mo - 150) * math.Sqrt(rain)
		}
		if mr > 250 {
			mr = 250
		}
		mo = mr
	}

	ed := 0.942*math.Pow(rh, 0.679) + 11*math.Exp((rh-100)/10) +
		0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))

	var m float64
	switch {
	case mo > ed:
		ko := 0.424*(1-math.Pow(rh/100, 1.7)) +
			0.0694*math.Sqrt(ws)*(1-math.Pow(rh/100, 8))
		kd := ko * 0.0579 * math.Exp(0.0365*temp)
		m = ed + (mo-ed)*math.Pow(10, -kd*t)
	case mo < ed:
		ew := 0.618*math.Pow(rh, 0.753) + 10*math.Exp((rh-100)/10) +
			0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))
		if mo < ew {
			k1 := 0.424*(1-math.Pow((100-rh)/100, 1.7)) +
				0.0694*math.Sqrt(ws)*(1-math.Pow((100-rh)/100, 8))
			kw := k1 * 0.0579 * math.Exp(0.0365*temp)
			m = ew - (ew-mo)*math.Pow(10, -kw*t)
		} else {
			m = mo
		}
	default:
		m = mo
	}

	ffmc := FFMCFromMoisture(m)
	if ffmc > 101 {
		ffmc = 101
	}
	if ffmc < 0 {
		ffmc = 0
	}
	return ffmc
}

// HourlyFFMCVanWagnerPrevious inverts one hour of the Van Wagner
// recurrence: given the FFMC at an hour and that hour's weather, it
// estimates the FFMC one hour earlier. The drying/wetting exponential
// inverts exactly; the rain response does not, so it is removed by
// fixed-point iteration.
func HourlyFFMCVanWagnerPrevious(ffmc, rain, temp, rh, ws float64) float64 {
	if ffmc < 0 {
		ffmc = 0
	}
	m := MoistureFromFFMC(ffmc)

	ed := 0.942*math.Pow(rh, 0.679) + 11*math.Exp((rh-100)/10) +
		0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))
	ew := 0.618*math.Pow(rh, 0.753) + 10*math.Exp((rh-100)/10) +
		0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))

	switch {
	case m > ed:
		ko := 0.424*(1-math.Pow(rh/100, 1.7)) +
			0.0694*math.Sqrt(ws)*(1-math.Pow(rh/100, 8))
		kd := ko * 0.0579 * math.Exp(0.0365*temp)
		m = ed + (m-ed)*math.Pow(10, kd)
	case m < ew:
		k1 := 0.424*(1-math.Pow((100-rh)/100, 1.7)) +
			0.0694*math.Sqrt(ws)*(1-math.Pow((100-rh)/100, 8))
		kw := k1 * 0.0579 * math.Exp(0.0365*temp)
		m = ew - (ew-m)*math.Pow(10, kw)
	}

	if rain > 0 {
		mo := m
		for i := 0; i < 3; i++ {
			d := 42.5 * rain * math.Exp(-100/(251-mo)) * (1 - math.Exp(-6.93/rain))
			if mo > 150 {
				d += 0.0015 * (mo - 150) * (mo - 150) * math.Sqrt(rain)
			}
			mo = m - d
			if mo < 0 {
				mo = 0
			}
		}
		m = mo
	}

	if m < 0 {
		m = 0
	}
	if m > 250 {
		m = 250
	}
	return FFMCFromMoisture(m)
}

// HourlyFFMCLawson interpolates an hourly FFMC between yesterday's and
// today's daily (noon) FFMC values as a function of time since local
// midnight. The daily value is taken to apply at solar noon, so the
// interpolation window runs from yesterday noon (-12 h) to today noon
// (+12 h); past noon the value holds at today's daily FFMC. Interpolation
// is done in moisture space. The previous hour's value is deliberately
// not an input.
func HourlyFFMCLawson(prevDailyFFMC, todayDailyFFMC float64, sinceMidnight time.Duration) float64 {
	if prevDailyFFMC < 0 {
		prevDailyFFMC = todayDailyFFMC
	}
	if todayDailyFFMC < 0 {
		return prevDailyFFMC
	}

	f := (sinceMidnight.Seconds() + 43200) / 86400
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}

	m0 := MoistureFromFFMC(prevDailyFFMC)
	m1 := MoistureFromFFMC(todayDailyFFMC)
	return FFMCFromMoisture(m0 + (m1-m0)*f)
}

// HourlyFFMCHybrid blends the Lawson interpolation between the two daily
// FFMC values with a Van Wagner step from the previous hour. The trailing
// 48 h of rainfall (rain48[0] is the current hour, counting backwards)
// shifts weight toward the hourly recurrence, which tracks wetting events
// the diurnal interpolation cannot see.
func HourlyFFMCHybrid(prevDailyFFMC, todayDailyFFMC, prevHourFFMC float64, rain48 []float64, temp, rh, ws float64, sinceMidnight time.Duration) float64 {
	var rainSum, rainNow float64
	for i, r := range rain48 {
		if i == 0 {
			rainNow = r
		}
		rainSum += r
	}

	interp := HourlyFFMCLawson(prevDailyFFMC, todayDailyFFMC, sinceMidnight)
	step := HourlyFFMCVanWagner(prevHourFFMC, rainNow, temp, rh, ws, time.Hour)
	if prevHourFFMC < 0 {
		return interp
	}

	w := math.Exp(-0.5 * rainSum)
	return w*interp + (1-w)*step
}
