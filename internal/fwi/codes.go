// Package fwi implements the Canadian Forest Fire Weather Index System
// equations (Van Wagner 1987 daily forms, Van Wagner 1977 hourly FFMC,
// plus the Lawson-contiguous and hybrid hourly FFMC variants). Relative
// humidity is passed in percent, temperatures in Celsius, wind speeds in
// km/h and rain in mm unless noted otherwise.
package fwi

import (
	"math"
	"time"
)

// ffmcScale is the conversion constant between FFMC and fine fuel
// moisture content. Kept in exact form so MoistureFromFFMC and
// FFMCFromMoisture invert each other to machine precision.
const ffmcScale = 59.5 * 250 / 101

// Day-length factors for the DMC drying rate, by month, northern and
// southern hemisphere.
var dmcDayLength = [2][12]float64{
	{6.5, 7.5, 9.0, 12.8, 13.9, 13.9, 12.4, 10.9, 9.4, 8.0, 7.0, 6.0},
	{11.5, 10.5, 9.2, 7.9, 6.8, 6.2, 6.5, 7.4, 8.7, 10.0, 11.2, 11.8},
}

// Day-length adjustments for the DC evaporation term, by month, northern
// and southern hemisphere.
var dcDayLength = [2][12]float64{
	{-1.6, -1.6, -1.6, 0.9, 3.8, 5.8, 6.4, 5.0, 2.4, 0.4, -1.6, -1.6},
	{6.4, 5.0, 2.4, 0.4, -1.6, -1.6, -1.6, -1.6, -1.6, 0.9, 3.8, 5.8},
}

func hemisphere(lat float64) int {
	if lat < 0 {
		return 1
	}
	return 0
}

// MoistureFromFFMC converts an FFMC value to fine fuel moisture content.
func MoistureFromFFMC(ffmc float64) float64 {
	return ffmcScale * (101 - ffmc) / (59.5 + ffmc)
}

// FFMCFromMoisture converts fine fuel moisture content back to FFMC.
func FFMCFromMoisture(m float64) float64 {
	return 59.5 * (250 - m) / (ffmcScale + m)
}

// DC advances the Drought Code by one day. prevDC is yesterday's value,
// rain the 24 h precipitation ending at noon, temp the noon temperature.
// Latitude selects the hemisphere day-length table; month is the calendar
// month of the day being computed.
func DC(prevDC, rain, temp, lat float64, month time.Month) float64 {
	dc := prevDC
	if dc < 0 {
		dc = 0
	}

	if rain > 2.8 {
		rw := 0.83*rain - 1.27
		smi := 800 * math.Exp(-dc/400)
		dc -= 400 * math.Log(1+3.937*rw/smi)
		if dc < 0 {
			dc = 0
		}
	}

	if temp < -2.8 {
		temp = -2.8
	}
	v := 0.36*(temp+2.8) + dcDayLength[hemisphere(lat)][month-1]
	if v < 0 {
		v = 0
	}
	return dc + 0.5*v
}

// DMC advances the Duff Moisture Code by one day.
func DMC(prevDMC, rain, temp, lat float64, month time.Month, rh float64) float64 {
	dmc := prevDMC
	if dmc < 0 {
		dmc = 0
	}

	if rain > 1.5 {
		re := 0.92*rain - 1.27
		mo := 20 + math.Exp(5.6348-dmc/43.43)
		var b float64
		switch {
		case dmc <= 33:
			b = 100 / (0.5 + 0.3*dmc)
		case dmc <= 65:
			b = 14 - 1.3*math.Log(dmc)
		default:
			b = 6.2*math.Log(dmc) - 17.2
		}
		mr := mo + 1000*re/(48.77+b*re)
		dmc = 244.72 - 43.43*math.Log(mr-20)
		if dmc < 0 {
			dmc = 0
		}
	}

	if temp < -1.1 {
		temp = -1.1
	}
	k := 1.894 * (temp + 1.1) * (100 - rh) * dmcDayLength[hemisphere(lat)][month-1] * 1e-6
	return dmc + 100*k
}

// BUI combines the Drought Code and Duff Moisture Code into the Buildup
// Index.
func BUI(dc, dmc float64) float64 {
	if dc < 0 || dmc < 0 {
		return -1
	}
	if dmc == 0 && dc == 0 {
		return 0
	}
	var bui float64
	if dmc <= 0.4*dc {
		bui = 0.8 * dmc * dc / (dmc + 0.4*dc)
	} else {
		bui = dmc - (1-0.8*dc/(dmc+0.4*dc))*(0.92+math.Pow(0.0114*dmc, 1.7))
	}
	if bui < 0 {
		bui = 0
	}
	return bui
}

// DailyFFMCVanWagner advances the standard daily FFMC using noon weather.
func DailyFFMCVanWagner(prevFFMC, rain, temp, rh, ws float64) float64 {
	if prevFFMC < 0 {
		prevFFMC = 0
	}
	mo := MoistureFromFFMC(prevFFMC)

	if rain > 0.5 {
		rf := rain - 0.5
		mr := mo + 42.5*rf*math.Exp(-100/(251-mo))*(1-math.Exp(-6.93/rf))
		if mo > 150 {
			mr += 0.0015 * (mo - 150) * (mo - 150) * math.Sqrt(rf)
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
		kd := ko * 0.581 * math.Exp(0.0365*temp)
		m = ed + (mo-ed)*math.Pow(10, -kd)
	case mo < ed:
		ew := 0.618*math.Pow(rh, 0.753) + 10*math.Exp((rh-100)/10) +
			0.18*(21.1-temp)*(1-math.Exp(-0.115*rh))
		if mo < ew {
			k1 := 0.424*(1-math.Pow((100-rh)/100, 1.7)) +
				0.0694*math.Sqrt(ws)*(1-math.Pow((100-rh)/100, 8))
			kw := k1 * 0.581 * math.Exp(0.0365*temp)
			m = ew - (ew-mo)*math.Pow(10, -kw)
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

// ISI computes the Initial Spread Index from an FFMC value and wind speed
// using the FBP high-wind form. duration distinguishes hourly (3600 s)
// from daily (86400 s) use; the daily form caps the wind function per the
// FBP system.
func ISI(ffmc, ws float64, duration time.Duration) float64 {
	if ffmc < 0 {
		return -1
	}
	m := MoistureFromFFMC(ffmc)
	fF := 91.9 * math.Exp(-0.1386*m) * (1 + math.Pow(m, 5.31)/4.93e7)
	var fW float64
	if ws > 40 && duration >= 24*time.Hour {
		fW = 12 * (1 - math.Exp(-0.0818*(ws-28)))
	} else {
		fW = math.Exp(0.05039 * ws)
	}
	return 0.208 * fW * fF
}

// FWI combines ISI and BUI into the Fire Weather Index.
func FWI(isi, bui float64) float64 {
	if isi < 0 || bui < 0 {
		return -1
	}
	var fD float64
	if bui <= 80 {
		fD = 0.626*math.Pow(bui, 0.809) + 2
	} else {
		fD = 1000 / (25 + 108.64*math.Exp(-0.023*bui))
	}
	b := 0.1 * isi * fD
	if b <= 1 {
		return b
	}
	return math.Exp(2.72 * math.Pow(0.434*math.Log(b), 0.647))
}
