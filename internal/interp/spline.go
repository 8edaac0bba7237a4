package interp

// HourValue is a known or interpolated value at an hour offset from the
// start of a data set. Offsets need not be integral for known values.
type HourValue struct {
	HourOffset float64
	Value      float64
}

// Spline fills whole-hour values between the first and last known points
// using a natural cubic spline through the known points. The returned slice
// has one entry per whole hour from ceil(first) through floor(last),
// inclusive; known whole-hour points are passed through.
func Spline(known []HourValue) []HourValue {
	if len(known) < 2 {
		return nil
	}
	n := len(known)
	x := make([]float64, n)
	y := make([]float64, n)
	for i, v := range known {
		x[i] = v.HourOffset
		y[i] = v.Value
	}

	m := secondDerivatives(x, y)

	var out []HourValue
	hour := ceil(x[0])
	seg := 0
	for hour <= x[n-1] {
		for seg < n-2 && hour > x[seg+1] {
			seg++
		}
		out = append(out, HourValue{HourOffset: hour, Value: eval(x, y, m, seg, hour)})
		hour++
	}
	return out
}

// secondDerivatives solves the tridiagonal system for a natural cubic
// spline (second derivative zero at both ends).
func secondDerivatives(x, y []float64) []float64 {
	n := len(x)
	m := make([]float64, n)
	if n < 3 {
		return m
	}

	a := make([]float64, n)
	b := make([]float64, n)
	c := make([]float64, n)
	d := make([]float64, n)
	for i := 1; i < n-1; i++ {
		h0 := x[i] - x[i-1]
		h1 := x[i+1] - x[i]
		a[i] = h0
		b[i] = 2 * (h0 + h1)
		c[i] = h1
		d[i] = 6 * ((y[i+1]-y[i])/h1 - (y[i]-y[i-1])/h0)
	}

	// Thomas algorithm over the interior points.
	for i := 2; i < n-1; i++ {
		w := a[i] / b[i-1]
		b[i] -= w * c[i-1]
		d[i] -= w * d[i-1]
	}
	for i := n - 2; i >= 1; i-- {
		m[i] = (d[i] - c[i]*m[i+1]) / b[i]
	}
	return m
}

func eval(x, y, m []float64, i int, xv float64) float64 {
	h := x[i+1] - x[i]
	t := xv - x[i]
	u := x[i+1] - xv
	return m[i]*u*u*u/(6*h) + m[i+1]*t*t*t/(6*h) +
		(y[i]/h-m[i]*h/6)*u + (y[i+1]/h-m[i+1]*h/6)*t
}

func ceil(v float64) float64 {
	iv := float64(int64(v))
	if iv < v {
		return iv + 1
	}
	return iv
}
