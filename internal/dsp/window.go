package dsp

import "math"

// besselI0 evaluates the zeroth-order modified Bessel function of the first kind
// by its power series, which converges quickly for the β values used here.
func besselI0(x float64) float64 {
	const tolerance = 1e-12
	sum := 1.0
	term := 1.0
	half := x / 2
	for k := 1; k < 500; k++ {
		term *= (half / float64(k)) * (half / float64(k))
		sum += term
		if term < tolerance*sum {
			break
		}
	}
	return sum
}

// kaiser returns a symmetric Kaiser window of the given length
func kaiser(length int, beta float64) []float64 {
	w := make([]float64, length)
	if length == 1 {
		w[0] = 1
		return w
	}
	alpha := float64(length-1) / 2
	norm := besselI0(beta)
	for n := range w {
		x := (float64(n) - alpha) / alpha
		w[n] = besselI0(beta*math.Sqrt(math.Max(0, 1-x*x))) / norm
	}
	return w
}

// sinc is the normalised sinc, sin(πx)/(πx)
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
