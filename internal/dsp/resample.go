package dsp

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidRatio indicates a non-positive up or down factor
var ErrInvalidRatio = errors.New("dsp: invalid resampling ratio")

const (
	// kaiserBeta shapes the anti-aliasing window
	kaiserBeta = 5.0
	// halfLenPerRate sets the filter half-length in multiples of max(up, down)
	halfLenPerRate = 10
)

// Resampler converts a whole signal by the rational factor up/down.
// It is stateless between calls and safe for concurrent use.
type Resampler struct {
	up      int
	down    int
	halfLen int
	// phases[p] holds taps h[p], h[p+up], ... in reverse order so that a
	// forward window of the input can be dotted against it directly
	phases [][]float64
	width  int
}

// NewRational designs a resampler for up/down after reducing the ratio by its GCD.
// The anti-aliasing filter is a Kaiser-windowed sinc with cutoff at
// 1/max(up, down) of Nyquist and passband gain up.
func NewRational(up, down int) (*Resampler, error) {
	if up <= 0 || down <= 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrInvalidRatio, up, down)
	}
	g := gcd(up, down)
	up /= g
	down /= g

	r := &Resampler{up: up, down: down}
	if up == down {
		return r, nil
	}

	maxRate := max(up, down)
	r.halfLen = halfLenPerRate * maxRate
	taps := designLowPass(2*r.halfLen+1, 1/float64(maxRate), kaiserBeta)
	floats.Scale(float64(up), taps)

	r.width = (len(taps) + up - 1) / up
	r.phases = make([][]float64, up)
	for p := range r.phases {
		phase := make([]float64, r.width)
		for i := 0; i < r.width; i++ {
			if j := p + i*up; j < len(taps) {
				phase[r.width-1-i] = taps[j]
			}
		}
		r.phases[p] = phase
	}
	return r, nil
}

// Ratio returns the reduced up and down factors
func (r *Resampler) Ratio() (up, down int) {
	return r.up, r.down
}

// IsIdentity reports whether the reduced ratio is 1/1
func (r *Resampler) IsIdentity() bool {
	return r.up == r.down
}

// OutputLength returns ceil(n*up/down)
func (r *Resampler) OutputLength(n int) int {
	return (n*r.up + r.down - 1) / r.down
}

// Process resamples x into a new slice of OutputLength(len(x)) samples.
// The filter's group delay is compensated so output sample k is aligned
// with input position k*down/up.
func (r *Resampler) Process(x []float64) []float64 {
	if r.IsIdentity() {
		return append([]float64(nil), x...)
	}

	n := len(x)
	outLen := r.OutputLength(n)
	out := make([]float64, outLen)
	if outLen == 0 {
		return out
	}

	// Zero-pad both sides so every window below stays in range
	lead := r.width - 1
	lastCentre := ((outLen-1)*r.down + r.halfLen) / r.up
	padded := make([]float64, max(lead+n, lastCentre+r.width)+1)
	copy(padded[lead:], x)

	for k := range out {
		t := k*r.down + r.halfLen
		phase := r.phases[t%r.up]
		centre := t / r.up
		// window covers input indices centre-width+1 .. centre
		out[k] = floats.Dot(phase, padded[centre:centre+r.width])
	}
	return out
}

// designLowPass returns a windowed-sinc FIR of odd length with the cutoff given
// as a fraction of Nyquist, normalised to unity DC gain
func designLowPass(length int, cutoff, beta float64) []float64 {
	taps := kaiser(length, beta)
	centre := float64(length-1) / 2
	for n := range taps {
		taps[n] *= cutoff * sinc(cutoff*(float64(n)-centre))
	}
	floats.Scale(1/floats.Sum(taps), taps)
	return taps
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
