package dsp

import "math"

// maxCutoffRatio limits the low-pass cutoff to just below Nyquist
const maxCutoffRatio = 0.99

// LowPass is a first-order (6 dB/octave) low-pass filter designed with the
// bilinear transform, run in transposed direct form II.
type LowPass struct {
	b0, b1, a1 float64
	z1         float64
	cutoff     float64
}

// NewLowPass designs a low-pass at cutoffHz. Cutoffs at or above Nyquist are
// clamped to 0.99 of Nyquist rather than rejected.
func NewLowPass(sampleRate, cutoffHz float64) *LowPass {
	nyquist := sampleRate / 2
	fc := math.Min(cutoffHz, maxCutoffRatio*nyquist)
	if fc <= 0 {
		fc = 1
	}
	k := math.Tan(math.Pi * fc / sampleRate)
	return &LowPass{
		b0:     k / (1 + k),
		b1:     k / (1 + k),
		a1:     (k - 1) / (k + 1),
		cutoff: fc,
	}
}

// Cutoff returns the effective cutoff after clamping
func (f *LowPass) Cutoff() float64 {
	return f.cutoff
}

// Process filters x in place
func (f *LowPass) Process(x []float64) {
	for i, in := range x {
		out := f.b0*in + f.z1
		f.z1 = f.b1*in - f.a1*out
		x[i] = out
	}
}

// Reset clears the filter state
func (f *LowPass) Reset() {
	f.z1 = 0
}

// MagnitudeAt returns the filter's linear gain at freqHz
func (f *LowPass) MagnitudeAt(freqHz, sampleRate float64) float64 {
	w := 2 * math.Pi * freqHz / sampleRate
	// H(z) = (b0 + b1 z^-1) / (1 + a1 z^-1)
	numRe := f.b0 + f.b1*math.Cos(w)
	numIm := -f.b1 * math.Sin(w)
	denRe := 1 + f.a1*math.Cos(w)
	denIm := -f.a1 * math.Sin(w)
	return math.Hypot(numRe, numIm) / math.Hypot(denRe, denIm)
}
