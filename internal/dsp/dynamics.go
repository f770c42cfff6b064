package dsp

import "math"

// DBToLinear converts decibels to a linear amplitude factor
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts a linear amplitude to decibels with a -120 dB floor
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return -120
	}
	return math.Max(-120, 20*math.Log10(linear))
}

// Gain scales x in place by db decibels
func Gain(x []float64, db float64) {
	g := DBToLinear(db)
	for i := range x {
		x[i] *= g
	}
}

// Saturate applies tanh soft clipping after driveDB of input gain, in place.
// Output is bounded to (-1, 1).
func Saturate(x []float64, driveDB float64) {
	g := DBToLinear(driveDB)
	for i, s := range x {
		x[i] = math.Tanh(g * s)
	}
}

// Compressor is a hard-knee downward compressor with a peak envelope follower
// and separate attack and release ballistics. No makeup gain is applied.
type Compressor struct {
	threshold  float64 // linear
	ratioInv   float64
	attackCte  float64
	releaseCte float64
	env        float64
}

// NewCompressor creates a compressor for one channel
func NewCompressor(sampleRate, thresholdDB, ratio, attackMs, releaseMs float64) *Compressor {
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold:  DBToLinear(thresholdDB),
		ratioInv:   1 / ratio,
		attackCte:  ballisticsCoefficient(attackMs, sampleRate),
		releaseCte: ballisticsCoefficient(releaseMs, sampleRate),
	}
}

// ballisticsCoefficient returns the one-pole smoothing coefficient for a time constant;
// times under a microsecond give an instantaneous response
func ballisticsCoefficient(ms, sampleRate float64) float64 {
	if ms < 1e-3 {
		return 0
	}
	return math.Exp(-2 * math.Pi * 1000 / (ms * sampleRate))
}

// Process compresses x in place
func (c *Compressor) Process(x []float64) {
	for i, s := range x {
		level := math.Abs(s)
		cte := c.releaseCte
		if level > c.env {
			cte = c.attackCte
		}
		c.env = level + cte*(c.env-level)

		if c.env > c.threshold {
			x[i] = s * math.Pow(c.env/c.threshold, c.ratioInv-1)
		}
	}
}

// Reset clears the envelope
func (c *Compressor) Reset() {
	c.env = 0
}
