package dsp

import "math"

const (
	// ChorusCentreDelayMs is the delay the LFO swings around
	ChorusCentreDelayMs = 7.0
	// chorusMaxExcursionMs is the swing at depth 1.0
	chorusMaxExcursionMs = 10.0
	// chorusMinDelayMs keeps the read head behind the write head
	chorusMinDelayMs = 1.0
	// ChorusMix is the wet proportion of the output
	ChorusMix = 0.5
)

// Chorus is a sine-modulated fractional delay line mixed with the dry signal
type Chorus struct {
	sampleRate float64
	rate       float64
	depth      float64
	startPhase float64
	phase      float64

	line []float64
	pos  int
}

// NewChorus creates a chorus for one channel. phase offsets the LFO in
// radians; offsetting alternate channels by π/2 widens the stereo image.
func NewChorus(sampleRate, rateHz, depth, phase float64) *Chorus {
	maxDelay := (ChorusCentreDelayMs + chorusMaxExcursionMs*math.Abs(depth)) * sampleRate / 1000
	return &Chorus{
		sampleRate: sampleRate,
		rate:       rateHz,
		depth:      depth,
		startPhase: phase,
		phase:      phase,
		line:       make([]float64, int(math.Ceil(maxDelay))+2),
	}
}

// Process runs the chorus over x in place
func (c *Chorus) Process(x []float64) {
	inc := 2 * math.Pi * c.rate / c.sampleRate
	size := len(c.line)
	for i, in := range x {
		delayMs := ChorusCentreDelayMs + chorusMaxExcursionMs*c.depth*math.Sin(c.phase)
		delay := math.Max(chorusMinDelayMs, delayMs) * c.sampleRate / 1000

		c.line[c.pos] = in

		whole := int(delay)
		frac := delay - float64(whole)
		s0 := c.line[(c.pos-whole+size)%size]
		s1 := c.line[(c.pos-whole-1+2*size)%size]
		wet := s0 + frac*(s1-s0)

		x[i] = (1-ChorusMix)*in + ChorusMix*wet

		c.pos = (c.pos + 1) % size
		c.phase += inc
		if c.phase >= 2*math.Pi {
			c.phase -= 2 * math.Pi
		}
	}
}

// Reset clears the delay line and rewinds the LFO
func (c *Chorus) Reset() {
	clear(c.line)
	c.pos = 0
	c.phase = c.startPhase
}
