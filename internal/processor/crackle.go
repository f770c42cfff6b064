package processor

import (
	"math"
	"math/rand/v2"

	"github.com/linuxmatters/needledrop/internal/audio"
	"gonum.org/v1/gonum/dsp/window"
)

// BurstLength is the length of one crackle burst in frames
const BurstLength = 64

// Burst amplitude is scaled by a factor drawn from [burstScaleMin, burstScaleMin+burstScaleSpan)
const (
	burstScaleMin  = 0.4
	burstScaleSpan = 0.6
)

// burstEnvelope is a symmetric Hann window of BurstLength points
var burstEnvelope = func() []float64 {
	env := make([]float64, BurstLength)
	for i := range env {
		env[i] = 1
	}
	return window.Hann(env)
}()

// BurstCount returns floor(rate * frames / sampleRate)
func BurstCount(frames, sampleRate int, rate float64) int {
	if sampleRate <= 0 || rate <= 0 {
		return 0
	}
	return int(math.Floor(rate * float64(frames) / float64(sampleRate)))
}

// AddCrackle adds Hann-enveloped bursts of surface noise to buf in place and
// returns how many bursts were placed. With amount or rate <= 0 the buffer is
// left exactly as it was. Otherwise every burst starts at a uniform random
// frame, is scaled by amount times a uniform factor in [0.4, 1.0), is added
// to every channel, and may overlap others; all samples are then clipped to
// [-1, 1]. Bursts that run past the end are truncated.
func AddCrackle(buf *audio.Buffer, amount, rate float64, rng *rand.Rand) int {
	if amount <= 0 || rate <= 0 {
		return 0
	}

	frames := buf.NumFrames()
	count := BurstCount(frames, buf.SampleRate, rate)
	for n := 0; n < count; n++ {
		start := rng.IntN(max(1, frames-BurstLength))
		scale := amount * (burstScaleMin + burstScaleSpan*rng.Float64())
		end := min(start+BurstLength, frames)
		for _, samples := range buf.Data {
			for i := start; i < end; i++ {
				samples[i] += scale * burstEnvelope[i-start]
			}
		}
	}
	buf.Clip()
	return count
}
