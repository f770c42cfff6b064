package processor

import (
	"math"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/mains"
)

// AddHum mixes a mains hum (fundamental plus half-level second harmonic) into
// buf in place and returns the frequency used. level <= 0 leaves buf untouched.
// freqHz <= 0 selects the local mains frequency.
func AddHum(buf *audio.Buffer, level, freqHz float64) float64 {
	if level <= 0 {
		return 0
	}
	if freqHz <= 0 {
		freqHz = float64(mains.Frequency())
	}

	w := 2 * math.Pi * freqHz / float64(buf.SampleRate)
	for _, samples := range buf.Data {
		for i := range samples {
			phase := w * float64(i)
			samples[i] += level*math.Sin(phase) + level/2*math.Sin(2*phase)
		}
	}
	buf.Clip()
	return freqHz
}
