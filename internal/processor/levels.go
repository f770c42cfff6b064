package processor

import (
	"math"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/dsp"
	"gonum.org/v1/gonum/floats"
)

// Levels summarises a buffer's signal level across all channels
type Levels struct {
	PeakDB float64 // sample peak in dBFS
	RMSDB  float64 // RMS in dBFS
}

// MeasureLevels computes peak and RMS over every channel.
// Silence reports the -120 dB floor.
func MeasureLevels(buf *audio.Buffer) Levels {
	var peak, sumSquares float64
	n := 0
	for _, samples := range buf.Data {
		if len(samples) == 0 {
			continue
		}
		peak = math.Max(peak, floats.Norm(samples, math.Inf(1)))
		norm := floats.Norm(samples, 2)
		sumSquares += norm * norm
		n += len(samples)
	}
	if n == 0 {
		return Levels{PeakDB: dsp.LinearToDB(0), RMSDB: dsp.LinearToDB(0)}
	}
	return Levels{
		PeakDB: dsp.LinearToDB(peak),
		RMSDB:  dsp.LinearToDB(math.Sqrt(sumSquares / float64(n))),
	}
}
