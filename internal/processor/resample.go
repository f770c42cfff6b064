package processor

import (
	"fmt"
	"math"
	"sync"

	"github.com/linuxmatters/needledrop/internal/audio"
	"github.com/linuxmatters/needledrop/internal/dsp"
)

// speedResolution is the up-sampling factor; speed is quantised to 1/speedResolution
const speedResolution = 100

// SpeedRatio returns the up and down factors used for a speed ratio
func SpeedRatio(speed float64) (up, down int, err error) {
	if !(speed > 0) || math.IsInf(speed, 0) {
		return 0, 0, fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidConfig, speed)
	}
	down = int(math.Round(speed * speedResolution))
	if down < 1 {
		return 0, 0, fmt.Errorf("%w: speed %g rounds to zero", ErrInvalidConfig, speed)
	}
	return speedResolution, down, nil
}

// Resample changes playback speed by resampling with ratio 100/round(speed*100)
// while keeping the sample rate, so pitch and tempo move together like a
// turntable running off-speed. The result has about frames/speed frames.
// Channels are resampled concurrently.
func Resample(buf *audio.Buffer, speed float64) (*audio.Buffer, error) {
	up, down, err := SpeedRatio(speed)
	if err != nil {
		return nil, err
	}
	r, err := dsp.NewRational(up, down)
	if err != nil {
		return nil, err
	}

	out := &audio.Buffer{Data: make([][]float64, buf.NumChannels()), SampleRate: buf.SampleRate}
	var wg sync.WaitGroup
	for ch := range buf.Data {
		wg.Add(1)
		go func(channel int) {
			defer wg.Done()
			out.Data[channel] = r.Process(buf.Data[channel])
		}(ch)
	}
	wg.Wait()
	return out, nil
}
