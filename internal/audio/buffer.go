// Package audio provides decoded sample buffers and file I/O for needledrop
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptyBuffer is returned when a decoded item holds no channels or no frames
var ErrEmptyBuffer = errors.New("audio buffer is empty")

// Buffer holds decoded audio as planar float64 samples, nominally in [-1, 1].
// Data is indexed [channel][frame]; every channel has the same length.
type Buffer struct {
	Data       [][]float64
	SampleRate int
}

// NewBuffer allocates a silent buffer
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	return &Buffer{Data: data, SampleRate: sampleRate}
}

// FromInterleaved reshapes interleaved samples into a planar buffer.
// A channel count below 1 is treated as mono. Trailing partial frames are dropped.
func FromInterleaved(samples []float64, channels, sampleRate int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	frames := len(samples) / channels
	b := NewBuffer(channels, frames, sampleRate)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			b.Data[ch][i] = samples[i*channels+ch]
		}
	}
	return b
}

// NumChannels returns the channel count
func (b *Buffer) NumChannels() int {
	return len(b.Data)
}

// NumFrames returns the number of frames (samples per channel)
func (b *Buffer) NumFrames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the playback length at the buffer's sample rate
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.NumFrames()) / float64(b.SampleRate) * float64(time.Second))
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	data := make([][]float64, len(b.Data))
	for ch, samples := range b.Data {
		data[ch] = append([]float64(nil), samples...)
	}
	return &Buffer{Data: data, SampleRate: b.SampleRate}
}

// Clip hard-limits every sample to [-1, 1] in place
func (b *Buffer) Clip() {
	for _, samples := range b.Data {
		for i, s := range samples {
			if s > 1 {
				samples[i] = 1
			} else if s < -1 {
				samples[i] = -1
			}
		}
	}
}

// Validate checks the shape invariants and rejects NaN or Inf samples
func (b *Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	if len(b.Data) == 0 || len(b.Data[0]) == 0 {
		return ErrEmptyBuffer
	}
	frames := len(b.Data[0])
	for ch, samples := range b.Data {
		if len(samples) != frames {
			return fmt.Errorf("channel %d has %d frames, want %d", ch, len(samples), frames)
		}
		for i, s := range samples {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return fmt.Errorf("non-finite sample at channel %d frame %d", ch, i)
			}
		}
	}
	return nil
}
