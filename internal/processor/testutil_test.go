package processor

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/linuxmatters/needledrop/internal/audio"
)

// TestAudioOptions configures the synthetic audio to generate
type TestAudioOptions struct {
	DurationSecs float64 // Total duration in seconds (default: 1.0)
	SampleRate   int     // Sample rate (default: 44100)
	Channels     int     // Channel count (default: 1)
	ToneFreq     float64 // Sine wave frequency in Hz (0 = no tone)
	ToneLevel    float64 // Tone level in dBFS (e.g., -6.0)
	NoiseLevel   float64 // White noise level in dBFS (0 = no noise, -60 = quiet noise)
}

// generateBuffer creates synthetic audio in memory
func generateBuffer(opts TestAudioOptions) *audio.Buffer {
	if opts.SampleRate == 0 {
		opts.SampleRate = 44100
	}
	if opts.DurationSecs == 0 {
		opts.DurationSecs = 1.0
	}
	if opts.Channels == 0 {
		opts.Channels = 1
	}

	frames := int(opts.DurationSecs * float64(opts.SampleRate))
	buf := audio.NewBuffer(opts.Channels, frames, opts.SampleRate)

	toneAmp := 0.0
	if opts.ToneFreq > 0 && opts.ToneLevel < 0 {
		toneAmp = math.Pow(10.0, opts.ToneLevel/20.0)
	}
	noiseAmp := 0.0
	if opts.NoiseLevel < 0 {
		noiseAmp = math.Pow(10.0, opts.NoiseLevel/20.0)
	}

	// LCG from Numerical Recipes keeps noise deterministic
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	for i := 0; i < frames; i++ {
		var sample float64
		if toneAmp > 0 {
			t := float64(i) / float64(opts.SampleRate)
			sample += toneAmp * math.Sin(2.0*math.Pi*opts.ToneFreq*t)
		}
		if noiseAmp > 0 {
			sample += noiseAmp * nextRandom()
		}
		for ch := range buf.Data {
			buf.Data[ch][i] = sample
		}
	}
	buf.Clip()
	return buf
}

// generateTestAudio writes synthetic 16-bit WAV audio into a temp directory
// and returns its path. The directory is removed when the test ends.
func generateTestAudio(t *testing.T, name string, opts TestAudioOptions) string {
	t.Helper()

	buf := generateBuffer(opts)
	path := filepath.Join(t.TempDir(), name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, buf.SampleRate, 16, buf.NumChannels(), 1)
	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: buf.NumChannels(), SampleRate: buf.SampleRate},
		Data:           audio.Quantize(buf, 16),
		SourceBitDepth: 16,
	}
	if err := enc.Write(pcm); err != nil {
		t.Fatalf("failed to write WAV data: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to finalise WAV: %v", err)
	}
	return path
}

// hasNonFinite reports whether any sample is NaN or infinite
func hasNonFinite(buf *audio.Buffer) bool {
	for _, ch := range buf.Data {
		for _, s := range ch {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return true
			}
		}
	}
	return false
}
