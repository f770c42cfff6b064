package audio

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// probeResult is the subset of ffprobe's JSON stream report we use
type probeResult struct {
	Streams []struct {
		SampleFmt        string `json:"sample_fmt"`
		SampleRate       string `json:"sample_rate"`
		Channels         int    `json:"channels"`
		BitsPerRawSample string `json:"bits_per_raw_sample"`
		BitsPerSample    int    `json:"bits_per_sample"`
		Duration         string `json:"duration"`
	} `json:"streams"`
}

// pcmLayout describes how the fallback asks ffmpeg to emit raw samples
type pcmLayout struct {
	format    string  // ffmpeg raw muxer name
	codec     string  // ffmpeg PCM codec
	width     int     // bytes per sample
	divisor   float64 // normalisation divisor, 1 for float
	floatData bool
}

// isFloatFormat reports whether an ffmpeg sample_fmt carries floating-point data
func isFloatFormat(sampleFmt string) bool {
	switch sampleFmt {
	case "flt", "fltp", "dbl", "dblp":
		return true
	}
	return false
}

// sampleFmtDepth returns the integer width implied by an ffmpeg sample_fmt
func sampleFmtDepth(sampleFmt string) int {
	switch sampleFmt {
	case "u8", "u8p":
		return 8
	case "s16", "s16p":
		return 16
	case "s32", "s32p":
		return 32
	case "s64", "s64p":
		return 64
	}
	return 0
}

// chooseLayout picks the raw output layout for a probed stream.
// Float sources are passed through unnormalised; integer sources of up to
// 16 bits are read as s16, anything wider as s32.
func chooseLayout(sampleFmt string, rawBits int) pcmLayout {
	if isFloatFormat(sampleFmt) {
		return pcmLayout{format: "f32le", codec: "pcm_f32le", width: 4, divisor: 1, floatData: true}
	}
	depth := rawBits
	if depth == 0 {
		depth = sampleFmtDepth(sampleFmt)
	}
	if depth > 0 && depth <= 16 {
		return pcmLayout{format: "s16le", codec: "pcm_s16le", width: 2, divisor: intScale(16)}
	}
	return pcmLayout{format: "s32le", codec: "pcm_s32le", width: 4, divisor: intScale(32)}
}

// probeStream runs ffprobe on the first audio stream
func probeStream(ctx context.Context, path string) (*Metadata, pcmLayout, error) {
	out, err := runTool(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_fmt,sample_rate,channels,bits_per_raw_sample,bits_per_sample,duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return nil, pcmLayout{}, err
	}

	var res probeResult
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, pcmLayout{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(res.Streams) == 0 {
		return nil, pcmLayout{}, fmt.Errorf("no audio stream found in file: %s", path)
	}

	s := res.Streams[0]
	rate, err := strconv.Atoi(s.SampleRate)
	if err != nil || rate <= 0 {
		return nil, pcmLayout{}, fmt.Errorf("invalid sample rate %q", s.SampleRate)
	}
	rawBits, _ := strconv.Atoi(s.BitsPerRawSample)
	if rawBits == 0 {
		rawBits = s.BitsPerSample
	}
	duration, _ := strconv.ParseFloat(s.Duration, 64)

	layout := chooseLayout(s.SampleFmt, rawBits)
	bits := rawBits
	if bits == 0 {
		bits = layout.width * 8
	}
	return &Metadata{
		Duration:   duration,
		SampleRate: rate,
		Channels:   s.Channels,
		SampleFmt:  s.SampleFmt,
		BitDepth:   bits,
		Decoder:    "ffmpeg",
	}, layout, nil
}

// decodeWithFFmpeg decodes any ffmpeg-readable file to a Buffer at its native rate
func decodeWithFFmpeg(ctx context.Context, path string) (*Buffer, *Metadata, error) {
	meta, layout, err := probeStream(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	// No channel information means mono
	channels := meta.Channels
	if channels < 1 {
		channels = 1
		meta.Channels = 1
	}

	raw, err := RunFFmpeg(ctx,
		"-v", "error",
		"-i", path,
		"-map", "0:a:0",
		"-f", layout.format,
		"-acodec", layout.codec,
		"-ac", strconv.Itoa(channels),
		"pipe:1",
	)
	if err != nil {
		return nil, nil, err
	}

	samples := decodeRaw(raw, layout)
	buf := FromInterleaved(samples, channels, meta.SampleRate)
	meta.Duration = buf.Duration().Seconds()
	return buf, meta, nil
}

// decodeRaw converts little-endian raw PCM to float64, dividing integer data by layout.divisor
func decodeRaw(raw []byte, layout pcmLayout) []float64 {
	n := len(raw) / layout.width
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		chunk := raw[i*layout.width:]
		switch {
		case layout.floatData:
			samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(chunk)))
		case layout.width == 2:
			samples[i] = float64(int16(binary.LittleEndian.Uint16(chunk))) / layout.divisor
		default:
			samples[i] = float64(int32(binary.LittleEndian.Uint32(chunk))) / layout.divisor
		}
	}
	return samples
}
