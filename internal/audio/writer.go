package audio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Format is an output encoding selector
type Format struct {
	Name     string // canonical selector
	Label    string // human readable description
	Ext      string // native extension with dot
	BitDepth int    // PCM width handed to the encoder
	codec    string // ffmpeg encoder, empty for native WAV
	codecArg []string
}

// Output formats
var (
	FormatFLAC = Format{
		Name: "flac", Label: "FLAC 24-bit", Ext: ".flac", BitDepth: 24,
		codec: "flac", codecArg: []string{"-c:a", "flac", "-sample_fmt", "s32"},
	}
	FormatALAC = Format{
		Name: "m4a", Label: "Apple Lossless 16-bit", Ext: ".m4a", BitDepth: 16,
		codec: "alac", codecArg: []string{"-c:a", "alac", "-sample_fmt", "s16p"},
	}
	FormatWAV = Format{Name: "wav", Label: "WAV 24-bit", Ext: ".wav", BitDepth: 24}
	FormatCD  = Format{Name: "cd", Label: "WAV 16-bit (CD)", Ext: ".wav", BitDepth: 16}
	FormatMP3 = Format{
		Name: "mp3", Label: "MP3 320 kbit/s CBR", Ext: ".mp3", BitDepth: 16,
		codec: "libmp3lame", codecArg: []string{"-c:a", "libmp3lame", "-b:a", "320k"},
	}
)

// formatSelectors maps every accepted selector, including aliases, to its Format
var formatSelectors = map[string]Format{
	"flac":       FormatFLAC,
	"lossless-a": FormatFLAC,
	"m4a":        FormatALAC,
	"alac":       FormatALAC,
	"lossless-b": FormatALAC,
	"wav":        FormatWAV,
	"cd":         FormatCD,
	"mp3":        FormatMP3,
	"lossy":      FormatMP3,
}

// ParseFormat resolves a selector (case-insensitive) to a Format
func ParseFormat(selector string) (Format, error) {
	f, ok := formatSelectors[strings.ToLower(strings.TrimSpace(selector))]
	if !ok {
		return Format{}, fmt.Errorf("unknown output format %q (want one of %s)",
			selector, strings.Join(FormatSelectors(), ", "))
	}
	return f, nil
}

// FormatSelectors returns every accepted selector in sorted order
func FormatSelectors() []string {
	names := make([]string, 0, len(formatSelectors))
	for name := range formatSelectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NeedsFFmpeg reports whether encoding requires the ffmpeg binary
func (f Format) NeedsFFmpeg() bool {
	return f.codec != ""
}

// Encode writes buf to path in the given format.
// WAV outputs are written directly; other formats are encoded by ffmpeg from
// an intermediate WAV at the format's bit depth.
func Encode(ctx context.Context, buf *Buffer, path string, format Format) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("refusing to encode: %w", err)
	}
	if !format.NeedsFFmpeg() {
		return WriteWAV(path, buf, format.BitDepth, nil)
	}
	if !HaveFFmpeg() {
		return fmt.Errorf("%s output: %w", format.Label, ErrFFmpegMissing)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".needledrop-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create intermediate file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := WriteWAV(tmpPath, buf, format.BitDepth, nil); err != nil {
		return err
	}

	args := []string{"-y", "-v", "error", "-i", tmpPath, "-map_metadata", "-1"}
	args = append(args, format.codecArg...)
	args = append(args, path)
	if _, err := RunFFmpeg(ctx, args...); err != nil {
		os.Remove(path)
		return fmt.Errorf("%s encode failed: %w", format.codec, err)
	}
	return nil
}

// WriteWAV writes buf as integer PCM WAV with the given bit depth.
// Samples are clipped to [-1, 1] and scaled by 2^(bits-1)-1.
// meta, when non-nil, is written as a LIST/INFO chunk.
func WriteWAV(path string, buf *Buffer, bits int, meta *wav.Metadata) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	enc := wav.NewEncoder(f, buf.SampleRate, bits, buf.NumChannels(), wavFormatPCM)
	enc.Metadata = PadInfo(meta)

	pcm := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: buf.NumChannels(), SampleRate: buf.SampleRate},
		Data:           Quantize(buf, bits),
		SourceBitDepth: bits,
	}
	if err := enc.Write(pcm); err != nil {
		f.Close()
		return fmt.Errorf("failed to write PCM data: %w", err)
	}
	// RIFF chunks are word aligned; the encoder leaves odd data chunks unpadded
	if (bits/8)*buf.NumChannels()*buf.NumFrames()%2 == 1 {
		if err := enc.AddLE(uint8(0)); err != nil {
			f.Close()
			return fmt.Errorf("failed to pad PCM data: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalise WAV: %w", err)
	}
	return f.Close()
}

// PadInfo returns a copy of meta whose INFO values all encode to an even
// length. go-audio sizes each entry as the value plus one NUL and writes no
// pad byte, while its reader skips one after every odd entry. An extra NUL
// keeps both sides aligned and is trimmed on read.
func PadInfo(meta *wav.Metadata) *wav.Metadata {
	if meta == nil {
		return nil
	}
	out := *meta
	for _, v := range []*string{
		&out.Artist, &out.Comments, &out.Copyright, &out.CreationDate,
		&out.Engineer, &out.Technician, &out.Genre, &out.Keywords,
		&out.Medium, &out.Title, &out.Product, &out.Subject,
		&out.Software, &out.Source, &out.Location, &out.TrackNbr,
	} {
		if *v != "" && len(*v)%2 == 0 {
			*v += "\x00"
		}
	}
	return &out
}

// Quantize interleaves buf into signed integers of the given width
func Quantize(buf *Buffer, bits int) []int {
	maxVal := float64(int64(1)<<(bits-1) - 1)
	channels := buf.NumChannels()
	frames := buf.NumFrames()
	out := make([]int, frames*channels)
	for ch, samples := range buf.Data {
		for i, s := range samples {
			s = math.Max(-1, math.Min(1, s))
			out[i*channels+ch] = int(math.Round(s * maxVal))
		}
	}
	return out
}
