package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// ErrUnsupported marks input the structured readers cannot handle
var ErrUnsupported = errors.New("unsupported audio encoding")

// wavFormatPCM is the RIFF format tag for integer PCM
const wavFormatPCM = 1

// Metadata describes the decoded source stream
type Metadata struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	SampleFmt  string
	BitDepth   int
	Decoder    string // reader that produced the buffer
}

// SupportedExtensions lists the source extensions accepted by Load, lower case with dot
var SupportedExtensions = []string{".wav", ".flac", ".mp3", ".m4a", ".aac", ".ogg"}

// IsSupported reports whether path has a loadable extension (case-insensitive)
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// decodeFunc reads a whole file into a Buffer
type decodeFunc func(path string) (*Buffer, *Metadata, error)

// decoders maps lower-case extensions to pure-Go readers.
// m4a and aac have no entry and always go through ffmpeg.
var decoders = map[string]decodeFunc{
	".wav":  decodeWAV,
	".flac": decodeFLAC,
	".mp3":  decodeMP3,
	".ogg":  decodeOgg,
}

// Load decodes an audio file into a Buffer.
// The structured reader for the extension is tried first; if it is missing or
// fails, ffmpeg decodes the file. Both failing returns an error naming both causes.
func Load(ctx context.Context, path string) (*Buffer, *Metadata, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var primaryErr error
	if decode, ok := decoders[ext]; ok {
		buf, meta, err := decode(path)
		if err == nil {
			err = buf.Validate()
		}
		if err == nil {
			return buf, meta, nil
		}
		primaryErr = fmt.Errorf("%s reader: %w", strings.TrimPrefix(ext, "."), err)
	} else {
		primaryErr = fmt.Errorf("%w: no structured reader for %q", ErrUnsupported, ext)
	}

	buf, meta, err := decodeWithFFmpeg(ctx, path)
	if err == nil {
		err = buf.Validate()
	}
	if err == nil {
		return buf, meta, nil
	}

	return nil, nil, fmt.Errorf("failed to decode %s: %w", path,
		errors.Join(primaryErr, fmt.Errorf("ffmpeg fallback: %w", err)))
}

// intScale returns the divisor that maps a signed integer of the given width to [-1, 1)
func intScale(bits int) float64 {
	return float64(int64(1) << (bits - 1))
}

func decodeWAV(path string) (*Buffer, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	// IEEE float and compressed WAV are left to ffmpeg
	if d.WavAudioFormat != wavFormatPCM {
		return nil, nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupported, d.WavAudioFormat)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	bits := int(d.BitDepth)
	if bits < 8 || bits > 32 {
		return nil, nil, fmt.Errorf("%w: %d-bit PCM", ErrUnsupported, bits)
	}
	scale := intScale(bits)
	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		// 8-bit WAV is unsigned
		if bits == 8 {
			v -= 128
		}
		samples[i] = float64(v) / scale
	}

	buf := FromInterleaved(samples, int(d.NumChans), int(d.SampleRate))
	return buf, &Metadata{
		Duration:   buf.Duration().Seconds(),
		SampleRate: buf.SampleRate,
		Channels:   buf.NumChannels(),
		SampleFmt:  fmt.Sprintf("s%d", bits),
		BitDepth:   bits,
		Decoder:    "wav",
	}, nil
}

func decodeFLAC(path string) (*Buffer, *Metadata, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open FLAC stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	bits := int(stream.Info.BitsPerSample)
	if channels == 0 || bits == 0 {
		return nil, nil, fmt.Errorf("%w: FLAC stream info missing channels or depth", ErrUnsupported)
	}
	scale := intScale(bits)

	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, 0, stream.Info.NSamples)
	}

	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}
		for ch, sub := range frame.Subframes {
			if ch >= channels {
				break
			}
			for _, s := range sub.Samples {
				data[ch] = append(data[ch], float64(s)/scale)
			}
		}
	}

	buf := &Buffer{Data: data, SampleRate: int(stream.Info.SampleRate)}
	return buf, &Metadata{
		Duration:   buf.Duration().Seconds(),
		SampleRate: buf.SampleRate,
		Channels:   channels,
		SampleFmt:  fmt.Sprintf("s%d", bits),
		BitDepth:   bits,
		Decoder:    "flac",
	}, nil
}

func decodeMP3(path string) (*Buffer, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	mono := mp3IsMono(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("failed to rewind input file: %w", err)
	}

	d, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create MP3 decoder: %w", err)
	}

	// go-mp3 always yields interleaved 16-bit little-endian stereo
	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode MP3 frames: %w", err)
	}
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / intScale(16)
	}

	buf := FromInterleaved(samples, 2, d.SampleRate())
	// Mono streams come back duplicated on both channels
	if mono {
		buf.Data = buf.Data[:1]
	}
	return buf, &Metadata{
		Duration:   buf.Duration().Seconds(),
		SampleRate: buf.SampleRate,
		Channels:   buf.NumChannels(),
		SampleFmt:  "s16",
		BitDepth:   16,
		Decoder:    "mp3",
	}, nil
}

// mp3ScanLimit bounds the search for the first frame header after any ID3v2 tag
const mp3ScanLimit = 64 << 10

// mp3IsMono reports whether the first MPEG audio frame of r is single channel
func mp3IsMono(r io.ReaderAt) bool {
	var start int64
	hdr := make([]byte, 10)
	if n, _ := r.ReadAt(hdr, 0); n == 10 && string(hdr[:3]) == "ID3" {
		size := int64(hdr[6]&0x7f)<<21 | int64(hdr[7]&0x7f)<<14 | int64(hdr[8]&0x7f)<<7 | int64(hdr[9]&0x7f)
		start = 10 + size
		if hdr[5]&0x10 != 0 {
			start += 10 // footer
		}
	}

	b := make([]byte, mp3ScanLimit)
	n, _ := r.ReadAt(b, start)
	b = b[:n]
	for i := 0; i+4 <= len(b); i++ {
		if b[i] != 0xff || b[i+1]&0xe0 != 0xe0 {
			continue
		}
		version := b[i+1] >> 3 & 0x03
		layer := b[i+1] >> 1 & 0x03
		bitrate := b[i+2] >> 4
		rate := b[i+2] >> 2 & 0x03
		if version == 1 || layer == 0 || bitrate == 0x0f || rate == 0x03 {
			continue
		}
		return b[i+3]>>6 == 0x03
	}
	return false
}

func decodeOgg(path string) (*Buffer, *Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	pcm, format, err := oggvorbis.ReadAll(f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}
	samples := make([]float64, len(pcm))
	for i, s := range pcm {
		samples[i] = float64(s)
	}

	buf := FromInterleaved(samples, format.Channels, format.SampleRate)
	return buf, &Metadata{
		Duration:   buf.Duration().Seconds(),
		SampleRate: buf.SampleRate,
		Channels:   buf.NumChannels(),
		SampleFmt:  "flt",
		BitDepth:   32,
		Decoder:    "ogg",
	}, nil
}
