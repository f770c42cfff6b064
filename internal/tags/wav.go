package tags

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// WavTags reads and writes the RIFF LIST/INFO chunk. Pictures are not stored.
type WavTags struct{}

func (WavTags) Space() Space { return SpaceRIFF }

// riffFields binds INFO chunk IDs to go-audio metadata fields
var riffFields = []struct {
	id    string
	field func(*wav.Metadata) *string
}{
	{"INAM", func(m *wav.Metadata) *string { return &m.Title }},
	{"IART", func(m *wav.Metadata) *string { return &m.Artist }},
	{"IPRD", func(m *wav.Metadata) *string { return &m.Product }},
	{"ICRD", func(m *wav.Metadata) *string { return &m.CreationDate }},
	{"IGNR", func(m *wav.Metadata) *string { return &m.Genre }},
	{"ICMT", func(m *wav.Metadata) *string { return &m.Comments }},
	{"ICOP", func(m *wav.Metadata) *string { return &m.Copyright }},
	{"IENG", func(m *wav.Metadata) *string { return &m.Engineer }},
	{"ITCH", func(m *wav.Metadata) *string { return &m.Technician }},
	{"IKEY", func(m *wav.Metadata) *string { return &m.Keywords }},
	{"IMED", func(m *wav.Metadata) *string { return &m.Medium }},
	{"ISBJ", func(m *wav.Metadata) *string { return &m.Subject }},
	{"ISFT", func(m *wav.Metadata) *string { return &m.Software }},
	{"ISRC", func(m *wav.Metadata) *string { return &m.Source }},
	{"IARL", func(m *wav.Metadata) *string { return &m.Location }},
	{"ITRK", func(m *wav.Metadata) *string { return &m.TrackNbr }},
}

func (WavTags) Read(path string) (TagSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return TagSet{}, fmt.Errorf("failed to open: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return TagSet{}, fmt.Errorf("not a valid WAV file")
	}
	d.ReadMetadata()
	if err := d.Err(); err != nil && !errors.Is(err, io.EOF) {
		return TagSet{}, fmt.Errorf("failed to read INFO chunk: %w", err)
	}

	set := NewTagSet(SpaceRIFF)
	if d.Metadata == nil {
		return set, nil
	}
	for _, rf := range riffFields {
		if v := *rf.field(d.Metadata); v != "" {
			set.Fields[rf.id] = []string{v}
		}
	}
	return set, nil
}

// Write replaces the file's LIST/INFO chunk. The PCM data is left in place:
// trailing INFO lists are truncated and the new one appended, anything else
// is rebuilt chunk by chunk through a temporary file.
func (WavTags) Write(_ context.Context, path string, set TagSet) error {
	info := encodeInfo(set)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer f.Close()

	chunks, err := scanChunks(f)
	if err != nil {
		return err
	}

	// The cut point is the start of the run of INFO lists at the end of the file
	cut := int64(riffHeaderSize)
	if n := len(chunks); n > 0 {
		cut = chunks[n-1].end()
	}
	for i := len(chunks) - 1; i >= 0 && chunks[i].info; i-- {
		cut = chunks[i].offset
	}
	for _, c := range chunks {
		if c.info && c.offset < cut {
			f.Close()
			return rebuildWAV(path, chunks, info)
		}
	}

	// A trailing odd chunk written without its pad byte
	if cut%2 == 1 {
		info = append([]byte{0}, info...)
	}
	if err := f.Truncate(cut); err != nil {
		return fmt.Errorf("failed to truncate INFO chunk: %w", err)
	}
	if _, err := f.WriteAt(info, cut); err != nil {
		return fmt.Errorf("failed to write INFO chunk: %w", err)
	}
	if err := writeRIFFSize(f, cut+int64(len(info))); err != nil {
		return err
	}
	return f.Close()
}

const riffHeaderSize = 12

var (
	listID = [4]byte{'L', 'I', 'S', 'T'}
	infoID = [4]byte{'I', 'N', 'F', 'O'}
)

// chunk locates one top-level RIFF chunk. size includes the pad byte.
type chunk struct {
	offset int64
	size   int64
	info   bool
}

func (c chunk) end() int64 { return c.offset + 8 + c.size }

// scanChunks lists the top-level chunks of a WAVE file without reading
// their bodies. A chunk running past the end of the file is clamped.
func scanChunks(f *os.File) ([]chunk, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	p := riff.New(f)
	if err := p.ParseHeaders(); err != nil {
		return nil, fmt.Errorf("not a valid WAV file: %w", err)
	}
	if p.Format != riff.WavFormatID {
		return nil, fmt.Errorf("not a valid WAV file: RIFF form %q", p.Format[:])
	}

	var chunks []chunk
	offset := int64(riffHeaderSize)
	for offset+8 <= st.Size() {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		ch, err := p.NextChunk()
		if err != nil {
			break
		}
		c := chunk{offset: offset, size: int64(ch.Size)}
		if c.end() > st.Size() {
			c.size = st.Size() - offset - 8
		}
		if ch.ID == listID && c.size >= 4 {
			var form [4]byte
			if _, err := io.ReadFull(ch, form[:]); err == nil {
				c.info = form == infoID
			}
		}
		chunks = append(chunks, c)
		offset = c.end()
	}
	return chunks, nil
}

// encodeInfo builds a LIST/INFO chunk. Each entry is NUL terminated and
// padded to an even length as RIFF requires.
func encodeInfo(set TagSet) []byte {
	var body bytes.Buffer
	body.Write(infoID[:])
	for _, rf := range riffFields {
		v := set.Get(rf.id)
		if v == "" {
			continue
		}
		size := len(v) + 1
		body.WriteString(rf.id)
		binary.Write(&body, binary.LittleEndian, uint32(size))
		body.WriteString(v)
		body.WriteByte(0)
		if size%2 == 1 {
			body.WriteByte(0)
		}
	}

	out := make([]byte, 8, 8+body.Len())
	copy(out, listID[:])
	binary.LittleEndian.PutUint32(out[4:], uint32(body.Len()))
	return append(out, body.Bytes()...)
}

// writeRIFFSize stores the RIFF form size for a file of total bytes
func writeRIFFSize(f *os.File, total int64) error {
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(total-8))
	if _, err := f.WriteAt(size[:], 4); err != nil {
		return fmt.Errorf("failed to update RIFF size: %w", err)
	}
	return nil
}

// rebuildWAV copies every non-INFO chunk of path into a new file, appends
// info and replaces path
func rebuildWAV(path string, chunks []chunk, info []byte) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".needledrop-tags-*.wav")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	header := make([]byte, riffHeaderSize)
	if _, err := src.ReadAt(header, 0); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to read RIFF header: %w", err)
	}
	total := int64(riffHeaderSize)
	_, err = tmp.Write(header)
	for _, c := range chunks {
		if err != nil {
			break
		}
		if c.info {
			continue
		}
		_, err = io.Copy(tmp, io.NewSectionReader(src, c.offset, 8+c.size))
		total += 8 + c.size
	}
	if err == nil {
		_, err = tmp.Write(info)
		total += int64(len(info))
	}
	if err == nil {
		err = writeRIFFSize(tmp, total)
	}
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to rewrite WAV: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
