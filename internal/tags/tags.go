// Package tags reads, translates and writes descriptive metadata across the
// tag stores of the supported containers.
package tags

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrUnsupported is returned for files without a known tag store
	ErrUnsupported = errors.New("no tag store for this file type")
	// ErrReadOnly is returned when writing to a store that can only be read
	ErrReadOnly = errors.New("tag store is read-only")
	// ErrTitleMismatch is returned when a written title does not read back
	ErrTitleMismatch = errors.New("title not stored")
)

// Space names a native tag key space
type Space string

// Key spaces
const (
	SpaceVorbis Space = "vorbis" // FLAC and Ogg Vorbis comments, lower-case keys
	SpaceID3    Space = "id3"    // ID3v2 frame IDs
	SpaceMP4    Space = "mp4"    // iTunes-style MP4 atoms
	SpaceRIFF   Space = "riff"   // RIFF LIST/INFO chunk IDs
)

// Picture types from the ID3v2 APIC and FLAC PICTURE specifications
const (
	PictureTypeOther      byte = 0
	PictureTypeFrontCover byte = 3

	pictureTypeLast byte = 20 // publisher logo
)

// pictureType maps values outside the defined range to PictureTypeOther
func pictureType(t uint32) byte {
	if t > uint32(pictureTypeLast) {
		return PictureTypeOther
	}
	return byte(t)
}

// Picture is an embedded image; Data is copied byte-for-byte between stores
type Picture struct {
	MIME        string
	Type        byte
	Description string
	Data        []byte
}

// TagSet is the metadata of one file in its native key space
type TagSet struct {
	Space    Space
	Fields   map[string][]string
	Pictures []Picture
}

// NewTagSet returns an empty set for space
func NewTagSet(space Space) TagSet {
	return TagSet{Space: space, Fields: map[string][]string{}}
}

// Get returns the first value stored under key
func (s TagSet) Get(key string) string {
	if v := s.Fields[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Set replaces the values stored under key
func (s *TagSet) Set(key string, values ...string) {
	if s.Fields == nil {
		s.Fields = map[string][]string{}
	}
	s.Fields[key] = append([]string(nil), values...)
}

// SetTitle stores title under the space's title key
func (s *TagSet) SetTitle(title string) {
	if key, ok := NativeKey(FieldTitle, s.Space); ok {
		s.Set(key, title)
	}
}

// Title returns the value of the space's title key
func (s TagSet) Title() string {
	key, _ := NativeKey(FieldTitle, s.Space)
	return s.Get(key)
}

// Keys returns the field keys in sorted order
func (s TagSet) Keys() []string {
	keys := make([]string, 0, len(s.Fields))
	for k := range s.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy
func (s TagSet) Clone() TagSet {
	out := NewTagSet(s.Space)
	for k, v := range s.Fields {
		out.Fields[k] = append([]string(nil), v...)
	}
	for _, p := range s.Pictures {
		p.Data = append([]byte(nil), p.Data...)
		out.Pictures = append(out.Pictures, p)
	}
	return out
}

// Store reads and writes one container's native tags
type Store interface {
	Space() Space
	Read(path string) (TagSet, error)
	Write(ctx context.Context, path string, set TagSet) error
}

// StoreFor returns the tag store for path's extension
func StoreFor(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".flac":
		return FlacTags{}, nil
	case ".mp3", ".aac":
		return Id3Tags{}, nil
	case ".m4a":
		return Mp4Tags{}, nil
	case ".wav":
		return WavTags{}, nil
	case ".ogg":
		return OggTags{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
}
