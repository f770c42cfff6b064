package tags

// Field is a format-neutral descriptive field
type Field string

// Fields shared across containers
const (
	FieldTitle       Field = "title"
	FieldArtist      Field = "artist"
	FieldAlbum       Field = "album"
	FieldDate        Field = "date"
	FieldGenre       Field = "genre"
	FieldAlbumArtist Field = "albumartist"
	FieldTrackNumber Field = "tracknumber"
	FieldComment     Field = "comment"
)

// SharedFields lists the mapped fields in table order
var SharedFields = []Field{
	FieldTitle, FieldArtist, FieldAlbum, FieldDate,
	FieldGenre, FieldAlbumArtist, FieldTrackNumber, FieldComment,
}

// fieldKeys maps each shared field to its native key per space.
// A missing entry means the space cannot carry that field.
var fieldKeys = map[Field]map[Space]string{
	FieldTitle:       {SpaceVorbis: "title", SpaceID3: "TIT2", SpaceMP4: "©nam", SpaceRIFF: "INAM"},
	FieldArtist:      {SpaceVorbis: "artist", SpaceID3: "TPE1", SpaceMP4: "©ART", SpaceRIFF: "IART"},
	FieldAlbum:       {SpaceVorbis: "album", SpaceID3: "TALB", SpaceMP4: "©alb", SpaceRIFF: "IPRD"},
	FieldDate:        {SpaceVorbis: "date", SpaceID3: "TDRC", SpaceMP4: "©day", SpaceRIFF: "ICRD"},
	FieldGenre:       {SpaceVorbis: "genre", SpaceID3: "TCON", SpaceMP4: "©gen", SpaceRIFF: "IGNR"},
	FieldAlbumArtist: {SpaceVorbis: "albumartist", SpaceID3: "TPE2", SpaceMP4: "aART"},
	FieldTrackNumber: {SpaceVorbis: "tracknumber", SpaceID3: "TRCK", SpaceMP4: "trkn"},
	FieldComment:     {SpaceVorbis: "comment", SpaceID3: "COMM", SpaceMP4: "©cmt", SpaceRIFF: "ICMT"},
}

// NativeKey returns the key used for field in space
func NativeKey(field Field, space Space) (string, bool) {
	key, ok := fieldKeys[field][space]
	return key, ok
}

// Translate converts set into the to key space.
// Within one space the set is copied verbatim. Across spaces only the shared
// fields travel, and a field missing from either side of the table is
// skipped. Pictures are carried over unchanged; the destination store
// decides how to wrap them.
func Translate(set TagSet, to Space) TagSet {
	if set.Space == to {
		return set.Clone()
	}

	out := NewTagSet(to)
	for _, field := range SharedFields {
		fromKey, ok := NativeKey(field, set.Space)
		if !ok {
			continue
		}
		toKey, ok := NativeKey(field, to)
		if !ok {
			continue
		}
		if values := set.Fields[fromKey]; len(values) > 0 {
			out.Set(toKey, values...)
		}
	}
	for _, p := range set.Pictures {
		p.Data = append([]byte(nil), p.Data...)
		out.Pictures = append(out.Pictures, p)
	}
	return out
}
