package tags

import "context"

// OggTags reads Vorbis comments from Ogg files. Ogg is never an output
// container, so it cannot be written.
type OggTags struct{}

func (OggTags) Space() Space { return SpaceVorbis }

func (OggTags) Read(path string) (TagSet, error) {
	return readWithDhowden(path, SpaceVorbis)
}

func (OggTags) Write(context.Context, string, TagSet) error {
	return ErrReadOnly
}
