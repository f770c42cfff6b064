package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// FlacTags reads and writes Vorbis comments and PICTURE blocks in FLAC files
type FlacTags struct{}

func (FlacTags) Space() Space { return SpaceVorbis }

func (FlacTags) Read(path string) (TagSet, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return TagSet{}, fmt.Errorf("failed to parse FLAC metadata: %w", err)
	}

	set := NewTagSet(SpaceVorbis)
	for _, block := range f.Meta {
		switch block.Type {
		case goflac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				return TagSet{}, fmt.Errorf("failed to parse Vorbis comment: %w", err)
			}
			addVorbisComments(&set, cmt.Comments)
		case goflac.Picture:
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil {
				return TagSet{}, fmt.Errorf("failed to parse picture: %w", err)
			}
			set.Pictures = append(set.Pictures, Picture{
				MIME:        pic.MIME,
				Type:        pictureType(uint32(pic.PictureType)),
				Description: pic.Description,
				Data:        pic.ImageData,
			})
		}
	}
	return set, nil
}

// Write replaces every comment and picture block; stream blocks are kept
func (FlacTags) Write(_ context.Context, path string, set TagSet) error {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC metadata: %w", err)
	}

	meta := make([]*goflac.MetaDataBlock, 0, len(f.Meta)+1+len(set.Pictures))
	for _, block := range f.Meta {
		if block.Type == goflac.VorbisComment || block.Type == goflac.Picture {
			continue
		}
		meta = append(meta, block)
	}

	cmt := flacvorbis.New()
	for _, key := range set.Keys() {
		for _, v := range set.Fields[key] {
			if err := cmt.Add(strings.ToUpper(key), v); err != nil {
				return fmt.Errorf("failed to add comment %s: %w", key, err)
			}
		}
	}
	cmtBlock := cmt.Marshal()
	meta = append(meta, &cmtBlock)

	for _, p := range set.Pictures {
		pic := &flacpicture.MetadataBlockPicture{
			PictureType: flacpicture.PictureType(p.Type),
			MIME:        p.MIME,
			Description: p.Description,
			ImageData:   p.Data,
		}
		picBlock := pic.Marshal()
		meta = append(meta, &picBlock)
	}

	f.Meta = meta
	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC metadata: %w", err)
	}
	return nil
}

// addVorbisComments splits KEY=value comments into lower-case keys
func addVorbisComments(set *TagSet, comments []string) {
	for _, c := range comments {
		key, value, ok := strings.Cut(c, "=")
		if !ok || key == "" {
			continue
		}
		key = strings.ToLower(key)
		set.Fields[key] = append(set.Fields[key], value)
	}
}
