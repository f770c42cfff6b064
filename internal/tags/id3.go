package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Id3Tags reads and writes ID3v2 tags. Tags are always saved as ID3v2.3.
type Id3Tags struct{}

func (Id3Tags) Space() Space { return SpaceID3 }

// Comment and user text frames are keyed by ID, with ":description" appended
// when the description is not empty
func (Id3Tags) Read(path string) (TagSet, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return TagSet{}, fmt.Errorf("failed to read ID3 tag: %w", err)
	}
	defer tag.Close()

	set := NewTagSet(SpaceID3)
	for id, frames := range tag.AllFrames() {
		for _, frame := range frames {
			switch f := frame.(type) {
			case id3v2.TextFrame:
				set.Fields[id] = append(set.Fields[id], f.Text)
			case id3v2.CommentFrame:
				key := describedKey(id, f.Description)
				set.Fields[key] = append(set.Fields[key], f.Text)
			case id3v2.UserDefinedTextFrame:
				key := describedKey(id, f.Description)
				set.Fields[key] = append(set.Fields[key], f.Value)
			case id3v2.UnsynchronisedLyricsFrame:
				set.Fields[id] = append(set.Fields[id], f.Lyrics)
			case id3v2.PictureFrame:
				set.Pictures = append(set.Pictures, Picture{
					MIME:        f.MimeType,
					Type:        pictureType(uint32(f.PictureType)),
					Description: f.Description,
					Data:        f.Picture,
				})
			}
		}
	}
	return set, nil
}

// Write replaces the whole tag. Multiple values of a text frame are joined
// with "/".
func (Id3Tags) Write(_ context.Context, path string, set TagSet) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: false})
	if err != nil {
		return fmt.Errorf("failed to open ID3 tag: %w", err)
	}
	defer tag.Close()

	tag.DeleteAllFrames()
	tag.SetVersion(3)
	enc := tag.DefaultEncoding()

	for _, key := range set.Keys() {
		values := set.Fields[key]
		id, desc, _ := strings.Cut(key, ":")
		switch {
		case id == "COMM":
			for _, v := range values {
				tag.AddCommentFrame(id3v2.CommentFrame{
					Encoding:    enc,
					Language:    "eng",
					Description: desc,
					Text:        v,
				})
			}
		case id == "TXXX":
			tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    enc,
				Description: desc,
				Value:       strings.Join(values, "/"),
			})
		case id == "USLT":
			for _, v := range values {
				tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
					Encoding:          enc,
					Language:          "eng",
					ContentDescriptor: desc,
					Lyrics:            v,
				})
			}
		case len(id) == 4 && id[0] == 'T':
			tag.AddTextFrame(id, enc, strings.Join(values, "/"))
		}
	}

	for _, p := range set.Pictures {
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    enc,
			MimeType:    p.MIME,
			PictureType: p.Type,
			Description: p.Description,
			Picture:     p.Data,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("failed to save ID3 tag: %w", err)
	}
	return nil
}

func describedKey(id, desc string) string {
	if desc == "" {
		return id
	}
	return id + ":" + desc
}
