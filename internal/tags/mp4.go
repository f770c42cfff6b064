package tags

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/linuxmatters/needledrop/internal/audio"
)

// Mp4Tags reads iTunes-style atoms with dhowden/tag and writes them by
// remuxing the file through ffmpeg with the audio stream copied
type Mp4Tags struct{}

func (Mp4Tags) Space() Space { return SpaceMP4 }

// mp4FFmpegKeys maps atom names to the ffmpeg metadata keys the MP4 muxer
// writes back to the same atoms
var mp4FFmpegKeys = map[string]string{
	"©nam": "title",
	"©ART": "artist",
	"aART": "album_artist",
	"©alb": "album",
	"©day": "date",
	"©gen": "genre",
	"©cmt": "comment",
	"©wrt": "composer",
	"©grp": "grouping",
	"©lyr": "lyrics",
	"cprt": "copyright",
	"desc": "description",
	"trkn": "track",
	"disk": "disc",
}

func (Mp4Tags) Read(path string) (TagSet, error) {
	return readWithDhowden(path, SpaceMP4)
}

// Write rewrites the container. Atoms ffmpeg cannot set are dropped and only
// the first picture is kept as the cover.
func (Mp4Tags) Write(ctx context.Context, path string, set TagSet) error {
	if !audio.HaveFFmpeg() {
		return fmt.Errorf("writing MP4 tags needs ffmpeg: %w", audio.ErrFFmpegMissing)
	}
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".needledrop-tags-*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	args := []string{"-y", "-v", "error", "-i", path}
	var coverPath string
	if len(set.Pictures) > 0 {
		coverPath, err = writeCover(dir, set.Pictures[0])
		if err != nil {
			return err
		}
		defer os.Remove(coverPath)
		args = append(args, "-i", coverPath)
	}
	args = append(args, "-map", "0:a")
	if coverPath != "" {
		args = append(args, "-map", "1:v", "-disposition:v:0", "attached_pic")
	}
	args = append(args, "-c", "copy", "-map_metadata", "-1")
	for _, key := range set.Keys() {
		ffKey, ok := mp4FFmpegKeys[key]
		if !ok {
			continue
		}
		args = append(args, "-metadata", ffKey+"="+strings.Join(set.Fields[key], "/"))
	}
	args = append(args, tmpPath)

	if _, err := audio.RunFFmpeg(ctx, args...); err != nil {
		return fmt.Errorf("failed to write MP4 tags: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeCover(dir string, p Picture) (string, error) {
	ext := ".jpg"
	if p.MIME == "image/png" {
		ext = ".png"
	}
	f, err := os.CreateTemp(dir, ".needledrop-cover-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create cover file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(p.Data); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write cover file: %w", err)
	}
	return f.Name(), nil
}

// readWithDhowden collects raw string and integer atoms plus the cover picture.
// MP4 atom names arrive with a 0xA9 byte prefix, which becomes "©". Track and
// disc numbers are rebuilt as "n/total".
func readWithDhowden(path string, space Space) (TagSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return TagSet{}, fmt.Errorf("failed to open: %w", err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return TagSet{}, fmt.Errorf("failed to read tags: %w", err)
	}

	set := NewTagSet(space)
	raw := m.Raw()
	for k, v := range raw {
		key := normaliseAtom(k)
		if space == SpaceVorbis {
			key = strings.ToLower(key)
		}
		switch val := v.(type) {
		case string:
			set.Fields[key] = append(set.Fields[key], val)
		case int:
			if strings.HasSuffix(key, "_count") {
				continue
			}
			s := strconv.Itoa(val)
			if total, ok := raw[k+"_count"].(int); ok && total > 0 {
				s += "/" + strconv.Itoa(total)
			}
			set.Fields[key] = append(set.Fields[key], s)
		}
	}

	if pic := m.Picture(); pic != nil {
		set.Pictures = append(set.Pictures, Picture{
			MIME:        pic.MIMEType,
			Type:        PictureTypeFrontCover,
			Description: pic.Description,
			Data:        pic.Data,
		})
	}
	return set, nil
}

func normaliseAtom(k string) string {
	if len(k) > 0 && k[0] == 0xa9 {
		return "©" + k[1:]
	}
	return k
}
