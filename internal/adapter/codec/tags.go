// Package codec provides the tag and header readers used by metadata extraction.
// Tags come from dhowden/tag with id3v2 and TagLib fallbacks; durations are probed
// from stream headers with go-flac and beep decoders.
package codec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// TagReader reads tags from compressed and lossless containers.
type TagReader struct{}

// NewTagReader creates a new tag reader.
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadTags reads the tags of the file at path and probes its duration.
// A duration that cannot be determined is reported as 0, never as an error.
func (r *TagReader) ReadTags(path string) (*ports.Tags, error) {
	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))

	var tags *ports.Tags
	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		tags, err = readFallback(path, ext, err)
		if err != nil {
			return nil, err
		}
	} else {
		tags = fromMetadata(metadata)
	}

	if tags.Duration == 0 {
		if seconds, err := probeDuration(path, ext); err == nil {
			tags.Duration = seconds
		}
	}

	return tags, nil
}

// readFallback retries formats that dhowden/tag is known to reject on some encoders.
func readFallback(path, ext string, cause error) (*ports.Tags, error) {
	switch ext {
	case domain.ExtMP3:
		// UTF-16 encoded ID3 frames
		return readID3v2(path)
	case domain.ExtFLAC, domain.ExtM4A, domain.ExtMP4, domain.ExtOGG, domain.ExtOPUS:
		return readTaglib(path)
	}
	if cause == nil {
		cause = tag.ErrNoTagsFound
	}
	return nil, fmt.Errorf("read tags: %w", cause)
}

// fromMetadata converts dhowden/tag output.
func fromMetadata(metadata tag.Metadata) *ports.Tags {
	trackNo, trackOf := metadata.Track()
	diskNo, diskOf := metadata.Disc()

	tags := &ports.Tags{
		Title:       strings.TrimSpace(metadata.Title()),
		Album:       strings.TrimSpace(metadata.Album()),
		Artist:      splitValues(metadata.Artist()),
		AlbumArtist: splitValues(metadata.AlbumArtist()),
		Genre:       splitValues(metadata.Genre()),
		Year:        metadata.Year(),
		Track:       domain.NumberPair{No: trackNo, Of: trackOf},
		Disk:        domain.NumberPair{No: diskNo, Of: diskOf},
	}

	if picture := metadata.Picture(); picture != nil && len(picture.Data) > 0 {
		tags.Picture = &ports.Picture{
			Format: pictureFormat(picture.MIMEType, picture.Ext),
			Data:   picture.Data,
		}
	}

	return tags
}

// splitValues splits a tag value holding several null-separated entries (ID3v2.4 style)
// and drops blanks.
func splitValues(s string) []string {
	var values []string
	for _, v := range strings.Split(s, "\x00") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// pictureFormat derives a short format tag from a MIME type, falling back to an extension.
func pictureFormat(mimeType, ext string) string {
	if f := strings.TrimPrefix(strings.ToLower(mimeType), "image/"); f != "" && f != strings.ToLower(mimeType) {
		if f == "jpg" {
			return "jpeg"
		}
		return f
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}
