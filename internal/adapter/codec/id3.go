package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// readID3v2 reads MP3 tags using only the id3v2 library.
func readID3v2(path string) (*ports.Tags, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("read id3v2 tags: %w", err)
	}
	defer id3tag.Close()

	trackNo, trackOf := parseNumberPair(textFrame(id3tag, "TRCK"))
	diskNo, diskOf := parseNumberPair(textFrame(id3tag, "TPOS"))

	tags := &ports.Tags{
		Title:       strings.TrimSpace(id3tag.Title()),
		Album:       strings.TrimSpace(id3tag.Album()),
		Artist:      splitValues(id3tag.Artist()),
		AlbumArtist: splitValues(textFrame(id3tag, "TPE2")),
		Genre:       splitValues(id3tag.Genre()),
		Year:        parseYear(id3tag.Year()),
		Track:       domain.NumberPair{No: trackNo, Of: trackOf},
		Disk:        domain.NumberPair{No: diskNo, Of: diskOf},
	}

	for _, frame := range id3tag.GetFrames(id3tag.CommonID("Attached picture")) {
		if pic, ok := frame.(id3v2.PictureFrame); ok && len(pic.Picture) > 0 {
			tags.Picture = &ports.Picture{
				Format: pictureFormat(pic.MimeType, ""),
				Data:   pic.Picture,
			}
			break
		}
	}

	return tags, nil
}

// textFrame reads the first text frame with the given ID.
func textFrame(id3tag *id3v2.Tag, id string) string {
	frames := id3tag.GetFrames(id)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}

// parseNumberPair parses a position string like "5" or "5/10".
func parseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	parts := strings.SplitN(s, "/", 2)
	num, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	if len(parts) == 2 {
		total, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	}
	return num, total
}

// parseYear takes the leading four digits of a date ("2004", "2004-05-12").
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return year
}
