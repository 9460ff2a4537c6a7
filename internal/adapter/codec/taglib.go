package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
	"go.senan.xyz/taglib"
)

// taglibTags wraps the multi-valued map returned by TagLib.
type taglibTags map[string][]string

func (t taglibTags) get(keys ...string) string {
	for _, key := range keys {
		if values, ok := t[key]; ok && len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
	}
	return ""
}

func (t taglibTags) list(key string) []string {
	var out []string
	for _, v := range t[key] {
		out = append(out, splitValues(v)...)
	}
	return out
}

func (t taglibTags) getInt(key string) int {
	n, err := strconv.Atoi(t.get(key))
	if err != nil {
		return 0
	}
	return n
}

// numberPair reads "N" or "N/Total" and falls back to a separate total key.
func (t taglibTags) numberPair(key, totalKey string) domain.NumberPair {
	no, of := parseNumberPair(t.get(key))
	if of == 0 {
		of = t.getInt(totalKey)
	}
	return domain.NumberPair{No: no, Of: of}
}

// readTaglib reads FLAC, MP4 and Ogg tags through TagLib when dhowden/tag fails.
func readTaglib(path string) (*ports.Tags, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("read taglib tags: %w", err)
	}
	tags := taglibTags(raw)

	return &ports.Tags{
		Title:       tags.get(taglib.Title),
		Album:       tags.get(taglib.Album),
		Artist:      tags.list(taglib.Artist),
		AlbumArtist: tags.list(taglib.AlbumArtist),
		Genre:       tags.list(taglib.Genre),
		Year:        parseYear(tags.get(taglib.Date, "YEAR")),
		Track:       tags.numberPair(taglib.TrackNumber, "TOTALTRACKS"),
		Disk:        tags.numberPair(taglib.DiscNumber, "TOTALDISCS"),
	}, nil
}
