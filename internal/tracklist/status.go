package tracklist

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// FormatDuration renders seconds as mm:ss, or hh:mm:ss from one hour on.
// Fractions are truncated; negative values render as 00:00.
func FormatDuration(seconds float64) string {
	total := max(int(seconds), 0)
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// StatusLine summarizes records as "<count> tracks, <total duration>".
func StatusLine(records []domain.TrackRecord) string {
	var total float64
	for _, r := range records {
		total += r.Duration
	}
	return fmt.Sprintf("%s tracks, %s", humanize.Comma(int64(len(records))), FormatDuration(total))
}
