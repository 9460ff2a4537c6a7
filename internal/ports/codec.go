package ports

import "github.com/tejashwikalptaru/tunedeck/internal/domain"

// Picture is embedded artwork as returned by a tag reader.
type Picture struct {
	// Format is the image format tag ("jpeg", "png", ...)
	Format string

	// Data is the raw image bytes
	Data []byte
}

// Tags is the structured output of a tag reader.
// Missing values are left at their zero value; defaults are applied by the extractor.
type Tags struct {
	Title       string
	Album       string
	Artist      []string
	AlbumArtist []string
	Genre       []string
	Year        int
	Track       domain.NumberPair
	Disk        domain.NumberPair

	// Duration in seconds, 0 when the reader could not determine it
	Duration float64

	// Picture is nil when the file carries no artwork
	Picture *Picture
}

// TagReader reads structured tags from compressed and lossless audio containers.
type TagReader interface {
	ReadTags(path string) (*Tags, error)
}

// HeaderReader parses the header of uncompressed audio files and returns the duration in seconds.
type HeaderReader interface {
	ReadHeader(path string) (float64, error)
}
