package service

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// Extractor turns one file path into a TrackRecord.
type Extractor interface {
	Extract(ctx context.Context, path string) (*domain.TrackRecord, error)
}

// MetadataExtractor normalizes the output of the codec readers into TrackRecords.
// Uncompressed files go through the header reader, everything else through the tag reader.
type MetadataExtractor struct {
	tags    ports.TagReader
	headers ports.HeaderReader
	logger  *slog.Logger
	newID   func() string
}

// NewMetadataExtractor creates a new metadata extractor.
func NewMetadataExtractor(logger *slog.Logger, tags ports.TagReader, headers ports.HeaderReader) *MetadataExtractor {
	return &MetadataExtractor{
		tags:    tags,
		headers: headers,
		logger:  logger.With(slog.String("service", "MetadataExtractor")),
		newID:   uuid.NewString,
	}
}

// Extract reads the file at path and returns a record with defaults applied.
// Failures are returned as *domain.ExtractionError.
func (e *MetadataExtractor) Extract(ctx context.Context, path string) (*domain.TrackRecord, error) {
	// Cancellation is only honored before a file is touched
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path == "" {
		return nil, domain.NewExtractionError(path, "", domain.ErrInvalidFilePath)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, domain.NewExtractionError(path, "", domain.ErrInvalidFilePath)
	}

	if !domain.IsSupportedTrack(abs) {
		return nil, domain.NewExtractionError(abs, "", domain.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewExtractionError(abs, "", domain.ErrFileNotFound)
		}
		return nil, domain.NewExtractionError(abs, "", err)
	}

	var tags *ports.Tags
	if strings.EqualFold(filepath.Ext(abs), domain.ExtWAV) {
		duration, err := e.headers.ReadHeader(abs)
		if err != nil {
			return nil, domain.NewExtractionError(abs, "header", err)
		}
		tags = &ports.Tags{Duration: duration}
	} else {
		tags, err = e.tags.ReadTags(abs)
		if err != nil {
			return nil, domain.NewExtractionError(abs, "tags", err)
		}
	}

	record := e.buildRecord(abs, tags)
	e.logger.Debug("metadata extracted",
		slog.String("path", abs),
		slog.String("title", record.Title),
		slog.Float64("duration", record.Duration))

	return record, nil
}

// buildRecord applies domain.Defaults to the reader output.
func (e *MetadataExtractor) buildRecord(path string, tags *ports.Tags) *domain.TrackRecord {
	record := &domain.TrackRecord{
		ID:          e.newID(),
		Path:        path,
		Title:       strings.TrimSpace(tags.Title),
		Album:       strings.TrimSpace(tags.Album),
		Artist:      nonEmpty(tags.Artist),
		AlbumArtist: nonEmpty(tags.AlbumArtist),
		Genre:       nonEmpty(tags.Genre),
		Year:        tags.Year,
		Track:       tags.Track,
		Disk:        tags.Disk,
		Duration:    tags.Duration,
		Type:        domain.TrackType,
	}

	if record.Title == "" {
		record.Title = filepath.Base(path)
	}
	if record.Album == "" {
		record.Album = domain.Defaults.Album
	}
	if len(record.Artist) == 0 {
		record.Artist = []string{domain.Defaults.Artist}
	}
	if record.Duration <= 0 {
		record.Duration = domain.Defaults.Duration
	}
	if record.AlbumArtist == nil {
		record.AlbumArtist = []string{}
	}
	if record.Genre == nil {
		record.Genre = []string{}
	}

	if tags.Picture != nil && len(tags.Picture.Data) > 0 {
		record.Cover = &domain.Cover{
			Format: tags.Picture.Format,
			Data:   base64.StdEncoding.EncodeToString(tags.Picture.Data),
		}
	}

	record.Reindex(normalize.SearchKey)
	return record
}

// nonEmpty trims values and drops blanks.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Verify that MetadataExtractor implements the expected interface patterns
var _ Extractor = (*MetadataExtractor)(nil)
