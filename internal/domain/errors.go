package domain

import (
	"errors"
	"fmt"
)

// Common errors that services can return.
var (
	// ErrTrackNotFound is returned when a requested track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrPlaylistNotFound is returned when a requested playlist cannot be found.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrUnsupportedFormat is returned when an audio file format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrFileNotFound is returned when a file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidFilePath is returned when a file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrDuplicatePath is returned when a track with the same path is already indexed.
	ErrDuplicatePath = errors.New("track path already in library")

	// ErrScanCancelled is returned when a library scan is canceled.
	ErrScanCancelled = errors.New("scan cancelled")

	// ErrNotReorderable is returned when a drop targets a list that cannot be reordered.
	ErrNotReorderable = errors.New("list is not reorderable")

	// ErrNoTrackLoaded is returned when playback is attempted with no track loaded.
	ErrNoTrackLoaded = errors.New("no track loaded")

	// ErrInvalidRate is returned when the playback rate is out of range.
	ErrInvalidRate = errors.New("invalid playback rate")
)

// ExtractionError is a per-file ingestion failure: codec error, unreadable file or
// unsupported format. It is logged and the file is skipped.
type ExtractionError struct {
	Path   string // File that failed
	Reader string // Codec collaborator involved ("tags", "header")
	Err    error  // Underlying error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Reader != "" {
		return fmt.Sprintf("extract %s metadata from '%s': %v", e.Reader, e.Path, e.Err)
	}
	return fmt.Sprintf("extract metadata from '%s': %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(path, reader string, err error) *ExtractionError {
	return &ExtractionError{
		Path:   path,
		Reader: reader,
		Err:    err,
	}
}

// IndexConflict records an ingested record that was skipped because its path is
// already indexed. Conflicts are reported as counts, never as failures.
type IndexConflict struct {
	Path       string
	ExistingID string
}

// Error implements the error interface.
func (c IndexConflict) Error() string {
	return fmt.Sprintf("path '%s' already indexed as %s", c.Path, c.ExistingID)
}

// Unwrap lets errors.Is match ErrDuplicatePath.
func (c IndexConflict) Unwrap() error {
	return ErrDuplicatePath
}

// PersistenceError represents an error from a storage collaborator.
// The in-memory model is not rolled back when one is returned.
type PersistenceError struct {
	Op      string // Operation that failed (e.g., "insert", "update", "remove")
	Type    string // Collection (e.g., "tracks", "playlists", "queue")
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("repository %s.%s failed: %s", e.Type, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new PersistenceError.
func NewPersistenceError(op, repoType, message string, err error) *PersistenceError {
	return &PersistenceError{
		Op:      op,
		Type:    repoType,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   any    // Value that failed validation
	Message string // Error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ServiceError represents an error from a service layer operation.
type ServiceError struct {
	Service string // Service name (e.g., "LibraryService", "PlaylistService")
	Op      string // Operation that failed
	Message string // Error message
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("service %s.%s failed: %s", e.Service, e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, op, message string, err error) *ServiceError {
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}
