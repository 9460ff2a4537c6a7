// Package ports define repository interfaces for data persistence abstraction.
// These interfaces enable the repository pattern and allow swapping persistence mechanisms.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// TrackQuery selects track documents. The zero value matches every document.
type TrackQuery struct {
	// IDs restricts the result to the given ids (ignored when empty)
	IDs []string

	// Path restricts the result to the document with this exact path (ignored when empty)
	Path string
}

// TrackRepository is the document store holding TrackRecord-shaped documents.
// Implementations can use files, databases, or in-memory storage.
//
// Thread-safety: Implementations must be thread-safe.
type TrackRepository interface {
	// Insert stores new documents.
	// Inserting a path that is already stored fails with an error wrapping domain.ErrDuplicatePath.
	Insert(ctx context.Context, tracks []domain.TrackRecord) error

	// Find returns the documents matching the query in insertion order.
	// An empty result is not an error.
	Find(ctx context.Context, query TrackQuery) ([]domain.TrackRecord, error)

	// Update replaces the document with the same ID.
	// Returns domain.ErrTrackNotFound if no such document exists.
	Update(ctx context.Context, track domain.TrackRecord) error

	// Remove deletes documents by ID. Unknown ids are ignored.
	Remove(ctx context.Context, ids []string) error

	// Clear removes every document.
	Clear(ctx context.Context) error
}

// PlaylistRepository handles the persistence of playlists.
//
// Thread-safety: Implementations must be thread-safe.
type PlaylistRepository interface {
	// Insert stores a new playlist.
	Insert(ctx context.Context, playlist domain.Playlist) error

	// Find returns the playlists with the given ids, or every playlist when no id is given.
	// Unknown ids are skipped.
	Find(ctx context.Context, ids ...string) ([]domain.Playlist, error)

	// Update replaces the playlist with the same ID.
	// Returns domain.ErrPlaylistNotFound if no such playlist exists.
	Update(ctx context.Context, playlist domain.Playlist) error

	// Remove deletes playlists by ID. Unknown ids are ignored.
	Remove(ctx context.Context, ids ...string) error

	// Clear removes every playlist.
	Clear(ctx context.Context) error
}

// QueueRepository handles the persistence of the playback queue across restarts.
//
// Thread-safety: Implementations must be thread-safe.
type QueueRepository interface {
	// SaveQueue persists the queue state, replacing any previous one.
	SaveQueue(ctx context.Context, state domain.QueueState) error

	// LoadQueue retrieves the last saved queue state.
	// If no queue was saved, returns an empty state with Cursor set to domain.NoCursor (not an error).
	LoadQueue(ctx context.Context) (domain.QueueState, error)
}
