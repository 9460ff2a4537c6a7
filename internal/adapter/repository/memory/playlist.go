package memory

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const (
	playlistPrefix = "playlist."
	playlistIDsKey = "playlists._ids"
)

// PlaylistRepository implements ports.PlaylistRepository on a Store.
// Playlists are stored as JSON with keys like "playlist.<id>".
//
// Thread-safe: All operations protected by sync.RWMutex.
type PlaylistRepository struct {
	store  *Store
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewPlaylistRepository creates a new playlist repository.
func NewPlaylistRepository(store *Store, logger *slog.Logger) *PlaylistRepository {
	return &PlaylistRepository{
		store:  store,
		logger: logger,
	}
}

// Insert persists a new playlist.
func (r *PlaylistRepository) Insert(ctx context.Context, playlist domain.Playlist) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store.String(playlistPrefix+playlist.ID) != "" {
		return domain.NewPersistenceError("insert", "playlists", "playlist already exists", nil)
	}
	if err := r.put(playlist); err != nil {
		return err
	}

	ids, err := loadIDs(r.store, playlistIDsKey)
	if err != nil {
		// If loading fails, start with empty slice
		ids = []string{}
	}
	return saveIDs(r.store, playlistIDsKey, append(ids, playlist.ID))
}

// Find retrieves playlists by ID, or every playlist when no id is given.
func (r *PlaylistRepository) Find(ctx context.Context, ids ...string) ([]domain.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(ids) == 0 {
		var err error
		if ids, err = loadIDs(r.store, playlistIDsKey); err != nil {
			return nil, err
		}
	}

	playlists := make([]domain.Playlist, 0, len(ids))
	for _, id := range ids {
		data := r.store.String(playlistPrefix + id)
		if data == "" {
			continue
		}

		var playlist domain.Playlist
		if err := json.Unmarshal([]byte(data), &playlist); err != nil {
			r.logger.Warn("playlist corrupted", slog.String("id", id), slog.Any("error", err))
			continue // Skip corrupted playlists
		}
		playlists = append(playlists, playlist)
	}
	return playlists, nil
}

// Update replaces a stored playlist.
func (r *PlaylistRepository) Update(ctx context.Context, playlist domain.Playlist) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store.String(playlistPrefix+playlist.ID) == "" {
		return domain.ErrPlaylistNotFound
	}
	return r.put(playlist)
}

// Remove deletes playlists by ID.
func (r *PlaylistRepository) Remove(ctx context.Context, ids ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		r.store.RemoveValue(playlistPrefix + id)
	}

	stored, err := loadIDs(r.store, playlistIDsKey)
	if err != nil {
		stored = []string{}
	}
	stored = slices.DeleteFunc(stored, func(id string) bool {
		return slices.Contains(ids, id)
	})
	return saveIDs(r.store, playlistIDsKey, stored)
}

// Clear removes every playlist.
func (r *PlaylistRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range r.store.Keys(playlistPrefix) {
		r.store.RemoveValue(key)
	}
	r.store.RemoveValue(playlistIDsKey)
	return nil
}

// put stores one playlist. Must be called with lock held.
func (r *PlaylistRepository) put(playlist domain.Playlist) error {
	data, err := json.Marshal(playlist)
	if err != nil {
		return domain.NewPersistenceError("marshal", "playlists", "failed to marshal playlist", err)
	}
	r.store.SetString(playlistPrefix+playlist.ID, string(data))
	return nil
}

// Verify interface implementation
var _ ports.PlaylistRepository = (*PlaylistRepository)(nil)
