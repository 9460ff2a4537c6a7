package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

const (
	trackPrefix    = "track."
	trackPathIndex = "track_path."
	trackIDsKey    = "tracks._ids"
)

// TrackRepository implements ports.TrackRepository on a Store.
// Tracks are stored as JSON with keys like "track.<id>"; "tracks._ids" keeps insertion order.
//
// Thread-safe: All operations protected by sync.RWMutex.
type TrackRepository struct {
	store  *Store
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewTrackRepository creates a new track repository.
func NewTrackRepository(store *Store, logger *slog.Logger) *TrackRepository {
	return &TrackRepository{
		store:  store,
		logger: logger,
	}
}

// Insert stores new tracks. The whole batch is rejected when any path is already stored.
func (r *TrackRepository) Insert(ctx context.Context, tracks []domain.TrackRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if id := r.store.String(trackPathIndex + t.Path); id != "" {
			return &domain.IndexConflict{Path: t.Path, ExistingID: id}
		}
		if _, dup := seen[t.Path]; dup {
			return &domain.IndexConflict{Path: t.Path}
		}
		seen[t.Path] = struct{}{}
	}

	ids, err := r.loadIDs()
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if err := r.put(t); err != nil {
			return err
		}
		r.store.SetString(trackPathIndex+t.Path, t.ID)
		ids = append(ids, t.ID)
	}
	return r.saveIDs(ids)
}

// Find returns the tracks matching query in insertion order.
func (r *TrackRepository) Find(ctx context.Context, query ports.TrackQuery) ([]domain.TrackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := r.loadIDs()
	if err != nil {
		return nil, err
	}

	tracks := make([]domain.TrackRecord, 0, len(ids))
	for _, id := range ids {
		if len(query.IDs) > 0 && !slices.Contains(query.IDs, id) {
			continue
		}
		track, ok := r.get(id)
		if !ok {
			continue
		}
		if query.Path != "" && track.Path != query.Path {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// Update replaces a stored track.
func (r *TrackRepository) Update(ctx context.Context, track domain.TrackRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.get(track.ID)
	if !ok {
		return domain.ErrTrackNotFound
	}
	if old.Path != track.Path {
		if id := r.store.String(trackPathIndex + track.Path); id != "" && id != track.ID {
			return &domain.IndexConflict{Path: track.Path, ExistingID: id}
		}
		r.store.RemoveValue(trackPathIndex + old.Path)
		r.store.SetString(trackPathIndex+track.Path, track.ID)
	}
	return r.put(track)
}

// Remove deletes tracks by ID.
func (r *TrackRepository) Remove(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.loadIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if track, ok := r.get(id); ok {
			r.store.RemoveValue(trackPathIndex + track.Path)
		}
		r.store.RemoveValue(trackPrefix + id)
	}
	stored = slices.DeleteFunc(stored, func(id string) bool {
		return slices.Contains(ids, id)
	})
	return r.saveIDs(stored)
}

// Clear removes every track.
func (r *TrackRepository) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, prefix := range []string{trackPrefix, trackPathIndex} {
		for _, key := range r.store.Keys(prefix) {
			r.store.RemoveValue(key)
		}
	}
	r.store.RemoveValue(trackIDsKey)
	return nil
}

// get loads one track. Must be called with lock held.
func (r *TrackRepository) get(id string) (domain.TrackRecord, bool) {
	data := r.store.String(trackPrefix + id)
	if data == "" {
		return domain.TrackRecord{}, false
	}

	var track domain.TrackRecord
	if err := json.Unmarshal([]byte(data), &track); err != nil {
		r.logger.Warn("track corrupted", slog.String("id", id), slog.Any("error", err))
		return domain.TrackRecord{}, false
	}
	return track, true
}

// put stores one track. Must be called with lock held.
func (r *TrackRepository) put(track domain.TrackRecord) error {
	data, err := json.Marshal(track)
	if err != nil {
		return domain.NewPersistenceError("marshal", "tracks", fmt.Sprintf("failed to marshal track %s", track.ID), err)
	}
	r.store.SetString(trackPrefix+track.ID, string(data))
	return nil
}

func (r *TrackRepository) loadIDs() ([]string, error) {
	return loadIDs(r.store, trackIDsKey)
}

func (r *TrackRepository) saveIDs(ids []string) error {
	return saveIDs(r.store, trackIDsKey, ids)
}

// loadIDs loads an ordered id list. Must be called with lock held.
func loadIDs(store *Store, key string) ([]string, error) {
	data := store.String(key)
	if data == "" {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, domain.NewPersistenceError("unmarshal", key, "failed to unmarshal IDs", err)
	}
	return ids, nil
}

// saveIDs saves an ordered id list. Must be called with lock held.
func saveIDs(store *Store, key string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return domain.NewPersistenceError("marshal", key, "failed to marshal IDs", err)
	}
	store.SetString(key, string(data))
	return nil
}

// Verify interface implementation
var _ ports.TrackRepository = (*TrackRepository)(nil)
