package service

import (
	"bufio"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// PlaylistService manages named, user-ordered playlists of library track ids.
// Memory is updated first; persistence failures are returned as *domain.PersistenceError
// and the in-memory change is kept.
type PlaylistService struct {
	// Dependencies (injected)
	repo    ports.PlaylistRepository
	library *LibraryService
	bus     ports.EventBus
	logger  *slog.Logger
	now     func() time.Time

	// State
	playlists map[string]*domain.Playlist

	// Concurrency control
	mu      sync.RWMutex
	writeMu sync.Mutex // orders memory changes with their storage writes
}

// NewPlaylistService creates a new playlist service.
func NewPlaylistService(
	logger *slog.Logger,
	repo ports.PlaylistRepository,
	library *LibraryService,
	bus ports.EventBus,
) *PlaylistService {
	return &PlaylistService{
		repo:      repo,
		library:   library,
		bus:       bus,
		logger:    logger.With(slog.String("service", "PlaylistService")),
		now:       time.Now,
		playlists: make(map[string]*domain.Playlist),
	}
}

// Create adds a playlist. Unknown and repeated track ids are dropped.
func (s *PlaylistService) Create(ctx context.Context, name string, trackIDs []string) (domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Playlist{}, domain.NewValidationError("name", name, "playlist name cannot be empty")
	}

	now := s.now()
	playlist := &domain.Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.writeMu.Lock()

	// A concurrent library removal either cascades into the stored playlist or
	// has already evicted the id by the time it is checked here.
	s.mu.Lock()
	playlist.TrackIDs = s.known(dedupe(nil, trackIDs))
	s.playlists[playlist.ID] = playlist
	snapshot := playlist.Clone()
	s.mu.Unlock()

	err := s.repo.Insert(ctx, snapshot)
	s.writeMu.Unlock()

	s.logger.Info("playlist created", slog.String("id", snapshot.ID), slog.String("name", name))
	s.bus.Publish(domain.NewPlaylistUpdatedEvent(snapshot))

	if err != nil {
		return snapshot, domain.NewPersistenceError("insert", "playlists", "failed to store playlist", err)
	}
	return snapshot, nil
}

// Rename changes the playlist name.
func (s *PlaylistService) Rename(ctx context.Context, id, name string) (domain.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Playlist{}, domain.NewValidationError("name", name, "playlist name cannot be empty")
	}
	return s.update(ctx, id, func(p *domain.Playlist) bool {
		if p.Name == name {
			return false
		}
		p.Name = name
		return true
	})
}

// AddTracks appends tracks that are in the library and not yet in the playlist.
func (s *PlaylistService) AddTracks(ctx context.Context, id string, trackIDs []string) (domain.Playlist, error) {
	return s.update(ctx, id, func(p *domain.Playlist) bool {
		before := len(p.TrackIDs)
		p.TrackIDs = dedupe(p.TrackIDs, s.known(trackIDs))
		return len(p.TrackIDs) != before
	})
}

// RemoveTracks removes tracks from the playlist. Unknown ids are ignored.
func (s *PlaylistService) RemoveTracks(ctx context.Context, id string, trackIDs []string) (domain.Playlist, error) {
	return s.update(ctx, id, func(p *domain.Playlist) bool {
		before := len(p.TrackIDs)
		p.TrackIDs = slices.DeleteFunc(p.TrackIDs, func(t string) bool {
			return slices.Contains(trackIDs, t)
		})
		return len(p.TrackIDs) != before
	})
}

// Reorder moves the dragged tracks above or below target, keeping their playlist order.
// Dropping onto one of the dragged tracks is a no-op.
func (s *PlaylistService) Reorder(
	ctx context.Context,
	id string,
	dragged []string,
	target string,
	position domain.DropPosition,
) (domain.Playlist, error) {
	return s.update(ctx, id, func(p *domain.Playlist) bool {
		moved := slices.DeleteFunc(slices.Clone(p.TrackIDs), func(t string) bool {
			return !slices.Contains(dragged, t)
		})
		if len(moved) == 0 || slices.Contains(moved, target) {
			return false
		}

		rest := slices.DeleteFunc(slices.Clone(p.TrackIDs), func(t string) bool {
			return slices.Contains(moved, t)
		})
		at := slices.Index(rest, target)
		if at < 0 {
			return false
		}
		if position == domain.DropBelow {
			at++
		}

		reordered := slices.Insert(rest, at, moved...)
		if slices.Equal(reordered, p.TrackIDs) {
			return false
		}
		p.TrackIDs = reordered
		return true
	})
}

// update applies mutate to a playlist and persists it when mutate reports a change.
func (s *PlaylistService) update(ctx context.Context, id string, mutate func(*domain.Playlist) bool) (domain.Playlist, error) {
	s.writeMu.Lock()
	s.mu.Lock()
	playlist, ok := s.playlists[id]
	if !ok {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}
	if !mutate(playlist) {
		snapshot := playlist.Clone()
		s.mu.Unlock()
		s.writeMu.Unlock()
		return snapshot, nil
	}
	playlist.UpdatedAt = s.now()
	snapshot := playlist.Clone()
	s.mu.Unlock()

	err := s.repo.Update(ctx, snapshot)
	s.writeMu.Unlock()

	s.bus.Publish(domain.NewPlaylistUpdatedEvent(snapshot))

	if err != nil {
		return snapshot, domain.NewPersistenceError("update", "playlists", "failed to update playlist", err)
	}
	return snapshot, nil
}

// Delete removes a playlist.
func (s *PlaylistService) Delete(ctx context.Context, id string) error {
	s.writeMu.Lock()
	s.mu.Lock()
	if _, ok := s.playlists[id]; !ok {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return domain.ErrPlaylistNotFound
	}
	delete(s.playlists, id)
	s.mu.Unlock()

	err := s.repo.Remove(ctx, id)
	s.writeMu.Unlock()

	s.logger.Info("playlist deleted", slog.String("id", id))
	s.bus.Publish(domain.NewPlaylistDeletedEvent(id))

	if err != nil {
		return domain.NewPersistenceError("remove", "playlists", "failed to remove playlist", err)
	}
	return nil
}

// Get returns a copy of the playlist.
func (s *PlaylistService) Get(id string) (domain.Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlist, ok := s.playlists[id]
	if !ok {
		return domain.Playlist{}, domain.ErrPlaylistNotFound
	}
	return playlist.Clone(), nil
}

// List returns every playlist sorted by name, accent and case insensitive.
// Equal names keep creation order.
func (s *PlaylistService) List() []domain.Playlist {
	s.mu.RLock()
	out := make([]domain.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.Playlist) int {
		return cmp.Or(
			cmp.Compare(normalize.SearchKey(a.Name), normalize.SearchKey(b.Name)),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

// Tracks resolves the playlist's ids to records, in playlist order.
func (s *PlaylistService) Tracks(id string) ([]domain.TrackRecord, error) {
	playlist, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return s.library.Resolve(playlist.TrackIDs), nil
}

// Resync replaces the in-memory playlists with the content of storage.
// Ids no longer in the library are dropped.
func (s *PlaylistService) Resync(ctx context.Context) error {
	stored, err := s.repo.Find(ctx)
	if err != nil {
		return domain.NewPersistenceError("find", "playlists", "failed to load playlists", err)
	}

	playlists := make(map[string]*domain.Playlist, len(stored))
	for i := range stored {
		p := stored[i]
		p.TrackIDs = s.known(dedupe(nil, p.TrackIDs))
		playlists[p.ID] = &p
	}

	s.mu.Lock()
	s.playlists = playlists
	s.mu.Unlock()

	s.logger.Info("playlists loaded", slog.Int("playlists", len(playlists)))
	return nil
}

// DropTracks implements TrackReferrer.
func (s *PlaylistService) DropTracks(ctx context.Context, ids []string) error {
	s.mu.RLock()
	var affected []string
	for id, p := range s.playlists {
		if slices.ContainsFunc(ids, p.Contains) {
			affected = append(affected, id)
		}
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range affected {
		if _, err := s.RemoveTracks(ctx, id, ids); err != nil && !errors.Is(err, domain.ErrPlaylistNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DropAll implements TrackReferrer.
func (s *PlaylistService) DropAll(ctx context.Context) error {
	s.writeMu.Lock()
	s.mu.Lock()
	ids := make([]string, 0, len(s.playlists))
	for id := range s.playlists {
		ids = append(ids, id)
	}
	s.playlists = make(map[string]*domain.Playlist)
	s.mu.Unlock()

	err := s.repo.Clear(ctx)
	s.writeMu.Unlock()

	for _, id := range ids {
		s.bus.Publish(domain.NewPlaylistDeletedEvent(id))
	}

	if err != nil {
		return domain.NewPersistenceError("clear", "playlists", "failed to clear playlists", err)
	}
	return nil
}

// ImportM3U ingests the files listed in an M3U playlist and creates a playlist named after
// the file. Relative entries are resolved against the playlist's directory. Files that fail
// extraction are skipped; files already in the library are reused.
func (s *PlaylistService) ImportM3U(ctx context.Context, path string) (domain.Playlist, error) {
	if !domain.IsSupportedPlaylist(path) {
		return domain.Playlist{}, domain.NewValidationError("path", path, "not an m3u playlist")
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return domain.Playlist{}, domain.ErrInvalidFilePath
	}
	entries, err := readM3U(path)
	if err != nil {
		return domain.Playlist{}, err
	}

	var fresh []string
	for _, entry := range entries {
		if _, ok := s.library.GetByPath(entry); !ok {
			fresh = append(fresh, entry)
		}
	}
	if len(fresh) > 0 {
		if _, err := s.library.Ingest(ctx, fresh); err != nil {
			return domain.Playlist{}, fmt.Errorf("import %s: %w", path, err)
		}
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if record, ok := s.library.GetByPath(entry); ok {
			ids = append(ids, record.ID)
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s.logger.Info("importing playlist",
		slog.String("path", path),
		slog.Int("entries", len(entries)),
		slog.Int("resolved", len(ids)))
	return s.Create(ctx, name, ids)
}

// readM3U returns the absolute file entries of an M3U file.
func readM3U(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("open playlist: %w", err)
	}
	defer func() { _ = f.Close() }()

	dir := filepath.Dir(path)
	var entries []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(dir, filepath.FromSlash(line))
		}
		entries = append(entries, filepath.Clean(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read playlist: %w", err)
	}
	return entries, nil
}

// ExportM3U writes the playlist as an extended M3U file.
func (s *PlaylistService) ExportM3U(id string, w io.Writer) error {
	tracks, err := s.Tracks(id)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintln(bw, "#EXTM3U")
	for _, t := range tracks {
		_, _ = fmt.Fprintf(bw, "#EXTINF:%d,%s - %s\n", int(t.Duration), strings.Join(t.Artist, ", "), t.Title)
		_, _ = fmt.Fprintln(bw, t.Path)
	}
	return bw.Flush()
}

// known keeps the ids present in the library.
func (s *PlaylistService) known(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.library.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// dedupe appends the ids not already in dst, in order.
func dedupe(dst, ids []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(ids))
	for _, id := range dst {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		dst = append(dst, id)
	}
	return dst
}

// Verify that PlaylistService implements the expected interface patterns
var _ TrackReferrer = (*PlaylistService)(nil)
