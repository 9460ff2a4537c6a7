// Package service provides business logic for the tunedeck library core.
package service

import (
	"cmp"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// DefaultBatchSize matches the track list tile size.
const DefaultBatchSize = 20

// TrackReferrer holds track ids outside the library and must drop them when the
// tracks leave the library.
type TrackReferrer interface {
	DropTracks(ctx context.Context, ids []string) error
	DropAll(ctx context.Context) error
}

// LibraryOptions tunes ingestion and path comparison.
type LibraryOptions struct {
	// BatchSize bounds how many files are extracted before a commit
	BatchSize int

	// Workers bounds concurrent extractions inside a batch
	Workers int

	// PathCompare decides when two paths name the same file
	PathCompare normalize.PathCompare
}

// AddResult reports what an Add call did.
type AddResult struct {
	Added     []string
	Conflicts []domain.IndexConflict
}

// IngestResult reports what an ingestion did.
type IngestResult struct {
	AddResult

	// Failed lists the files skipped because extraction failed
	Failed []string
}

// LibraryService owns every TrackRecord. Playlists and the queue only hold ids, so removals
// cascade to the registered TrackReferrers.
//
// Reads take mu shared. Writers are serialized by writeMu for their whole duration,
// persistence included, so concurrent ingestion batches queue instead of racing.
type LibraryService struct {
	// Dependencies (injected)
	repo      ports.TrackRepository
	extractor Extractor
	bus       ports.EventBus
	logger    *slog.Logger
	referrers []TrackReferrer
	opts      LibraryOptions

	// State
	tracks map[string]*domain.TrackRecord // arena keyed by id
	order  []string                       // insertion order
	byPath map[string]string              // canonical path -> id

	scanning   bool
	cancelScan context.CancelFunc

	// Concurrency control
	mu      sync.RWMutex
	writeMu sync.Mutex
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	logger *slog.Logger,
	repo ports.TrackRepository,
	extractor Extractor,
	bus ports.EventBus,
	opts LibraryOptions,
) *LibraryService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = opts.BatchSize
	}

	return &LibraryService{
		repo:      repo,
		extractor: extractor,
		bus:       bus,
		logger:    logger.With(slog.String("service", "LibraryService")),
		opts:      opts,
		tracks:    make(map[string]*domain.TrackRecord),
		byPath:    make(map[string]string),
	}
}

// Attach registers holders of track ids that removals must cascade to.
func (s *LibraryService) Attach(referrers ...TrackReferrer) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.referrers = append(s.referrers, referrers...)
}

// Add indexes records. Records whose path is already indexed, or repeated within the
// batch, are skipped and reported as conflicts. Missing ids are generated and search
// fields are recomputed.
//
// A persistence failure is returned as *domain.PersistenceError; the records stay indexed.
func (s *LibraryService) Add(ctx context.Context, records []domain.TrackRecord) (AddResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	result, accepted := s.commit(records)

	if len(accepted) > 0 {
		if err := s.repo.Insert(ctx, accepted); err != nil {
			s.logger.Error("failed to persist tracks", slog.Int("count", len(accepted)), slog.Any("error", err))
			s.publishAdded(result)
			return result, domain.NewPersistenceError("insert", "tracks", "failed to persist tracks", err)
		}
	}

	s.publishAdded(result)
	return result, nil
}

// commit indexes records in memory and returns the accepted copies.
func (s *LibraryService) commit(records []domain.TrackRecord) (AddResult, []domain.TrackRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result AddResult
	accepted := make([]domain.TrackRecord, 0, len(records))

	for _, r := range records {
		key := normalize.CanonicalPath(r.Path, s.opts.PathCompare)
		if existing, ok := s.byPath[key]; ok {
			result.Conflicts = append(result.Conflicts, domain.IndexConflict{Path: r.Path, ExistingID: existing})
			continue
		}

		record := r.Clone()
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if _, taken := s.tracks[record.ID]; taken {
			record.ID = uuid.NewString()
		}
		if record.Type == "" {
			record.Type = domain.TrackType
		}
		record.Reindex(normalize.SearchKey)

		s.tracks[record.ID] = &record
		s.order = append(s.order, record.ID)
		s.byPath[key] = record.ID

		result.Added = append(result.Added, record.ID)
		accepted = append(accepted, record.Clone())
	}

	return result, accepted
}

func (s *LibraryService) publishAdded(result AddResult) {
	if len(result.Added) == 0 && len(result.Conflicts) == 0 {
		return
	}
	s.bus.Publish(domain.NewTracksAddedEvent(slices.Clone(result.Added), len(result.Conflicts)))
}

// Remove deletes records and drops their ids from every referrer.
// Unknown ids are ignored.
func (s *LibraryService) Remove(ctx context.Context, ids []string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	removed := s.evict(ids)
	if len(removed) == 0 {
		return nil
	}

	var errs []error
	if err := s.repo.Remove(ctx, removed); err != nil {
		s.logger.Error("failed to remove tracks from storage", slog.Any("error", err))
		errs = append(errs, domain.NewPersistenceError("remove", "tracks", "failed to remove tracks", err))
	}

	for _, r := range s.referrers {
		if err := r.DropTracks(ctx, removed); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("tracks removed", slog.Int("count", len(removed)))
	s.bus.Publish(domain.NewTracksRemovedEvent(removed))

	return errors.Join(errs...)
}

// evict removes ids from memory and returns the ones that existed.
func (s *LibraryService) evict(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]string, 0, len(ids))
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		record, ok := s.tracks[id]
		if !ok {
			continue
		}
		if _, dup := drop[id]; dup {
			continue
		}
		drop[id] = struct{}{}
		removed = append(removed, id)
		delete(s.byPath, normalize.CanonicalPath(record.Path, s.opts.PathCompare))
		delete(s.tracks, id)
	}

	if len(removed) > 0 {
		s.order = slices.DeleteFunc(s.order, func(id string) bool {
			_, ok := drop[id]
			return ok
		})
	}
	return removed
}

// Get returns a copy of the record with the given id.
func (s *LibraryService) Get(id string) (domain.TrackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.tracks[id]
	if !ok {
		return domain.TrackRecord{}, domain.ErrTrackNotFound
	}
	return record.Clone(), nil
}

// GetByPath returns the record indexed under path.
func (s *LibraryService) GetByPath(path string) (domain.TrackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPath[normalize.CanonicalPath(path, s.opts.PathCompare)]
	if !ok {
		return domain.TrackRecord{}, false
	}
	return s.tracks[id].Clone(), true
}

// Contains reports whether the id is indexed.
func (s *LibraryService) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tracks[id]
	return ok
}

// Resolve returns the records for ids in the given order, skipping unknown ids.
func (s *LibraryService) Resolve(ids []string) []domain.TrackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TrackRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.tracks[id]; ok {
			out = append(out, record.Clone())
		}
	}
	return out
}

// Len returns the number of indexed records.
func (s *LibraryService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// All returns every record in insertion order.
func (s *LibraryService) All() []domain.TrackRecord {
	return s.Find(nil)
}

// IDs returns every id in insertion order.
func (s *LibraryService) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Find returns the records matching pred in insertion order. A nil pred matches all.
func (s *LibraryService) Find(pred func(domain.TrackRecord) bool) []domain.TrackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TrackRecord, 0, len(s.order))
	for _, id := range s.order {
		record := s.tracks[id]
		if pred == nil || pred(*record) {
			out = append(out, record.Clone())
		}
	}
	return out
}

// SortedView returns every record sorted by field. The sort is stable: equal keys keep
// insertion order in both directions.
func (s *LibraryService) SortedView(field SortField, direction SortDirection) []domain.TrackRecord {
	records := s.All()
	compare := field.compare()

	slices.SortStableFunc(records, func(a, b domain.TrackRecord) int {
		c := compare(a, b)
		if direction == Descending {
			return -c
		}
		return c
	})
	return records
}

// Search returns the records whose title, artist or album contains the normalized query.
// An empty query matches every record.
func (s *LibraryService) Search(query string) []domain.TrackRecord {
	key := normalize.SearchKey(strings.TrimSpace(query))
	if key == "" {
		return s.All()
	}

	return s.Find(func(r domain.TrackRecord) bool {
		if strings.Contains(r.Search.Title, key) || strings.Contains(r.Search.Album, key) {
			return true
		}
		return slices.ContainsFunc(r.Search.Artist, func(a string) bool {
			return strings.Contains(a, key)
		})
	})
}

// TrackEdit lists display fields to change. Nil fields are left untouched.
type TrackEdit struct {
	Title       *string
	Album       *string
	Artist      []string
	AlbumArtist []string
	Genre       []string
}

// Edit changes display fields of a record; search fields follow.
func (s *LibraryService) Edit(ctx context.Context, id string, edit TrackEdit) (domain.TrackRecord, error) {
	return s.update(ctx, id, func(r *domain.TrackRecord) {
		if edit.Title != nil {
			r.SetTitle(*edit.Title, normalize.SearchKey)
		}
		if edit.Album != nil {
			r.SetAlbum(*edit.Album, normalize.SearchKey)
		}
		if edit.Artist != nil {
			r.SetArtist(slices.Clone(edit.Artist), normalize.SearchKey)
		}
		if edit.AlbumArtist != nil {
			r.SetAlbumArtist(slices.Clone(edit.AlbumArtist), normalize.SearchKey)
		}
		if edit.Genre != nil {
			r.SetGenre(slices.Clone(edit.Genre), normalize.SearchKey)
		}
	})
}

// IncrementPlayCount records one completed playback of the track.
func (s *LibraryService) IncrementPlayCount(ctx context.Context, id string) error {
	_, err := s.update(ctx, id, func(r *domain.TrackRecord) {
		r.PlayCount++
	})
	return err
}

func (s *LibraryService) update(ctx context.Context, id string, mutate func(*domain.TrackRecord)) (domain.TrackRecord, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	record, ok := s.tracks[id]
	if !ok {
		s.mu.Unlock()
		return domain.TrackRecord{}, domain.ErrTrackNotFound
	}
	mutate(record)
	updated := record.Clone()
	s.mu.Unlock()

	s.bus.Publish(domain.NewTrackUpdatedEvent(updated))

	if err := s.repo.Update(ctx, updated); err != nil {
		return updated, domain.NewPersistenceError("update", "tracks", "failed to update track", err)
	}
	return updated, nil
}

// Reset clears the library and every referrer.
func (s *LibraryService) Reset(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.tracks = make(map[string]*domain.TrackRecord)
	s.byPath = make(map[string]string)
	s.order = nil
	s.mu.Unlock()

	var errs []error
	if err := s.repo.Clear(ctx); err != nil {
		errs = append(errs, domain.NewPersistenceError("clear", "tracks", "failed to clear tracks", err))
	}
	for _, r := range s.referrers {
		if err := r.DropAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("library reset")
	s.bus.Publish(domain.NewLibraryResetEvent())
	return errors.Join(errs...)
}

// Resync replaces the in-memory index with the content of storage.
func (s *LibraryService) Resync(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	records, err := s.repo.Find(ctx, ports.TrackQuery{})
	if err != nil {
		return domain.NewPersistenceError("find", "tracks", "failed to load tracks", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracks = make(map[string]*domain.TrackRecord, len(records))
	s.byPath = make(map[string]string, len(records))
	s.order = make([]string, 0, len(records))

	for i := range records {
		record := records[i]
		key := normalize.CanonicalPath(record.Path, s.opts.PathCompare)
		if _, dup := s.byPath[key]; dup {
			s.logger.Warn("duplicate path in storage", slog.String("path", record.Path))
			continue
		}
		record.Reindex(normalize.SearchKey)
		s.tracks[record.ID] = &record
		s.order = append(s.order, record.ID)
		s.byPath[key] = record.ID
	}

	s.logger.Info("library loaded", slog.Int("tracks", len(s.order)))
	return nil
}

// Ingest extracts files in bounded batches and adds them to the library.
// Extraction failures are logged and skipped. Cancellation is honored between files;
// batches committed before it stay committed and the error wraps domain.ErrScanCancelled.
func (s *LibraryService) Ingest(ctx context.Context, paths []string) (IngestResult, error) {
	var result IngestResult
	total := len(paths)
	scanned := 0

	for start := 0; start < total; start += s.opts.BatchSize {
		if ctx.Err() != nil {
			return result, cancelled(ctx)
		}

		batch := paths[start:min(start+s.opts.BatchSize, total)]
		records, failed := s.extractBatch(ctx, batch)
		result.Failed = append(result.Failed, failed...)
		scanned += len(batch)

		if len(records) > 0 {
			// Extracted records are committed even when cancellation arrived mid-batch
			added, err := s.Add(context.WithoutCancel(ctx), records)
			result.Added = append(result.Added, added.Added...)
			result.Conflicts = append(result.Conflicts, added.Conflicts...)
			if err != nil {
				return result, err
			}
		}

		s.bus.Publish(domain.NewScanProgressEvent(domain.ScanProgress{
			CurrentFile:  batch[len(batch)-1],
			FilesScanned: scanned,
			TotalFiles:   total,
			TracksFound:  len(result.Added),
		}))

		// A cancellation during the batch skipped its remaining files
		if ctx.Err() != nil {
			return result, cancelled(ctx)
		}
	}

	return result, nil
}

// extractBatch runs the extractor concurrently over one batch. Records come back in
// path order whatever the completion order.
func (s *LibraryService) extractBatch(ctx context.Context, batch []string) ([]domain.TrackRecord, []string) {
	results := make([]*domain.TrackRecord, len(batch))
	errs := make([]error, len(batch))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)

	for i, path := range batch {
		g.Go(func() error {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return nil
			}
			record, err := s.extractor.Extract(ctx, path)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = record
			return nil
		})
	}
	_ = g.Wait()

	records := make([]domain.TrackRecord, 0, len(batch))
	var failed []string
	for i, path := range batch {
		switch {
		case results[i] != nil:
			records = append(records, *results[i])
		case errors.Is(errs[i], context.Canceled), errors.Is(errs[i], context.DeadlineExceeded):
			// skipped, not failed
		case errs[i] != nil:
			failed = append(failed, path)
			s.logger.Warn("skipping file", slog.String("path", path), slog.Any("error", errs[i]))
			s.bus.Publish(domain.NewExtractionFailedEvent(path, errs[i]))
		}
	}
	return records, failed
}

func cancelled(ctx context.Context) error {
	return errors.Join(domain.ErrScanCancelled, context.Cause(ctx))
}

// ScanPaths reduces the selection, collects the supported files below it and ingests them.
// Only one scan runs at a time; CancelScan stops it between files.
func (s *LibraryService) ScanPaths(ctx context.Context, paths []string) (IngestResult, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return IngestResult{}, domain.NewServiceError("LibraryService", "ScanPaths", "scan already in progress", nil)
	}
	s.scanning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancelScan = cancel
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancelScan = nil
		s.mu.Unlock()
	}()

	roots := normalize.ReducePaths(paths, s.opts.PathCompare)
	s.bus.Publish(domain.NewScanStartedEvent(roots))
	s.logger.Info("scan started", slog.Any("roots", roots))

	files, err := collectTrackFiles(ctx, roots)
	if err != nil {
		s.bus.Publish(domain.NewScanCancelledEvent("cancelled while collecting files"))
		return IngestResult{}, err
	}

	result, err := s.Ingest(ctx, files)
	if err != nil {
		if errors.Is(err, domain.ErrScanCancelled) {
			s.bus.Publish(domain.NewScanCancelledEvent("user cancelled"))
			s.logger.Info("scan cancelled", slog.Int("added", len(result.Added)))
		}
		return result, err
	}

	s.bus.Publish(domain.NewScanCompletedEvent(len(result.Added), len(result.Conflicts), len(result.Failed)))
	s.logger.Info("scan completed",
		slog.Int("files", len(files)),
		slog.Int("added", len(result.Added)),
		slog.Int("conflicts", len(result.Conflicts)),
		slog.Int("failed", len(result.Failed)))

	return result, nil
}

// CancelScan cancels the currently running scan operation.
func (s *LibraryService) CancelScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.scanning {
		return domain.NewServiceError("LibraryService", "CancelScan", "no scan in progress", nil)
	}
	if s.cancelScan != nil {
		s.cancelScan()
	}
	return nil
}

// IsScanning returns true if a scan is currently in progress.
func (s *LibraryService) IsScanning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanning
}

// collectTrackFiles walks every root and returns the supported files in walk order.
// Roots may be files. Unreadable entries are skipped.
func collectTrackFiles(ctx context.Context, roots []string) ([]string, error) {
	var files []string

	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return cancelled(ctx)
			}
			if err != nil {
				// Skip files/folders we can't access
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() && domain.IsSupportedTrack(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return files, err
		}
	}

	return files, nil
}

// Shutdown cancels any running scan.
func (s *LibraryService) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanning && s.cancelScan != nil {
		s.cancelScan()
	}
	return nil
}

// SortField names a sortable record field.
type SortField string

// Sortable fields.
const (
	SortTitle       SortField = "title"
	SortArtist      SortField = "artist"
	SortAlbum       SortField = "album"
	SortAlbumArtist SortField = "albumartist"
	SortGenre       SortField = "genre"
	SortYear        SortField = "year"
	SortDuration    SortField = "duration"
	SortTrack       SortField = "track"
	SortDisk        SortField = "disk"
	SortPlayCount   SortField = "playcount"
)

// SortDirection orders a sorted view.
type SortDirection int

const (
	// Ascending sorts smallest first
	Ascending SortDirection = iota

	// Descending sorts largest first
	Descending
)

// ParseSortField validates a field name.
func ParseSortField(s string) (SortField, error) {
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case SortTitle, SortArtist, SortAlbum, SortAlbumArtist, SortGenre,
		SortYear, SortDuration, SortTrack, SortDisk, SortPlayCount:
		return f, nil
	}
	return "", domain.NewValidationError("sort", s, "unknown sort field")
}

// compare returns the ascending comparator for the field. String fields compare the
// search keys; numeric fields compare numerically.
func (f SortField) compare() func(a, b domain.TrackRecord) int {
	switch f {
	case SortArtist:
		return func(a, b domain.TrackRecord) int { return slices.Compare(a.Search.Artist, b.Search.Artist) }
	case SortAlbum:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.Search.Album, b.Search.Album) }
	case SortAlbumArtist:
		return func(a, b domain.TrackRecord) int {
			return slices.Compare(a.Search.AlbumArtist, b.Search.AlbumArtist)
		}
	case SortGenre:
		return func(a, b domain.TrackRecord) int { return slices.Compare(a.Search.Genre, b.Search.Genre) }
	case SortYear:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.Year, b.Year) }
	case SortDuration:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.Duration, b.Duration) }
	case SortTrack:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.Track.No, b.Track.No) }
	case SortDisk:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.Disk.No, b.Disk.No) }
	case SortPlayCount:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.PlayCount, b.PlayCount) }
	default:
		return func(a, b domain.TrackRecord) int { return cmp.Compare(a.Search.Title, b.Search.Title) }
	}
}

// Verify that LibraryService implements the expected interface patterns
var _ interface {
	Add(context.Context, []domain.TrackRecord) (AddResult, error)
	Remove(context.Context, []string) error
	Find(func(domain.TrackRecord) bool) []domain.TrackRecord
	SortedView(SortField, SortDirection) []domain.TrackRecord
	Search(string) []domain.TrackRecord
	Ingest(context.Context, []string) (IngestResult, error)
	ScanPaths(context.Context, []string) (IngestResult, error)
	CancelScan() error
	Shutdown() error
} = (*LibraryService)(nil)
