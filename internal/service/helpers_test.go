package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/codec"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
)

var errStorage = errors.New("storage unavailable")

// fakeExtractor builds records from the path alone.
type fakeExtractor struct {
	mu      sync.Mutex
	fail    map[string]bool
	records map[string]domain.TrackRecord
	onPath  func(path string)
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		fail:    make(map[string]bool),
		records: make(map[string]domain.TrackRecord),
	}
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (*domain.TrackRecord, error) {
	f.mu.Lock()
	failing := f.fail[path]
	preset, hasPreset := f.records[path]
	hook := f.onPath
	f.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if failing {
		return nil, domain.NewExtractionError(path, "tags", domain.ErrUnsupportedFormat)
	}

	record := domain.TrackRecord{
		Path:   path,
		Title:  filepath.Base(path),
		Album:  domain.Defaults.Album,
		Artist: []string{domain.Defaults.Artist},
	}
	if hasPreset {
		record = preset
		record.Path = path
	}
	return &record, nil
}

// failingTrackRepo fails every write.
type failingTrackRepo struct {
	*memory.TrackRepository
}

func (r failingTrackRepo) Insert(context.Context, []domain.TrackRecord) error { return errStorage }
func (r failingTrackRepo) Update(context.Context, domain.TrackRecord) error   { return errStorage }

// recorder collects published events by type.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func newRecorder(bus *eventbus.SyncEventBus) *recorder {
	r := &recorder{}
	bus.SubscribeAll(func(e domain.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) of(eventType domain.EventType) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Event
	for _, e := range r.events {
		if e.Type() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type testEnv struct {
	bus       *eventbus.SyncEventBus
	store     *memory.Store
	trackRepo *memory.TrackRepository
	library   *LibraryService
	queue     *QueueService
	playlists *PlaylistService
	extractor *fakeExtractor
	events    *recorder
}

// newTestEnv wires a library, a queue and playlists over in-memory storage.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	store := memory.NewStore()
	trackRepo := memory.NewTrackRepository(store, log)
	extractor := newFakeExtractor()

	env := &testEnv{
		bus:       bus,
		store:     store,
		trackRepo: trackRepo,
		extractor: extractor,
		events:    newRecorder(bus),
	}
	env.library = NewLibraryService(log, trackRepo, extractor, bus, LibraryOptions{
		PathCompare: normalize.CaseSensitive,
	})
	env.queue = NewQueueService(log, bus, rand.New(rand.NewPCG(1, 2)))
	env.playlists = NewPlaylistService(log, memory.NewPlaylistRepository(store, log), env.library, bus)
	env.library.Attach(env.playlists, env.queue)

	t.Cleanup(func() {
		_ = env.library.Shutdown()
		_ = bus.Close()
	})
	return env
}

// realExtractor reads files through the codec adapters.
func realExtractor() *MetadataExtractor {
	return NewMetadataExtractor(logger.NewTestLogger(), codec.NewTagReader(), codec.NewWAVReader())
}

// addTracks indexes one record per title and returns their ids in order.
func addTracks(t *testing.T, lib *LibraryService, titles ...string) []string {
	t.Helper()

	records := make([]domain.TrackRecord, len(titles))
	for i, title := range titles {
		records[i] = domain.TrackRecord{
			Path:   "/music/" + title + ".mp3",
			Title:  title,
			Album:  domain.Defaults.Album,
			Artist: []string{domain.Defaults.Artist},
		}
	}
	result, err := lib.Add(context.Background(), records)
	if err != nil {
		t.Fatalf("add tracks: %v", err)
	}
	return result.Added
}
