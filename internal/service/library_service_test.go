package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
	"github.com/tejashwikalptaru/tunedeck/internal/testutil"
)

func TestLibraryService_IngestDuplicatePaths(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	testutil.WriteWAV(t, a, 8000, 16000)
	testutil.WriteWAV(t, b, 8000, 8000)

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()
	repo := memory.NewTrackRepository(memory.NewStore(), log)
	lib := NewLibraryService(log, repo, realExtractor(), bus, LibraryOptions{PathCompare: normalize.CaseSensitive})

	result, err := lib.Ingest(context.Background(), []string{a, b, a})
	require.NoError(t, err)

	assert.Len(t, result.Added, 2)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, a, result.Conflicts[0].Path)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 2, lib.Len())

	all := lib.All()
	assert.Equal(t, "a.wav", all[0].Title)
	assert.Equal(t, domain.Defaults.Album, all[0].Album)
	assert.Equal(t, []string{domain.Defaults.Artist}, all[0].Artist)
	assert.InDelta(t, 2.0, all[0].Duration, 0.001)
	assert.InDelta(t, 1.0, all[1].Duration, 0.001)

	stored, err := repo.Find(context.Background(), ports.TrackQuery{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestLibraryService_AddConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.library.Add(ctx, []domain.TrackRecord{
		{Path: "/music/a.mp3", Title: "A"},
		{Path: "/music/b.mp3", Title: "B"},
	})
	require.NoError(t, err)
	require.Len(t, first.Added, 2)

	second, err := env.library.Add(ctx, []domain.TrackRecord{
		{Path: "/music/b.mp3", Title: "B again"},
		{Path: "/music/./c.mp3", Title: "C"},
		{Path: "/music/c.mp3", Title: "C again"},
	})
	require.NoError(t, err)
	assert.Len(t, second.Added, 1)
	require.Len(t, second.Conflicts, 2)
	assert.Equal(t, first.Added[1], second.Conflicts[0].ExistingID)
	assert.True(t, errors.Is(second.Conflicts[0], domain.ErrDuplicatePath))

	assert.Equal(t, 3, env.library.Len())

	added := env.events.of(domain.EventTracksAdded)
	require.Len(t, added, 2)
	assert.Equal(t, 2, added[1].(domain.TracksAddedEvent).Conflicts)
}

func TestLibraryService_CaseInsensitivePaths(t *testing.T) {
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()
	lib := NewLibraryService(log, memory.NewTrackRepository(memory.NewStore(), log), newFakeExtractor(), bus,
		LibraryOptions{PathCompare: normalize.CaseInsensitive})

	result, err := lib.Add(context.Background(), []domain.TrackRecord{
		{Path: "/Music/Song.mp3"},
		{Path: "/music/song.MP3"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
	assert.Len(t, result.Conflicts, 1)

	_, ok := lib.GetByPath("/MUSIC/SONG.mp3")
	assert.True(t, ok)
}

func TestLibraryService_SortedViewIsStable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	records := []domain.TrackRecord{
		{Path: "/1.mp3", Title: "Zeta", Album: "Same", Year: 2001},
		{Path: "/2.mp3", Title: "alpha", Album: "Same", Year: 1999},
		{Path: "/3.mp3", Title: "Émile", Album: "Other", Year: 2001},
		{Path: "/4.mp3", Title: "beta", Album: "Same", Year: 2001},
	}
	result, err := env.library.Add(ctx, records)
	require.NoError(t, err)
	ids := result.Added

	titles := func(rs []domain.TrackRecord) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Title
		}
		return out
	}

	// Accents and case are ignored
	assert.Equal(t, []string{"alpha", "beta", "Émile", "Zeta"}, titles(env.library.SortedView(SortTitle, Ascending)))
	assert.Equal(t, []string{"Zeta", "Émile", "beta", "alpha"}, titles(env.library.SortedView(SortTitle, Descending)))

	// Ties keep insertion order in both directions
	byAlbum := env.library.SortedView(SortAlbum, Ascending)
	assert.Equal(t, []string{ids[2], ids[0], ids[1], ids[3]}, []string{byAlbum[0].ID, byAlbum[1].ID, byAlbum[2].ID, byAlbum[3].ID})

	byYear := env.library.SortedView(SortYear, Descending)
	assert.Equal(t, []string{"Zeta", "Émile", "beta", "alpha"}, titles(byYear))

	// The insertion order itself is untouched
	assert.Equal(t, ids, env.library.IDs())
}

func TestLibraryService_SearchIgnoresAccents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.library.Add(ctx, []domain.TrackRecord{
		{Path: "/1.mp3", Title: "Café del Mar", Album: "Ibiza", Artist: []string{"Energy 52"}},
		{Path: "/2.mp3", Title: "Jóga", Album: "Homogenic", Artist: []string{"Björk"}},
		{Path: "/3.mp3", Title: "Teardrop", Album: "Mezzanine", Artist: []string{"Massive Attack"}},
	})
	require.NoError(t, err)

	tests := []struct {
		query string
		want  []string
	}{
		{"cafe", []string{"Café del Mar"}},
		{"CAFÉ", []string{"Café del Mar"}},
		{"bjork", []string{"Jóga"}},
		{"mezz", []string{"Teardrop"}},
		{"  ", []string{"Café del Mar", "Jóga", "Teardrop"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got []string
			for _, r := range env.library.Search(tt.query) {
				got = append(got, r.Title)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLibraryService_RemoveCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ids := addTracks(t, env.library, "a", "b", "c")
	playlist, err := env.playlists.Create(ctx, "Mix", ids)
	require.NoError(t, err)
	env.queue.Start(ids, ids[1])

	require.NoError(t, env.library.Remove(ctx, []string{ids[1], "unknown"}))

	assert.Equal(t, 2, env.library.Len())
	assert.False(t, env.library.Contains(ids[1]))

	got, err := env.playlists.Get(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2]}, got.TrackIDs)

	// The removed track was playing: the next one takes its place
	state := env.queue.State()
	assert.Equal(t, []string{ids[0], ids[2]}, state.Sequence)
	current, ok := state.CurrentID()
	require.True(t, ok)
	assert.Equal(t, ids[2], current)

	removed := env.events.of(domain.EventTracksRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, []string{ids[1]}, removed[0].(domain.TracksRemovedEvent).IDs)

	stored, err := env.trackRepo.Find(ctx, ports.TrackQuery{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestLibraryService_IngestSkipsFailures(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.fail["/music/broken.mp3"] = true

	result, err := env.library.Ingest(context.Background(), []string{
		"/music/one.mp3", "/music/broken.mp3", "/music/two.mp3",
	})
	require.NoError(t, err)

	assert.Len(t, result.Added, 2)
	assert.Equal(t, []string{"/music/broken.mp3"}, result.Failed)

	failed := env.events.of(domain.EventExtractionFailed)
	require.Len(t, failed, 1)
	e := failed[0].(domain.ExtractionFailedEvent)
	assert.Equal(t, "/music/broken.mp3", e.Path)

	var extractionErr *domain.ExtractionError
	assert.True(t, errors.As(e.Error, &extractionErr))
}

func TestLibraryService_IngestBatches(t *testing.T) {
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()
	events := newRecorder(bus)
	lib := NewLibraryService(log, memory.NewTrackRepository(memory.NewStore(), log), newFakeExtractor(), bus,
		LibraryOptions{BatchSize: 2, Workers: 2})

	paths := make([]string, 5)
	for i := range paths {
		paths[i] = fmt.Sprintf("/music/%d.mp3", i)
	}
	result, err := lib.Ingest(context.Background(), paths)
	require.NoError(t, err)
	assert.Len(t, result.Added, 5)

	// Records keep path order regardless of worker completion order
	all := lib.All()
	for i, r := range all {
		assert.Equal(t, paths[i], r.Path)
	}

	progress := events.of(domain.EventScanProgress)
	require.Len(t, progress, 3)
	last := progress[2].(domain.ScanProgressEvent).Progress
	assert.Equal(t, 5, last.FilesScanned)
	assert.Equal(t, 5, last.TotalFiles)
	assert.Equal(t, 5, last.TracksFound)
}

func TestLibraryService_IngestCancellation(t *testing.T) {
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor := newFakeExtractor()
	extractor.onPath = func(path string) {
		if path == "/music/2.mp3" {
			cancel()
		}
	}
	lib := NewLibraryService(log, memory.NewTrackRepository(memory.NewStore(), log), extractor, bus,
		LibraryOptions{BatchSize: 2, Workers: 1})

	paths := []string{"/music/0.mp3", "/music/1.mp3", "/music/2.mp3", "/music/3.mp3", "/music/4.mp3", "/music/5.mp3"}
	result, err := lib.Ingest(ctx, paths)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrScanCancelled)
	assert.ErrorIs(t, err, context.Canceled)

	// The first batch and the file in flight are committed; the rest is skipped
	assert.Len(t, result.Added, 3)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 3, lib.Len())
}

func TestLibraryService_PersistenceFailureKeepsMemory(t *testing.T) {
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()
	repo := failingTrackRepo{memory.NewTrackRepository(memory.NewStore(), log)}
	lib := NewLibraryService(log, repo, newFakeExtractor(), bus, LibraryOptions{})

	result, err := lib.Add(context.Background(), []domain.TrackRecord{{Path: "/a.mp3", Title: "A"}})

	var persistErr *domain.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.ErrorIs(t, err, errStorage)
	assert.Len(t, result.Added, 1)
	assert.Equal(t, 1, lib.Len())

	err = lib.IncrementPlayCount(context.Background(), result.Added[0])
	assert.ErrorIs(t, err, errStorage)
	record, getErr := lib.Get(result.Added[0])
	require.NoError(t, getErr)
	assert.Equal(t, 1, record.PlayCount)
}

func TestLibraryService_EditUpdatesSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := addTracks(t, env.library, "old")

	title := "Ñandú"
	updated, err := env.library.Edit(ctx, ids[0], TrackEdit{Title: &title, Artist: []string{"Señor"}})
	require.NoError(t, err)
	assert.Equal(t, "Ñandú", updated.Title)
	assert.Equal(t, "nandu", updated.Search.Title)
	assert.Equal(t, []string{"senor"}, updated.Search.Artist)

	assert.Len(t, env.library.Search("nandu"), 1)
	assert.Empty(t, env.library.Search("old"))

	_, err = env.library.Edit(ctx, "missing", TrackEdit{Title: &title})
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)

	require.Len(t, env.events.of(domain.EventTrackUpdated), 1)
}

func TestLibraryService_ResetAndResync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := addTracks(t, env.library, "a", "b")
	_, err := env.playlists.Create(ctx, "Mix", ids)
	require.NoError(t, err)
	require.NoError(t, env.library.IncrementPlayCount(ctx, ids[0]))

	// A fresh library over the same storage sees the same records
	log := logger.NewTestLogger()
	reloaded := NewLibraryService(log, env.trackRepo, newFakeExtractor(), env.bus, LibraryOptions{})
	require.NoError(t, reloaded.Resync(ctx))
	assert.Equal(t, ids, reloaded.IDs())
	record, err := reloaded.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, 1, record.PlayCount)
	assert.Equal(t, "a", record.Search.Title)

	env.queue.Start(ids, ids[0])
	require.NoError(t, env.library.Reset(ctx))

	assert.Equal(t, 0, env.library.Len())
	assert.Empty(t, env.playlists.List())
	assert.Empty(t, env.queue.State().Sequence)
	assert.Len(t, env.events.of(domain.EventLibraryReset), 1)

	require.NoError(t, reloaded.Resync(ctx))
	assert.Equal(t, 0, reloaded.Len())
}

func TestLibraryService_ScanPaths(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "one.wav"), 8000, 8000)
	testutil.WriteWAV(t, filepath.Join(dir, "sub", "two.wav"), 8000, 8000)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not audio"), 0o644))

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()
	events := newRecorder(bus)
	lib := NewLibraryService(log, memory.NewTrackRepository(memory.NewStore(), log), realExtractor(), bus,
		LibraryOptions{PathCompare: normalize.CaseSensitive})

	// The nested folder is covered by its parent and must not be scanned twice
	result, err := lib.ScanPaths(context.Background(), []string{dir, filepath.Join(dir, "sub"), dir})
	require.NoError(t, err)
	assert.Len(t, result.Added, 2)
	assert.Empty(t, result.Conflicts)
	assert.False(t, lib.IsScanning())

	started := events.of(domain.EventScanStarted)
	require.Len(t, started, 1)
	assert.Equal(t, []string{dir}, started[0].(domain.ScanStartedEvent).Paths)

	completed := events.of(domain.EventScanCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, 2, completed[0].(domain.ScanCompletedEvent).Added)

	// Scanning again only produces conflicts
	again, err := lib.ScanPaths(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, again.Added)
	assert.Len(t, again.Conflicts, 2)

	assert.Error(t, lib.CancelScan())
}
