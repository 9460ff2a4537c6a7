package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/normalize"
	"github.com/tejashwikalptaru/tunedeck/internal/testutil"
)

func TestPlaylistService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := addTracks(t, env.library, "a", "b")

	_, err := env.playlists.Create(ctx, "   ", ids)
	var validationErr *domain.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	playlist, err := env.playlists.Create(ctx, " Mix ", []string{ids[1], "unknown", ids[0], ids[1]})
	require.NoError(t, err)
	assert.Equal(t, "Mix", playlist.Name)
	assert.Equal(t, []string{ids[1], ids[0]}, playlist.TrackIDs)
	assert.NotEmpty(t, playlist.ID)

	updated := env.events.of(domain.EventPlaylistUpdated)
	require.Len(t, updated, 1)
	assert.Equal(t, playlist.ID, updated[0].(domain.PlaylistUpdatedEvent).Playlist.ID)
}

func TestPlaylistService_AddTracksRacingRemoval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	playlist, err := env.playlists.Create(ctx, "Mix", nil)
	require.NoError(t, err)

	for i := range 100 {
		id := addTracks(t, env.library, fmt.Sprintf("track-%d", i))[0]

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = env.library.Remove(ctx, []string{id})
		}()
		go func() {
			defer wg.Done()
			_, _ = env.playlists.AddTracks(ctx, playlist.ID, []string{id})
		}()
		wg.Wait()

		got, err := env.playlists.Get(playlist.ID)
		require.NoError(t, err)
		require.NotContains(t, got.TrackIDs, id, "removed track left in playlist (round %d)", i)
	}

	stored, err := env.playlists.repo.Find(ctx, playlist.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].TrackIDs)
}

func TestPlaylistService_AddAndRemoveTracks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := addTracks(t, env.library, "a", "b", "c")

	playlist, err := env.playlists.Create(ctx, "Mix", ids[:1])
	require.NoError(t, err)

	playlist, err = env.playlists.AddTracks(ctx, playlist.ID, []string{ids[0], ids[2], "unknown", ids[1], ids[2]})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2], ids[1]}, playlist.TrackIDs)

	playlist, err = env.playlists.RemoveTracks(ctx, playlist.ID, []string{ids[2], "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[1]}, playlist.TrackIDs)

	_, err = env.playlists.AddTracks(ctx, "missing", ids)
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
}

func TestPlaylistService_Reorder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := addTracks(t, env.library, "a", "b", "c", "d", "e")
	a, b, c, d, e := ids[0], ids[1], ids[2], ids[3], ids[4]

	tests := []struct {
		name     string
		dragged  []string
		target   string
		position domain.DropPosition
		want     []string
	}{
		{"above first keeps playlist order", []string{d, b}, a, domain.DropAbove, []string{b, d, a, c, e}},
		{"below last", []string{a, c}, e, domain.DropBelow, []string{b, d, e, a, c}},
		{"single row down", []string{a}, c, domain.DropBelow, []string{b, c, a, d, e}},
		{"onto a dragged row", []string{b, c}, c, domain.DropAbove, ids},
		{"unknown rows", []string{"x"}, a, domain.DropAbove, ids},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playlist, err := env.playlists.Create(ctx, tt.name, ids)
			require.NoError(t, err)

			got, err := env.playlists.Reorder(ctx, playlist.ID, tt.dragged, tt.target, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.TrackIDs)
		})
	}
}

func TestPlaylistService_ListSortsByName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	env.playlists.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, name := range []string{"Zen", "ábc", "Bcd", "abc"} {
		_, err := env.playlists.Create(ctx, name, nil)
		require.NoError(t, err)
	}

	var names []string
	for _, p := range env.playlists.List() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"ábc", "abc", "Bcd", "Zen"}, names)
}

func TestPlaylistService_RenameAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	playlist, err := env.playlists.Create(ctx, "Old", nil)
	require.NoError(t, err)

	renamed, err := env.playlists.Rename(ctx, playlist.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", renamed.Name)

	_, err = env.playlists.Rename(ctx, playlist.ID, "")
	assert.Error(t, err)

	require.NoError(t, env.playlists.Delete(ctx, playlist.ID))
	_, err = env.playlists.Get(playlist.ID)
	assert.ErrorIs(t, err, domain.ErrPlaylistNotFound)
	assert.ErrorIs(t, env.playlists.Delete(ctx, playlist.ID), domain.ErrPlaylistNotFound)
	assert.Len(t, env.events.of(domain.EventPlaylistDeleted), 1)
}

func TestPlaylistService_Resync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ids := addTracks(t, env.library, "a", "b")

	playlist, err := env.playlists.Create(ctx, "Mix", ids)
	require.NoError(t, err)

	// Storage written behind the service's back, and a track gone from the library
	log := logger.NewTestLogger()
	reloaded := NewPlaylistService(log, memory.NewPlaylistRepository(env.store, log), env.library, env.bus)
	require.NoError(t, env.library.Remove(ctx, ids[:1]))
	require.NoError(t, reloaded.Resync(ctx))

	got, err := reloaded.Get(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mix", got.Name)
	assert.Equal(t, []string{ids[1]}, got.TrackIDs)
}

func TestPlaylistService_M3URoundTrip(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(dir, "songs", "one.wav"), 8000, 8000*65)
	testutil.WriteWAV(t, filepath.Join(dir, "two.wav"), 8000, 8000)

	m3u := filepath.Join(dir, "Road Trip.m3u")
	content := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:65,Unknown artist - one.wav",
		"songs/one.wav",
		"",
		filepath.Join(dir, "two.wav"),
		"missing.wav",
	}, "\n")
	require.NoError(t, os.WriteFile(m3u, []byte(content), 0o644))

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(nil)
	defer bus.Close()
	store := memory.NewStore()
	lib := NewLibraryService(log, memory.NewTrackRepository(store, log), realExtractor(), bus,
		LibraryOptions{PathCompare: normalize.CaseSensitive})
	playlists := NewPlaylistService(log, memory.NewPlaylistRepository(store, log), lib, bus)

	ctx := context.Background()
	playlist, err := playlists.ImportM3U(ctx, m3u)
	require.NoError(t, err)

	assert.Equal(t, "Road Trip", playlist.Name)
	require.Len(t, playlist.TrackIDs, 2)
	assert.Equal(t, 2, lib.Len())

	tracks, err := playlists.Tracks(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "songs", "one.wav"), tracks[0].Path)
	assert.Equal(t, filepath.Join(dir, "two.wav"), tracks[1].Path)

	// Importing again reuses the indexed tracks
	again, err := playlists.ImportM3U(ctx, m3u)
	require.NoError(t, err)
	assert.Equal(t, playlist.TrackIDs, again.TrackIDs)
	assert.Equal(t, 2, lib.Len())

	var buf bytes.Buffer
	require.NoError(t, playlists.ExportM3U(playlist.ID, &buf))
	want := strings.Join([]string{
		"#EXTM3U",
		"#EXTINF:65,Unknown artist - one.wav",
		filepath.Join(dir, "songs", "one.wav"),
		"#EXTINF:1,Unknown artist - two.wav",
		filepath.Join(dir, "two.wav"),
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())

	_, err = playlists.ImportM3U(ctx, filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)
	_, err = playlists.ImportM3U(ctx, filepath.Join(dir, "absent.m3u"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}
