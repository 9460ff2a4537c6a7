package app

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/tunedeck/internal/config"
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom()
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(t.TempDir(), "library.db")
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, inMemory bool) *Application {
	t.Helper()
	app, err := NewApplication(context.Background(), Options{
		Config:   cfg,
		Logger:   logger.NewTestLogger(),
		InMemory: inMemory,
	})
	require.NoError(t, err)
	return app
}

func TestNewApplication(t *testing.T) {
	app := newTestApp(t, testConfig(t), true)

	// Verify all services were created
	assert.NotNil(t, app.Library())
	assert.NotNil(t, app.Queue())
	assert.NotNil(t, app.Playlists())
	assert.NotNil(t, app.Player())
	assert.NotNil(t, app.EventBus())
	assert.NotNil(t, app.Logger())
	assert.Equal(t, 0, app.Library().Len())

	// Cleanup
	assert.NoError(t, app.Shutdown(context.Background()))

	// Shutdown again should not panic
	assert.NoError(t, app.Shutdown(context.Background()))
}

func TestApplication_ConfiguredModes(t *testing.T) {
	cfg := testConfig(t)
	cfg.Player.Repeat = "all"
	cfg.Player.Shuffle = true
	cfg.Player.PlaybackRate = 2.0

	app := newTestApp(t, cfg, true)
	defer app.Shutdown(context.Background())

	state := app.Queue().State()
	assert.Equal(t, domain.RepeatAll, state.Repeat)
	assert.True(t, state.Shuffle)
	assert.Equal(t, 2.0, app.Player().PlaybackRate())
}

func TestApplication_ScanRequiresFolders(t *testing.T) {
	app := newTestApp(t, testConfig(t), true)
	defer app.Shutdown(context.Background())

	_, err := app.Scan(context.Background(), nil)
	assert.Error(t, err)
	assert.Error(t, app.Watch(context.Background(), nil, 0))
}

func TestApplication_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	music := t.TempDir()
	testutil.WriteWAV(t, filepath.Join(music, "a.wav"), 8000, 8000)
	testutil.WriteWAV(t, filepath.Join(music, "b.wav"), 8000, 16000)

	cfg := testConfig(t)
	cfg.Library.Sources = []string{music}

	first := newTestApp(t, cfg, false)
	result, err := first.Scan(ctx, nil)
	require.NoError(t, err)
	require.Len(t, result.Added, 2)

	ids := first.Library().IDs()
	playlist, err := first.Playlists().Create(ctx, "Mix", ids)
	require.NoError(t, err)

	require.NoError(t, first.Player().Start(ids, ids[1]))
	first.Queue().SetRepeat(domain.RepeatOne)
	require.NoError(t, first.Shutdown(ctx))

	second := newTestApp(t, cfg, false)
	defer second.Shutdown(ctx)

	assert.Equal(t, 2, second.Library().Len())
	assert.ElementsMatch(t, ids, second.Library().IDs())

	got, err := second.Playlists().Get(playlist.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mix", got.Name)
	assert.Equal(t, ids, got.TrackIDs)

	current, ok := second.Queue().Current()
	require.True(t, ok)
	assert.Equal(t, ids[1], current)
	assert.Equal(t, domain.RepeatOne, second.Queue().State().Repeat)
	assert.Equal(t, domain.StatusPaused, second.Queue().State().Status)

	loaded, ok := second.Player().Loaded()
	assert.True(t, ok)
	assert.Equal(t, ids[1], loaded)
}

func TestApplication_Watch(t *testing.T) {
	defer testutil.VerifyNoLeaks(t, testutil.IgnoreWatcherGoroutines()...)

	music := t.TempDir()
	app := newTestApp(t, testConfig(t), true)
	defer app.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Watch(ctx, []string{music}, 10*time.Millisecond) }()

	song := filepath.Join(music, "song.wav")
	testutil.WriteWAV(t, song, 8000, 8000)
	require.Eventually(t, func() bool {
		_, ok := app.Library().GetByPath(song)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestVersionInfo(t *testing.T) {
	info := VersionInfo{Version: "1.2.0", Commit: "abc123", BuildTime: "today"}
	assert.Equal(t, "tunedeck 1.2.0 (commit: abc123, built: today)", info.String())

	assert.Equal(t, "tunedeck dev (commit: unknown, built: unknown)", VersionInfo{Version: "dev"}.String())

	stamped := VersionInfo{Version: "dev"}.withBuildSettings([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-01-02T15:04:05Z"},
		{Key: "vcs.modified", Value: "true"},
	})
	assert.Equal(t, "tunedeck dev (commit: 0123456789ab+dirty, built: 2026-01-02T15:04:05Z)", stamped.String())

	linked := VersionInfo{Commit: "abc123"}.withBuildSettings([]debug.BuildSetting{{Key: "vcs.revision", Value: "zzz"}})
	assert.Equal(t, "abc123", linked.Commit)
}
