// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tejashwikalptaru/tunedeck/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/codec"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/memory"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/repository/sqlite"
	"github.com/tejashwikalptaru/tunedeck/internal/adapter/watcher"
	"github.com/tejashwikalptaru/tunedeck/internal/config"
	"github.com/tejashwikalptaru/tunedeck/internal/logger"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
	"github.com/tejashwikalptaru/tunedeck/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Loading the previous session and saving it on shutdown
// - Providing a clean entry point for the commands
type Application struct {
	// Core dependencies
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	eventBus ports.FilteringEventBus
	device   ports.PlaybackDevice
	db       *sqlite.DB // nil when running in memory

	// Repositories
	trackRepo    ports.TrackRepository
	playlistRepo ports.PlaylistRepository
	queueRepo    ports.QueueRepository

	// Services
	libraryService  *service.LibraryService
	queueService    *service.QueueService
	playlistService *service.PlaylistService
	playerService   *service.PlayerService

	shutdownOnce sync.Once
	shutdownErr  error
}

// Options holds what NewApplication needs beyond the config file.
type Options struct {
	// Config is the loaded configuration (defaults when nil)
	Config *config.Config

	// Logger overrides the logger built from Config
	Logger *slog.Logger

	// InMemory keeps everything in memory instead of the database
	InMemory bool

	// Device overrides the playback device (a mock device by default)
	Device ports.PlaybackDevice

	// Rand seeds the queue shuffle (random when nil)
	Rand *rand.Rand
}

// NewApplication creates a new application with all dependencies wired and the
// previous session loaded.
func NewApplication(ctx context.Context, opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadFrom(); err != nil {
			return nil, err
		}
	}

	app := &Application{config: cfg, logger: opts.Logger}

	// Step 1: Create logger
	if app.logger == nil {
		app.logger = logger.NewLogger(cfg.Logger())
	}
	app.logger.Info("initializing application", slog.String("version", GetVersionInfo().Version))

	// Step 2: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger.With(slog.String("component", "eventbus")))

	// Step 3: Create repositories
	if err := app.openRepositories(opts.InMemory); err != nil {
		return nil, err
	}

	// Step 4: Create the playback device
	app.device = opts.Device
	if app.device == nil {
		app.device = mock.NewDevice(app.eventBus, app.logger.With(slog.String("device", "mock")))
	}

	// Step 5: Create services (with dependency injection)
	extractor := service.NewMetadataExtractor(app.logger, codec.NewTagReader(), codec.NewWAVReader())

	app.libraryService = service.NewLibraryService(app.logger, app.trackRepo, extractor, app.eventBus, service.LibraryOptions{
		BatchSize:   cfg.Library.BatchSize,
		Workers:     cfg.Library.Workers,
		PathCompare: cfg.PathCompare(),
	})
	app.queueService = service.NewQueueService(app.logger, app.eventBus, opts.Rand)
	app.playlistService = service.NewPlaylistService(app.logger, app.playlistRepo, app.libraryService, app.eventBus)
	app.playerService = service.NewPlayerService(
		app.logger,
		app.libraryService,
		app.queueService,
		app.device,
		app.queueRepo,
		app.eventBus,
	)

	// Removals cascade to every holder of track ids
	app.libraryService.Attach(app.playlistService, app.queueService)

	// Step 6: Load saved state
	if err := app.loadSavedState(ctx); err != nil {
		app.closeStorage()
		return nil, err
	}

	return app, nil
}

func (a *Application) openRepositories(inMemory bool) error {
	if inMemory {
		store := memory.NewStore()
		a.trackRepo = memory.NewTrackRepository(store, a.logger)
		a.playlistRepo = memory.NewPlaylistRepository(store, a.logger)
		a.queueRepo = memory.NewQueueRepository(store)
		return nil
	}

	path := a.config.Database.Path
	if path == "" {
		var err error
		if path, err = sqlite.DefaultPath(); err != nil {
			return fmt.Errorf("failed to resolve database path: %w", err)
		}
	}

	db, err := sqlite.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.logger.Debug("database opened", slog.String("path", path))

	a.db = db
	a.trackRepo = sqlite.NewTrackRepository(db, a.logger)
	a.playlistRepo = sqlite.NewPlaylistRepository(db, a.logger)
	a.queueRepo = sqlite.NewQueueRepository(db)
	return nil
}

// loadSavedState restores the library, the playlists and the queue from the previous session.
func (a *Application) loadSavedState(ctx context.Context) error {
	if err := a.libraryService.Resync(ctx); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}
	if err := a.playlistService.Resync(ctx); err != nil {
		return fmt.Errorf("failed to load playlists: %w", err)
	}

	if err := a.playerService.RestoreQueue(ctx); err != nil {
		// Non-fatal - just log and continue
		a.logger.Warn("failed to restore queue", slog.Any("error", err))
	}

	// Configured modes apply to a fresh queue; a restored one keeps its own
	if len(a.queueService.State().Sequence) == 0 {
		a.queueService.SetRepeat(a.config.RepeatMode())
		a.queueService.SetShuffle(a.config.Player.Shuffle)
	}
	if err := a.playerService.SetPlaybackRate(a.config.Player.PlaybackRate); err != nil {
		a.logger.Warn("failed to set playback rate", slog.Any("error", err))
	}
	return nil
}

// Scan ingests the given folders, or the configured sources when none are given.
func (a *Application) Scan(ctx context.Context, paths []string) (service.IngestResult, error) {
	if len(paths) == 0 {
		paths = a.config.Library.Sources
	}
	if len(paths) == 0 {
		return service.IngestResult{}, errors.New("no folders given and no library.sources configured")
	}
	return a.libraryService.ScanPaths(ctx, paths)
}

// Watch follows the given folders, or the configured sources, until ctx is done.
func (a *Application) Watch(ctx context.Context, paths []string, debounce time.Duration) error {
	if len(paths) == 0 {
		paths = a.config.Library.Sources
	}
	if len(paths) == 0 {
		return errors.New("no folders given and no library.sources configured")
	}

	w, err := watcher.New(a.logger, a.libraryService, debounce)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	for _, path := range paths {
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}
	a.logger.Info("watching library folders", slog.Any("folders", paths))

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the application. Calling it again is a no-op.
func (a *Application) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		var errs []error

		// Shutdown services (in reverse order of creation)
		if err := a.libraryService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("library: %w", err))
		}
		if err := a.playerService.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("player: %w", err))
		}
		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
		if err := a.closeStorage(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

func (a *Application) closeStorage() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// Config returns the configuration in use.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// EventBus returns the event bus.
func (a *Application) EventBus() ports.FilteringEventBus { return a.eventBus }

// Library returns the library service.
func (a *Application) Library() *service.LibraryService { return a.libraryService }

// Queue returns the queue service.
func (a *Application) Queue() *service.QueueService { return a.queueService }

// Playlists returns the playlist service.
func (a *Application) Playlists() *service.PlaylistService { return a.playlistService }

// Player returns the player service.
func (a *Application) Player() *service.PlayerService { return a.playerService }
