package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// PlayerService bridges the queue and the playback device.
// It follows queue events to load, play, pause and stop the device, and follows
// device track-end events to count the play and advance the queue.
//
// Device errors raised inside event handlers are kept and returned by the next
// command that caused them.
type PlayerService struct {
	// Dependencies (injected)
	library *LibraryService
	queue   *QueueService
	device  ports.PlaybackDevice
	repo    ports.QueueRepository
	bus     ports.EventBus
	logger  *slog.Logger

	// State
	rate     float64
	loadedID string
	pending  []error
	subs     []domain.SubscriptionID

	// Concurrency control
	mu sync.Mutex
}

// NewPlayerService creates a new player service and subscribes it to queue and device events.
func NewPlayerService(
	logger *slog.Logger,
	library *LibraryService,
	queue *QueueService,
	device ports.PlaybackDevice,
	repo ports.QueueRepository,
	bus ports.EventBus,
) *PlayerService {
	s := &PlayerService{
		library: library,
		queue:   queue,
		device:  device,
		repo:    repo,
		bus:     bus,
		logger:  logger.With(slog.String("service", "PlayerService")),
		rate:    1.0,
	}

	s.subs = []domain.SubscriptionID{
		bus.Subscribe(domain.EventNowPlaying, s.handleNowPlaying),
		bus.Subscribe(domain.EventStatusChanged, s.handleStatusChanged),
		bus.Subscribe(domain.EventTrackEnded, s.handleTrackEnded),
	}
	return s
}

// Start plays source from startID.
func (s *PlayerService) Start(source []string, startID string) error {
	s.queue.Start(source, startID)
	return s.takeErr()
}

// PlayPause toggles between playing and paused.
func (s *PlayerService) PlayPause() error {
	s.queue.PlayPause()
	return s.takeErr()
}

// Next skips to the next track.
func (s *PlayerService) Next() error {
	s.queue.Next()
	return s.takeErr()
}

// Previous goes back to the previous track.
func (s *PlayerService) Previous() error {
	s.queue.Previous()
	return s.takeErr()
}

// Stop stops playback.
func (s *PlayerService) Stop() error {
	s.queue.Stop()
	return s.takeErr()
}

// Seek moves the position within the loaded track.
func (s *PlayerService) Seek(seconds float64) error {
	if seconds < 0 {
		return domain.NewValidationError("position", seconds, "position cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadedID == "" {
		return domain.ErrNoTrackLoaded
	}
	return s.device.Seek(seconds)
}

// SetPlaybackRate sets the speed multiplier, kept across tracks.
func (s *PlayerService) SetPlaybackRate(multiplier float64) error {
	if multiplier < domain.MinPlaybackRate || multiplier > domain.MaxPlaybackRate {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRate, multiplier)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rate = multiplier
	if s.loadedID == "" {
		return nil
	}
	return s.device.SetRate(multiplier)
}

// PlaybackRate returns the speed multiplier.
func (s *PlayerService) PlaybackRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Position returns the playback position in seconds, or 0 when nothing is loaded.
func (s *PlayerService) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadedID == "" {
		return 0
	}
	return s.device.Position()
}

// Loaded returns the id of the track loaded in the device.
func (s *PlayerService) Loaded() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedID, s.loadedID != ""
}

// SaveQueue persists the queue state.
func (s *PlayerService) SaveQueue(ctx context.Context) error {
	if err := s.repo.SaveQueue(ctx, s.queue.State()); err != nil {
		return domain.NewPersistenceError("save", "queue", "failed to save queue", err)
	}
	return nil
}

// RestoreQueue loads the saved queue, dropping ids that left the library, and leaves
// it paused on its current track.
func (s *PlayerService) RestoreQueue(ctx context.Context) error {
	saved, err := s.repo.LoadQueue(ctx)
	if err != nil {
		return domain.NewPersistenceError("load", "queue", "failed to load queue", err)
	}

	current, hasCurrent := saved.CurrentID()
	gone := func(id string) bool { return !s.library.Contains(id) }
	saved.Sequence = slices.DeleteFunc(saved.Sequence, gone)
	saved.Origin = slices.DeleteFunc(saved.Origin, gone)

	saved.Cursor = domain.NoCursor
	if hasCurrent {
		saved.Cursor = slices.Index(saved.Sequence, current)
	}

	s.queue.Restore(saved)
	s.logger.Info("queue restored", slog.Int("tracks", len(saved.Sequence)), slog.Int("cursor", saved.Cursor))
	return s.takeErr()
}

// Shutdown saves the queue, unsubscribes and releases the device.
func (s *PlayerService) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.SaveQueue(ctx); err != nil {
		errs = append(errs, err)
	}

	for _, id := range s.subs {
		s.bus.Unsubscribe(id)
	}
	s.subs = nil

	s.mu.Lock()
	if s.loadedID != "" {
		if err := s.device.Stop(); err != nil {
			errs = append(errs, err)
		}
		s.loadedID = ""
	}
	s.mu.Unlock()

	if err := s.device.Close(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Debug("player shut down")
	return errors.Join(errs...)
}

func (s *PlayerService) handleNowPlaying(event domain.Event) {
	e, ok := event.(domain.NowPlayingEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.TrackID == "" {
		s.unloadLocked()
		return
	}

	record, err := s.library.Get(e.TrackID)
	if err != nil {
		s.fail("lookup", err)
		s.unloadLocked()
		return
	}

	if err := s.device.Load(record.Path); err != nil {
		s.fail("load", err)
		s.loadedID = ""
		return
	}
	s.loadedID = record.ID

	if err := s.device.SetRate(s.rate); err != nil {
		s.fail("set rate", err)
	}
	if s.queue.State().Status == domain.StatusPlaying {
		if err := s.device.Play(); err != nil {
			s.fail("play", err)
		}
	}
	s.logger.Debug("track loaded", slog.String("id", record.ID), slog.String("path", record.Path))
}

func (s *PlayerService) handleStatusChanged(event domain.Event) {
	e, ok := event.(domain.StatusChangedEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadedID == "" {
		return
	}

	var err error
	switch e.Status {
	case domain.StatusPlaying:
		err = s.device.Play()
	case domain.StatusPaused:
		err = s.device.Pause()
	case domain.StatusStopped:
		s.unloadLocked()
	}
	if err != nil {
		s.fail(e.Status.String(), err)
	}
}

func (s *PlayerService) handleTrackEnded(event domain.Event) {
	if _, ok := event.(domain.TrackEndedEvent); !ok {
		return
	}

	s.mu.Lock()
	id := s.loadedID
	s.mu.Unlock()

	if id != "" {
		if err := s.library.IncrementPlayCount(context.Background(), id); err != nil {
			s.logger.Warn("failed to count play", slog.String("id", id), slog.Any("error", err))
		}
	}

	// Runs outside the lock: Next publishes NowPlaying, handled above
	s.queue.Next()
}

func (s *PlayerService) unloadLocked() {
	if s.loadedID == "" {
		return
	}
	if err := s.device.Stop(); err != nil {
		s.fail("stop", err)
	}
	s.loadedID = ""
}

// fail records a device error for the next command. Caller holds mu.
func (s *PlayerService) fail(op string, err error) {
	s.logger.Error("playback device error", slog.String("op", op), slog.Any("error", err))
	s.pending = append(s.pending, fmt.Errorf("%s: %w", op, err))
}

func (s *PlayerService) takeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := errors.Join(s.pending...)
	s.pending = nil
	return err
}
