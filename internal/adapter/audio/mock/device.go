// Package mock provides a mock implementation of the PlaybackDevice port.
// It simulates playback in memory without decoding or outputting audio, and is used
// for testing services and by the CLI.
package mock

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/tunedeck/internal/domain"
	"github.com/tejashwikalptaru/tunedeck/internal/ports"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("mock device failure")

// DefaultDuration is the simulated length of every loaded file, in seconds.
const DefaultDuration = 180.0

// Device is a mock implementation of ports.PlaybackDevice.
// When simulated playback reaches the end of a file it publishes domain.TrackEndedEvent.
//
// Thread-safety: This implementation is thread-safe.
type Device struct {
	// Dependencies
	bus    ports.EventBus
	logger *slog.Logger

	// Playback state
	path     string
	status   domain.PlaybackStatus
	position float64
	duration float64
	rate     float64
	closed   bool
	history  []string

	// Behavior configuration (for testing error scenarios)
	failLoad bool
	failPlay bool

	mu sync.RWMutex
}

// NewDevice creates a new mock device publishing on bus.
func NewDevice(bus ports.EventBus, logger *slog.Logger) *Device {
	return &Device{
		bus:      bus,
		logger:   logger,
		duration: DefaultDuration,
		rate:     1.0,
		status:   domain.StatusStopped,
	}
}

// SetFailLoad configures the mock to fail loading files (for testing).
func (d *Device) SetFailLoad(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failLoad = fail
}

// SetFailPlay configures the mock to fail playback (for testing).
func (d *Device) SetFailPlay(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failPlay = fail
}

// Load prepares a file for playback.
func (d *Device) Load(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failLoad {
		return ErrInjected
	}
	if path == "" {
		return domain.ErrInvalidFilePath
	}

	d.path = path
	d.position = 0
	d.duration = DefaultDuration
	d.status = domain.StatusStopped
	d.history = append(d.history, path)
	d.debug("loaded", path)
	return nil
}

// Play starts or resumes playback.
func (d *Device) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failPlay {
		return ErrInjected
	}
	if d.path == "" {
		return domain.ErrNoTrackLoaded
	}
	d.status = domain.StatusPlaying
	return nil
}

// Pause pauses playback.
func (d *Device) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.path == "" {
		return domain.ErrNoTrackLoaded
	}
	d.status = domain.StatusPaused
	return nil
}

// Stop stops playback and unloads the file.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.path = ""
	d.position = 0
	d.status = domain.StatusStopped
	return nil
}

// Seek moves the playback position.
func (d *Device) Seek(seconds float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.path == "" {
		return domain.ErrNoTrackLoaded
	}
	if seconds < 0 || seconds > d.duration {
		return domain.NewValidationError("position", seconds, "position out of range")
	}
	d.position = seconds
	return nil
}

// SetRate sets the playback speed multiplier.
func (d *Device) SetRate(multiplier float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if multiplier < domain.MinPlaybackRate || multiplier > domain.MaxPlaybackRate {
		return domain.ErrInvalidRate
	}
	d.rate = multiplier
	return nil
}

// Position returns the current playback position in seconds.
func (d *Device) Position() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.position
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.path = ""
	d.status = domain.StatusStopped
	return nil
}

// Path returns the loaded file, "" when none.
func (d *Device) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Status returns the simulated playback status.
func (d *Device) Status() domain.PlaybackStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Rate returns the playback speed multiplier.
func (d *Device) Rate() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rate
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.closed
}

// History returns every path loaded so far, in order.
func (d *Device) History() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.history...)
}

// SimulateProgress advances a playing file by delta seconds of wall time, scaled by
// the rate. Reaching the end finishes the file.
func (d *Device) SimulateProgress(delta float64) {
	d.mu.Lock()
	if d.status != domain.StatusPlaying {
		d.mu.Unlock()
		return
	}
	d.position += delta * d.rate
	ended := d.position >= d.duration
	d.mu.Unlock()

	if ended {
		d.Finish()
	}
}

// Finish ends the loaded file as if playback reached its end and publishes
// domain.TrackEndedEvent. It is a no-op when nothing is loaded.
func (d *Device) Finish() {
	d.mu.Lock()
	path := d.path
	if path == "" {
		d.mu.Unlock()
		return
	}
	d.position = d.duration
	d.status = domain.StatusStopped
	d.mu.Unlock()

	d.debug("finished", path)
	d.bus.Publish(domain.NewTrackEndedEvent(path))
}

func (d *Device) debug(msg, path string) {
	if d.logger != nil {
		d.logger.Debug(msg, slog.String("component", "mock_device"), slog.String("path", path))
	}
}

// Verify interface implementation
var _ ports.PlaybackDevice = (*Device)(nil)
