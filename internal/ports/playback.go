package ports

// PlaybackDevice is the opaque player device driven by the queue engine.
// Decoding and output hardware live behind it.
//
// Implementations publish domain.TrackEndedEvent on the event bus when the loaded file
// finishes playing.
//
// Implementations must be thread-safe as they may be called from multiple goroutines.
type PlaybackDevice interface {
	// Load prepares a file for playback, replacing any previously loaded file.
	Load(path string) error

	// Play starts or resumes playback of the loaded file.
	// Returns domain.ErrNoTrackLoaded if nothing is loaded.
	Play() error

	// Pause pauses playback, keeping the position.
	Pause() error

	// Stop stops playback and unloads the file.
	Stop() error

	// Seek moves the playback position, in seconds from the start.
	Seek(seconds float64) error

	// SetRate sets the playback speed multiplier (1.0 is normal speed).
	SetRate(multiplier float64) error

	// Position returns the current playback position in seconds.
	Position() float64

	// Close releases the device.
	Close() error
}
