package domain

import (
	"time"
)

// Event is anything published on the event bus.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// EventType names an event as "topic.name". The topic prefix is what
// topic subscriptions match on.
type EventType string

// Event type constants define all possible events in the system.
const (
	// Library events
	EventTracksAdded      EventType = "library.tracks_added"
	EventTracksRemoved    EventType = "library.tracks_removed"
	EventTrackUpdated     EventType = "library.track_updated"
	EventLibraryReset     EventType = "library.reset"
	EventExtractionFailed EventType = "library.extraction_failed"

	// Playlist events
	EventPlaylistUpdated EventType = "playlist.updated"
	EventPlaylistDeleted EventType = "playlist.deleted"

	// Queue / playback events
	EventQueueChanged  EventType = "queue.changed"
	EventNowPlaying    EventType = "queue.now_playing"
	EventStatusChanged EventType = "queue.status_changed"
	EventTrackEnded    EventType = "device.track_ended"

	// Library scanning events
	EventScanStarted   EventType = "scan.started"
	EventScanProgress  EventType = "scan.progress"
	EventScanCompleted EventType = "scan.completed"
	EventScanCancelled EventType = "scan.cancelled"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// TracksAddedEvent is published after a batch of records was committed to the library.
type TracksAddedEvent struct {
	baseEvent
	IDs       []string
	Conflicts int
}

// Type returns the event type.
func (e TracksAddedEvent) Type() EventType {
	return EventTracksAdded
}

// NewTracksAddedEvent creates a new TracksAddedEvent.
func NewTracksAddedEvent(ids []string, conflicts int) TracksAddedEvent {
	return TracksAddedEvent{
		baseEvent: newBaseEvent(),
		IDs:       ids,
		Conflicts: conflicts,
	}
}

// TracksRemovedEvent is published after records were removed from the library
// and from every playlist and the queue.
type TracksRemovedEvent struct {
	baseEvent
	IDs []string
}

// Type returns the event type.
func (e TracksRemovedEvent) Type() EventType {
	return EventTracksRemoved
}

// NewTracksRemovedEvent creates a new TracksRemovedEvent.
func NewTracksRemovedEvent(ids []string) TracksRemovedEvent {
	return TracksRemovedEvent{
		baseEvent: newBaseEvent(),
		IDs:       ids,
	}
}

// TrackUpdatedEvent is published when a record's mutable fields change.
type TrackUpdatedEvent struct {
	baseEvent
	Track TrackRecord
}

// Type returns the event type.
func (e TrackUpdatedEvent) Type() EventType {
	return EventTrackUpdated
}

// NewTrackUpdatedEvent creates a new TrackUpdatedEvent.
func NewTrackUpdatedEvent(track TrackRecord) TrackUpdatedEvent {
	return TrackUpdatedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// LibraryResetEvent is published when the whole library was cleared.
type LibraryResetEvent struct {
	baseEvent
}

// Type returns the event type.
func (e LibraryResetEvent) Type() EventType {
	return EventLibraryReset
}

// NewLibraryResetEvent creates a new LibraryResetEvent.
func NewLibraryResetEvent() LibraryResetEvent {
	return LibraryResetEvent{baseEvent: newBaseEvent()}
}

// ExtractionFailedEvent is published when a file was skipped during ingestion.
type ExtractionFailedEvent struct {
	baseEvent
	Path  string
	Error error
}

// Type returns the event type.
func (e ExtractionFailedEvent) Type() EventType {
	return EventExtractionFailed
}

// NewExtractionFailedEvent creates a new ExtractionFailedEvent.
func NewExtractionFailedEvent(path string, err error) ExtractionFailedEvent {
	return ExtractionFailedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
		Error:     err,
	}
}

// PlaylistUpdatedEvent is published when a playlist is created or changed.
type PlaylistUpdatedEvent struct {
	baseEvent
	Playlist Playlist
}

// Type returns the event type.
func (e PlaylistUpdatedEvent) Type() EventType {
	return EventPlaylistUpdated
}

// NewPlaylistUpdatedEvent creates a new PlaylistUpdatedEvent.
func NewPlaylistUpdatedEvent(playlist Playlist) PlaylistUpdatedEvent {
	return PlaylistUpdatedEvent{
		baseEvent: newBaseEvent(),
		Playlist:  playlist,
	}
}

// PlaylistDeletedEvent is published when a playlist is deleted.
type PlaylistDeletedEvent struct {
	baseEvent
	ID string
}

// Type returns the event type.
func (e PlaylistDeletedEvent) Type() EventType {
	return EventPlaylistDeleted
}

// NewPlaylistDeletedEvent creates a new PlaylistDeletedEvent.
func NewPlaylistDeletedEvent(id string) PlaylistDeletedEvent {
	return PlaylistDeletedEvent{
		baseEvent: newBaseEvent(),
		ID:        id,
	}
}

// QueueChangedEvent is published when the queue sequence, cursor or modes change.
type QueueChangedEvent struct {
	baseEvent
	State QueueState
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType {
	return EventQueueChanged
}

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(state QueueState) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent(),
		State:     state,
	}
}

// NowPlayingEvent is published whenever the queue (re)issues a track for playback.
// TrackID is empty when the queue stopped.
type NowPlayingEvent struct {
	baseEvent
	TrackID string
	Cursor  int
}

// Type returns the event type.
func (e NowPlayingEvent) Type() EventType {
	return EventNowPlaying
}

// NewNowPlayingEvent creates a new NowPlayingEvent.
func NewNowPlayingEvent(trackID string, cursor int) NowPlayingEvent {
	return NowPlayingEvent{
		baseEvent: newBaseEvent(),
		TrackID:   trackID,
		Cursor:    cursor,
	}
}

// StatusChangedEvent is published on playing/paused/stopped transitions.
type StatusChangedEvent struct {
	baseEvent
	Status PlaybackStatus
}

// Type returns the event type.
func (e StatusChangedEvent) Type() EventType {
	return EventStatusChanged
}

// NewStatusChangedEvent creates a new StatusChangedEvent.
func NewStatusChangedEvent(status PlaybackStatus) StatusChangedEvent {
	return StatusChangedEvent{
		baseEvent: newBaseEvent(),
		Status:    status,
	}
}

// TrackEndedEvent is emitted by the playback device when the loaded file finished playing.
type TrackEndedEvent struct {
	baseEvent
	Path string
}

// Type returns the event type.
func (e TrackEndedEvent) Type() EventType {
	return EventTrackEnded
}

// NewTrackEndedEvent creates a new TrackEndedEvent.
func NewTrackEndedEvent(path string) TrackEndedEvent {
	return TrackEndedEvent{
		baseEvent: newBaseEvent(),
		Path:      path,
	}
}

// ScanStartedEvent is published when a library scan starts.
type ScanStartedEvent struct {
	baseEvent
	Paths []string
}

// Type returns the event type.
func (e ScanStartedEvent) Type() EventType {
	return EventScanStarted
}

// NewScanStartedEvent creates a new ScanStartedEvent.
func NewScanStartedEvent(paths []string) ScanStartedEvent {
	return ScanStartedEvent{
		baseEvent: newBaseEvent(),
		Paths:     paths,
	}
}

// ScanProgressEvent is published after each committed ingestion batch.
type ScanProgressEvent struct {
	baseEvent
	Progress ScanProgress
}

// Type returns the event type.
func (e ScanProgressEvent) Type() EventType {
	return EventScanProgress
}

// NewScanProgressEvent creates a new ScanProgressEvent.
func NewScanProgressEvent(progress ScanProgress) ScanProgressEvent {
	return ScanProgressEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ScanCompletedEvent is published when a library scan completes.
type ScanCompletedEvent struct {
	baseEvent
	Added     int
	Conflicts int
	Failures  int
}

// Type returns the event type.
func (e ScanCompletedEvent) Type() EventType {
	return EventScanCompleted
}

// NewScanCompletedEvent creates a new ScanCompletedEvent.
func NewScanCompletedEvent(added, conflicts, failures int) ScanCompletedEvent {
	return ScanCompletedEvent{
		baseEvent: newBaseEvent(),
		Added:     added,
		Conflicts: conflicts,
		Failures:  failures,
	}
}

// ScanCancelledEvent is published when a library scan is canceled.
type ScanCancelledEvent struct {
	baseEvent
	Reason string
}

// Type returns the event type.
func (e ScanCancelledEvent) Type() EventType {
	return EventScanCancelled
}

// NewScanCancelledEvent creates a new ScanCancelledEvent.
func NewScanCancelledEvent(reason string) ScanCancelledEvent {
	return ScanCancelledEvent{
		baseEvent: newBaseEvent(),
		Reason:    reason,
	}
}
