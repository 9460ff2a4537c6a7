// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the tunedeck library core.
package domain

import (
	"time"
)

// TrackType is the only kind of library entry currently produced by ingestion.
const TrackType = "track"

// TrackRecord represents a single audio file in the library with its normalized metadata.
// Records are owned by the library index; playlists and the queue only hold IDs.
//
// Display fields must be changed through the setters so that Search stays consistent
// with its source fields.
type TrackRecord struct {
	// ID is a unique identifier for the track (UUID), stable for the track's lifetime
	ID string `json:"id"`

	// Path is the absolute path to the audio file; unique across the library
	Path string `json:"path"`

	// Title is the song title (from tags or the file basename)
	Title string `json:"title"`

	// Album is the album name ("Unknown" when missing)
	Album string `json:"album"`

	// Artist lists the performing artists (never empty after ingestion)
	Artist []string `json:"artist"`

	// AlbumArtist lists the album artists, possibly empty
	AlbumArtist []string `json:"albumArtist"`

	// Genre lists the genres, possibly empty
	Genre []string `json:"genre"`

	// Year is the release year, 0 when unknown
	Year int `json:"year"`

	// Track is the position of the track on its disk
	Track NumberPair `json:"track"`

	// Disk is the position of the disk in the release
	Disk NumberPair `json:"disk"`

	// Duration is the track length in seconds, 0 when unknown
	Duration float64 `json:"duration"`

	// Cover is the embedded artwork, nil when absent
	Cover *Cover `json:"cover,omitempty"`

	// PlayCount is incremented each time playback of the track completes
	PlayCount int `json:"playCount"`

	// Type is always TrackType for now
	Type string `json:"type"`

	// Search holds the accent-stripped, lowercased copies of the display fields
	Search SearchFields `json:"search"`
}

// NumberPair is a "no of total" position such as track 3 of 12.
type NumberPair struct {
	No int `json:"no"`
	Of int `json:"of"`
}

// Cover is embedded album artwork in a binary-safe encoding.
type Cover struct {
	// Format is the image format tag (jpeg, png, ...)
	Format string `json:"format"`

	// Data is the base64-encoded image
	Data string `json:"data"`
}

// SearchFields are derived from the display fields and used only for search and sorting.
type SearchFields struct {
	Title       string   `json:"title"`
	Album       string   `json:"album"`
	Artist      []string `json:"artist"`
	AlbumArtist []string `json:"albumArtist"`
	Genre       []string `json:"genre"`
}

// SearchKeyFunc normalizes a display string into a search key.
// The normalize package provides the production implementation.
type SearchKeyFunc func(string) string

// Reindex recomputes Search from the current display fields.
func (t *TrackRecord) Reindex(key SearchKeyFunc) {
	t.Search = SearchFields{
		Title:       key(t.Title),
		Album:       key(t.Album),
		Artist:      mapKeys(t.Artist, key),
		AlbumArtist: mapKeys(t.AlbumArtist, key),
		Genre:       mapKeys(t.Genre, key),
	}
}

// SetTitle updates the title and its search key.
func (t *TrackRecord) SetTitle(title string, key SearchKeyFunc) {
	t.Title = title
	t.Search.Title = key(title)
}

// SetAlbum updates the album and its search key.
func (t *TrackRecord) SetAlbum(album string, key SearchKeyFunc) {
	t.Album = album
	t.Search.Album = key(album)
}

// SetArtist updates the artists and their search keys.
func (t *TrackRecord) SetArtist(artist []string, key SearchKeyFunc) {
	t.Artist = artist
	t.Search.Artist = mapKeys(artist, key)
}

// SetAlbumArtist updates the album artists and their search keys.
func (t *TrackRecord) SetAlbumArtist(albumArtist []string, key SearchKeyFunc) {
	t.AlbumArtist = albumArtist
	t.Search.AlbumArtist = mapKeys(albumArtist, key)
}

// SetGenre updates the genres and their search keys.
func (t *TrackRecord) SetGenre(genre []string, key SearchKeyFunc) {
	t.Genre = genre
	t.Search.Genre = mapKeys(genre, key)
}

// Clone returns a deep copy so callers cannot mutate the library's arena.
func (t TrackRecord) Clone() TrackRecord {
	c := t
	c.Artist = cloneStrings(t.Artist)
	c.AlbumArtist = cloneStrings(t.AlbumArtist)
	c.Genre = cloneStrings(t.Genre)
	c.Search.Artist = cloneStrings(t.Search.Artist)
	c.Search.AlbumArtist = cloneStrings(t.Search.AlbumArtist)
	c.Search.Genre = cloneStrings(t.Search.Genre)
	if t.Cover != nil {
		cover := *t.Cover
		c.Cover = &cover
	}
	return c
}

func mapKeys(values []string, key SearchKeyFunc) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = key(v)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// Playlist is a named, user-ordered sequence of track IDs.
// An ID appears at most once in a given playlist.
type Playlist struct {
	// ID is a unique identifier for the playlist (UUID)
	ID string `json:"id"`

	// Name is the playlist name
	Name string `json:"name"`

	// TrackIDs is the ordered list of track IDs in the playlist
	TrackIDs []string `json:"tracks"`

	// CreatedAt is when the playlist was created
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the playlist was last modified
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with p.
func (p Playlist) Clone() Playlist {
	c := p
	c.TrackIDs = cloneStrings(p.TrackIDs)
	return c
}

// Contains reports whether the playlist references the track.
func (p *Playlist) Contains(trackID string) bool {
	for _, id := range p.TrackIDs {
		if id == trackID {
			return true
		}
	}
	return false
}

// RepeatMode controls what happens when the queue cursor runs off either end.
type RepeatMode int

const (
	// RepeatNone stops playback at the end of the queue
	RepeatNone RepeatMode = iota

	// RepeatOne replays the current track
	RepeatOne

	// RepeatAll wraps around the queue
	RepeatAll
)

// String returns a human-readable representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatNone:
		return "none"
	case RepeatOne:
		return "one"
	case RepeatAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseRepeatMode converts a configuration string into a RepeatMode.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch s {
	case "", "none":
		return RepeatNone, nil
	case "one":
		return RepeatOne, nil
	case "all":
		return RepeatAll, nil
	default:
		return RepeatNone, NewValidationError("repeat", s, "must be one of none, one, all")
	}
}

// PlaybackStatus represents the current playback state.
type PlaybackStatus int

const (
	// StatusStopped indicates playback is stopped
	StatusStopped PlaybackStatus = iota

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// NoCursor marks a queue that is not positioned on any track.
const NoCursor = -1

// QueueState is the playback ordering, cursor and modes of the queue engine.
type QueueState struct {
	// Sequence is the ordered list of queued track IDs
	Sequence []string `json:"sequence"`

	// Origin is the source order of Sequence, restored when shuffle is turned off
	Origin []string `json:"origin"`

	// Cursor is the index into Sequence of the current track, NoCursor if none
	Cursor int `json:"cursor"`

	// Shuffle indicates the sequence is a shuffled permutation of the source order
	Shuffle bool `json:"shuffle"`

	// Repeat is the repeat mode
	Repeat RepeatMode `json:"repeat"`

	// Status is the playback status
	Status PlaybackStatus `json:"status"`
}

// CurrentID returns the track ID under the cursor.
func (q QueueState) CurrentID() (string, bool) {
	if q.Cursor < 0 || q.Cursor >= len(q.Sequence) {
		return "", false
	}
	return q.Sequence[q.Cursor], true
}

// Clone returns a copy that shares no slices with q.
func (q QueueState) Clone() QueueState {
	c := q
	c.Sequence = cloneStrings(q.Sequence)
	c.Origin = cloneStrings(q.Origin)
	return c
}

// DropPosition says where a dragged row lands relative to the drop target.
type DropPosition int

const (
	// DropAbove inserts the dragged row immediately before the target
	DropAbove DropPosition = iota

	// DropBelow inserts the dragged row immediately after the target
	DropBelow
)

// String returns a human-readable representation of the drop position.
func (p DropPosition) String() string {
	if p == DropBelow {
		return "below"
	}
	return "above"
}

// ScanProgress represents the progress of a music library scan operation.
type ScanProgress struct {
	// CurrentFile is the file currently being scanned
	CurrentFile string

	// FilesScanned is the number of files processed so far
	FilesScanned int

	// TotalFiles is the total number of files to scan (may be -1 if unknown)
	TotalFiles int

	// TracksFound is the number of tracks added to the library
	TracksFound int
}

// Percentage returns the completion percentage (0-100), or -1 if total is unknown.
func (p ScanProgress) Percentage() float64 {
	if p.TotalFiles <= 0 {
		return -1
	}
	return float64(p.FilesScanned) / float64(p.TotalFiles) * 100.0
}
