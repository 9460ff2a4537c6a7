package domain

import (
	"path/filepath"
	"slices"
	"strings"
)

// Defaults is the single table of fallback values applied to every extracted record,
// whatever codec produced it.
var Defaults = struct {
	Album    string
	Artist   string
	Duration float64
}{
	Album:    "Unknown",
	Artist:   "Unknown artist",
	Duration: 0,
}

// Audio file extensions.
const (
	ExtMP3  = ".mp3"
	ExtMP4  = ".mp4"
	ExtAAC  = ".aac"
	ExtM4A  = ".m4a"
	Ext3GP  = ".3gp"
	ExtWAV  = ".wav"
	ExtOGG  = ".ogg"
	ExtOGV  = ".ogv"
	ExtOGM  = ".ogm"
	ExtOPUS = ".opus"
	ExtFLAC = ".flac"
)

// SupportedTrackExtensions lists the audio file extensions accepted by ingestion.
var SupportedTrackExtensions = []string{
	// MP3 / MP4
	ExtMP3, ExtMP4, ExtAAC, ExtM4A, Ext3GP, ExtWAV,
	// Ogg / Opus
	ExtOGG, ExtOGV, ExtOGM, ExtOPUS,
	// FLAC
	ExtFLAC,
}

// SupportedPlaylistExtensions lists the playlist file extensions accepted by import.
var SupportedPlaylistExtensions = []string{
	".m3u",
}

// Playback rate bounds accepted by the player.
const (
	MinPlaybackRate = 0.5
	MaxPlaybackRate = 4.0
)

// IsSupportedTrack reports whether the file extension is one ingestion accepts.
func IsSupportedTrack(path string) bool {
	return slices.Contains(SupportedTrackExtensions, strings.ToLower(filepath.Ext(path)))
}

// IsSupportedPlaylist reports whether the file is a playlist that can be imported.
func IsSupportedPlaylist(path string) bool {
	return slices.Contains(SupportedPlaylistExtensions, strings.ToLower(filepath.Ext(path)))
}
