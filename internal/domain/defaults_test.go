package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupportedTrack(t *testing.T) {
	for _, ext := range []string{ExtMP3, ExtMP4, ExtAAC, ExtM4A, Ext3GP, ExtWAV, ExtOGG, ExtOGV, ExtOGM, ExtOPUS, ExtFLAC} {
		assert.True(t, IsSupportedTrack("/music/song"+ext), ext)
	}
	assert.True(t, IsSupportedTrack("/music/LOUD.FLAC"))
	assert.False(t, IsSupportedTrack("/music/cover.jpg"))
	assert.False(t, IsSupportedTrack("/music/noext"))
	assert.False(t, IsSupportedTrack("/music/road.m3u"))
}

func TestIsSupportedPlaylist(t *testing.T) {
	assert.True(t, IsSupportedPlaylist("/music/road.M3U"))
	assert.False(t, IsSupportedPlaylist("/music/road.mp3"))
}
