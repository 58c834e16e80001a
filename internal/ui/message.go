package ui

import (
	"time"

	"github.com/desertthunder/spotctl/internal/models"
)

// playlistsLoadedMsg carries a playlist listing from the cache or the API.
// Cached results only seed an empty browser so a later API refresh wins.
type playlistsLoadedMsg struct {
	playlists []models.Playlist
	cached    bool
	err       error
}

// tracksLoadedMsg carries the tracks of the selected playlist.
type tracksLoadedMsg struct {
	playlist models.Playlist
	tracks   []models.Track
	cached   bool
	err      error
}

// tickMsg drives the playback bar refresh between polls.
type tickMsg time.Time
