// package services defines the gateway interface for the vendor's HTTP API
package services

import (
	"context"
	"time"

	"github.com/desertthunder/spotctl/internal/models"
)

// TokenProvider supplies bearer tokens for API calls. Implemented by
// auth.SessionManager.
type TokenProvider interface {
	// EnsureValidToken returns a token valid for at least the skew window.
	EnsureValidToken(ctx context.Context) (string, error)

	// Invalidate drops the cached access token so the next call refreshes.
	Invalidate()
}

// Gateway defines the vendor API surface consumed by the CLI, TUI, and the
// playback synchronizer. One method per endpoint.
type Gateway interface {
	// CurrentPlayback fetches the playback state of the active device.
	// Returns (nil, nil) when nothing is playing anywhere.
	CurrentPlayback(ctx context.Context) (*PlaybackState, error)

	// Play starts or resumes playback. A nil options resumes the current context.
	Play(ctx context.Context, opts *PlayOptions) error

	// Pause pauses playback on the active device.
	Pause(ctx context.Context) error

	// SeekTo moves the playhead to the given position.
	SeekTo(ctx context.Context, positionMS int) error

	// NextTrack skips to the next track.
	NextTrack(ctx context.Context) error

	// PreviousTrack skips to the previous track.
	PreviousTrack(ctx context.Context) error

	// TransferPlayback moves playback to another device.
	TransferPlayback(ctx context.Context, deviceID string, play bool) error

	// Devices lists the devices attached to the account.
	Devices(ctx context.Context) ([]models.Device, error)

	// UserPlaylists retrieves all playlists for the authenticated user.
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks retrieves the tracks of a playlist.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// UserProfile retrieves the authenticated user's profile.
	UserProfile(ctx context.Context) (*UserProfile, error)
}

// PlaybackState is a point-in-time read of the remote device's playback,
// stamped with the local fetch time for interpolation.
type PlaybackState struct {
	TrackID    string
	TrackTitle string
	Artist     string
	Album      string
	TrackURI   string
	DurationMS int
	ProgressMS int
	IsPlaying  bool
	DeviceID   string
	DeviceName string
	FetchedAt  time.Time
}

// PlayOptions controls what the play endpoint starts.
type PlayOptions struct {
	// URIs plays a fixed list of tracks.
	URIs []string `json:"uris,omitempty"`

	// ContextURI plays a container (playlist, album).
	ContextURI string `json:"context_uri,omitempty"`

	// PositionMS starts playback at an offset into the first track.
	PositionMS int `json:"position_ms,omitempty"`
}

// UserProfile represents the authenticated user.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}
