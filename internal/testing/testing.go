// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/services"
)

// MockGateway is a test double for [services.Gateway]. Unset function fields
// return zero values and no error.
type MockGateway struct {
	CurrentPlaybackFunc  func(ctx context.Context) (*services.PlaybackState, error)
	PlayFunc             func(ctx context.Context, opts *services.PlayOptions) error
	PauseFunc            func(ctx context.Context) error
	SeekToFunc           func(ctx context.Context, positionMS int) error
	NextTrackFunc        func(ctx context.Context) error
	PreviousTrackFunc    func(ctx context.Context) error
	TransferPlaybackFunc func(ctx context.Context, deviceID string, play bool) error
	DevicesFunc          func(ctx context.Context) ([]models.Device, error)
	UserPlaylistsFunc    func(ctx context.Context) ([]models.Playlist, error)
	PlaylistTracksFunc   func(ctx context.Context, playlistID string) ([]models.Track, error)
	UserProfileFunc      func(ctx context.Context) (*services.UserProfile, error)
}

func (m *MockGateway) CurrentPlayback(ctx context.Context) (*services.PlaybackState, error) {
	if m.CurrentPlaybackFunc != nil {
		return m.CurrentPlaybackFunc(ctx)
	}
	return nil, nil
}

func (m *MockGateway) Play(ctx context.Context, opts *services.PlayOptions) error {
	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, opts)
	}
	return nil
}

func (m *MockGateway) Pause(ctx context.Context) error {
	if m.PauseFunc != nil {
		return m.PauseFunc(ctx)
	}
	return nil
}

func (m *MockGateway) SeekTo(ctx context.Context, positionMS int) error {
	if m.SeekToFunc != nil {
		return m.SeekToFunc(ctx, positionMS)
	}
	return nil
}

func (m *MockGateway) NextTrack(ctx context.Context) error {
	if m.NextTrackFunc != nil {
		return m.NextTrackFunc(ctx)
	}
	return nil
}

func (m *MockGateway) PreviousTrack(ctx context.Context) error {
	if m.PreviousTrackFunc != nil {
		return m.PreviousTrackFunc(ctx)
	}
	return nil
}

func (m *MockGateway) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	if m.TransferPlaybackFunc != nil {
		return m.TransferPlaybackFunc(ctx, deviceID, play)
	}
	return nil
}

func (m *MockGateway) Devices(ctx context.Context) ([]models.Device, error) {
	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx)
	}
	return []models.Device{}, nil
}

func (m *MockGateway) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.UserPlaylistsFunc != nil {
		return m.UserPlaylistsFunc(ctx)
	}
	return []models.Playlist{}, nil
}

func (m *MockGateway) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, playlistID)
	}
	return []models.Track{}, nil
}

func (m *MockGateway) UserProfile(ctx context.Context) (*services.UserProfile, error) {
	if m.UserProfileFunc != nil {
		return m.UserProfileFunc(ctx)
	}
	return &services.UserProfile{ID: "mock-user", DisplayName: "Mock User"}, nil
}

// MockTokenProvider is a test double for [services.TokenProvider]
type MockTokenProvider struct {
	Token        string
	Err          error
	EnsureCalls  int
	InvalidCalls int
}

func (m *MockTokenProvider) EnsureValidToken(ctx context.Context) (string, error) {
	m.EnsureCalls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Token == "" {
		return "mock-token", nil
	}
	return m.Token, nil
}

func (m *MockTokenProvider) Invalidate() {
	m.InvalidCalls++
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
