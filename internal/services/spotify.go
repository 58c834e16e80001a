// Spotify API implementation of [Gateway]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/shared"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

const (
	maxNetworkAttempts = 3
	networkBackoffBase = 250 * time.Millisecond
	maxRetryAfter      = 10 * time.Second
)

// errNoContent signals an HTTP 204: the endpoint succeeded with nothing to report.
var errNoContent = errors.New("no content")

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyDevice represents a playback device attached to the account.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent int    `json:"volume_percent"`
}

// SpotifyPlayback is the wire form of the get-current-playback response.
type SpotifyPlayback struct {
	Device     SpotifyDevice `json:"device"`
	IsPlaying  bool          `json:"is_playing"`
	ProgressMS int           `json:"progress_ms"`
	Item       *SpotifyTrack `json:"item"`
	Timestamp  int64         `json:"timestamp"`
}

type simplePlaylistTracks struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Public      bool                 `json:"public"`
	Tracks      simplePlaylistTracks `json:"tracks"`
	URI         string               `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a paginated response of playlist tracks.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// spotifyError is the wire form of an API error payload.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyClient implements [Gateway] against the Spotify Web API.
//
// Every request attaches a bearer token from the [TokenProvider]. A 401
// invalidates the cached token and retries exactly once after a forced
// refresh; a 429 honors the retry-after hint once before surfacing
// [shared.ErrRateLimited]; network failures retry with exponential backoff
// before surfacing [shared.ErrUnreachable].
type SpotifyClient struct {
	baseURL    string
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ Gateway = (*SpotifyClient)(nil)

// NewSpotifyClient creates a gateway for the given token provider.
//
// baseURL and client default to the public API and [http.DefaultClient].
func NewSpotifyClient(tokens TokenProvider, baseURL string, client *http.Client, logger *log.Logger) *SpotifyClient {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		logger:     logger,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// doRequest performs an authenticated request with the retry policy applied.
//
// endpoint includes any query string. A 204 with a non-nil result returns
// errNoContent so callers can distinguish "nothing playing" from an error.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = data
	}

	var refreshed, ratelimited bool
	attempts := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		token, err := c.tokens.EnsureValidToken(ctx)
		if err != nil {
			return err
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			attempts++
			if attempts >= maxNetworkAttempts {
				return fmt.Errorf("%w: %v", shared.ErrUnreachable, err)
			}
			backoff := networkBackoffBase << (attempts - 1)
			c.logger.Debug("request failed, backing off", "endpoint", endpoint, "backoff", backoff, "error", err)
			if err := c.sleep(ctx, backoff); err != nil {
				return err
			}
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("failed to read response: %w", readErr)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if resp.StatusCode == http.StatusNoContent && result != nil {
				return errNoContent
			}
			if result != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, result); err != nil {
					return fmt.Errorf("failed to decode response: %w", err)
				}
			}
			return nil

		case resp.StatusCode == http.StatusUnauthorized:
			if !refreshed {
				refreshed = true
				c.tokens.Invalidate()
				continue
			}
			return fmt.Errorf("%w: bearer token rejected", shared.ErrAuthExpired)

		case resp.StatusCode == http.StatusTooManyRequests:
			if !ratelimited {
				ratelimited = true
				wait := retryAfter(resp)
				c.logger.Debug("rate limited, backing off", "endpoint", endpoint, "retry_after", wait)
				if err := c.sleep(ctx, wait); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("%w: %s", shared.ErrRateLimited, endpoint)

		case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
			if isNoActiveDevice(resp.StatusCode, endpoint, respBody) {
				return fmt.Errorf("%w: %s", shared.ErrNoActiveDevice, endpoint)
			}
			return apiError(resp.StatusCode, respBody)

		default:
			return apiError(resp.StatusCode, respBody)
		}
	}
}

// retryAfter reads the vendor's Retry-After hint, bounded to a sane maximum.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			wait := time.Duration(secs) * time.Second
			if wait > maxRetryAfter {
				return maxRetryAfter
			}
			return wait
		}
	}
	return time.Second
}

// isNoActiveDevice reports whether a 403/404 means the account has no active
// playback device, a steady user-actionable state rather than a failure.
func isNoActiveDevice(status int, endpoint string, body []byte) bool {
	if !strings.HasPrefix(endpoint, "/me/player") {
		return false
	}
	if status == http.StatusNotFound {
		return true
	}

	var apiErr spotifyError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		return apiErr.Error.Reason == "NO_ACTIVE_DEVICE"
	}
	return false
}

func apiError(status int, body []byte) error {
	var apiErr spotifyError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, status, apiErr.Error.Message)
	}
	return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, status)
}

// CurrentPlayback fetches the playback state of the active device.
//
// Returns (nil, nil) when nothing is playing on any device (HTTP 204).
func (c *SpotifyClient) CurrentPlayback(ctx context.Context) (*PlaybackState, error) {
	var wire SpotifyPlayback
	if err := c.doRequest(ctx, http.MethodGet, "/me/player", nil, &wire); err != nil {
		if errors.Is(err, errNoContent) {
			return nil, nil
		}
		return nil, err
	}

	state := &PlaybackState{
		IsPlaying:  wire.IsPlaying,
		ProgressMS: wire.ProgressMS,
		DeviceID:   wire.Device.ID,
		DeviceName: wire.Device.Name,
		FetchedAt:  time.Now(),
	}

	if wire.Item != nil {
		state.TrackID = wire.Item.ID
		state.TrackTitle = wire.Item.Name
		state.Album = wire.Item.Album.Name
		state.TrackURI = wire.Item.URI
		state.DurationMS = wire.Item.DurationMS
		if len(wire.Item.Artists) > 0 {
			state.Artist = wire.Item.Artists[0].Name
		}
	}

	return state, nil
}

// Play starts or resumes playback. A nil opts resumes the current context.
func (c *SpotifyClient) Play(ctx context.Context, opts *PlayOptions) error {
	var body any
	if opts != nil {
		body = opts
	}
	return c.doRequest(ctx, http.MethodPut, "/me/player/play", body, nil)
}

// Pause pauses playback on the active device.
func (c *SpotifyClient) Pause(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// SeekTo moves the playhead to the given position in the current track.
func (c *SpotifyClient) SeekTo(ctx context.Context, positionMS int) error {
	if positionMS < 0 {
		positionMS = 0
	}
	endpoint := fmt.Sprintf("/me/player/seek?position_ms=%d", positionMS)
	return c.doRequest(ctx, http.MethodPut, endpoint, nil, nil)
}

// NextTrack skips to the next track in the play queue.
func (c *SpotifyClient) NextTrack(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/me/player/next", nil, nil)
}

// PreviousTrack skips to the previous track.
func (c *SpotifyClient) PreviousTrack(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodPost, "/me/player/previous", nil, nil)
}

// TransferPlayback moves playback to the given device.
func (c *SpotifyClient) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body := map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return c.doRequest(ctx, http.MethodPut, "/me/player", body, nil)
}

// Devices lists the playback devices attached to the account.
func (c *SpotifyClient) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, models.Device{
			ID:            d.ID,
			Name:          d.Name,
			Type:          d.Type,
			IsActive:      d.IsActive,
			VolumePercent: d.VolumePercent,
		})
	}

	return devices, nil
}

// UserPlaylists retrieves all playlists for the authenticated user, walking
// the paginated listing to the end.
func (c *SpotifyClient) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var page SpotifyPaginatedPlaylists
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			all = append(all, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// PlaylistTracks retrieves all tracks of a playlist, walking pagination.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist ID", shared.ErrMissingArgument)
	}

	var all []models.Track
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

		var page SpotifyPaginatedTracks
		if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			track := models.Track{
				ID:         item.Track.ID,
				Title:      item.Track.Name,
				Album:      item.Track.Album.Name,
				DurationMS: item.Track.DurationMS,
				URI:        item.Track.URI,
			}
			if len(item.Track.Artists) > 0 {
				track.Artist = item.Track.Artists[0].Name
			}
			all = append(all, track)
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (c *SpotifyClient) UserProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
