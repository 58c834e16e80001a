package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/shared"
)

type stubTokens struct {
	token       string
	invalidated atomic.Int32
}

func (s *stubTokens) EnsureValidToken(ctx context.Context) (string, error) {
	if s.token == "" {
		return "test-token", nil
	}
	return s.token, nil
}

func (s *stubTokens) Invalidate() {
	s.invalidated.Add(1)
}

func newTestClient(t *testing.T, handler http.Handler) (*SpotifyClient, *stubTokens) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tokens := &stubTokens{}
	client := NewSpotifyClient(tokens, server.URL, server.Client(), log.New(io.Discard))
	client.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	return client, tokens
}

func TestCurrentPlayback(t *testing.T) {
	ctx := context.Background()

	t.Run("maps the wire response", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/player" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("unexpected auth header %q", got)
			}
			fmt.Fprint(w, `{
				"device": {"id": "dev-1", "name": "Kitchen"},
				"is_playing": true,
				"progress_ms": 30000,
				"item": {
					"id": "track-1",
					"name": "Song One",
					"artists": [{"name": "Artist One"}, {"name": "Artist Two"}],
					"album": {"name": "Album One"},
					"duration_ms": 180000,
					"uri": "spotify:track:track-1"
				}
			}`)
		}))

		state, err := client.CurrentPlayback(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if state.TrackTitle != "Song One" || state.Artist != "Artist One" {
			t.Errorf("unexpected track mapping: %+v", state)
		}
		if state.ProgressMS != 30000 || state.DurationMS != 180000 {
			t.Errorf("unexpected timing: %+v", state)
		}
		if state.DeviceName != "Kitchen" || !state.IsPlaying {
			t.Errorf("unexpected device state: %+v", state)
		}
		if state.FetchedAt.IsZero() {
			t.Error("expected FetchedAt to be set")
		}
	})

	t.Run("204 means nothing playing", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		state, err := client.CurrentPlayback(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != nil {
			t.Errorf("expected nil state, got %+v", state)
		}
	})
}

func TestRetryPolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("401 invalidates and retries once", func(t *testing.T) {
		var requests atomic.Int32
		client, tokens := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))

		if err := client.Pause(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tokens.invalidated.Load() != 1 {
			t.Errorf("expected one invalidation, got %d", tokens.invalidated.Load())
		}
		if requests.Load() != 2 {
			t.Errorf("expected two requests, got %d", requests.Load())
		}
	})

	t.Run("persistent 401 surfaces ErrAuthExpired", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		err := client.Pause(ctx)
		if !errors.Is(err, shared.ErrAuthExpired) {
			t.Errorf("expected ErrAuthExpired, got %v", err)
		}
	})

	t.Run("429 honors retry-after once", func(t *testing.T) {
		var requests atomic.Int32
		var slept time.Duration
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		client.sleep = func(ctx context.Context, d time.Duration) error {
			slept = d
			return nil
		}

		if err := client.Pause(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if slept != 2*time.Second {
			t.Errorf("expected 2s wait, got %v", slept)
		}
	})

	t.Run("persistent 429 surfaces ErrRateLimited", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		err := client.Pause(ctx)
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("retry-after is capped", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"3600"}}}
		if got := retryAfter(resp); got != maxRetryAfter {
			t.Errorf("expected %v, got %v", maxRetryAfter, got)
		}
	})

	t.Run("missing retry-after defaults to a second", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		if got := retryAfter(resp); got != time.Second {
			t.Errorf("expected 1s, got %v", got)
		}
	})

	t.Run("network failure retries then surfaces ErrUnreachable", func(t *testing.T) {
		tokens := &stubTokens{}
		client := NewSpotifyClient(tokens, "http://127.0.0.1:1", nil, log.New(io.Discard))

		var backoffs []time.Duration
		client.sleep = func(ctx context.Context, d time.Duration) error {
			backoffs = append(backoffs, d)
			return nil
		}

		err := client.Pause(ctx)
		if !errors.Is(err, shared.ErrUnreachable) {
			t.Fatalf("expected ErrUnreachable, got %v", err)
		}
		if len(backoffs) != maxNetworkAttempts-1 {
			t.Fatalf("expected %d backoffs, got %d", maxNetworkAttempts-1, len(backoffs))
		}
		if backoffs[1] <= backoffs[0] {
			t.Errorf("expected growing backoff, got %v", backoffs)
		}
	})
}

func TestNoActiveDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("404 on player endpoints", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"status": 404, "message": "Device not found"}}`)
		}))

		err := client.Pause(ctx)
		if !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected ErrNoActiveDevice, got %v", err)
		}
	})

	t.Run("403 with the device reason", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error": {"status": 403, "message": "Player command failed", "reason": "NO_ACTIVE_DEVICE"}}`)
		}))

		err := client.NextTrack(ctx)
		if !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected ErrNoActiveDevice, got %v", err)
		}
	})

	t.Run("403 without the reason is an API error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error": {"status": 403, "message": "Premium required", "reason": "PREMIUM_REQUIRED"}}`)
		}))

		err := client.NextTrack(ctx)
		if errors.Is(err, shared.ErrNoActiveDevice) {
			t.Error("expected a plain API error")
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("404 outside player endpoints is an API error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"status": 404, "message": "Not found"}}`)
		}))

		_, err := client.PlaylistTracks(ctx, "missing")
		if errors.Is(err, shared.ErrNoActiveDevice) {
			t.Error("expected a plain API error")
		}
	})
}

func TestPagination(t *testing.T) {
	ctx := context.Background()

	t.Run("playlists walk to the last page", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			offset := r.URL.Query().Get("offset")
			if offset == "0" {
				fmt.Fprint(w, `{
					"items": [{"id": "pl-1", "name": "First", "tracks": {"total": 3}}],
					"next": "next-page"
				}`)
				return
			}
			fmt.Fprint(w, `{
				"items": [{"id": "pl-2", "name": "Second", "tracks": {"total": 7}}],
				"next": null
			}`)
		}))

		playlists, err := client.UserPlaylists(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != "pl-1" || playlists[1].ID != "pl-2" {
			t.Errorf("unexpected order: %+v", playlists)
		}
		if playlists[1].TrackCount != 7 {
			t.Errorf("unexpected track count: %+v", playlists[1])
		}
	})

	t.Run("tracks walk to the last page", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			offset := r.URL.Query().Get("offset")
			if offset == "0" {
				fmt.Fprint(w, `{
					"items": [{"track": {"id": "tr-1", "name": "One", "artists": [{"name": "A"}], "duration_ms": 1000, "uri": "spotify:track:tr-1"}}],
					"next": "next-page"
				}`)
				return
			}
			fmt.Fprint(w, `{"items": [{"track": {"id": "tr-2", "name": "Two"}}], "next": null}`)
		}))

		tracks, err := client.PlaylistTracks(ctx, "pl-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Artist != "A" || tracks[0].URI != "spotify:track:tr-1" {
			t.Errorf("unexpected mapping: %+v", tracks[0])
		}
	})

	t.Run("tracks require a playlist id", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		_, err := client.PlaylistTracks(ctx, "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestPlay(t *testing.T) {
	ctx := context.Background()

	t.Run("sends uris in the body", func(t *testing.T) {
		var body string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, _ := io.ReadAll(r.Body)
			body = string(data)
			w.WriteHeader(http.StatusNoContent)
		}))

		opts := &PlayOptions{URIs: []string{"spotify:track:tr-1"}}
		if err := client.Play(ctx, opts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if body != `{"uris":["spotify:track:tr-1"]}` {
			t.Errorf("unexpected body %q", body)
		}
	})

	t.Run("resume sends no body", func(t *testing.T) {
		var length int64
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			length = r.ContentLength
			w.WriteHeader(http.StatusNoContent)
		}))

		if err := client.Play(ctx, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if length > 0 {
			t.Errorf("expected empty body, got %d bytes", length)
		}
	})
}
