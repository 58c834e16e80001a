package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the interactive OAuth2 flow and persists the credentials.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.Spotify.ClientID == "" || r.config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: run 'spotctl setup config' or set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET", shared.ErrMissingCredentials)
	}

	r.logger.Info("starting interactive login")

	if err := r.session.InteractiveLogin(ctx); err != nil {
		return err
	}

	r.writePlain("✓ Logged in to Spotify\n")
	r.writePlain("Credentials saved to: %s\n", r.session.StorePath())

	return nil
}

// AuthStatus reports the stored session state without touching the network,
// unless --remote asks for an API round trip.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	record, err := r.session.StoredRecord()
	if err != nil {
		return fmt.Errorf("failed to read credential store: %w", err)
	}

	if record == nil {
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"authenticated": false}, true)
		}
		return r.writePlain("✗ Not logged in\n")
	}

	valid := record.Valid(time.Now(), 0)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated": true,
			"valid":         valid,
			"expires_at":    record.ExpiresAt,
			"scopes":        record.Scopes,
		}, true)
	}

	if valid {
		r.writePlain("✓ Logged in\n")
	} else {
		r.writePlain("✓ Logged in (access token expired, will refresh on use)\n")
	}
	r.writePlain("Token expires: %s\n", record.ExpiresAt.Format(time.RFC1123))
	r.writePlain("Scopes: %v\n", record.Scopes)

	if cmd.Bool("remote") {
		profile, err := r.gateway.UserProfile(ctx)
		if err != nil {
			return fmt.Errorf("session check failed: %w", err)
		}
		r.writePlain("Account: %s (%s)\n", profile.DisplayName, profile.ID)
	}

	return nil
}

// AuthLogout deletes the stored credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session.Logout(); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}

	r.logger.Info("credentials deleted")

	return r.writePlain("✓ Logged out\n")
}
