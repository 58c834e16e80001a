package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotctl/internal/formatter"
	"github.com/desertthunder/spotctl/internal/services"
	"github.com/desertthunder/spotctl/internal/shared"
	"github.com/urfave/cli/v3"
)

// deviceHint rewrites gateway errors that have a concrete user fix.
func deviceHint(err error) error {
	if errors.Is(err, shared.ErrNoActiveDevice) {
		return fmt.Errorf("%w: ensure Spotify is open on a device", err)
	}
	return err
}

// PlayerStatus fetches and prints the current playback state.
func (r *Runner) PlayerStatus(ctx context.Context, cmd *cli.Command) error {
	state, err := r.gateway.CurrentPlayback(ctx)
	if err != nil {
		return deviceHint(err)
	}

	if state == nil {
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"playing": false}, cmd.Bool("pretty"))
		}
		return r.writePlain("Nothing playing\n")
	}

	if cmd.Bool("json") {
		return r.writeJSON(state, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", formatter.NowPlayingLine(state.TrackTitle, state.Artist, state.IsPlaying))
	if state.Album != "" {
		r.writePlain("Album: %s\n", state.Album)
	}
	r.writePlain("Position: %s\n", formatter.FormatProgress(state.ProgressMS, state.DurationMS))
	if state.DeviceName != "" {
		r.writePlain("Device: %s\n", state.DeviceName)
	}

	return nil
}

// PlayerPlay resumes playback, or starts the given track URI.
func (r *Runner) PlayerPlay(ctx context.Context, cmd *cli.Command) error {
	var opts *services.PlayOptions
	if uri := cmd.String("uri"); uri != "" {
		opts = &services.PlayOptions{URIs: []string{uri}}
	}

	if err := r.gateway.Play(ctx, opts); err != nil {
		return deviceHint(err)
	}

	return r.writePlain("▶ Playing\n")
}

// PlayerPause pauses playback on the active device.
func (r *Runner) PlayerPause(ctx context.Context, cmd *cli.Command) error {
	if err := r.gateway.Pause(ctx); err != nil {
		return deviceHint(err)
	}

	return r.writePlain("⏸ Paused\n")
}

// PlayerToggle flips between play and pause based on the reported state.
func (r *Runner) PlayerToggle(ctx context.Context, cmd *cli.Command) error {
	state, err := r.gateway.CurrentPlayback(ctx)
	if err != nil {
		return deviceHint(err)
	}

	if state != nil && state.IsPlaying {
		return r.PlayerPause(ctx, cmd)
	}
	return r.PlayerPlay(ctx, cmd)
}

// PlayerNext skips to the next track.
func (r *Runner) PlayerNext(ctx context.Context, cmd *cli.Command) error {
	if err := r.gateway.NextTrack(ctx); err != nil {
		return deviceHint(err)
	}

	return r.writePlain("⏭ Skipped\n")
}

// PlayerPrevious skips to the previous track.
func (r *Runner) PlayerPrevious(ctx context.Context, cmd *cli.Command) error {
	if err := r.gateway.PreviousTrack(ctx); err != nil {
		return deviceHint(err)
	}

	return r.writePlain("⏮ Skipped back\n")
}

// PlayerSeek jumps to a position given as seconds or m:ss.
func (r *Runner) PlayerSeek(ctx context.Context, cmd *cli.Command) error {
	position := cmd.StringArg("position")
	if position == "" {
		return fmt.Errorf("%w: position argument required (seconds or m:ss)", shared.ErrMissingArgument)
	}

	positionMS, err := parsePosition(position)
	if err != nil {
		return err
	}

	if err := r.gateway.SeekTo(ctx, positionMS); err != nil {
		return deviceHint(err)
	}

	return r.writePlain("Seeked to %s\n", formatter.FormatDuration(positionMS))
}

// parsePosition converts "90" or "1:30" into milliseconds.
func parsePosition(position string) (int, error) {
	if minutes, seconds, found := strings.Cut(position, ":"); found {
		m, err := strconv.Atoi(minutes)
		if err != nil {
			return 0, fmt.Errorf("%w: invalid position %q", shared.ErrInvalidArgument, position)
		}
		s, err := strconv.Atoi(seconds)
		if err != nil || s < 0 || s > 59 || m < 0 {
			return 0, fmt.Errorf("%w: invalid position %q", shared.ErrInvalidArgument, position)
		}
		return (m*60 + s) * 1000, nil
	}

	seconds, err := strconv.Atoi(position)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("%w: invalid position %q", shared.ErrInvalidArgument, position)
	}
	return seconds * 1000, nil
}

// PlayerDevices lists the devices attached to the account.
func (r *Runner) PlayerDevices(ctx context.Context, cmd *cli.Command) error {
	devices, err := r.gateway.Devices(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(devices, true)
	}

	if len(devices) == 0 {
		return r.writePlain("No devices found. Open Spotify somewhere first.\n")
	}

	for _, device := range devices {
		marker := " "
		if device.IsActive {
			marker = "●"
		}
		r.writePlain("%s %s (%s) [%s]\n", marker, device.Name, device.Type, device.ID)
	}

	return nil
}

// PlayerTransfer moves playback to the device named by ID or name.
func (r *Runner) PlayerTransfer(ctx context.Context, cmd *cli.Command) error {
	target := cmd.StringArg("device")
	if target == "" {
		return fmt.Errorf("%w: device argument required", shared.ErrMissingArgument)
	}

	devices, err := r.gateway.Devices(ctx)
	if err != nil {
		return err
	}

	deviceID := ""
	for _, device := range devices {
		if device.ID == target || strings.EqualFold(device.Name, target) {
			deviceID = device.ID
			break
		}
	}

	if deviceID == "" {
		return fmt.Errorf("%w: no device matching %q", shared.ErrInvalidArgument, target)
	}

	if err := r.gateway.TransferPlayback(ctx, deviceID, cmd.Bool("play")); err != nil {
		return deviceHint(err)
	}

	return r.writePlain("✓ Playback transferred\n")
}
