package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotctl/internal/formatter"
	"github.com/desertthunder/spotctl/internal/models"
	"github.com/urfave/cli/v3"
)

// LibraryPlaylists lists the user's playlists from the API or the cache.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	var playlists []models.Playlist

	if cmd.Bool("cached") {
		library, closeLibrary, err := r.openLibrary()
		if err != nil {
			return err
		}
		defer closeLibrary()

		playlists, err = library.Playlists()
		if err != nil {
			return err
		}

		if cachedAt, err := library.CachedAt(); err == nil && !cachedAt.IsZero() {
			r.logger.Debug("serving cached playlists", "cached_at", cachedAt)
		}
	} else {
		fetched, err := r.gateway.UserPlaylists(ctx)
		if err != nil {
			return err
		}
		playlists = fetched

		if library, closeLibrary, err := r.openLibrary(); err == nil {
			if err := library.SavePlaylists(playlists); err != nil {
				r.logger.Warn("failed to update playlist cache", "error", err)
			}
			closeLibrary()
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found\n")
	}

	for _, playlist := range playlists {
		r.writePlain("%s  %s (%d tracks)\n", playlist.ID, playlist.Name, playlist.TrackCount)
	}

	return nil
}

// LibraryTracks lists a playlist's tracks, optionally exporting them to CSV.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")

	var tracks []models.Track

	if cmd.Bool("cached") {
		library, closeLibrary, err := r.openLibrary()
		if err != nil {
			return err
		}
		defer closeLibrary()

		tracks, err = library.Tracks(playlistID)
		if err != nil {
			return err
		}
	} else {
		fetched, err := r.gateway.PlaylistTracks(ctx, playlistID)
		if err != nil {
			return err
		}
		tracks = fetched

		if library, closeLibrary, err := r.openLibrary(); err == nil {
			if err := library.SaveTracks(playlistID, tracks); err != nil {
				r.logger.Warn("failed to update track cache", "error", err)
			}
			closeLibrary()
		}
	}

	if exportPath := cmd.String("export"); exportPath != "" {
		written, err := formatter.WriteCSVExport(models.Playlist{ID: playlistID}, tracks, exportPath)
		if err != nil {
			return fmt.Errorf("failed to export tracks: %w", err)
		}
		r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), written)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		return r.writePlain("No tracks found\n")
	}

	for i, track := range tracks {
		r.writePlain("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, formatter.FormatDuration(track.DurationMS))
	}

	return nil
}
