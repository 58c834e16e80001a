// package formatter renders playback state and playlist data for the terminal and for file export (CSV, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/spotctl/internal/models"
)

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}

	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}

	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatProgress renders an elapsed/total pair like "1:23 / 3:45".
func FormatProgress(progressMS, durationMS int) string {
	return fmt.Sprintf("%s / %s", FormatDuration(progressMS), FormatDuration(durationMS))
}

// NowPlayingLine renders the playback bar text. An empty title means nothing
// is playing.
func NowPlayingLine(title, artist string, playing bool) string {
	if title == "" {
		return "Nothing playing"
	}

	icon := "⏸"
	if playing {
		icon = "🎵"
	}

	if artist == "" {
		return fmt.Sprintf("%s %s", icon, title)
	}

	return fmt.Sprintf("%s %s - %s", icon, title, artist)
}

// ExportToCSV converts playlist tracks to CSV with columns: ID, Title, Artist, Album, Duration, URI
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.DurationMS),
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts playlist tracks to a numbered plain text listing.
func ExportToText(playlist models.Playlist, tracks []models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", playlist.Name))
	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, FormatDuration(track.DurationMS)))
	}

	return buf.Bytes()
}

// WriteCSVExport writes a playlist's tracks to a CSV file.
//
// Defaults to {playlist.ID}_tracks.csv as the filename.
func WriteCSVExport(playlist models.Playlist, tracks []models.Track, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.csv", playlist.ID)
	}

	csvData, err := ExportToCSV(tracks)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(filepath, csvData, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return filepath, nil
}
