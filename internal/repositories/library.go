package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/shared"
)

// LibraryRepository caches playlists and tracks fetched from the streaming
// service. Rows carry a cached_at timestamp so callers can judge staleness.
type LibraryRepository struct {
	db *sql.DB
}

// NewLibraryRepository creates a new LibraryRepository with the given database connection
func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

// SavePlaylists replaces the cached playlist set in a single transaction.
// Track rows for playlists that no longer exist are removed as well.
func (r *LibraryRepository) SavePlaylists(playlists []models.Playlist) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracks`); err != nil {
		return fmt.Errorf("failed to clear track cache: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM playlists`); err != nil {
		return fmt.Errorf("failed to clear playlist cache: %w", err)
	}

	query := `
		INSERT INTO playlists (id, service_id, name, description, track_count, public, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	for _, playlist := range playlists {
		_, err := tx.Exec(query,
			shared.GenerateID(),
			playlist.ID,
			playlist.Name,
			playlist.Description,
			playlist.TrackCount,
			playlist.Public,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist cache: %w", err)
	}

	return nil
}

// Playlists returns all cached playlists in name order.
func (r *LibraryRepository) Playlists() ([]models.Playlist, error) {
	query := `
		SELECT service_id, name, description, track_count, public
		FROM playlists
		ORDER BY name COLLATE NOCASE ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []models.Playlist
	for rows.Next() {
		var playlist models.Playlist
		if err := rows.Scan(&playlist.ID, &playlist.Name, &playlist.Description, &playlist.TrackCount, &playlist.Public); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// SaveTracks replaces the cached tracks for one playlist in a transaction,
// preserving fetch order through the position column.
func (r *LibraryRepository) SaveTracks(playlistID string, tracks []models.Track) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return fmt.Errorf("failed to clear track cache: %w", err)
	}

	query := `
		INSERT INTO tracks (id, service_id, playlist_id, position, title, artist, album, duration_ms, uri, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	for position, track := range tracks {
		_, err := tx.Exec(query,
			shared.GenerateID(),
			track.ID,
			playlistID,
			position,
			track.Title,
			track.Artist,
			track.Album,
			track.DurationMS,
			track.URI,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit track cache: %w", err)
	}

	return nil
}

// Tracks returns the cached tracks for a playlist in their original order.
func (r *LibraryRepository) Tracks(playlistID string) ([]models.Track, error) {
	query := `
		SELECT service_id, title, artist, album, duration_ms, uri
		FROM tracks
		WHERE playlist_id = ?
		ORDER BY position ASC
	`

	rows, err := r.db.Query(query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var track models.Track
		if err := rows.Scan(&track.ID, &track.Title, &track.Artist, &track.Album, &track.DurationMS, &track.URI); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// CachedAt reports when the playlist cache was last refreshed. A zero time
// means the cache is empty.
func (r *LibraryRepository) CachedAt() (time.Time, error) {
	var cachedAt time.Time

	err := r.db.QueryRow(`SELECT cached_at FROM playlists ORDER BY cached_at DESC LIMIT 1`).Scan(&cachedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query cache age: %w", err)
	}

	return cachedAt, nil
}
