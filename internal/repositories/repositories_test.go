package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func samplePlaylists() []models.Playlist {
	return []models.Playlist{
		{ID: "pl-1", Name: "Morning Mix", Description: "wake up", TrackCount: 2, Public: true},
		{ID: "pl-2", Name: "deep focus", TrackCount: 40},
	}
}

func sampleTracks() []models.Track {
	return []models.Track{
		{ID: "tr-1", Title: "First Song", Artist: "Artist A", Album: "Album A", DurationMS: 180_000, URI: "spotify:track:tr-1"},
		{ID: "tr-2", Title: "Second Song", Artist: "Artist B", Album: "Album B", DurationMS: 210_000, URI: "spotify:track:tr-2"},
	}
}

func TestLibraryRepository(t *testing.T) {
	t.Run("Playlists", func(t *testing.T) {
		t.Run("empty cache returns no playlists", func(t *testing.T) {
			repo := NewLibraryRepository(setupTestDB(t))

			playlists, err := repo.Playlists()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(playlists) != 0 {
				t.Errorf("expected empty cache, got %d playlists", len(playlists))
			}
		})

		t.Run("save and load roundtrip in name order", func(t *testing.T) {
			repo := NewLibraryRepository(setupTestDB(t))

			if err := repo.SavePlaylists(samplePlaylists()); err != nil {
				t.Fatalf("failed to save playlists: %v", err)
			}

			playlists, err := repo.Playlists()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(playlists) != 2 {
				t.Fatalf("expected 2 playlists, got %d", len(playlists))
			}

			if playlists[0].Name != "deep focus" {
				t.Errorf("expected case-insensitive name order, got %q first", playlists[0].Name)
			}

			if playlists[1].TrackCount != 2 || !playlists[1].Public {
				t.Errorf("unexpected playlist fields: %+v", playlists[1])
			}
		})

		t.Run("save replaces the previous cache", func(t *testing.T) {
			repo := NewLibraryRepository(setupTestDB(t))

			if err := repo.SavePlaylists(samplePlaylists()); err != nil {
				t.Fatalf("failed to save playlists: %v", err)
			}

			if err := repo.SavePlaylists([]models.Playlist{{ID: "pl-3", Name: "Only One"}}); err != nil {
				t.Fatalf("failed to resave playlists: %v", err)
			}

			playlists, err := repo.Playlists()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(playlists) != 1 || playlists[0].ID != "pl-3" {
				t.Errorf("expected replacement, got %+v", playlists)
			}
		})
	})

	t.Run("Tracks", func(t *testing.T) {
		t.Run("save and load preserves fetch order", func(t *testing.T) {
			repo := NewLibraryRepository(setupTestDB(t))

			if err := repo.SaveTracks("pl-1", sampleTracks()); err != nil {
				t.Fatalf("failed to save tracks: %v", err)
			}

			tracks, err := repo.Tracks("pl-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(tracks) != 2 {
				t.Fatalf("expected 2 tracks, got %d", len(tracks))
			}

			if tracks[0].ID != "tr-1" || tracks[1].ID != "tr-2" {
				t.Errorf("expected original order, got %q then %q", tracks[0].ID, tracks[1].ID)
			}

			if tracks[0].URI != "spotify:track:tr-1" {
				t.Errorf("unexpected uri %q", tracks[0].URI)
			}
		})

		t.Run("tracks are scoped to their playlist", func(t *testing.T) {
			repo := NewLibraryRepository(setupTestDB(t))

			if err := repo.SaveTracks("pl-1", sampleTracks()); err != nil {
				t.Fatalf("failed to save tracks: %v", err)
			}

			if err := repo.SaveTracks("pl-2", sampleTracks()[:1]); err != nil {
				t.Fatalf("failed to save tracks: %v", err)
			}

			tracks, err := repo.Tracks("pl-2")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(tracks) != 1 {
				t.Errorf("expected 1 track for pl-2, got %d", len(tracks))
			}
		})

		t.Run("resave replaces only that playlist", func(t *testing.T) {
			repo := NewLibraryRepository(setupTestDB(t))

			if err := repo.SaveTracks("pl-1", sampleTracks()); err != nil {
				t.Fatalf("failed to save tracks: %v", err)
			}

			if err := repo.SaveTracks("pl-1", sampleTracks()[1:]); err != nil {
				t.Fatalf("failed to resave tracks: %v", err)
			}

			tracks, err := repo.Tracks("pl-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(tracks) != 1 || tracks[0].ID != "tr-2" {
				t.Errorf("expected replacement, got %+v", tracks)
			}
		})
	})

	t.Run("CachedAt", func(t *testing.T) {
		repo := NewLibraryRepository(setupTestDB(t))

		cachedAt, err := repo.CachedAt()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !cachedAt.IsZero() {
			t.Error("expected zero time for empty cache")
		}

		if err := repo.SavePlaylists(samplePlaylists()); err != nil {
			t.Fatalf("failed to save playlists: %v", err)
		}

		cachedAt, err = repo.CachedAt()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cachedAt.IsZero() {
			t.Error("expected cache timestamp after save")
		}
	})
}
