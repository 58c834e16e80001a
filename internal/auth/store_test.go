package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRecord() *Record {
	return &Record{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(time.Hour),
		Scopes:       []string{"user-read-playback-state"},
	}
}

func TestRecordValid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid token", func(t *testing.T) {
		record := &Record{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)}
		if !record.Valid(now, 30*time.Second) {
			t.Error("expected valid")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		record := &Record{AccessToken: "tok", ExpiresAt: now.Add(-time.Minute)}
		if record.Valid(now, 30*time.Second) {
			t.Error("expected invalid")
		}
	})

	t.Run("expiring within the skew window", func(t *testing.T) {
		record := &Record{AccessToken: "tok", ExpiresAt: now.Add(10 * time.Second)}
		if record.Valid(now, 30*time.Second) {
			t.Error("expected invalid inside the skew window")
		}
	})

	t.Run("nil record", func(t *testing.T) {
		var record *Record
		if record.Valid(now, 0) {
			t.Error("expected invalid")
		}
	})

	t.Run("missing access token", func(t *testing.T) {
		record := &Record{ExpiresAt: now.Add(time.Hour)}
		if record.Valid(now, 0) {
			t.Error("expected invalid")
		}
	})
}

func TestStore(t *testing.T) {
	t.Run("load missing file returns nil record", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))

		record, err := store.Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if record != nil {
			t.Error("expected nil record for missing file")
		}
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))
		saved := testRecord()

		if err := store.Save(saved); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded == nil {
			t.Fatal("expected a record")
		}

		if loaded.AccessToken != saved.AccessToken || loaded.RefreshToken != saved.RefreshToken {
			t.Errorf("tokens did not roundtrip: %+v", loaded)
		}
		if len(loaded.Scopes) != 1 || loaded.Scopes[0] != "user-read-playback-state" {
			t.Errorf("scopes did not roundtrip: %v", loaded.Scopes)
		}
	})

	t.Run("save creates parent directories", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "credentials.json"))

		if err := store.Save(testRecord()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if _, err := os.Stat(store.Path()); err != nil {
			t.Errorf("expected file to exist: %v", err)
		}
	})

	t.Run("saved file is owner-only", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))

		if err := store.Save(testRecord()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		info, err := os.Stat(store.Path())
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}

		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}
	})

	t.Run("save leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(filepath.Join(dir, "credentials.json"))

		if err := store.Save(testRecord()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("readdir failed: %v", err)
		}

		if len(entries) != 1 || entries[0].Name() != "credentials.json" {
			t.Errorf("unexpected directory contents: %v", entries)
		}
	})

	t.Run("save rejects nil record", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))

		if err := store.Save(nil); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("save overwrites existing record", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))

		if err := store.Save(testRecord()); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		updated := testRecord()
		updated.AccessToken = "rotated"
		if err := store.Save(updated); err != nil {
			t.Fatalf("resave failed: %v", err)
		}

		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if loaded.AccessToken != "rotated" {
			t.Errorf("expected rotated token, got %q", loaded.AccessToken)
		}
	})

	t.Run("delete removes the record", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))

		if err := store.Save(testRecord()); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := store.Delete(); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		record, err := store.Load()
		if err != nil || record != nil {
			t.Errorf("expected empty store, got record=%v err=%v", record, err)
		}
	})

	t.Run("delete on missing file is a no-op", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "credentials.json"))

		if err := store.Delete(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("load rejects corrupt records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "credentials.json")
		if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		store := NewStore(path)
		if _, err := store.Load(); err == nil {
			t.Error("expected an error for corrupt record")
		}
	})
}
