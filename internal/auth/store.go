// Package auth implements the OAuth2 credential lifecycle: persisting the
// token record on disk and keeping a live session with a valid bearer token.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is the persisted credential record. It contains a long-lived refresh
// token, so the file it lives in is readable only by the owning user.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes"`
}

// Valid reports whether the access token is usable at the given instant,
// allowing for the clock-skew tolerance.
func (r *Record) Valid(now time.Time, skew time.Duration) bool {
	return r != nil && r.AccessToken != "" && r.ExpiresAt.After(now.Add(skew))
}

// Store persists the credential [Record] at a fixed path.
type Store struct {
	path string
}

// NewStore creates a Store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path where the record is stored.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted record from disk.
//
// Returns (nil, nil) when no record exists yet.
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credential record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse credential record: %w", err)
	}

	return &record, nil
}

// Save writes the record atomically: the JSON is written to a temp file in the
// same directory and renamed over the target, so a crash mid-write never
// leaves a corrupt record. The file is created owner-only (0600).
func (s *Store) Save(record *Record) error {
	if record == nil {
		return fmt.Errorf("cannot save nil credential record")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write credential record: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to restrict credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace credential record: %w", err)
	}

	return nil
}

// Delete removes the persisted record. Returns nil when no record exists.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential record: %w", err)
	}
	return nil
}
