// Package repositories provides the SQLite-backed library cache.
//
// The cache keeps the last fetched playlists and their tracks so the browser
// can render immediately on startup and keep working while the API is
// unreachable. Writes are replace-all inside a transaction since the remote
// library is the source of truth.
package repositories
