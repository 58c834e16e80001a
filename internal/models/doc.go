// Package models defines the domain entities shared across the spotctl core.
//
// These are lightweight data transfer objects produced by the API gateway and
// consumed by the library cache, the CLI, and the TUI:
//   - [Playlist] : playlist metadata from the listing endpoint
//   - [Track] : song metadata with duration for the playback view
//   - [Device] : a playback device known to the account
//
// Playback-specific state (snapshots, interpolated views) lives in the player
// package because it carries timing semantics these plain records do not.
package models
