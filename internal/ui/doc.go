// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a two-view remote control for the active playback device:
//  1. [PlaylistListView] : Browse the user's playlists
//  2. [TrackListView] : Browse a playlist's tracks and start playback
//
// A persistent playback bar at the bottom shows the current track and an
// interpolated progress estimate, refreshed on a sub-second tick so the bar
// advances smoothly between polls. Transport keys (space, n, p, arrows) work
// from every view and flow through the debouncing dispatcher, never blocking
// the render loop on the network.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
