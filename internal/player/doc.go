// Package player is the single source of truth for "what is playing right now".
//
// The remote device's real state can only be observed by polling, so the
// package reconciles three inputs: periodic [Snapshot] polls through the API
// gateway, user commands applied optimistically, and the passage of wall-clock
// time. Between polls the [Interpolate] function advances a locally estimated
// progress, clamped so it never exceeds the track duration; a snapshot always
// overrides interpolated and optimistic state except during the bounded
// window of a single in-flight [PendingCommand].
//
// [Synchronizer] owns all mutable playback state. The UI layer reads it
// through [Synchronizer.View] and the update channel, and feeds intents in
// through the debouncing [Dispatcher]. Interpolation and reconciliation are
// pure functions so they are unit-testable without network mocking.
package player
