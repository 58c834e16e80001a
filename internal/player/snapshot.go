package player

import (
	"time"

	"github.com/desertthunder/spotctl/internal/services"
)

// Snapshot is a point-in-time observation of the remote playback state.
// FetchedAt anchors the observation so progress can be interpolated later.
type Snapshot struct {
	TrackID    string
	TrackTitle string
	Artist     string
	Album      string
	TrackURI   string
	DurationMS int
	ProgressMS int
	IsPlaying  bool
	DeviceID   string
	DeviceName string
	FetchedAt  time.Time
}

// Empty reports whether no track was playing at observation time.
func (s Snapshot) Empty() bool {
	return s.TrackID == ""
}

// snapshotFrom converts a gateway playback state into a Snapshot. A nil state
// (nothing playing, or no active device) becomes an empty snapshot anchored
// at now so staleness is still measurable.
func snapshotFrom(ps *services.PlaybackState, now time.Time) Snapshot {
	if ps == nil {
		return Snapshot{FetchedAt: now}
	}

	fetched := ps.FetchedAt
	if fetched.IsZero() {
		fetched = now
	}

	return Snapshot{
		TrackID:    ps.TrackID,
		TrackTitle: ps.TrackTitle,
		Artist:     ps.Artist,
		Album:      ps.Album,
		TrackURI:   ps.TrackURI,
		DurationMS: ps.DurationMS,
		ProgressMS: ps.ProgressMS,
		IsPlaying:  ps.IsPlaying,
		DeviceID:   ps.DeviceID,
		DeviceName: ps.DeviceName,
		FetchedAt:  fetched,
	}
}

// View is a snapshot with progress advanced to an instant after observation.
type View struct {
	Snapshot

	EstimatedProgressMS int
	AtTrackEnd          bool
}

// Interpolate estimates playback progress at the given instant. Paused
// snapshots keep their observed progress. The estimate is clamped to
// [0, DurationMS] and freezes at the duration until the next poll confirms
// the track change, so the bar never runs past the end of a track.
func Interpolate(s Snapshot, now time.Time) View {
	progress := s.ProgressMS
	if s.IsPlaying && !s.FetchedAt.IsZero() {
		if elapsed := now.Sub(s.FetchedAt); elapsed > 0 {
			progress += int(elapsed / time.Millisecond)
		}
	}

	if progress < 0 {
		progress = 0
	}

	atEnd := false
	if s.DurationMS > 0 && progress >= s.DurationMS {
		progress = s.DurationMS
		atEnd = true
	}

	return View{Snapshot: s, EstimatedProgressMS: progress, AtTrackEnd: atEnd}
}
