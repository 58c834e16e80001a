package player

import "time"

// CommandKind identifies a playback control intent.
type CommandKind int

const (
	CommandPlay CommandKind = iota
	CommandPause
	CommandToggle
	CommandSeek
	CommandNext
	CommandPrevious
)

func (k CommandKind) String() string {
	switch k {
	case CommandPlay:
		return "play"
	case CommandPause:
		return "pause"
	case CommandToggle:
		return "toggle"
	case CommandSeek:
		return "seek"
	case CommandNext:
		return "next"
	case CommandPrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// seekConfirmToleranceMS is how far an observed position may drift from an
// issued seek target while still counting as confirmation. It absorbs the
// playback that happens between the seek landing and the next poll.
const seekConfirmToleranceMS = 5000

// PendingCommand is the single in-flight optimistic command. Optimistic is
// the state shown to the user while waiting for the device to catch up, and
// Polls counts how many snapshots have arrived without confirming it.
type PendingCommand struct {
	Kind        CommandKind
	SeekMS      int
	URIs        []string
	IssuedAt    time.Time
	BaseTrackID string
	Polls       int
	Optimistic  Snapshot
}

// ConfirmedBy reports whether the snapshot shows the device has applied the
// command. Track skips are confirmed by a track change, or by the position
// resetting near zero when previous restarts the same track.
func (p *PendingCommand) ConfirmedBy(snap Snapshot) bool {
	switch p.Kind {
	case CommandPlay:
		if len(p.URIs) > 0 {
			return snap.IsPlaying && snap.TrackURI != "" && snap.TrackURI == p.URIs[0]
		}

		return snap.IsPlaying
	case CommandPause:
		return !snap.IsPlaying
	case CommandSeek:
		elapsed := int(snap.FetchedAt.Sub(p.IssuedAt) / time.Millisecond)
		if elapsed < 0 {
			elapsed = 0
		}

		diff := snap.ProgressMS - (p.SeekMS + elapsed)
		if diff < 0 {
			diff = -diff
		}

		return diff <= seekConfirmToleranceMS
	case CommandNext, CommandPrevious:
		if snap.TrackID != p.BaseTrackID {
			return true
		}

		return snap.ProgressMS < seekConfirmToleranceMS
	default:
		return false
	}
}
