package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotctl/internal/services"
	"github.com/desertthunder/spotctl/internal/shared"
	"golang.org/x/time/rate"
)

// Gateway is the slice of the API surface the synchronizer drives.
type Gateway interface {
	CurrentPlayback(ctx context.Context) (*services.PlaybackState, error)
	Play(ctx context.Context, opts *services.PlayOptions) error
	Pause(ctx context.Context) error
	SeekTo(ctx context.Context, positionMS int) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
}

// State pairs the last confirmed snapshot with the single in-flight
// optimistic command, if any.
type State struct {
	Confirmed Snapshot
	Pending   *PendingCommand
}

// View resolves the state to what the user should see at the given instant.
// A pending command's optimistic snapshot wins until it is confirmed or
// dropped.
func (s State) View(now time.Time) View {
	if s.Pending != nil {
		return Interpolate(s.Pending.Optimistic, now)
	}

	return Interpolate(s.Confirmed, now)
}

// reconcile merges a fresh snapshot into the state. The snapshot always
// becomes the confirmed truth. A pending command survives only while it
// remains unconfirmed and under the poll budget; a confirming snapshot
// clears it immediately and an exhausted budget drops it silently, letting
// the device's reported state win.
func reconcile(state State, snap Snapshot, maxPolls int) State {
	next := State{Confirmed: snap}
	if p := state.Pending; p != nil && !p.ConfirmedBy(snap) {
		survivor := *p
		survivor.Polls++
		if survivor.Polls < maxPolls {
			next.Pending = &survivor
		}
	}

	return next
}

// Event is a non-fatal condition surfaced to the UI, such as a rejected
// command or an unreachable API.
type Event struct {
	Err error
	At  time.Time
}

// Synchronizer polls the gateway on a fixed cadence, reconciles snapshots
// against optimistic local state, and broadcasts the merged result. All
// methods are safe for concurrent use.
type Synchronizer struct {
	gateway        Gateway
	logger         *log.Logger
	limiter        *rate.Limiter
	interval       time.Duration
	maxUnconfirmed int
	clock          func() time.Time

	mu    sync.Mutex
	state State

	updates chan State
	events  chan Event
	calls   sync.WaitGroup
}

// NewSynchronizer builds a synchronizer from the player configuration.
func NewSynchronizer(gateway Gateway, conf shared.PlayerConfig, logger *log.Logger) *Synchronizer {
	interval := time.Duration(conf.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}

	maxPolls := conf.MaxUnconfirmedPolls
	if maxPolls <= 0 {
		maxPolls = 3
	}

	if logger == nil {
		logger = log.Default()
	}

	return &Synchronizer{
		gateway:        gateway,
		logger:         logger,
		limiter:        rate.NewLimiter(rate.Every(interval), 1),
		interval:       interval,
		maxUnconfirmed: maxPolls,
		clock:          time.Now,
		updates:        make(chan State, 1),
		events:         make(chan Event, 16),
	}
}

// Run polls until the context is cancelled. The rate limiter paces the loop
// so a slow poll never causes a burst of catch-up requests.
func (s *Synchronizer) Run(ctx context.Context) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		s.Poll(ctx)
	}
}

// Poll fetches one snapshot and reconciles it into the state. Fetch errors
// are surfaced as events and leave the last known state untouched.
func (s *Synchronizer) Poll(ctx context.Context) {
	ps, err := s.gateway.CurrentPlayback(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		s.logger.Debug("playback poll failed", "error", err)
		s.emit(err)

		return
	}

	snap := snapshotFrom(ps, s.clock())

	s.mu.Lock()
	s.state = reconcile(s.state, snap, s.maxUnconfirmed)
	st := s.state
	s.mu.Unlock()

	s.publish(st)
}

// Current returns the last merged state.
func (s *Synchronizer) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// View returns the user-visible playback view at the current instant.
func (s *Synchronizer) View() View {
	return s.Current().View(s.clock())
}

// Updates delivers the latest state after each reconcile. The channel holds
// only the newest value; slow readers never block the poll loop.
func (s *Synchronizer) Updates() <-chan State {
	return s.updates
}

// Events delivers non-fatal errors for display.
func (s *Synchronizer) Events() <-chan Event {
	return s.events
}

// TogglePlay resolves against the current view so a press always inverts
// what the user sees, pending command included.
func (s *Synchronizer) TogglePlay(ctx context.Context) {
	if s.View().IsPlaying {
		s.Pause(ctx)
	} else {
		s.Play(ctx)
	}
}

func (s *Synchronizer) Play(ctx context.Context) {
	s.command(ctx, CommandPlay, 0, nil, func(ctx context.Context) error {
		return s.gateway.Play(ctx, nil)
	})
}

// PlayURIs starts playback of the given track URIs on the active device.
func (s *Synchronizer) PlayURIs(ctx context.Context, uris ...string) {
	s.command(ctx, CommandPlay, 0, uris, func(ctx context.Context) error {
		return s.gateway.Play(ctx, &services.PlayOptions{URIs: uris})
	})
}

func (s *Synchronizer) Pause(ctx context.Context) {
	s.command(ctx, CommandPause, 0, nil, func(ctx context.Context) error {
		return s.gateway.Pause(ctx)
	})
}

func (s *Synchronizer) Seek(ctx context.Context, positionMS int) {
	s.command(ctx, CommandSeek, positionMS, nil, func(ctx context.Context) error {
		return s.gateway.SeekTo(ctx, positionMS)
	})
}

func (s *Synchronizer) Next(ctx context.Context) {
	s.command(ctx, CommandNext, 0, nil, func(ctx context.Context) error {
		return s.gateway.NextTrack(ctx)
	})
}

func (s *Synchronizer) Previous(ctx context.Context) {
	s.command(ctx, CommandPrevious, 0, nil, func(ctx context.Context) error {
		return s.gateway.PreviousTrack(ctx)
	})
}

// command records an optimistic pending state, publishes it immediately, and
// issues the gateway call off the caller's goroutine so key handling never
// blocks on the network.
func (s *Synchronizer) command(ctx context.Context, kind CommandKind, seekMS int, uris []string, call func(context.Context) error) {
	now := s.clock()

	s.mu.Lock()
	base := s.state.Confirmed
	s.state.Pending = &PendingCommand{
		Kind:        kind,
		SeekMS:      seekMS,
		URIs:        uris,
		IssuedAt:    now,
		BaseTrackID: base.TrackID,
		Optimistic:  optimisticSnapshot(base, kind, seekMS, uris, now),
	}
	st := s.state
	s.mu.Unlock()

	s.publish(st)
	s.calls.Add(1)

	go func() {
		defer s.calls.Done()

		if err := call(ctx); err != nil {
			s.rollback(kind, err)
		}
	}()
}

// rollback discards the optimistic overlay after a gateway failure so the
// view falls back to the last confirmed snapshot.
func (s *Synchronizer) rollback(kind CommandKind, err error) {
	s.mu.Lock()
	if p := s.state.Pending; p != nil && p.Kind == kind {
		s.state.Pending = nil
	}
	st := s.state
	s.mu.Unlock()

	s.publish(st)
	s.logger.Debug("playback command failed", "command", kind, "error", err)

	switch {
	case errors.Is(err, shared.ErrNoActiveDevice),
		errors.Is(err, shared.ErrAuthExpired),
		errors.Is(err, shared.ErrRateLimited),
		errors.Is(err, shared.ErrUnreachable):
		s.emit(err)
	default:
		s.emit(fmt.Errorf("%w: %s: %v", shared.ErrCommandRejected, kind, err))
	}
}

// Wait blocks until all in-flight gateway calls return. Used on shutdown.
func (s *Synchronizer) Wait() {
	s.calls.Wait()
}

// optimisticSnapshot projects what the state should look like once the
// device applies the command, starting from the interpolated base.
func optimisticSnapshot(base Snapshot, kind CommandKind, seekMS int, uris []string, now time.Time) Snapshot {
	snap := base
	snap.ProgressMS = Interpolate(base, now).EstimatedProgressMS
	snap.FetchedAt = now

	switch kind {
	case CommandPlay:
		snap.IsPlaying = true
		if len(uris) > 0 {
			snap.TrackURI = uris[0]
			snap.ProgressMS = 0
		}
	case CommandPause:
		snap.IsPlaying = false
	case CommandSeek:
		snap.ProgressMS = seekMS
		if snap.ProgressMS < 0 {
			snap.ProgressMS = 0
		}

		if snap.DurationMS > 0 && snap.ProgressMS > snap.DurationMS {
			snap.ProgressMS = snap.DurationMS
		}
	case CommandNext, CommandPrevious:
		snap.ProgressMS = 0
	}

	return snap
}

// publish replaces the buffered update with the newest state.
func (s *Synchronizer) publish(st State) {
	for {
		select {
		case s.updates <- st:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

// emit drops events when the buffer is full rather than blocking the loop.
func (s *Synchronizer) emit(err error) {
	select {
	case s.events <- Event{Err: err, At: s.clock()}:
	default:
	}
}
