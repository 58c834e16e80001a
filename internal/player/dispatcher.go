package player

import (
	"context"
	"sync"
	"time"
)

const defaultDebounce = 150 * time.Millisecond

// Intent is a raw user request before debouncing.
type Intent struct {
	Kind   CommandKind
	SeekMS int
	URIs   []string
}

// Dispatcher debounces intents per command kind before handing them to the
// synchronizer. The first intent in a window fires immediately; repeats
// within the window are coalesced and only the newest one fires when the
// window closes. Different kinds never debounce each other.
type Dispatcher struct {
	sync   *Synchronizer
	window time.Duration
	clock  func() time.Time

	mu       sync.Mutex
	lastFire map[CommandKind]time.Time
	queued   map[CommandKind]*Intent
	timers   map[CommandKind]*time.Timer
}

// NewDispatcher builds a dispatcher over the synchronizer. A window of zero
// or less selects the default.
func NewDispatcher(s *Synchronizer, window time.Duration) *Dispatcher {
	if window <= 0 {
		window = defaultDebounce
	}

	return &Dispatcher{
		sync:     s,
		window:   window,
		clock:    time.Now,
		lastFire: make(map[CommandKind]time.Time),
		queued:   make(map[CommandKind]*Intent),
		timers:   make(map[CommandKind]*time.Timer),
	}
}

// Dispatch routes an intent through the debounce window for its kind.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) {
	d.mu.Lock()

	now := d.clock()
	if now.Sub(d.lastFire[intent.Kind]) >= d.window && d.queued[intent.Kind] == nil {
		d.lastFire[intent.Kind] = now
		d.mu.Unlock()
		d.fire(ctx, intent)

		return
	}

	d.queued[intent.Kind] = &intent
	if d.timers[intent.Kind] == nil {
		delay := d.window - now.Sub(d.lastFire[intent.Kind])
		if delay < 0 {
			delay = 0
		}

		kind := intent.Kind
		d.timers[kind] = time.AfterFunc(delay, func() { d.flush(ctx, kind) })
	}

	d.mu.Unlock()
}

// flush fires the newest coalesced intent for a kind once its window closes.
func (d *Dispatcher) flush(ctx context.Context, kind CommandKind) {
	d.mu.Lock()
	intent := d.queued[kind]
	delete(d.queued, kind)
	delete(d.timers, kind)
	d.lastFire[kind] = d.clock()
	d.mu.Unlock()

	if intent != nil {
		d.fire(ctx, *intent)
	}
}

// Stop cancels any queued trailing intents.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for kind, timer := range d.timers {
		timer.Stop()
		delete(d.timers, kind)
		delete(d.queued, kind)
	}
}

func (d *Dispatcher) fire(ctx context.Context, intent Intent) {
	switch intent.Kind {
	case CommandToggle:
		d.sync.TogglePlay(ctx)
	case CommandPlay:
		if len(intent.URIs) > 0 {
			d.sync.PlayURIs(ctx, intent.URIs...)
		} else {
			d.sync.Play(ctx)
		}
	case CommandPause:
		d.sync.Pause(ctx)
	case CommandSeek:
		d.sync.Seek(ctx, intent.SeekMS)
	case CommandNext:
		d.sync.Next(ctx)
	case CommandPrevious:
		d.sync.Previous(ctx)
	}
}
