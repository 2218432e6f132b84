package live

import (
	"context"
	"sync"
	"time"
)

// Observer is told about screen lifecycle and autosave outcomes.
type Observer interface {
	ScreenOpened(kind string)
	ScreenClosed(kind string)
	FieldCommitted(kind string, ok bool)
}

type nopObserver struct{}

func (nopObserver) ScreenOpened(string)         {}
func (nopObserver) ScreenClosed(string)         {}
func (nopObserver) FieldCommitted(string, bool) {}

// Registry tracks the open screens of all users.
type Registry struct {
	delay    time.Duration
	idle     time.Duration
	observer Observer

	mu      sync.Mutex
	screens map[string]*Screen
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver reports lifecycle events to o.
func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// WithIdleTimeout sets how long a screen may wait for its stream before it
// is closed.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) { r.idle = d }
}

// NewRegistry returns a registry whose screens debounce field edits by delay.
func NewRegistry(delay time.Duration, opts ...Option) *Registry {
	r := &Registry{
		delay:    delay,
		idle:     2 * time.Minute,
		observer: nopObserver{},
		screens:  make(map[string]*Screen),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open creates a screen owned by userID holding state.
func (r *Registry) Open(userID, kind string, state any) *Screen {
	s := newScreen(userID, kind, state, r.delay, r.observer)

	r.mu.Lock()
	r.screens[s.ID] = s
	r.mu.Unlock()

	r.observer.ScreenOpened(kind)
	return s
}

// Get returns an open screen owned by userID.
func (r *Registry) Get(id, userID string) (*Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.screens[id]
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// Attach claims a screen for its event stream. A screen can be attached once.
func (r *Registry) Attach(id, userID string) (*Screen, bool) {
	s, ok := r.Get(id, userID)
	if !ok || !s.attach() {
		return nil, false
	}
	return s, true
}

// Close closes and forgets a screen.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()

	if ok {
		s.Close()
		r.observer.ScreenClosed(s.Kind)
	}
}

// Len returns the number of open screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// Run closes screens that never attached a stream until ctx is done, then
// closes every screen.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(max(r.idle/4, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case now := <-ticker.C:
			r.Reap(now)
		}
	}
}

// Reap closes screens opened before now minus the idle timeout that have no
// stream attached.
func (r *Registry) Reap(now time.Time) int {
	cutoff := now.Add(-r.idle)

	r.mu.Lock()
	var stale []string
	for id, s := range r.screens {
		if s.idleSince(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.Close(id)
	}
	return len(stale)
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.screens))
	for id := range r.screens {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Close(id)
	}
}
