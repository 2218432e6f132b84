// Package live keeps the server-side state of editor pages that are open in
// a browser. Each open page is a Screen: its cached models, one debounced
// autosave per editable field and a loop that applies writes one at a time.
// A Screen lives as long as the page's event stream.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/tempo/internal/autosave"
)

// ErrClosed is returned when work is sent to a closed screen.
var ErrClosed = errors.New("screen closed")

// Applier writes a committed field value.
type Applier func(ctx context.Context, value string) error

// Update reports the outcome of one autosave.
type Update struct {
	Key string
	Err error
}

// Screen is one open editor page.
type Screen struct {
	ID     string
	UserID string
	Kind   string
	// State is the page's models. It must only be touched from inside Do
	// or an Applier.
	State any

	observer Observer
	fields   *autosave.Group[string, string]

	mu       sync.Mutex
	appliers map[string]Applier
	mounted  bool
	attached bool
	opened   time.Time

	tasks    chan func()
	updates  chan Update
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newScreen(userID, kind string, state any, delay time.Duration, observer Observer) *Screen {
	s := &Screen{
		ID:       uuid.NewString(),
		UserID:   userID,
		Kind:     kind,
		State:    state,
		observer: observer,
		appliers: make(map[string]Applier),
		mounted:  true,
		opened:   time.Now(),
		tasks:    make(chan func(), 64),
		updates:  make(chan Update, 32),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.fields = autosave.NewGroup(delay, s.commit)
	go s.loop()
	return s
}

// Watch starts autosaving key, whose stored value is saved. Watching a key
// twice keeps the first registration.
func (s *Screen) Watch(key, saved string, apply Applier) {
	s.mu.Lock()
	if _, ok := s.appliers[key]; !ok && s.mounted {
		s.appliers[key] = apply
	}
	s.mu.Unlock()
	s.fields.Track(key, saved)
}

// Unwatch drops key and any pending write for it.
func (s *Screen) Unwatch(key string) {
	s.fields.Forget(key)
	s.mu.Lock()
	delete(s.appliers, key)
	s.mu.Unlock()
}

// Set records a new live value for key. It reports false when key is not
// watched.
func (s *Screen) Set(key, value string) bool {
	return s.fields.Set(key, value)
}

// Pending returns the number of fields waiting to be written.
func (s *Screen) Pending() int {
	return s.fields.Pending()
}

// Updates delivers the outcome of each autosave. Outcomes are dropped when
// nobody is reading.
func (s *Screen) Updates() <-chan Update {
	return s.updates
}

// Done is closed when the screen closes.
func (s *Screen) Done() <-chan struct{} {
	return s.done
}

func (s *Screen) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Do runs fn on the screen loop and waits for it. Writes started by fn are
// not cancelled if the screen closes meanwhile.
func (s *Screen) Do(ctx context.Context, fn func(ctx context.Context)) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn(context.WithoutCancel(ctx))
	}

	select {
	case s.tasks <- task:
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		// The loop exited; the task either ran to completion or never will.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the screen. Pending field writes are dropped, not flushed.
func (s *Screen) Close() {
	s.mu.Lock()
	s.mounted = false
	s.mu.Unlock()

	s.fields.Stop()
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Screen) attach() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted || s.attached {
		return false
	}
	s.attached = true
	return true
}

func (s *Screen) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.attached && s.opened.Before(cutoff)
}

// commit runs on a debouncer timer and hands the write to the loop.
func (s *Screen) commit(key, value string) {
	task := func() { s.apply(key, value) }
	select {
	case s.tasks <- task:
	case <-s.stop:
	}
}

func (s *Screen) apply(key, value string) {
	s.mu.Lock()
	apply, ok := s.appliers[key]
	s.mu.Unlock()
	if !ok {
		return
	}

	err := apply(context.Background(), value)
	if err != nil {
		slog.Warn("autosave", "screen", s.Kind, "field", key, "error", err)
	}
	s.observer.FieldCommitted(s.Kind, err == nil)

	if !s.Mounted() {
		return
	}
	select {
	case s.updates <- Update{Key: key, Err: err}:
	default:
	}
}

func (s *Screen) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case task := <-s.tasks:
			task()
		}
	}
}
