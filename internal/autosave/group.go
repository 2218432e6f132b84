package autosave

import (
	"sync"
	"time"
)

// Group keeps one Debouncer per key so that independent fields of a form
// commit independently.
type Group[K comparable, V comparable] struct {
	mu       sync.Mutex
	delay    time.Duration
	onCommit func(K, V)
	fields   map[K]*Debouncer[V]
	stopped  bool
}

// NewGroup returns an empty Group. onCommit runs with the key and the newly
// committed value of a field.
func NewGroup[K comparable, V comparable](delay time.Duration, onCommit func(K, V)) *Group[K, V] {
	return &Group[K, V]{
		delay:    delay,
		onCommit: onCommit,
		fields:   make(map[K]*Debouncer[V]),
	}
}

// Track starts watching key with the given saved value. Tracking a key that is
// already watched leaves it untouched.
func (g *Group[K, V]) Track(key K, initial V) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	if _, ok := g.fields[key]; ok {
		return
	}
	g.fields[key] = New(initial, g.delay, func(v V) { g.onCommit(key, v) })
}

// Set updates the live value of a tracked key. It reports false for keys that
// are not tracked.
func (g *Group[K, V]) Set(key K, v V) bool {
	g.mu.Lock()
	d, ok := g.fields[key]
	g.mu.Unlock()

	if !ok {
		return false
	}
	d.Set(v)
	return true
}

// Forget stops and removes a key, dropping any pending commit.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	d, ok := g.fields[key]
	delete(g.fields, key)
	g.mu.Unlock()

	if ok {
		d.Stop()
	}
}

// Tracked reports whether key is watched.
func (g *Group[K, V]) Tracked(key K) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.fields[key]
	return ok
}

// Pending returns the number of fields with a scheduled commit.
func (g *Group[K, V]) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, d := range g.fields {
		if d.Pending() {
			n++
		}
	}
	return n
}

// Stop cancels every pending commit without flushing.
func (g *Group[K, V]) Stop() {
	g.mu.Lock()
	fields := g.fields
	g.fields = make(map[K]*Debouncer[V])
	g.stopped = true
	g.mu.Unlock()

	for _, d := range fields {
		d.Stop()
	}
}
