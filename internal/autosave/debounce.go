// Package autosave turns rapidly changing input values into delayed commits.
package autosave

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period an edited field waits before it is saved.
const DefaultDelay = time.Second

// Debouncer holds a live value and a committed value. The committed value
// only changes after the live value has been unchanged for the full delay.
// Emission is trailing edge only and there is no maximum wait.
type Debouncer[T comparable] struct {
	mu        sync.Mutex
	delay     time.Duration
	live      T
	committed T
	gen       uint64
	timer     *time.Timer
	stopped   bool
	onCommit  func(T)
}

// New returns a Debouncer whose live and committed values start at initial.
// onCommit, if non-nil, runs on the timer goroutine each time the committed
// value changes.
func New[T comparable](initial T, delay time.Duration, onCommit func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		delay:     delay,
		live:      initial,
		committed: initial,
		onCommit:  onCommit,
	}
}

// Set records a new live value and restarts the delay window. Setting the
// current live value again does nothing.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || v == d.live {
		return
	}
	d.live = v
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that lost the race with Set or Stop must not emit.
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	changed := d.live != d.committed
	d.committed = d.live
	v := d.committed
	d.mu.Unlock()

	if changed && d.onCommit != nil {
		d.onCommit(v)
	}
}

// Value returns the committed value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// Live returns the most recently set value.
func (d *Debouncer[T]) Live() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// Pending reports whether a commit is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any scheduled commit without emitting it. A value set inside
// the delay window before Stop is dropped. Further calls to Set are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
