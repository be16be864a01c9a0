// Package debounce provides a cancellable scheduled task: each Trigger cancels the
// previously scheduled run and schedules a new one, so only the last value within
// the quiet window is delivered.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet window for keystroke-driven work.
const DefaultDelay = 300 * time.Millisecond

type Debouncer[T any] struct {
	delay time.Duration
	clock Clock
	fn    func(T)

	mu      sync.Mutex
	timer   Timer
	value   T
	gen     uint64
	pending bool
	stopped bool
}

type Option func(*config)

type config struct {
	clock Clock
}

// WithClock replaces the wall clock, typically with a ManualClock in tests.
func WithClock(c Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// New returns a Debouncer that calls fn with the last triggered value once delay
// has passed without another Trigger. fn runs on the clock's goroutine.
func New[T any](delay time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	cfg := config{clock: RealClock}
	for _, o := range opts {
		o(&cfg)
	}
	return &Debouncer[T]{delay: delay, clock: cfg.clock, fn: fn}
}

func (d *Debouncer[T]) Delay() time.Duration { return d.delay }

// Trigger records v and restarts the quiet window.
func (d *Debouncer[T]) Trigger(v T) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A timer that already fired can still be waiting on the lock after a newer
	// Trigger or Cancel; the generation check drops it.
	if gen != d.gen || !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	v := d.value
	d.mu.Unlock()
	d.fn(v)
}

// Cancel drops the scheduled run, if any.
func (d *Debouncer[T]) Cancel() {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Pending reports whether a run is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels and disables the debouncer. Later Triggers are ignored.
func (d *Debouncer[T]) Stop() {
	if d == nil {
		return
	}
	d.Cancel()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

// Event is a value observed at an offset from the start of a stream.
type Event[T any] struct {
	At    time.Duration
	Value T
}

// Collapse is the debouncer as a pure function: given input events ordered by
// time, it returns the runs a Debouncer with the given delay would issue, each at
// the time it fires.
func Collapse[T any](events []Event[T], delay time.Duration) []Event[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	var out []Event[T]
	for i, e := range events {
		fireAt := e.At + delay
		if i+1 < len(events) && events[i+1].At < fireAt {
			continue
		}
		out = append(out, Event[T]{At: fireAt, Value: e.Value})
	}
	return out
}
