package query

import (
	"sync"
	"time"
)

// Debouncer delivers a value only after it has stood unchanged for the delay.
type Debouncer[T any] struct {
	mu       sync.Mutex
	delay    time.Duration
	fn       func(T)
	timer    *time.Timer
	seq      uint64
	pending  T
	hasValue bool
	value    T
}

// NewDebouncer creates a debouncer whose settled value starts as initial.
// fn, when non-nil, receives every settled value.
func NewDebouncer[T any](delay time.Duration, initial T, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{
		delay: delay,
		fn:    fn,
		value: initial,
	}
}

// Set replaces the pending value and restarts the timer.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = v
	d.hasValue = true
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// fire settles the pending value unless a later Set or Stop superseded seq.
func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || !d.hasValue {
		d.mu.Unlock()
		return
	}
	v := d.settleLocked()
	fn := d.fn
	d.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

func (d *Debouncer[T]) settleLocked() T {
	d.value = d.pending
	d.hasValue = false
	d.timer = nil
	return d.value
}

// Value returns the last settled value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Flush settles the pending value immediately.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if !d.hasValue {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	v := d.settleLocked()
	fn := d.fn
	d.mu.Unlock()

	if fn != nil {
		fn(v)
	}
}

// Stop discards the pending value.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.hasValue = false
}
