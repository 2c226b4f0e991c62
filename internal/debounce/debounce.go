// Package debounce coalesces bursts of input into a single delayed emission.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the quiet period used for search input.
const DefaultWait = 300 * time.Millisecond

// Debouncer emits the most recent pushed value once no new value has arrived
// for the wait period.
type Debouncer struct {
	wait time.Duration
	fn   func(string)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending string
	armed   bool

	// emit serializes fn so it never runs concurrently with itself. It is
	// always acquired under mu, never the other way round.
	emit sync.Mutex
}

// New creates a Debouncer that calls fn after wait of quiet.
func New(wait time.Duration, fn func(string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer{wait: wait, fn: fn}
}

// Push records v as the latest value and restarts the quiet period.
func (d *Debouncer) Push(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	d.pending = v
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() {
		d.fire(gen)
	})
}

// Flush emits the pending value now, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	d.fireLocked()
}

// Stop drops the pending value without emitting it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A newer Push or a Stop superseded this timer.
	if gen != d.gen || !d.armed {
		d.mu.Unlock()
		return
	}
	d.fireLocked()
}

// fireLocked is called with d.mu held and releases it. emit is taken before
// mu is released so values are emitted in the order they were taken.
func (d *Debouncer) fireLocked() {
	v := d.pending
	d.armed = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.emit.Lock()
	d.mu.Unlock()

	defer d.emit.Unlock()
	d.fn(v)
}
