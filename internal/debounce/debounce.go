// Package debounce coalesces bursts of calls per key into the last one.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled task for a key once the key has
// been quiet for the window. Pending timers are dropped, running tasks are not
// interrupted.
type Debouncer struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	seq     uint64
	stopped bool
}

type entry struct {
	timer *time.Timer
	seq   uint64
}

func New(window time.Duration) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{window: window, pending: map[string]*entry{}}
}

func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Schedule replaces any pending task for key with fn. It reports false after Stop.
func (d *Debouncer) Schedule(key string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
	}
	d.seq++
	e := &entry{seq: d.seq}
	e.timer = time.AfterFunc(d.window, func() { d.fire(key, e.seq, fn) })
	d.pending[key] = e
	return true
}

func (d *Debouncer) fire(key string, seq uint64, fn func()) {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || e.seq != seq {
		// superseded after the timer had already fired
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	fn()
}

// Cancel drops the pending task for key and reports whether one existed.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether key has a task waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop drops every pending task and rejects new ones.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}
