package persist

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a free-text edit is written.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer delays fn(key) until no Touch(key) happened for the quiet period.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(key string)
	pending map[string]*time.Timer
	stopped bool
}

// NewDebouncer returns a debouncer calling fn on its own goroutine.
func NewDebouncer(delay time.Duration, fn func(key string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn, pending: make(map[string]*time.Timer)}
}

// Touch (re)arms the timer for key.
func (d *Debouncer) Touch(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.pending[key]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a later Touch replaced this timer
		if d.pending[key] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		d.fn(key)
	})
	d.pending[key] = timer
}

// Pending reports whether key has a write waiting.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Flush cancels the timers and runs fn synchronously for every pending key.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	keys := make([]string, 0, len(d.pending))
	for k, t := range d.pending {
		t.Stop()
		keys = append(keys, k)
	}
	d.pending = make(map[string]*time.Timer)
	d.mu.Unlock()

	for _, k := range keys {
		d.fn(k)
	}
}

// Stop flushes pending keys and ignores every later Touch.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.Flush()
}
