package watcher

import (
	"sync"
	"time"
)

// Debouncer runs the most recently triggered function once the window has
// been quiet for the full delay.
type Debouncer struct {
	delay   time.Duration
	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending func()
}

// NewDebouncer creates a new debouncer with the specified delay
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
	}
}

// Trigger schedules fn, replacing any pending function and restarting the window
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = fn
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire runs the pending function unless a later Trigger or Cancel superseded
// the timer that called it.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Cancel cancels any pending execution
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// BatchDebouncer collects keys and emits them as one batch once the window
// has been quiet for the full delay. Every Add restarts the window. Duplicate
// keys within a batch are emitted once, in first-seen order.
type BatchDebouncer[K comparable] struct {
	delay time.Duration
	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	keys  []K
	seen  map[K]struct{}
	emit  func([]K)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer[K comparable](delay time.Duration, emit func([]K)) *BatchDebouncer[K] {
	return &BatchDebouncer[K]{
		delay: delay,
		seen:  make(map[K]struct{}),
		emit:  emit,
	}
}

// Add adds a key to the batch and restarts the window
func (b *BatchDebouncer[K]) Add(key K) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[key]; !ok {
		b.seen[key] = struct{}{}
		b.keys = append(b.keys, key)
	}

	b.gen++
	gen := b.gen
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, func() { b.fire(gen) })
}

// fire drains the batch atomically; keys added afterwards start a new window.
// A timer that already fired when Add restarted the window finds a newer
// generation and leaves the batch alone.
func (b *BatchDebouncer[K]) fire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	keys := b.keys
	b.keys = nil
	b.seen = make(map[K]struct{})
	b.timer = nil
	b.mu.Unlock()

	if len(keys) > 0 && b.emit != nil {
		b.emit(keys)
	}
}

// Remove drops a pending key without touching the window
func (b *BatchDebouncer[K]) Remove(key K) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[key]; !ok {
		return
	}
	delete(b.seen, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i], b.keys[i+1:]...)
			break
		}
	}
}

// Cancel cancels any pending emission
func (b *BatchDebouncer[K]) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.keys = nil
	b.seen = make(map[K]struct{})
}
