// Package build publishes build lifecycle events. A build replaces the compiled
// constants, so trackers suspend while it runs and re-baseline when it ends.
package build

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Event is a build lifecycle transition.
type Event int

const (
	Started Event = iota
	Succeeded
	Failed
)

// String returns the lowercase event name.
func (e Event) String() string {
	switch e {
	case Started:
		return "started"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Finished reports whether the event ends a build.
func (e Event) Finished() bool {
	return e == Succeeded || e == Failed
}

// ParseEvent parses an event name. Case and surrounding space are ignored.
func ParseEvent(s string) (Event, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "started", "start", "running":
		return Started, nil
	case "succeeded", "success", "ok":
		return Succeeded, nil
	case "failed", "failure", "error":
		return Failed, nil
	default:
		return 0, fmt.Errorf("unknown build event %q", s)
	}
}

// ReadStatusFile reads a build status file holding a single event name.
func ReadStatusFile(path string) (Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return ParseEvent(string(data))
}

// Listener receives build events.
type Listener func(Event)

// Signals fans build events out to subscribers in subscription order.
type Signals struct {
	mu   sync.RWMutex
	next int
	subs map[int]Listener
	last *Event
}

// NewSignals creates a broadcaster with no subscribers.
func NewSignals() *Signals {
	return &Signals{subs: make(map[int]Listener)}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signals) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Publish delivers e to every subscriber on the caller's goroutine.
func (s *Signals) Publish(e Event) {
	s.mu.Lock()
	s.last = &e
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}

// Last returns the most recently published event.
func (s *Signals) Last() (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return 0, false
	}
	return *s.last, true
}
