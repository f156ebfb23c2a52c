// Package watcher provides debouncing and file system watching for edited
// source files and build status files.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ChangeHandler is called with the last event per path once a burst settles
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs: 100,
		IgnorePatterns: []string{
			"*.log",
			"*.tmp",
			"*.swp",
			"*~",
			"node_modules/**",
			".git/**",
			"build/**",
			".livelits/**",
		},
	}
}

// FileWatcher reports settled file changes using fsnotify
type FileWatcher struct {
	config    Config
	logger    *slog.Logger
	handler   ChangeHandler
	fsw       *fsnotify.Watcher
	debouncer *BatchDebouncer[string]

	mu      sync.Mutex
	latest  map[string]Event
	watched map[string]struct{}
}

// New creates a file watcher. Nothing is watched until Add is called.
func New(config Config, logger *slog.Logger, handler ChangeHandler) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &FileWatcher{
		config:  config,
		logger:  logger,
		handler: handler,
		fsw:     fsw,
		latest:  make(map[string]Event),
		watched: make(map[string]struct{}),
	}
	w.debouncer = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w, nil
}

// Add starts watching a file or directory. Directories are not recursive.
func (w *FileWatcher) Add(path string) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.watched[path]; ok {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return err
	}
	w.watched[path] = struct{}{}
	w.logger.Debug("Watching path", "path", path)
	return nil
}

// Watched returns the watched paths, sorted
func (w *FileWatcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	paths := make([]string, 0, len(w.watched))
	for p := range w.watched {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Run delivers events until ctx is cancelled or the watcher is closed
func (w *FileWatcher) Run(ctx context.Context) error {
	w.logger.Info("Starting file watcher", "debounceMs", w.config.DebounceMs)
	defer w.debouncer.Cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.record(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

// Close stops the underlying fsnotify watcher
func (w *FileWatcher) Close() error {
	w.debouncer.Cancel()
	return w.fsw.Close()
}

func (w *FileWatcher) record(ev fsnotify.Event) {
	var typ EventType
	switch {
	case ev.Has(fsnotify.Create):
		typ = EventCreate
	case ev.Has(fsnotify.Write):
		typ = EventModify
	case ev.Has(fsnotify.Remove):
		typ = EventDelete
	case ev.Has(fsnotify.Rename):
		typ = EventRename
	default:
		return // chmod only
	}
	path := filepath.Clean(ev.Name)
	if w.IsIgnored(path) {
		return
	}

	w.mu.Lock()
	w.latest[path] = Event{Type: typ, Path: path, Timestamp: time.Now()}
	w.mu.Unlock()
	w.debouncer.Add(path)
}

func (w *FileWatcher) emit(paths []string) {
	w.mu.Lock()
	events := make([]Event, 0, len(paths))
	for _, p := range paths {
		if ev, ok := w.latest[p]; ok {
			events = append(events, ev)
			delete(w.latest, p)
		}
	}
	w.mu.Unlock()

	if len(events) == 0 || w.handler == nil {
		return
	}
	w.logger.Debug("File changes settled", "eventCount", len(events))
	w.handler(events)
}

// IsIgnored checks if a path matches ignore patterns
func (w *FileWatcher) IsIgnored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range w.config.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filepath.Base(path)); matched {
			return true
		}

		// dir/** matches any path with that directory as a segment
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if strings.HasPrefix(slashed, prefix+"/") || strings.Contains(slashed, "/"+prefix+"/") {
				return true
			}
		}
	}
	return false
}
