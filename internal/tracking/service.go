// Package tracking keeps the literals of open documents registered, diffs them
// after each burst of edits and pushes changed values to a remapping store.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"livelits/internal/build"
	"livelits/internal/doctree"
	"livelits/internal/errors"
	"livelits/internal/literals"
	"livelits/internal/remap"
	"livelits/internal/slogutil"
	"livelits/internal/watcher"
)

// DefaultCoalesceWindow is the quiet period after the last edit before a
// recomputation runs.
const DefaultCoalesceWindow = 200 * time.Millisecond

const shutdownTimeout = 5 * time.Second

// ErrClosed is returned by operations on a closed service.
var ErrClosed = errors.New(errors.InternalError, "tracking service is closed", nil)

// Workspace is the set of open documents and their lifecycle events.
type Workspace interface {
	Documents() []*doctree.Document
	Subscribe(fn func(doctree.WorkspaceEvent)) (unsubscribe func())
}

// BuildSource emits build lifecycle events.
type BuildSource interface {
	Subscribe(fn build.Listener) func()
}

// Listener receives the references whose values changed. An empty list means
// tracking was deactivated and every previously reported value is void.
type Listener func(changed []*literals.Reference)

// Options configures a Service. Workspace is required.
type Options struct {
	Workspace Workspace
	Store     remap.Store
	Build     BuildSource
	// Enabled is read when activating and when a build finishes.
	Enabled        func() bool
	Scanner        *literals.Scanner
	CoalesceWindow time.Duration
	ScopeKey       string
	QueueSize      int
	Logger         *slog.Logger
}

type registration struct {
	doc         *doctree.Document
	snapshot    *literals.Snapshot
	unsubscribe func()
}

// Service tracks literal values across open documents. All recomputation,
// store writes and listener notifications run on a single worker goroutine.
type Service struct {
	workspace Workspace
	store     remap.Store
	enabled   func() bool
	scanner   *literals.Scanner
	scopeKey  string
	logger    *slog.Logger
	debouncer *watcher.BatchDebouncer[*doctree.Document]

	ctx       context.Context
	cancel    context.CancelFunc
	jobs      chan func()
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	unsubBuild func()

	mu             sync.Mutex
	active         bool
	suspended      bool
	closed         bool
	epoch          uint64
	regs           map[*doctree.Document]*registration
	unsubWorkspace func()

	listenersMu  sync.RWMutex
	listeners    map[int]Listener
	nextListener int
}

// New creates a service and starts its worker. The service is inactive until
// Activate is called.
func New(opts Options) (*Service, error) {
	if opts.Workspace == nil {
		return nil, errors.New(errors.ConfigInvalid, "tracking requires a workspace", nil)
	}
	if opts.Store == nil {
		opts.Store = remap.NewMemoryStore()
	}
	if opts.Enabled == nil {
		opts.Enabled = func() bool { return true }
	}
	if opts.Scanner == nil {
		opts.Scanner = literals.NewScanner(literals.ScannerOptions{})
	}
	if opts.CoalesceWindow <= 0 {
		opts.CoalesceWindow = DefaultCoalesceWindow
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		workspace: opts.Workspace,
		store:     opts.Store,
		enabled:   opts.Enabled,
		scanner:   opts.Scanner,
		scopeKey:  opts.ScopeKey,
		logger:    slogutil.Component(opts.Logger, "tracking"),
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(chan func(), opts.QueueSize),
		done:      make(chan struct{}),
		regs:      make(map[*doctree.Document]*registration),
		listeners: make(map[int]Listener),
	}
	s.debouncer = watcher.NewBatchDebouncer(opts.CoalesceWindow, s.onWindowClosed)

	s.wg.Add(1)
	go s.worker()

	if opts.Build != nil {
		s.unsubBuild = opts.Build.Subscribe(s.onBuild)
	}
	s.logger.Debug("Tracking service created",
		"coalesceWindow", opts.CoalesceWindow.String(),
		"queueSize", opts.QueueSize,
	)
	return s, nil
}

func (s *Service) worker() {
	defer s.wg.Done()
	for {
		select {
		case job := <-s.jobs:
			s.run(job)
		case <-s.done:
			return
		}
	}
}

func (s *Service) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tracking job panicked", "panic", fmt.Sprint(r))
		}
	}()
	job()
}

// submit queues job on the worker. It reports false once the service is closed.
func (s *Service) submit(job func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.jobs <- job:
		return true
	case <-s.done:
		return false
	}
}

// Activate registers every open document that contains literals and starts
// following edits. It does nothing when the enable flag is off, and waits for
// the initial scan. It must not be called from a Listener.
func (s *Service) Activate(ctx context.Context) error {
	if !s.enabled() {
		s.logger.Debug("Live literals disabled, not activating")
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.suspended = false
	epoch := s.activateLocked()
	s.mu.Unlock()

	done := make(chan struct{})
	if !s.submit(func() {
		defer close(done)
		s.registerAll(epoch)
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) activateLocked() uint64 {
	s.active = true
	s.epoch++
	s.unsubWorkspace = s.workspace.Subscribe(s.onWorkspaceEvent)
	s.logger.Info("Tracking activated")
	return s.epoch
}

// Deactivate unregisters everything, then clears the store and notifies
// listeners with an empty list exactly once. Pending recomputation is dropped.
func (s *Service) Deactivate() {
	s.mu.Lock()
	if !s.active && !s.suspended {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.suspended = false
	s.mu.Unlock()

	s.logger.Info("Tracking deactivated")
	s.submit(func() {
		s.store.ClearConstants(s.scopeKey)
		s.notify([]*literals.Reference{})
	})
}

// teardownLocked drops every registration and invalidates queued work.
func (s *Service) teardownLocked() {
	s.active = false
	s.epoch++
	s.debouncer.Cancel()
	if s.unsubWorkspace != nil {
		s.unsubWorkspace()
		s.unsubWorkspace = nil
	}
	for doc, reg := range s.regs {
		reg.unsubscribe()
		delete(s.regs, doc)
	}
	trackedReferences.Set(0)
}

// Active reports whether documents are being tracked.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close runs the jobs queued so far, such as the store clear queued by
// Deactivate, and then stops the worker. Work that belongs to registrations
// is discarded. Close must not be called from a Listener.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.teardownLocked()
		s.mu.Unlock()

		if s.unsubBuild != nil {
			s.unsubBuild()
		}

		deadline := time.NewTimer(shutdownTimeout)
		defer deadline.Stop()

		drained := make(chan struct{})
		if s.submit(func() { close(drained) }) {
			select {
			case <-drained:
			case <-deadline.C:
				s.cancel()
				close(s.done)
				err = fmt.Errorf("tracking service drain timed out after %v", shutdownTimeout)
				return
			}
		}

		s.cancel()
		close(s.done)

		stopped := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
			s.logger.Debug("Tracking service stopped")
		case <-deadline.C:
			err = fmt.Errorf("tracking service shutdown timed out after %v", shutdownTimeout)
		}
	})
	return err
}

// AddListener registers fn and returns a function that removes it.
func (s *Service) AddListener(fn Listener) (remove func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Service) notify(changed []*literals.Reference) {
	s.listenersMu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	kind := "changed"
	if len(changed) == 0 {
		kind = "cleared"
	}
	notifications.WithLabelValues(kind).Inc()
	for _, fn := range fns {
		fn(changed)
	}
}

// FindLiterals scans doc from its root. It does not register the document.
func (s *Service) FindLiterals(ctx context.Context, doc *doctree.Document) (*literals.Snapshot, error) {
	start := time.Now()
	snap, err := s.scanner.FindLiterals(ctx, doc, doc.Root())
	scanDuration.Observe(time.Since(start).Seconds())
	return snap, err
}

// AllTrackedReferences returns the references of every registered document,
// ordered by document URI.
func (s *Service) AllTrackedReferences() []*literals.Reference {
	s.mu.Lock()
	regs := make([]*registration, 0, len(s.regs))
	for _, reg := range s.regs {
		regs = append(regs, reg)
	}
	snaps := make([]*literals.Snapshot, len(regs))
	sort.Slice(regs, func(i, j int) bool { return regs[i].doc.URI() < regs[j].doc.URI() })
	for i, reg := range regs {
		snaps[i] = reg.snapshot
	}
	s.mu.Unlock()

	var out []*literals.Reference
	for _, snap := range snaps {
		out = append(out, snap.All()...)
	}
	return out
}

func (s *Service) registerAll(epoch uint64) {
	for _, doc := range s.workspace.Documents() {
		s.register(doc, epoch)
	}
}

// register scans doc and starts following its edits. Documents without
// literals are not registered.
func (s *Service) register(doc *doctree.Document, epoch uint64) {
	if doc.Disposed() {
		return
	}
	stamp := doc.ModificationStamp()
	snap, err := s.FindLiterals(s.ctx, doc)
	if err != nil {
		s.logger.Debug("Document not tracked", "uri", doc.URI(), "error", err.Error())
		return
	}
	if snap.Len() == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.epoch != epoch {
		discardedJobs.Inc()
		return
	}
	if _, ok := s.regs[doc]; ok || doc.Disposed() {
		return
	}
	reg := &registration{doc: doc, snapshot: snap}
	reg.unsubscribe = doc.Subscribe(func(doctree.ChangeEvent) { s.markDirty(doc) })
	s.regs[doc] = reg
	s.updateGaugeLocked()
	s.logger.Debug("Document registered", "uri", doc.URI(), "literals", snap.Len())

	// Edits that landed between the scan and the subscription.
	if doc.ModificationStamp() != stamp {
		s.debouncer.Add(doc)
	}
}

func (s *Service) unregister(doc *doctree.Document) {
	s.mu.Lock()
	reg, ok := s.regs[doc]
	if ok {
		reg.unsubscribe()
		delete(s.regs, doc)
		s.updateGaugeLocked()
	}
	s.mu.Unlock()

	if ok {
		s.debouncer.Remove(doc)
		s.logger.Debug("Document unregistered", "uri", doc.URI())
	}
}

func (s *Service) updateGaugeLocked() {
	n := 0
	for _, reg := range s.regs {
		n += reg.snapshot.Len()
	}
	trackedReferences.Set(float64(n))
}

func (s *Service) onWorkspaceEvent(ev doctree.WorkspaceEvent) {
	switch ev.Kind {
	case doctree.DocumentOpened:
		s.mu.Lock()
		active, epoch := s.active, s.epoch
		s.mu.Unlock()
		if active {
			doc := ev.Document
			s.submit(func() { s.register(doc, epoch) })
		}
	case doctree.DocumentClosed:
		s.unregister(ev.Document)
	}
}

// markDirty restarts the coalesce window for a registered document.
func (s *Service) markDirty(doc *doctree.Document) {
	s.mu.Lock()
	_, ok := s.regs[doc]
	ok = ok && s.active
	s.mu.Unlock()
	if ok {
		s.debouncer.Add(doc)
	}
}

func (s *Service) onWindowClosed(docs []*doctree.Document) {
	s.mu.Lock()
	active, epoch := s.active, s.epoch
	s.mu.Unlock()
	if !active {
		return
	}
	s.submit(func() { s.recompute(docs, epoch) })
}

// current returns the registration for doc if it still belongs to epoch.
func (s *Service) current(doc *doctree.Document, epoch uint64) (*registration, *literals.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, nil
	}
	reg := s.regs[doc]
	if reg == nil {
		return nil, nil
	}
	return reg, reg.snapshot
}

// recompute diffs each dirty document against its snapshot, pushes the changed
// values and notifies listeners once with everything the store accepted.
func (s *Service) recompute(docs []*doctree.Document, epoch uint64) {
	start := time.Now()
	defer func() { recomputeDuration.Observe(time.Since(start).Seconds()) }()

	var changed []*literals.Reference
	for _, doc := range docs {
		reg, snap := s.current(doc, epoch)
		if reg == nil {
			discardedJobs.Inc()
			continue
		}
		modified := snap.Modified()
		next := snap.NewSnapshot()

		if r, _ := s.current(doc, epoch); r != reg {
			discardedJobs.Inc()
			continue
		}
		accepted := s.push(modified)

		s.mu.Lock()
		if s.epoch == epoch && s.regs[doc] == reg {
			reg.snapshot = next
			s.updateGaugeLocked()
			changed = append(changed, accepted...)
		} else {
			discardedJobs.Inc()
		}
		s.mu.Unlock()
	}

	if len(changed) == 0 {
		return
	}
	s.mu.Lock()
	stale := s.epoch != epoch
	s.mu.Unlock()
	if stale {
		discardedJobs.Inc()
		return
	}
	s.logger.Debug("Literals changed", "count", len(changed), "documents", len(docs))
	s.notify(changed)
}

// push writes each reference's current value to the store and returns the
// references the store accepted. Absent values are skipped.
func (s *Service) push(modified []*literals.Reference) []*literals.Reference {
	var accepted []*literals.Reference
	for _, r := range modified {
		v, ok := r.Value()
		if !ok {
			continue
		}
		if s.store.AddConstant(s.scopeKey, r.OwnerPath(), r.InitialValue(), v) {
			storePushes.WithLabelValues("accepted").Inc()
			accepted = append(accepted, r)
		} else {
			storePushes.WithLabelValues("rejected").Inc()
			s.logger.Debug("Store rejected value", "owner", r.OwnerPath(), "uid", r.UniqueID())
		}
	}
	return accepted
}

func (s *Service) onBuild(e build.Event) {
	switch e {
	case build.Started:
		s.mu.Lock()
		if !s.active {
			s.mu.Unlock()
			return
		}
		s.teardownLocked()
		s.suspended = true
		s.mu.Unlock()
		s.logger.Info("Tracking suspended for build")
	case build.Succeeded, build.Failed:
		s.submit(func() { s.finishBuild(e) })
	}
}

// finishBuild runs on the worker: the compiled constants are the new baseline,
// so remapped values are cleared and documents are rescanned.
func (s *Service) finishBuild(e build.Event) {
	s.store.ClearConstants(s.scopeKey)

	s.mu.Lock()
	resume := s.suspended && !s.closed
	s.suspended = false
	if !resume || !s.enabled() {
		s.mu.Unlock()
		s.logger.Info("Build finished", "result", e.String())
		return
	}
	epoch := s.activateLocked()
	s.mu.Unlock()

	s.logger.Info("Build finished, tracking resumed", "result", e.String())
	s.registerAll(epoch)
}
