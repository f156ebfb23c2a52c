package tracking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livelits/internal/build"
	"livelits/internal/doctree"
	"livelits/internal/errors"
	"livelits/internal/literals"
	"livelits/internal/remap"
	"livelits/internal/slogutil"
)

const window = 50 * time.Millisecond

func property(name, literal string) doctree.Spec {
	return doctree.Node("property_declaration",
		doctree.Token("val"),
		doctree.Space(" "),
		doctree.Node("variable_declaration", doctree.Leaf("simple_identifier", name)),
		doctree.Space(" "),
		doctree.Token("="),
		doctree.Space(" "),
		doctree.Leaf("integer_literal", literal),
	)
}

func kotlinFile(props ...doctree.Spec) doctree.Spec {
	var kids []doctree.Spec
	for i, p := range props {
		if i > 0 {
			kids = append(kids, doctree.Space("\n"))
		}
		kids = append(kids, p)
	}
	return doctree.Node("source_file", kids...)
}

func literalsOf(doc *doctree.Document) []doctree.NodeID {
	var out []doctree.NodeID
	var walk func(id doctree.NodeID)
	walk = func(id doctree.NodeID) {
		if doc.Type(id) == "integer_literal" {
			out = append(out, id)
		}
		for _, c := range doc.Children(id) {
			walk(c)
		}
	}
	doc.Read(func() { walk(doc.Root()) })
	return out
}

func setText(t *testing.T, doc *doctree.Document, id doctree.NodeID, text string) {
	t.Helper()
	require.NoError(t, doc.Apply(func(tx *doctree.Tx) error { return tx.SetText(id, text) }))
}

// recorder collects listener notifications.
type recorder struct {
	mu    sync.Mutex
	calls [][]*literals.Reference
}

func (r *recorder) listen(changed []*literals.Reference) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) call(i int) []*literals.Reference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}

// rejectingStore declines every owner listed in reject.
type rejectingStore struct {
	*remap.MemoryStore
	reject map[string]bool
}

func (s *rejectingStore) AddConstant(scopeKey, ownerPath string, oldValue, newValue any) bool {
	if s.reject[ownerPath] {
		return false
	}
	return s.MemoryStore.AddConstant(scopeKey, ownerPath, oldValue, newValue)
}

type fixture struct {
	ws      *doctree.Workspace
	store   *remap.MemoryStore
	signals *build.Signals
	svc     *Service
	events  *recorder
}

func newFixture(t *testing.T, store remap.Store, enabled func() bool) *fixture {
	t.Helper()
	f := &fixture{
		ws:      doctree.NewWorkspace(),
		signals: build.NewSignals(),
		events:  &recorder{},
	}
	if store == nil {
		f.store = remap.NewMemoryStore()
		store = f.store
	}
	svc, err := New(Options{
		Workspace:      f.ws,
		Store:          store,
		Build:          f.signals,
		Enabled:        enabled,
		CoalesceWindow: window,
		Logger:         slogutil.NewDiscardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	f.svc = svc
	f.svc.AddListener(f.events.listen)
	return f
}

func (f *fixture) open(t *testing.T, uri string, props ...doctree.Spec) *doctree.Document {
	t.Helper()
	doc, err := f.ws.Open(uri, doctree.LangKotlin, kotlinFile(props...))
	require.NoError(t, err)
	return doc
}

func TestNew_RequiresWorkspace(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ConfigInvalid))
}

func TestActivate_RegistersDocumentsWithLiterals(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.open(t, "Main.kt", property("x", "1"), property("y", "2"))
	f.ws.Open("Empty.kt", doctree.LangKotlin, doctree.Node("source_file"))

	require.NoError(t, f.svc.Activate(t.Context()))
	assert.True(t, f.svc.Active())

	refs := f.svc.AllTrackedReferences()
	require.Len(t, refs, 2)
	assert.Equal(t, "MainKt.x", refs[0].OwnerPath())
	assert.Equal(t, "MainKt.y", refs[1].OwnerPath())
}

func TestActivate_DisabledFlag(t *testing.T) {
	f := newFixture(t, nil, func() bool { return false })
	f.open(t, "Main.kt", property("x", "1"))

	require.NoError(t, f.svc.Activate(t.Context()))
	assert.False(t, f.svc.Active())
	assert.Empty(t, f.svc.AllTrackedReferences())
}

func TestDebounceCoalescesBurst(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))
	lit := literalsOf(doc)[0]

	for _, v := range []string{"2", "3", "4", "5", "6"} {
		setText(t, doc, lit, v)
	}

	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(4 * window)
	require.Equal(t, 1, f.events.count(), "one notification per burst")

	changed := f.events.call(0)
	require.Len(t, changed, 1)
	v, ok := changed[0].Value()
	require.True(t, ok)
	assert.Equal(t, int64(6), v)

	stored, ok := f.store.Lookup(remap.GlobalScope, "MainKt.x", int64(1))
	require.True(t, ok)
	assert.Equal(t, int64(6), stored)
}

func TestEditAfterNotificationStartsNewWindow(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))
	lit := literalsOf(doc)[0]

	setText(t, doc, lit, "2")
	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	setText(t, doc, lit, "3")
	require.Eventually(t, func() bool { return f.events.count() == 2 }, 2*time.Second, 5*time.Millisecond)

	// The store maps the compiled value, not the previous live one.
	stored, ok := f.store.Lookup(remap.GlobalScope, "MainKt.x", int64(1))
	require.True(t, ok)
	assert.Equal(t, int64(3), stored)
}

func TestUnrelatedEditDoesNotNotify(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))

	var name doctree.NodeID
	doc.Read(func() {
		decl := doc.Child(doc.Root(), 0)
		name = doc.Child(doc.Child(decl, 2), 0)
	})
	setText(t, doc, name, "renamed")

	time.Sleep(4 * window)
	assert.Zero(t, f.events.count())
}

func TestDeactivate_NotifiesEmptyOnce(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))

	setText(t, doc, literalsOf(doc)[0], "2")
	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.store.Len())

	f.svc.Deactivate()
	f.svc.Deactivate()
	assert.False(t, f.svc.Active())
	assert.Empty(t, f.svc.AllTrackedReferences())

	require.Eventually(t, func() bool { return f.events.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(2 * window)
	assert.Equal(t, 2, f.events.count())
	assert.Empty(t, f.events.call(1))
	assert.Zero(t, f.store.Len())

	// Edits after deactivation are not followed.
	setText(t, doc, literalsOf(doc)[0], "9")
	time.Sleep(4 * window)
	assert.Equal(t, 2, f.events.count())
}

func TestDeactivate_DropsPendingWindow(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))

	setText(t, doc, literalsOf(doc)[0], "2")
	f.svc.Deactivate()

	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(4 * window)
	require.Equal(t, 1, f.events.count())
	assert.Empty(t, f.events.call(0))
	assert.Zero(t, f.store.Len())
}

func TestStoreRejectionDropsOnlyThatReference(t *testing.T) {
	store := &rejectingStore{MemoryStore: remap.NewMemoryStore(), reject: map[string]bool{"MainKt.y": true}}
	f := newFixture(t, store, nil)
	doc := f.open(t, "Main.kt", property("x", "1"), property("y", "2"))
	require.NoError(t, f.svc.Activate(t.Context()))

	lits := literalsOf(doc)
	setText(t, doc, lits[0], "10")
	setText(t, doc, lits[1], "20")

	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	changed := f.events.call(0)
	require.Len(t, changed, 1)
	assert.Equal(t, "MainKt.x", changed[0].OwnerPath())
	assert.Equal(t, 1, store.Len())
}

func TestBuildLifecycle(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))
	lit := literalsOf(doc)[0]

	setText(t, doc, lit, "2")
	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)

	f.signals.Publish(build.Started)
	assert.False(t, f.svc.Active())
	assert.Empty(t, f.svc.AllTrackedReferences())
	assert.Equal(t, 1, f.store.Len(), "suspension keeps live values")

	setText(t, doc, lit, "3")
	time.Sleep(4 * window)
	assert.Equal(t, 1, f.events.count(), "no notification while suspended")

	f.signals.Publish(build.Succeeded)
	require.Eventually(t, func() bool { return len(f.svc.AllTrackedReferences()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, f.svc.Active())
	assert.Zero(t, f.store.Len())

	refs := f.svc.AllTrackedReferences()
	require.Len(t, refs, 1)
	assert.Equal(t, int64(3), refs[0].InitialValue(), "rescan takes the new baseline")

	setText(t, doc, literalsOf(doc)[0], "4")
	require.Eventually(t, func() bool { return f.events.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	stored, ok := f.store.Lookup(remap.GlobalScope, "MainKt.x", int64(3))
	require.True(t, ok)
	assert.Equal(t, int64(4), stored)
}

func TestBuildFinished_StaysOffWhenDisabled(t *testing.T) {
	var mu sync.Mutex
	enabled := true
	f := newFixture(t, nil, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return enabled
	})
	f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))
	f.store.AddConstant(remap.GlobalScope, "MainKt.x", int64(1), int64(5))

	f.signals.Publish(build.Started)
	mu.Lock()
	enabled = false
	mu.Unlock()
	f.signals.Publish(build.Failed)

	require.Eventually(t, func() bool { return f.store.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(2 * window)
	assert.False(t, f.svc.Active())
	assert.Zero(t, f.events.count())
}

func TestWorkspaceOpenAndClose(t *testing.T) {
	f := newFixture(t, nil, nil)
	require.NoError(t, f.svc.Activate(t.Context()))
	assert.Empty(t, f.svc.AllTrackedReferences())

	doc := f.open(t, "Late.kt", property("z", "7"))
	require.Eventually(t, func() bool { return len(f.svc.AllTrackedReferences()) == 1 }, 2*time.Second, 5*time.Millisecond)

	setText(t, doc, literalsOf(doc)[0], "8")
	f.ws.Close("Late.kt")
	assert.Empty(t, f.svc.AllTrackedReferences())

	time.Sleep(4 * window)
	assert.Zero(t, f.events.count(), "closed document work is discarded")
}

func TestFindLiterals_DoesNotRegister(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"), property("y", "2"))

	snap, err := f.svc.FindLiterals(t.Context(), doc)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.Empty(t, f.svc.AllTrackedReferences())
}

func TestListenerRemoval(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	other := &recorder{}
	remove := f.svc.AddListener(other.listen)
	require.NoError(t, f.svc.Activate(t.Context()))

	remove()
	remove()
	setText(t, doc, literalsOf(doc)[0], "2")
	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, other.count())
}

func TestClose(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))

	require.NoError(t, f.svc.Close())
	require.NoError(t, f.svc.Close())
	assert.False(t, f.svc.Active())
	assert.ErrorIs(t, f.svc.Activate(t.Context()), ErrClosed)
}

func TestClose_RunsQueuedDeactivation(t *testing.T) {
	f := newFixture(t, nil, nil)
	doc := f.open(t, "Main.kt", property("x", "1"))
	require.NoError(t, f.svc.Activate(t.Context()))

	setText(t, doc, literalsOf(doc)[0], "2")
	require.Eventually(t, func() bool { return f.events.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 1, f.store.Len())

	// Hold the worker so the deactivation job is still queued when Close starts.
	release := make(chan struct{})
	require.True(t, f.svc.submit(func() { <-release }))
	f.svc.Deactivate()

	closed := make(chan error, 1)
	go func() { closed <- f.svc.Close() }()
	time.Sleep(2 * window)
	close(release)

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	require.Equal(t, 2, f.events.count())
	assert.Empty(t, f.events.call(1))
	assert.Zero(t, f.store.Len())
}
