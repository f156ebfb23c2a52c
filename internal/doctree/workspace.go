package doctree

import (
	"sort"
	"sync"

	"livelits/internal/errors"
)

// WorkspaceEventKind identifies a document lifecycle event.
type WorkspaceEventKind int

const (
	DocumentOpened WorkspaceEventKind = iota
	DocumentClosed
)

func (k WorkspaceEventKind) String() string {
	if k == DocumentOpened {
		return "opened"
	}
	return "closed"
}

// WorkspaceEvent reports a document being opened or closed.
type WorkspaceEvent struct {
	Kind     WorkspaceEventKind
	Document *Document
}

// Workspace is the registry of open documents.
type Workspace struct {
	mu   sync.RWMutex
	docs map[string]*Document

	subMu   sync.Mutex
	subs    map[int]func(WorkspaceEvent)
	nextSub int
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		docs: make(map[string]*Document),
		subs: make(map[int]func(WorkspaceEvent)),
	}
}

// Open registers a new document built from root. Opening a URI that is
// already open fails.
func (w *Workspace) Open(uri string, lang Language, root Spec) (*Document, error) {
	doc := NewDocument(uri, lang, root)
	if err := w.Add(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Add registers an existing document.
func (w *Workspace) Add(doc *Document) error {
	w.mu.Lock()
	if _, exists := w.docs[doc.URI()]; exists {
		w.mu.Unlock()
		return errors.Newf(errors.InvalidEdit, "document %s is already open", doc.URI())
	}
	w.docs[doc.URI()] = doc
	w.mu.Unlock()

	w.publish(WorkspaceEvent{Kind: DocumentOpened, Document: doc})
	return nil
}

// Close unregisters and disposes the document. Closing an unknown URI is a no-op.
func (w *Workspace) Close(uri string) {
	w.mu.Lock()
	doc, ok := w.docs[uri]
	delete(w.docs, uri)
	w.mu.Unlock()
	if !ok {
		return
	}

	w.publish(WorkspaceEvent{Kind: DocumentClosed, Document: doc})
	doc.Dispose()
}

// Get returns the open document for uri.
func (w *Workspace) Get(uri string) (*Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[uri]
	return doc, ok
}

// Documents returns the open documents ordered by URI.
func (w *Workspace) Documents() []*Document {
	w.mu.RLock()
	docs := make([]*Document, 0, len(w.docs))
	for _, d := range w.docs {
		docs = append(docs, d)
	}
	w.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].URI() < docs[j].URI() })
	return docs
}

// Subscribe registers fn for open/close events.
func (w *Workspace) Subscribe(fn func(WorkspaceEvent)) (unsubscribe func()) {
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.subMu.Lock()
			delete(w.subs, id)
			w.subMu.Unlock()
		})
	}
}

func (w *Workspace) publish(ev WorkspaceEvent) {
	w.subMu.Lock()
	fns := make([]func(WorkspaceEvent), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
