package doctree

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"livelits/internal/errors"
)

// NodeID addresses a node slot in a Document arena.
type NodeID int32

// InvalidNode is returned where no node exists.
const InvalidNode NodeID = -1

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered.
func (r Range) Len() int { return r.End - r.Start }

// Contains reports whether offset lies inside the range.
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

type node struct {
	typ      string
	text     string
	parent   NodeID
	children []NodeID
	leaf     bool
	alive    bool
	// disposed marks a node that was attached once and then removed; it can
	// never be attached again.
	disposed bool
}

// Document is one open source file represented as a node arena.
//
// Read accessors do not lock. Callers that may race with edits wrap their reads
// in Read; all mutation goes through Apply, which holds the exclusive lock.
type Document struct {
	uri  string
	lang Language

	mu       sync.RWMutex
	nodes    []node
	root     NodeID
	stamp    atomic.Uint64
	disposed atomic.Bool

	cacheMu    sync.Mutex
	cacheValid bool
	starts     []int
	ends       []int

	metaMu sync.Mutex
	meta   map[NodeID]map[string]any

	subMu   sync.Mutex
	subs    map[int]func(ChangeEvent)
	nextSub int
}

// NewDocument materializes root as a new live document.
func NewDocument(uri string, lang Language, root Spec) *Document {
	d := &Document{
		uri:  uri,
		lang: lang,
		root: InvalidNode,
		meta: make(map[NodeID]map[string]any),
		subs: make(map[int]func(ChangeEvent)),
	}
	tx := &Tx{doc: d}
	d.root = tx.Build(root)
	d.setAlive(d.root, true)
	return d
}

// URI returns the document identifier.
func (d *Document) URI() string { return d.uri }

// Language returns the document language.
func (d *Document) Language() Language { return d.lang }

// Root returns the root node.
func (d *Document) Root() NodeID { return d.root }

// ModificationStamp returns the global modification counter. It advances once
// per committed transaction that changed the tree.
func (d *Document) ModificationStamp() uint64 { return d.stamp.Load() }

// Disposed reports whether the document was closed.
func (d *Document) Disposed() bool { return d.disposed.Load() }

// Read runs fn while holding the shared lock. fn must not call Apply.
func (d *Document) Read(fn func()) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn()
}

func (d *Document) has(id NodeID) bool {
	return id >= 0 && int(id) < len(d.nodes)
}

// Alive reports whether id is attached to the live tree.
func (d *Document) Alive(id NodeID) bool {
	return d.has(id) && d.nodes[id].alive
}

// Type returns the node type tag, or "" for an unknown id.
func (d *Document) Type(id NodeID) string {
	if !d.has(id) {
		return ""
	}
	return d.nodes[id].typ
}

// IsLeaf reports whether id is a leaf.
func (d *Document) IsLeaf(id NodeID) bool {
	return d.has(id) && d.nodes[id].leaf
}

// Parent returns the parent of id, or InvalidNode.
func (d *Document) Parent(id NodeID) NodeID {
	if !d.has(id) {
		return InvalidNode
	}
	return d.nodes[id].parent
}

// Children returns a copy of the child list.
func (d *Document) Children(id NodeID) []NodeID {
	if !d.has(id) {
		return nil
	}
	return append([]NodeID(nil), d.nodes[id].children...)
}

// ChildCount returns the number of children.
func (d *Document) ChildCount(id NodeID) int {
	if !d.has(id) {
		return 0
	}
	return len(d.nodes[id].children)
}

// Child returns the i-th child or InvalidNode.
func (d *Document) Child(id NodeID, i int) NodeID {
	if !d.has(id) || i < 0 || i >= len(d.nodes[id].children) {
		return InvalidNode
	}
	return d.nodes[id].children[i]
}

// Text returns the source text covered by id.
func (d *Document) Text(id NodeID) string {
	if !d.has(id) {
		return ""
	}
	if d.nodes[id].leaf {
		return d.nodes[id].text
	}
	var b strings.Builder
	d.writeText(id, &b)
	return b.String()
}

func (d *Document) writeText(id NodeID, b *strings.Builder) {
	n := &d.nodes[id]
	if n.leaf {
		b.WriteString(n.text)
		return
	}
	for _, c := range n.children {
		d.writeText(c, b)
	}
}

// Source returns the whole document text.
func (d *Document) Source() string {
	return d.Text(d.root)
}

// Len returns the document length in bytes.
func (d *Document) Len() int {
	d.ensureOffsets()
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	if !d.has(d.root) {
		return 0
	}
	return d.ends[d.root]
}

// Range returns the current byte range of a live node, or {-1,-1}.
func (d *Document) Range(id NodeID) Range {
	if !d.Alive(id) {
		return Range{Start: -1, End: -1}
	}
	d.ensureOffsets()
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	return Range{Start: d.starts[id], End: d.ends[id]}
}

// NodeAt returns the deepest live node whose range contains offset.
func (d *Document) NodeAt(offset int) NodeID {
	if !d.Alive(d.root) {
		return InvalidNode
	}
	d.ensureOffsets()
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()

	cur := d.root
	if offset < d.starts[cur] || offset >= d.ends[cur] {
		return InvalidNode
	}
	for {
		next := InvalidNode
		for _, c := range d.nodes[cur].children {
			if d.starts[c] <= offset && offset < d.ends[c] {
				next = c
				break
			}
		}
		if next == InvalidNode {
			return cur
		}
		cur = next
	}
}

// LineColumn converts a byte offset to a 1-indexed line and column.
func (d *Document) LineColumn(offset int) (int, int) {
	src := d.Source()
	if offset > len(src) {
		offset = len(src)
	}
	if offset < 0 {
		offset = 0
	}
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset - strings.LastIndex(src[:offset], "\n")
	return line, col
}

func (d *Document) ensureOffsets() {
	d.cacheMu.Lock()
	defer d.cacheMu.Unlock()
	if d.cacheValid && len(d.starts) == len(d.nodes) {
		return
	}
	if cap(d.starts) < len(d.nodes) {
		d.starts = make([]int, len(d.nodes))
		d.ends = make([]int, len(d.nodes))
	}
	d.starts = d.starts[:len(d.nodes)]
	d.ends = d.ends[:len(d.nodes)]
	for i := range d.starts {
		d.starts[i], d.ends[i] = -1, -1
	}
	if d.has(d.root) && d.nodes[d.root].alive {
		d.layout(d.root, 0)
	}
	d.cacheValid = true
}

func (d *Document) layout(id NodeID, offset int) int {
	n := &d.nodes[id]
	d.starts[id] = offset
	if n.leaf {
		offset += len(n.text)
	} else {
		for _, c := range n.children {
			offset = d.layout(c, offset)
		}
	}
	d.ends[id] = offset
	return offset
}

func (d *Document) invalidateOffsets() {
	d.cacheMu.Lock()
	d.cacheValid = false
	d.cacheMu.Unlock()
}

// UserData returns auxiliary metadata stored on a node.
func (d *Document) UserData(id NodeID, key string) (any, bool) {
	d.metaMu.Lock()
	defer d.metaMu.Unlock()
	v, ok := d.meta[id][key]
	return v, ok
}

// PutUserData stores auxiliary metadata on a node. Safe under Read.
// Metadata follows the node through Move and Tx.Copy.
func (d *Document) PutUserData(id NodeID, key string, value any) {
	d.metaMu.Lock()
	defer d.metaMu.Unlock()
	m := d.meta[id]
	if m == nil {
		m = make(map[string]any)
		d.meta[id] = m
	}
	m[key] = value
}

func (d *Document) copyUserData(from, to NodeID) {
	d.metaMu.Lock()
	defer d.metaMu.Unlock()
	src := d.meta[from]
	if len(src) == 0 {
		return
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	d.meta[to] = dst
}

// Subscribe registers fn for change events. Events are delivered on the
// goroutine that committed the transaction, after the lock is released.
func (d *Document) Subscribe(fn func(ChangeEvent)) (unsubscribe func()) {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.subMu.Lock()
			delete(d.subs, id)
			d.subMu.Unlock()
		})
	}
}

func (d *Document) dispatch(events []ChangeEvent) {
	if len(events) == 0 {
		return
	}
	d.subMu.Lock()
	fns := make([]func(ChangeEvent), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// Dispose closes the document: every node dies and subscribers are dropped.
func (d *Document) Dispose() {
	if d.disposed.Swap(true) {
		return
	}
	d.mu.Lock()
	for i := range d.nodes {
		if d.nodes[i].alive {
			d.nodes[i].alive = false
			d.nodes[i].disposed = true
		}
	}
	d.stamp.Add(1)
	d.mu.Unlock()
	d.invalidateOffsets()

	d.subMu.Lock()
	d.subs = make(map[int]func(ChangeEvent))
	d.subMu.Unlock()
}

func (d *Document) setAlive(id NodeID, alive bool) {
	n := &d.nodes[id]
	n.alive = alive
	if !alive {
		n.disposed = true
	}
	for _, c := range n.children {
		d.setAlive(c, alive)
	}
}

// Apply runs fn as one transaction under the exclusive lock. The modification
// stamp advances once if fn changed anything; change events are dispatched
// after the lock is released. Changes made before fn returns an error are kept.
func (d *Document) Apply(fn func(tx *Tx) error) error {
	if d.disposed.Load() {
		return errors.Newf(errors.DocumentDisposed, "document %s is closed", d.uri)
	}

	d.mu.Lock()
	tx := &Tx{doc: d}
	err := fn(tx)
	if tx.changed {
		stamp := d.stamp.Add(1)
		for i := range tx.events {
			tx.events[i].Stamp = stamp
		}
		d.invalidateOffsets()
	}
	d.mu.Unlock()

	d.dispatch(tx.events)
	return err
}
