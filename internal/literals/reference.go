package literals

import (
	"fmt"
	"sync"

	"livelits/internal/doctree"
)

// Reference is the long-lived handle over one literal occurrence.
//
// Change detection is pull-based: reading Value compares the document's
// modification stamp with the last observed one and only then resolves and
// re-evaluates the node. The modification count goes up by one each time a
// read observes a different value. Once the reference turns invalid its last
// value and count are frozen.
type Reference struct {
	doc          *doctree.Document
	pointer      *StablePointer
	evaluator    Evaluator
	uniqueID     string
	initialRange doctree.Range
	initialLine  int
	ownerPath    string
	initialValue any

	mu        sync.Mutex
	node      doctree.NodeID
	valid     bool
	lastStamp uint64
	lastValue any
	present   bool
	lastText  string
	count     uint64
}

// newReference builds a reference for a node that evaluated to value. The
// caller holds the document's read lock.
func newReference(doc *doctree.Document, id doctree.NodeID, eval Evaluator, uniqueID, owner string, value any) *Reference {
	r := doc.Range(id)
	line, _ := doc.LineColumn(r.Start)
	return &Reference{
		doc:          doc,
		pointer:      NewStablePointer(doc, id),
		evaluator:    eval,
		uniqueID:     uniqueID,
		initialRange: r,
		initialLine:  line,
		ownerPath:    owner,
		initialValue: value,
		node:         id,
		valid:        true,
		lastStamp:    doc.ModificationStamp(),
		lastValue:    value,
		present:      true,
		lastText:     doc.Text(id),
	}
}

// UniqueID returns the id assigned when the literal was discovered.
func (r *Reference) UniqueID() string { return r.uniqueID }

// InitialRange returns the byte range at discovery time. It is never updated.
func (r *Reference) InitialRange() doctree.Range { return r.initialRange }

// Line returns the 1-indexed line of the literal at discovery time.
func (r *Reference) Line() int { return r.initialLine }

// OwnerPath returns "DeclaringType.member" or "DeclaringType.<init>".
func (r *Reference) OwnerPath() string { return r.ownerPath }

// InitialValue returns the value at discovery time.
func (r *Reference) InitialValue() any { return r.initialValue }

// Document returns the owning document.
func (r *Reference) Document() *doctree.Document { return r.doc }

// ModificationCount returns the number of value changes observed so far.
func (r *Reference) ModificationCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Valid reports whether the reference still resolves to a live node.
func (r *Reference) Valid() bool {
	var ok bool
	r.doc.Read(func() { ok = r.validLocked() })
	return ok
}

// Value returns the current value. ok is false when the reference is invalid
// or the node no longer folds to a constant; the last known value is returned
// alongside.
func (r *Reference) Value() (v any, ok bool) {
	r.doc.Read(func() { v, ok = r.valueLocked() })
	return v, ok
}

// Text returns the current source text of the literal. ok is false when the
// reference is invalid, in which case the last known text is returned.
func (r *Reference) Text() (text string, ok bool) {
	r.doc.Read(func() { text, ok = r.textLocked() })
	return text, ok
}

func (r *Reference) String() string {
	return fmt.Sprintf("%s@%s%s", r.ownerPath, r.doc.URI(), r.initialRange)
}

// validLocked resolves the pointer without evaluating. Requires the read lock.
func (r *Reference) validLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.valid {
		return false
	}
	if r.doc.ModificationStamp() == r.lastStamp {
		return true
	}
	_, ok := r.resolve()
	return ok
}

// valueLocked runs change detection. Requires the read lock.
func (r *Reference) valueLocked() (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh()
	return r.lastValue, r.valid && r.present
}

func (r *Reference) textLocked() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh()
	return r.lastText, r.valid
}

// countLocked returns the count after running change detection.
func (r *Reference) countLocked() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh()
	return r.count, r.valid
}

// refresh requires r.mu and the document read lock.
func (r *Reference) refresh() {
	if !r.valid {
		return
	}
	stamp := r.doc.ModificationStamp()
	if stamp == r.lastStamp {
		return
	}
	id, ok := r.resolve()
	if !ok {
		return
	}

	v, present := r.evaluator.Evaluate(r.doc, id)
	r.lastStamp = stamp
	r.lastText = r.doc.Text(id)
	if present != r.present || (present && !Equal(v, r.lastValue)) {
		r.count++
		r.lastValue = v
		r.present = present
	}
}

// resolve requires r.mu and the document read lock.
func (r *Reference) resolve() (doctree.NodeID, bool) {
	id, ok := r.pointer.Resolve()
	if !ok {
		r.valid = false
		return doctree.InvalidNode, false
	}
	if id != r.node {
		r.node = id
		if _, has := r.doc.UserData(id, UniqueIDKey); !has {
			r.doc.PutUserData(id, UniqueIDKey, r.uniqueID)
		}
	}
	return id, true
}
