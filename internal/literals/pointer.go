package literals

import (
	"livelits/internal/doctree"
)

// StablePointer is a node handle that survives its node being deleted and
// reinserted. When the wrapped node dies it looks for a node of the same type
// starting at the same original offset and, if one exists, heals onto it.
// A failed search is final.
//
// Reattachment does not compare values: a different literal of the same type
// that lands on the original offset is adopted.
type StablePointer struct {
	doc           *doctree.Document
	originalStart int
	nodeType      string
	current       doctree.NodeID
	lost          bool
}

// NewStablePointer captures id's current start offset and type. The caller
// holds the document's read lock.
func NewStablePointer(doc *doctree.Document, id doctree.NodeID) *StablePointer {
	return &StablePointer{
		doc:           doc,
		originalStart: doc.Range(id).Start,
		nodeType:      doc.Type(id),
		current:       id,
	}
}

// Resolve returns the live node, reattaching once if needed. The caller holds
// the document's read lock and serializes calls for this pointer.
func (p *StablePointer) Resolve() (doctree.NodeID, bool) {
	if p.lost {
		return doctree.InvalidNode, false
	}
	if p.doc.Alive(p.current) {
		return p.current, true
	}
	if p.doc.Disposed() {
		p.lost = true
		return doctree.InvalidNode, false
	}

	if id, ok := p.reattach(); ok {
		p.current = id
		return id, true
	}
	p.lost = true
	return doctree.InvalidNode, false
}

func (p *StablePointer) reattach() (doctree.NodeID, bool) {
	for id := p.doc.NodeAt(p.originalStart); id != doctree.InvalidNode; id = p.doc.Parent(id) {
		if p.doc.Type(id) != p.nodeType {
			continue
		}
		if p.doc.Range(id).Start == p.originalStart {
			return id, true
		}
	}
	return doctree.InvalidNode, false
}

