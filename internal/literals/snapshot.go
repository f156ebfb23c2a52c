package literals

import (
	"livelits/internal/doctree"
)

// Snapshot pairs a set of references with the modification counts observed
// when it was taken. It is immutable and safe for concurrent use.
type Snapshot struct {
	doc    *doctree.Document
	refs   []*Reference
	counts []uint64
}

// NewSnapshot keeps the references that are valid right now and captures
// their counts. Counts are taken as they stand; values are not re-read.
func NewSnapshot(doc *doctree.Document, refs []*Reference) *Snapshot {
	s := &Snapshot{doc: doc}
	if doc == nil {
		return s
	}
	doc.Read(func() { s.capture(refs) })
	return s
}

// capture requires the document read lock.
func (s *Snapshot) capture(refs []*Reference) {
	for _, r := range refs {
		if !r.validLocked() {
			continue
		}
		s.refs = append(s.refs, r)
		s.counts = append(s.counts, r.ModificationCount())
	}
}

// Document returns the document the snapshot belongs to.
func (s *Snapshot) Document() *doctree.Document { return s.doc }

// All returns the references captured by the snapshot.
func (s *Snapshot) All() []*Reference {
	return append([]*Reference(nil), s.refs...)
}

// Len returns the number of captured references.
func (s *Snapshot) Len() int { return len(s.refs) }

// Modified reads every reference and returns the valid ones whose count moved
// since the snapshot was taken.
func (s *Snapshot) Modified() []*Reference {
	if len(s.refs) == 0 {
		return nil
	}
	var out []*Reference
	s.doc.Read(func() {
		for i, r := range s.refs {
			count, valid := r.countLocked()
			if valid && count != s.counts[i] {
				out = append(out, r)
			}
		}
	})
	return out
}

// NewSnapshot returns a snapshot over the same references with fresh counts.
// It never rescans the tree.
func (s *Snapshot) NewSnapshot() *Snapshot {
	return NewSnapshot(s.doc, s.refs)
}
