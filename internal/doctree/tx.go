package doctree

import (
	"livelits/internal/errors"
)

// Tx is a single write transaction. It is only valid inside Document.Apply.
//
// Nodes created by Build, NewLeaf, NewNode and Copy start detached: they are
// not alive until Insert or Replace attaches them.
type Tx struct {
	doc     *Document
	changed bool
	events  []ChangeEvent
}

// Document returns the document being edited.
func (tx *Tx) Document() *Document { return tx.doc }

func (tx *Tx) alloc(n node) NodeID {
	d := tx.doc
	id := NodeID(len(d.nodes))
	n.parent = InvalidNode
	d.nodes = append(d.nodes, n)
	return id
}

// NewLeaf creates a detached leaf.
func (tx *Tx) NewLeaf(typ, text string) NodeID {
	return tx.alloc(node{typ: typ, text: text, leaf: true})
}

// NewNode creates a detached inner node owning the given detached children.
func (tx *Tx) NewNode(typ string, children ...NodeID) (NodeID, error) {
	for _, c := range children {
		if err := tx.checkDetached(c); err != nil {
			return InvalidNode, err
		}
	}
	id := tx.alloc(node{typ: typ, children: append([]NodeID(nil), children...)})
	for _, c := range children {
		tx.doc.nodes[c].parent = id
	}
	return id, nil
}

// Build materializes spec as a detached subtree and returns its root.
func (tx *Tx) Build(spec Spec) NodeID {
	if spec.IsLeaf() {
		return tx.NewLeaf(spec.Type, spec.Text)
	}
	kids := make([]NodeID, len(spec.Children))
	for i, c := range spec.Children {
		kids[i] = tx.Build(c)
	}
	id := tx.alloc(node{typ: spec.Type, children: kids})
	for _, c := range kids {
		tx.doc.nodes[c].parent = id
	}
	return id
}

// Copy creates a detached deep copy of id, carrying over node metadata.
func (tx *Tx) Copy(id NodeID) (NodeID, error) {
	d := tx.doc
	if !d.has(id) {
		return InvalidNode, errors.Newf(errors.NodeNotFound, "node %d does not exist", id)
	}
	src := d.nodes[id]
	var cp NodeID
	if src.leaf {
		cp = tx.NewLeaf(src.typ, src.text)
	} else {
		kids := make([]NodeID, len(src.children))
		for i, c := range src.children {
			k, err := tx.Copy(c)
			if err != nil {
				return InvalidNode, err
			}
			kids[i] = k
		}
		cp = tx.alloc(node{typ: src.typ, children: kids})
		for _, k := range kids {
			d.nodes[k].parent = cp
		}
	}
	d.copyUserData(id, cp)
	return cp, nil
}

func (tx *Tx) checkDetached(id NodeID) error {
	d := tx.doc
	if !d.has(id) {
		return errors.Newf(errors.NodeNotFound, "node %d does not exist", id)
	}
	n := d.nodes[id]
	if n.alive || n.disposed || n.parent != InvalidNode {
		return errors.Newf(errors.InvalidEdit, "node %d is not a fresh detached node", id)
	}
	return nil
}

func (tx *Tx) checkLive(id NodeID) error {
	if !tx.doc.Alive(id) {
		return errors.Newf(errors.NodeNotFound, "node %d is not alive", id)
	}
	return nil
}

func (tx *Tx) emit(ev ChangeEvent) {
	tx.changed = true
	tx.events = append(tx.events, ev)
}

// Insert attaches a detached node as the index-th child of parent. An index
// past the end appends.
func (tx *Tx) Insert(parent NodeID, index int, child NodeID) error {
	if err := tx.checkLive(parent); err != nil {
		return err
	}
	if err := tx.checkDetached(child); err != nil {
		return err
	}
	d := tx.doc
	if d.nodes[parent].leaf {
		return errors.Newf(errors.InvalidEdit, "cannot insert under leaf %d", parent)
	}
	tx.attach(parent, index, child)
	d.setAlive(child, true)
	tx.emit(ChangeEvent{Kind: NodeAdded, Node: child, Old: InvalidNode, Parent: parent})
	return nil
}

func (tx *Tx) attach(parent NodeID, index int, child NodeID) {
	d := tx.doc
	kids := d.nodes[parent].children
	if index < 0 || index > len(kids) {
		index = len(kids)
	}
	kids = append(kids, InvalidNode)
	copy(kids[index+1:], kids[index:])
	kids[index] = child
	d.nodes[parent].children = kids
	d.nodes[child].parent = parent
}

func (tx *Tx) detach(id NodeID) (parent NodeID, index int) {
	d := tx.doc
	parent = d.nodes[id].parent
	if parent == InvalidNode {
		return InvalidNode, -1
	}
	kids := d.nodes[parent].children
	for i, c := range kids {
		if c == id {
			index = i
			break
		}
	}
	d.nodes[parent].children = append(kids[:index:index], kids[index+1:]...)
	d.nodes[id].parent = InvalidNode
	return parent, index
}

// Remove detaches id and kills its whole subtree.
func (tx *Tx) Remove(id NodeID) error {
	if err := tx.checkLive(id); err != nil {
		return err
	}
	if id == tx.doc.root {
		return errors.New(errors.InvalidEdit, "cannot remove the document root", nil)
	}
	parent, _ := tx.detach(id)
	tx.doc.setAlive(id, false)
	tx.emit(ChangeEvent{Kind: NodeRemoved, Node: id, Old: InvalidNode, Parent: parent})
	return nil
}

// Replace puts a detached node in the slot of a live one; the old subtree dies.
func (tx *Tx) Replace(old, replacement NodeID) error {
	if err := tx.checkLive(old); err != nil {
		return err
	}
	if err := tx.checkDetached(replacement); err != nil {
		return err
	}
	d := tx.doc
	parent, index := tx.detach(old)
	if parent == InvalidNode {
		d.root = replacement
	} else {
		tx.attach(parent, index, replacement)
	}
	d.setAlive(old, false)
	d.setAlive(replacement, true)
	tx.emit(ChangeEvent{Kind: NodeReplaced, Node: replacement, Old: old, Parent: parent})
	return nil
}

// Move re-parents a live node. The node and its subtree stay alive.
func (tx *Tx) Move(id, newParent NodeID, index int) error {
	if err := tx.checkLive(id); err != nil {
		return err
	}
	if err := tx.checkLive(newParent); err != nil {
		return err
	}
	d := tx.doc
	if id == d.root {
		return errors.New(errors.InvalidEdit, "cannot move the document root", nil)
	}
	if d.nodes[newParent].leaf {
		return errors.Newf(errors.InvalidEdit, "cannot move under leaf %d", newParent)
	}
	for p := newParent; p != InvalidNode; p = d.nodes[p].parent {
		if p == id {
			return errors.Newf(errors.InvalidEdit, "cannot move node %d into its own subtree", id)
		}
	}
	tx.detach(id)
	tx.attach(newParent, index, id)
	tx.emit(ChangeEvent{Kind: NodeMoved, Node: id, Old: InvalidNode, Parent: newParent})
	return nil
}

// SetText rewrites the text of a live leaf in place. Identity is preserved.
func (tx *Tx) SetText(id NodeID, text string) error {
	if err := tx.checkLive(id); err != nil {
		return err
	}
	d := tx.doc
	if !d.nodes[id].leaf {
		return errors.Newf(errors.InvalidEdit, "node %d is not a leaf", id)
	}
	if d.nodes[id].text == text {
		return nil
	}
	d.nodes[id].text = text
	tx.emit(ChangeEvent{Kind: TextChanged, Node: id, Old: InvalidNode, Parent: d.nodes[id].parent})
	return nil
}
