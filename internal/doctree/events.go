package doctree

// ChangeKind identifies a structural change.
type ChangeKind int

const (
	NodeAdded ChangeKind = iota
	NodeRemoved
	NodeReplaced
	NodeMoved
	TextChanged
)

func (k ChangeKind) String() string {
	switch k {
	case NodeAdded:
		return "added"
	case NodeRemoved:
		return "removed"
	case NodeReplaced:
		return "replaced"
	case NodeMoved:
		return "moved"
	case TextChanged:
		return "text"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one change committed by a transaction.
type ChangeEvent struct {
	Kind ChangeKind
	// Node is the added, removed, moved or edited node. For NodeReplaced it is
	// the replacement.
	Node NodeID
	// Old is the replaced node for NodeReplaced, InvalidNode otherwise.
	Old NodeID
	// Parent is the parent the change happened under.
	Parent NodeID
	// Stamp is the modification stamp the transaction committed with.
	Stamp uint64
}
