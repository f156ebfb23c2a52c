package literals

import (
	"testing"

	"github.com/stretchr/testify/require"

	"livelits/internal/doctree"
)

// kotlinProperty is `val <name> = <value...>`.
func kotlinProperty(name string, value doctree.Spec) doctree.Spec {
	return doctree.Node("property_declaration",
		doctree.Token("val"),
		doctree.Space(" "),
		doctree.Node("variable_declaration", doctree.Leaf("simple_identifier", name)),
		doctree.Space(" "),
		doctree.Token("="),
		doctree.Space(" "),
		value,
	)
}

func kotlinFile(children ...doctree.Spec) doctree.Spec {
	return doctree.Node("source_file", children...)
}

func additive(l, op, r string) doctree.Spec {
	return doctree.Node("additive_expression",
		doctree.Leaf("integer_literal", l),
		doctree.Space(" "),
		doctree.Token(op),
		doctree.Space(" "),
		doctree.Leaf("integer_literal", r),
	)
}

func template(parts ...doctree.Spec) doctree.Spec {
	kids := append([]doctree.Spec{doctree.Token(`"`)}, parts...)
	kids = append(kids, doctree.Token(`"`))
	return doctree.Node("string_literal", kids...)
}

func findAll(doc *doctree.Document, id doctree.NodeID, typ string) []doctree.NodeID {
	var out []doctree.NodeID
	if doc.Type(id) == typ {
		out = append(out, id)
	}
	for _, c := range doc.Children(id) {
		out = append(out, findAll(doc, c, typ)...)
	}
	return out
}

func scan(t *testing.T, doc *doctree.Document) *Snapshot {
	t.Helper()
	snap, err := NewScanner(ScannerOptions{}).FindLiterals(t.Context(), doc, doc.Root())
	require.NoError(t, err)
	return snap
}

func replaceLeaf(t *testing.T, doc *doctree.Document, old doctree.NodeID, typ, text string) doctree.NodeID {
	t.Helper()
	var fresh doctree.NodeID
	require.NoError(t, doc.Apply(func(tx *doctree.Tx) error {
		parent := doc.Parent(old)
		index := -1
		for i, c := range doc.Children(parent) {
			if c == old {
				index = i
			}
		}
		if err := tx.Remove(old); err != nil {
			return err
		}
		fresh = tx.NewLeaf(typ, text)
		return tx.Insert(parent, index, fresh)
	}))
	return fresh
}

func setText(t *testing.T, doc *doctree.Document, id doctree.NodeID, text string) {
	t.Helper()
	require.NoError(t, doc.Apply(func(tx *doctree.Tx) error { return tx.SetText(id, text) }))
}
