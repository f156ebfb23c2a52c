package doctree

import "strings"

// Synthetic node types produced by importers and understood by the scanner.
const (
	// TypeWhitespace covers blank source between two sibling nodes.
	TypeWhitespace = "whitespace"
	// TypeText covers non-blank source the grammar did not wrap in a node.
	TypeText = "text"
	// TypeTemplateText is one literal run inside an interpolated string.
	TypeTemplateText = "template_text"
)

// Spec describes the shape of a subtree before it is materialized in a Document.
// A Spec without children is a leaf and carries Text; inner specs derive their
// text from their children.
type Spec struct {
	Type     string
	Text     string
	Children []Spec
}

// Leaf returns a leaf spec.
func Leaf(typ, text string) Spec {
	return Spec{Type: typ, Text: text}
}

// Node returns an inner spec.
func Node(typ string, children ...Spec) Spec {
	return Spec{Type: typ, Children: children}
}

// Token returns a leaf whose type is its own text, the way grammars name
// anonymous tokens such as "+" or "(".
func Token(text string) Spec {
	return Spec{Type: text, Text: text}
}

// Space returns a whitespace leaf.
func Space(text string) Spec {
	return Spec{Type: TypeWhitespace, Text: text}
}

// IsLeaf reports whether the spec has no children.
func (s Spec) IsLeaf() bool {
	return len(s.Children) == 0
}

// Source returns the concatenated text of the spec.
func (s Spec) Source() string {
	var b strings.Builder
	s.writeTo(&b)
	return b.String()
}

func (s Spec) writeTo(b *strings.Builder) {
	if s.IsLeaf() {
		b.WriteString(s.Text)
		return
	}
	for _, c := range s.Children {
		c.writeTo(b)
	}
}
