//go:build cgo

package sitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"livelits/internal/doctree"
)

// templateTypes maps each language to its interpolated string node types and
// the child types that mark an interpolation inside them.
var templateTypes = map[doctree.Language]map[string][]string{
	doctree.LangKotlin: {
		"string_literal": {"interpolated_identifier", "interpolated_expression"},
	},
	doctree.LangJavaScript: {
		"template_string": {"template_substitution"},
	},
}

// contentTypes are the children of a template that carry literal text.
var contentTypes = map[string]bool{
	doctree.TypeWhitespace: true,
	doctree.TypeText:       true,
	"string_content":       true,
	"string_fragment":      true,
	"escape_sequence":      true,
	"character_escape_seq": true,
}

// convert turns a tree-sitter tree into a Spec whose text equals source byte
// for byte. The root always spans the whole source.
func convert(root *sitter.Node, source []byte, lang doctree.Language) doctree.Spec {
	spec := convertNode(root, source, lang)
	start, end := int(root.StartByte()), int(root.EndByte())
	if start == 0 && end == len(source) {
		return spec
	}

	var children []doctree.Spec
	if start > 0 {
		children = append(children, gap(source[:start]))
	}
	if spec.IsLeaf() {
		children = append(children, spec)
	} else {
		children = append(children, spec.Children...)
	}
	if end < len(source) {
		children = append(children, gap(source[end:]))
	}
	return doctree.Node(root.Type(), children...)
}

func convertNode(n *sitter.Node, source []byte, lang doctree.Language) doctree.Spec {
	start, end := int(n.StartByte()), int(n.EndByte())
	count := int(n.ChildCount())
	if count == 0 {
		return doctree.Leaf(n.Type(), string(source[start:end]))
	}

	children := make([]doctree.Spec, 0, count*2)
	cursor := start
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		cs, ce := int(child.StartByte()), int(child.EndByte())
		if cs > cursor {
			children = append(children, gap(source[cursor:cs]))
		}
		if cs < cursor {
			// Overlapping children only show up around error recovery.
			continue
		}
		children = append(children, convertNode(child, source, lang))
		cursor = ce
	}
	if end > cursor {
		children = append(children, gap(source[cursor:end]))
	}
	if len(children) == 0 {
		return doctree.Leaf(n.Type(), string(source[start:end]))
	}

	spec := doctree.Node(n.Type(), children...)
	if markers, ok := templateTypes[lang][n.Type()]; ok && hasChildType(spec, markers) {
		spec = normalizeTemplate(spec)
	}
	return spec
}

func gap(b []byte) doctree.Spec {
	text := string(b)
	if strings.TrimSpace(text) == "" {
		return doctree.Space(text)
	}
	return doctree.Leaf(doctree.TypeText, text)
}

func hasChildType(spec doctree.Spec, types []string) bool {
	for _, c := range spec.Children {
		for _, t := range types {
			if c.Type == t {
				return true
			}
		}
	}
	return false
}

// normalizeTemplate merges every literal text run between the delimiters of
// an interpolated string into one template_text leaf. Delimiters, sigils and
// interpolations stay as they are.
func normalizeTemplate(spec doctree.Spec) doctree.Spec {
	kids := spec.Children
	if len(kids) < 2 {
		return spec
	}

	out := make([]doctree.Spec, 0, len(kids))
	out = append(out, kids[0])
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			out = append(out, doctree.Leaf(doctree.TypeTemplateText, run.String()))
			run.Reset()
		}
	}
	for _, c := range kids[1 : len(kids)-1] {
		if contentTypes[c.Type] {
			run.WriteString(c.Source())
			continue
		}
		flush()
		out = append(out, c)
	}
	flush()
	out = append(out, kids[len(kids)-1])

	spec.Children = out
	return spec
}
