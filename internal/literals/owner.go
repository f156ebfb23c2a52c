package literals

import (
	"path"
	"strings"
	"unicode"

	"livelits/internal/doctree"
)

// InitMember is the member name used when a literal has no enclosing member.
const InitMember = "<init>"

var (
	memberNameTypes = set("identifier", "simple_identifier", "field_identifier", "property_identifier")
	typeNameTypes   = set("type_identifier", "identifier", "simple_identifier")
	constructorDecl = set("secondary_constructor", "constructor_declaration", "anonymous_initializer")
)

// ownerPath returns "DeclaringType.member" for the literal at id. The member
// is the outermost declaration below the nearest enclosing type.
func ownerPath(doc *doctree.Document, rules *languageRules, id doctree.NodeID) string {
	member := doctree.InvalidNode
	typeDecl := doctree.InvalidNode
	for cur := doc.Parent(id); cur != doctree.InvalidNode; cur = doc.Parent(cur) {
		typ := doc.Type(cur)
		if rules.typeDecls[typ] {
			typeDecl = cur
			break
		}
		if rules.memberDecls[typ] {
			member = cur
		}
	}

	memberName := InitMember
	if member != doctree.InvalidNode && !constructorDecl[doc.Type(member)] {
		if name := childName(doc, member, memberNameTypes); name != "" {
			memberName = name
		}
	}

	var typeName string
	switch {
	case typeDecl != doctree.InvalidNode:
		typeName = childName(doc, typeDecl, typeNameTypes)
	case doc.Language() == doctree.LangGo:
		if member != doctree.InvalidNode && doc.Type(member) == "method_declaration" {
			typeName = receiverType(doc, member)
		}
		if typeName == "" {
			typeName = goPackage(doc)
		}
	}
	if typeName == "" {
		typeName = topLevelOwner(doc)
	}
	return typeName + "." + memberName
}

// childName returns the text of the first direct child with a name type, then
// looks one level deeper for declarators that wrap the name.
func childName(doc *doctree.Document, id doctree.NodeID, types map[string]bool) string {
	kids := doc.Children(id)
	for _, c := range kids {
		if types[doc.Type(c)] {
			return doc.Text(c)
		}
	}
	for _, c := range kids {
		switch doc.Type(c) {
		case "variable_declaration", "variable_declarator":
			for _, gc := range doc.Children(c) {
				if types[doc.Type(gc)] {
					return doc.Text(gc)
				}
			}
		}
	}
	return ""
}

func receiverType(doc *doctree.Document, method doctree.NodeID) string {
	for _, c := range doc.Children(method) {
		if doc.Type(c) == "parameter_list" {
			return firstOfType(doc, c, "type_identifier")
		}
	}
	return ""
}

func goPackage(doc *doctree.Document) string {
	for _, c := range doc.Children(doc.Root()) {
		if doc.Type(c) == "package_clause" {
			return firstOfType(doc, c, "package_identifier")
		}
	}
	return ""
}

func firstOfType(doc *doctree.Document, id doctree.NodeID, typ string) string {
	stack := []doctree.NodeID{id}
	for len(stack) > 0 {
		cur := stack[0]
		stack = stack[1:]
		if doc.Type(cur) == typ {
			return doc.Text(cur)
		}
		stack = append(stack, doc.Children(cur)...)
	}
	return ""
}

// topLevelOwner names the synthetic owner of file-level declarations.
func topLevelOwner(doc *doctree.Document) string {
	uri := strings.TrimPrefix(doc.URI(), "file://")
	base := path.Base(strings.ReplaceAll(uri, "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "File"
	}
	if doc.Language() == doctree.LangKotlin {
		r := []rune(stem)
		r[0] = unicode.ToUpper(r[0])
		return string(r) + "Kt"
	}
	return stem
}
