package literals

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"livelits/internal/doctree"
)

// Evaluator computes the constant value of a node. Implementations never
// mutate the tree and expect the caller to hold the document's read lock.
type Evaluator interface {
	// Accepts reports whether nodes of this type are evaluation targets.
	Accepts(nodeType string) bool
	// Evaluate returns the node's value, or false when it is not constant.
	Evaluate(doc *doctree.Document, id doctree.NodeID) (any, bool)
}

// GenericEvaluator folds literal tokens and simple operator expressions by
// inspecting the tree structure only.
type GenericEvaluator struct {
	rules *languageRules
}

// NewGenericEvaluator returns the structural evaluator for lang.
func NewGenericEvaluator(lang doctree.Language) (*GenericEvaluator, bool) {
	rules, ok := rulesFor(lang)
	if !ok {
		return nil, false
	}
	return &GenericEvaluator{rules: rules}, true
}

// Accepts reports whether typ is a literal or a foldable expression.
func (e *GenericEvaluator) Accepts(typ string) bool {
	return e.rules.accepts(typ)
}

// Evaluate folds the node at id.
func (e *GenericEvaluator) Evaluate(doc *doctree.Document, id doctree.NodeID) (any, bool) {
	if !doc.Alive(id) {
		return nil, false
	}
	return e.eval(doc, id, 0)
}

const maxFoldDepth = 64

func (e *GenericEvaluator) eval(doc *doctree.Document, id doctree.NodeID, depth int) (any, bool) {
	if depth > maxFoldDepth {
		return nil, false
	}
	typ := doc.Type(id)
	if kind, ok := e.rules.literals[typ]; ok {
		if isTemplate(doc, e.rules, id) {
			return nil, false
		}
		return parseToken(e.rules, kind, doc.Text(id))
	}

	operands := significantChildren(doc, id)
	switch {
	case e.rules.paren[typ]:
		if len(operands) != 3 {
			return nil, false
		}
		return e.eval(doc, operands[1], depth+1)
	case e.rules.unary[typ]:
		if len(operands) != 2 || !isToken(doc, operands[0]) {
			return nil, false
		}
		v, ok := e.eval(doc, operands[1], depth+1)
		if !ok {
			return nil, false
		}
		return foldUnary(e.rules, doc.Type(operands[0]), v)
	case e.rules.binary[typ]:
		if len(operands) != 3 || !isToken(doc, operands[1]) {
			return nil, false
		}
		l, ok := e.eval(doc, operands[0], depth+1)
		if !ok {
			return nil, false
		}
		r, ok := e.eval(doc, operands[2], depth+1)
		if !ok {
			return nil, false
		}
		return foldBinary(e.rules, doc.Type(operands[1]), l, r)
	}
	return nil, false
}

// significantChildren skips whitespace and gap text.
func significantChildren(doc *doctree.Document, id doctree.NodeID) []doctree.NodeID {
	kids := doc.Children(id)
	out := kids[:0]
	for _, c := range kids {
		switch doc.Type(c) {
		case doctree.TypeWhitespace, doctree.TypeText:
			continue
		}
		out = append(out, c)
	}
	return out
}

// isTemplate reports whether id is an interpolated string. A template holds
// template_text segments, interpolations or both; a string made only of
// interpolations has no constant value at all.
func isTemplate(doc *doctree.Document, rules *languageRules, id doctree.NodeID) bool {
	for i, n := 0, doc.ChildCount(id); i < n; i++ {
		typ := doc.Type(doc.Child(id, i))
		if typ == doctree.TypeTemplateText || rules.interpolations[typ] {
			return true
		}
	}
	return false
}

// isToken reports whether id is an anonymous operator token.
func isToken(doc *doctree.Document, id doctree.NodeID) bool {
	return doc.IsLeaf(id) && doc.Type(id) == doc.Text(id)
}

func parseToken(rules *languageRules, kind tokenKind, text string) (any, bool) {
	text = strings.TrimSpace(text)
	switch kind {
	case tokBool:
		switch text {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return nil, false
	case tokInt:
		if rules.floatNumbers {
			return parseFloat(text)
		}
		return parseInt(text)
	case tokFloat:
		return parseFloat(text)
	case tokNumber:
		if strings.HasSuffix(text, "n") {
			// BigInt literals have no scalar value.
			return nil, false
		}
		if rules.floatNumbers {
			return parseFloat(text)
		}
		if v, ok := parseInt(text); ok {
			return v, true
		}
		return parseFloat(text)
	case tokString:
		return parseString(text)
	case tokRawString:
		return parseRawString(text)
	case tokVerbatim:
		if len(text) < 2 || text[0] != '`' || text[len(text)-1] != '`' {
			return nil, false
		}
		return strings.ReplaceAll(text[1:len(text)-1], "\r", ""), true
	case tokChar:
		return parseChar(text)
	}
	return nil, false
}

func parseInt(text string) (any, bool) {
	t := strings.TrimRight(text, "lLuU")
	if t == "" {
		return nil, false
	}
	if v, err := strconv.ParseInt(t, 0, 64); err == nil {
		return v, true
	}
	// Unsigned literals above MaxInt64 wrap the way the runtime stores them.
	if u, err := strconv.ParseUint(t, 0, 64); err == nil {
		return int64(u), true
	}
	return nil, false
}

func parseFloat(text string) (any, bool) {
	t := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(t)
	prefixed := strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0b") || strings.HasPrefix(lower, "0o")
	if prefixed && !strings.Contains(lower, "p") {
		v, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			return nil, false
		}
		return float64(v), true
	}
	t = strings.TrimRight(t, "fFdD")
	if t == "" {
		return nil, false
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return nil, false
	}
	return v, true
}

// parseString decodes a quoted string literal. Triple-quoted strings are raw.
func parseString(text string) (any, bool) {
	if len(text) >= 6 && strings.HasPrefix(text, `"""`) && strings.HasSuffix(text, `"""`) {
		return text[3 : len(text)-3], true
	}
	if len(text) < 2 {
		return nil, false
	}
	q := text[0]
	if (q != '"' && q != '\'' && q != '`') || text[len(text)-1] != q {
		return nil, false
	}
	return unescape(text[1 : len(text)-1])
}

func parseRawString(text string) (any, bool) {
	switch {
	case len(text) >= 6 && strings.HasPrefix(text, `"""`) && strings.HasSuffix(text, `"""`):
		body := text[3 : len(text)-3]
		// Java text blocks start after the line terminator following the opener.
		if i := strings.IndexByte(body, '\n'); i >= 0 && strings.TrimSpace(body[:i]) == "" {
			body = body[i+1:]
		}
		return body, true
	case len(text) >= 2 && text[0] == '`' && text[len(text)-1] == '`':
		body := text[1 : len(text)-1]
		if strings.Contains(body, "${") {
			return nil, false
		}
		if strings.Contains(body, `\`) {
			return unescape(body)
		}
		return body, true
	}
	return nil, false
}

func parseChar(text string) (any, bool) {
	if len(text) < 3 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return nil, false
	}
	s, ok := unescape(text[1 : len(text)-1])
	if !ok {
		return nil, false
	}
	str := s.(string)
	r, size := utf8.DecodeRuneInString(str)
	if r == utf8.RuneError || size != len(str) {
		return nil, false
	}
	return r, true
}

// unescape decodes the backslash escapes shared by the supported languages.
func unescape(body string) (any, bool) {
	if !strings.Contains(body, `\`) {
		return body, true
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return nil, false
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case 'a':
			b.WriteByte('\a')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"', '$', '`':
			b.WriteByte(body[i])
		case '\n':
			// Line continuation.
		case 'x':
			if i+2 >= len(body) {
				return nil, false
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return nil, false
			}
			b.WriteByte(byte(v))
			i += 2
		case 'u':
			r, n, ok := parseUnicodeEscape(body[i+1:])
			if !ok {
				return nil, false
			}
			b.WriteRune(r)
			i += n
		default:
			return nil, false
		}
	}
	return b.String(), true
}

// parseUnicodeEscape reads XXXX or {X...} after \u and returns the rune and
// the number of bytes consumed.
func parseUnicodeEscape(s string) (rune, int, bool) {
	if strings.HasPrefix(s, "{") {
		end := strings.IndexByte(s, '}')
		if end < 2 {
			return 0, 0, false
		}
		v, err := strconv.ParseUint(s[1:end], 16, 32)
		if err != nil {
			return 0, 0, false
		}
		return rune(v), end + 1, true
	}
	if len(s) < 4 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, 0, false
	}
	return rune(v), 4, true
}

// RawTextEvaluator returns a template segment's own source text.
type RawTextEvaluator struct{}

// Accepts reports whether typ is a template text segment.
func (RawTextEvaluator) Accepts(typ string) bool {
	return typ == doctree.TypeTemplateText
}

// Evaluate returns the node text.
func (RawTextEvaluator) Evaluate(doc *doctree.Document, id doctree.NodeID) (any, bool) {
	if !doc.Alive(id) || doc.Type(id) != doctree.TypeTemplateText {
		return nil, false
	}
	return doc.Text(id), true
}
