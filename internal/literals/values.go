// Package literals discovers literal constants in a doctree document and
// tracks their values across edits.
package literals

import (
	"fmt"
	"math"
)

// Kind names the kind of a literal value.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindString Kind = "string"
	KindBool   Kind = "bool"
	KindChar   Kind = "char"
	KindNone   Kind = ""
)

// KindOf returns the kind of a literal value, or KindNone for anything that is
// not a supported scalar.
func KindOf(v any) Kind {
	switch v.(type) {
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case bool:
		return KindBool
	case rune:
		return KindChar
	default:
		return KindNone
	}
}

// Equal reports structural equality of two literal values. Values of
// different kinds are never equal; NaN equals NaN so a NaN literal does not
// count as changing on every read.
func Equal(a, b any) bool {
	if KindOf(a) != KindOf(b) {
		return false
	}
	switch x := a.(type) {
	case float64:
		y := b.(float64)
		if math.IsNaN(x) && math.IsNaN(y) {
			return true
		}
		return x == y
	case nil:
		return b == nil
	default:
		return a == b
	}
}

// Format renders a value the way it would be written in source.
func Format(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case rune:
		return fmt.Sprintf("%q", x)
	case nil:
		return "<none>"
	default:
		return fmt.Sprint(x)
	}
}
