// Package remap holds the stores that receive live literal values, so a
// running program can substitute a new constant for the compiled one.
package remap

import (
	"fmt"
	"strconv"

	"livelits/internal/literals"
)

// GlobalScope is the scope key used when the caller has no narrower scope.
const GlobalScope = ""

// Store receives remapped constants. AddConstant reports whether the value was
// applied; a store may decline values it cannot represent.
type Store interface {
	AddConstant(scopeKey, ownerPath string, oldValue, newValue any) bool
	ClearConstants(scopeKey string)
}

// Accepts reports whether a store should apply newValue in place of oldValue:
// both must be literal scalars of the same kind.
func Accepts(oldValue, newValue any) bool {
	k := literals.KindOf(oldValue)
	return k != literals.KindNone && k == literals.KindOf(newValue)
}

// encodeValue renders a literal value as (kind, text) for persistence.
func encodeValue(v any) (string, string) {
	switch x := v.(type) {
	case int64:
		return string(literals.KindInt), strconv.FormatInt(x, 10)
	case float64:
		return string(literals.KindFloat), strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		return string(literals.KindString), x
	case bool:
		return string(literals.KindBool), strconv.FormatBool(x)
	case rune:
		return string(literals.KindChar), string(x)
	default:
		return "", fmt.Sprint(x)
	}
}

// decodeValue is the inverse of encodeValue.
func decodeValue(kind, text string) (any, error) {
	switch literals.Kind(kind) {
	case literals.KindInt:
		return strconv.ParseInt(text, 10, 64)
	case literals.KindFloat:
		return strconv.ParseFloat(text, 64)
	case literals.KindString:
		return text, nil
	case literals.KindBool:
		return strconv.ParseBool(text)
	case literals.KindChar:
		r := []rune(text)
		if len(r) != 1 {
			return nil, fmt.Errorf("invalid char value %q", text)
		}
		return r[0], nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}
