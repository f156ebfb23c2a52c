package literals

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// foldBinary computes left op right over literal operands. ok is false when
// the operation is not a compile-time constant: unsupported operators, mixed
// operand kinds, integer division by zero or shift overflow.
func foldBinary(rules *languageRules, op string, left, right any) (any, bool) {
	if alias, ok := rules.operatorAliases[op]; ok {
		op = alias
	}

	// String concatenation.
	ls, lIsStr := left.(string)
	rs, rIsStr := right.(string)
	if op == "+" && (lIsStr || rIsStr) {
		if lIsStr && rIsStr {
			return ls + rs, true
		}
		if !rules.concatAny {
			return nil, false
		}
		if rules.stringLeftOnly && !lIsStr {
			if _, isChar := left.(rune); !isChar {
				return nil, false
			}
		}
		return concatString(rules, left) + concatString(rules, right), true
	}

	switch l := left.(type) {
	case int64:
		switch r := right.(type) {
		case int64:
			return foldInt(op, l, r)
		case float64:
			return foldFloat(op, float64(l), r)
		}
	case float64:
		switch r := right.(type) {
		case int64:
			return foldFloat(op, l, float64(r))
		case float64:
			return foldFloat(op, l, r)
		}
	case bool:
		if r, ok := right.(bool); ok {
			return foldBool(op, l, r)
		}
	case string:
		if r, ok := right.(string); ok {
			return compare(op, l < r, l == r)
		}
	case rune:
		if r, ok := right.(rune); ok {
			return compare(op, l < r, l == r)
		}
	}
	return nil, false
}

// concatString renders an operand of a string concatenation the way the
// target language converts it to a string at compile time.
func concatString(rules *languageRules, v any) string {
	switch x := v.(type) {
	case string:
		return x
	case rune:
		return string(x)
	case float64:
		if rules.numberFormat != nil {
			return rules.numberFormat(x)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// formatJavaDouble follows Double.toString: plain decimal notation with at
// least one fractional digit for magnitudes in [1e-3, 1e7), otherwise
// scientific notation such as 1.0E20.
func formatJavaDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	if abs := math.Abs(f); abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}
	mantissa, exp := splitExponent(strconv.FormatFloat(f, 'e', -1, 64))
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	return mantissa + "E" + strconv.Itoa(exp)
}

// formatJSNumber follows Number.prototype.toString: integers print without a
// fraction, and magnitudes outside [1e-6, 1e21) use an exponent with an
// explicit sign such as 1e+21.
func formatJSNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp := splitExponent(strconv.FormatFloat(f, 'e', -1, 64))
	sign := "+"
	if exp < 0 {
		sign = "-"
		exp = -exp
	}
	return mantissa + "e" + sign + strconv.Itoa(exp)
}

// splitExponent splits strconv 'e' output such as "1.5e-05" into its
// mantissa and exponent.
func splitExponent(s string) (string, int) {
	mantissa, exp, _ := strings.Cut(s, "e")
	n, _ := strconv.Atoi(exp)
	return mantissa, n
}

func foldInt(op string, l, r int64) (any, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return nil, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return nil, false
		}
		return l % r, true
	case "&":
		return l & r, true
	case "|":
		return l | r, true
	case "^":
		return l ^ r, true
	case "&^":
		return l &^ r, true
	case "<<":
		if r < 0 || r > 63 {
			return nil, false
		}
		return l << uint(r), true
	case ">>":
		if r < 0 || r > 63 {
			return nil, false
		}
		return l >> uint(r), true
	}
	return compare(op, l < r, l == r)
}

func foldFloat(op string, l, r float64) (any, bool) {
	switch op {
	case "+":
		return l + r, true
	case "-":
		return l - r, true
	case "*":
		return l * r, true
	case "/":
		if r == 0 {
			return nil, false
		}
		return l / r, true
	case "%":
		if r == 0 {
			return nil, false
		}
		return math.Mod(l, r), true
	}
	return compare(op, l < r, l == r)
}

func foldBool(op string, l, r bool) (any, bool) {
	switch op {
	case "&&":
		return l && r, true
	case "||":
		return l || r, true
	case "==":
		return l == r, true
	case "!=":
		return l != r, true
	}
	return nil, false
}

func compare(op string, less, equal bool) (any, bool) {
	switch op {
	case "==":
		return equal, true
	case "!=":
		return !equal, true
	case "<":
		return less, true
	case "<=":
		return less || equal, true
	case ">":
		return !less && !equal, true
	case ">=":
		return !less, true
	}
	return nil, false
}

// foldUnary computes op operand.
func foldUnary(rules *languageRules, op string, operand any) (any, bool) {
	if alias, ok := rules.operatorAliases[op]; ok {
		op = alias
	}
	switch v := operand.(type) {
	case int64:
		switch op {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "^", "~":
			return ^v, true
		}
	case float64:
		switch op {
		case "-":
			return -v, true
		case "+":
			return v, true
		}
	case bool:
		if op == "!" {
			return !v, true
		}
	}
	return nil, false
}
