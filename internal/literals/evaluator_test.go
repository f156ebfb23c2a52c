package literals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livelits/internal/doctree"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		lang  doctree.Language
		typ   string
		text  string
		want  any
		wantK Kind
	}{
		{doctree.LangKotlin, "integer_literal", "1_000", int64(1000), KindInt},
		{doctree.LangKotlin, "long_literal", "42L", int64(42), KindInt},
		{doctree.LangKotlin, "hex_literal", "0xFF", int64(255), KindInt},
		{doctree.LangKotlin, "bin_literal", "0b101", int64(5), KindInt},
		{doctree.LangKotlin, "unsigned_literal", "7u", int64(7), KindInt},
		{doctree.LangKotlin, "real_literal", "1.5f", 1.5, KindFloat},
		{doctree.LangKotlin, "boolean_literal", "true", true, KindBool},
		{doctree.LangKotlin, "character_literal", `'\n'`, '\n', KindChar},
		{doctree.LangKotlin, "string_literal", `"a\tb"`, "a\tb", KindString},
		{doctree.LangKotlin, "string_literal", `"""raw\n"""`, `raw\n`, KindString},
		{doctree.LangJava, "octal_integer_literal", "017", int64(15), KindInt},
		{doctree.LangJava, "decimal_floating_point_literal", "2.5d", 2.5, KindFloat},
		{doctree.LangJava, "hex_floating_point_literal", "0x1p3", 8.0, KindFloat},
		{doctree.LangJava, "text_block", "\"\"\"\n  hi\n\"\"\"", "  hi\n", KindString},
		{doctree.LangJava, "character_literal", `'A'`, 'A', KindChar},
		{doctree.LangJavaScript, "number", "3", 3.0, KindFloat},
		{doctree.LangJavaScript, "number", "0x10", 16.0, KindFloat},
		{doctree.LangJavaScript, "string", `'it\'s'`, "it's", KindString},
		{doctree.LangJavaScript, "template_string", "`plain`", "plain", KindString},
		{doctree.LangGo, "int_literal", "0o17", int64(15), KindInt},
		{doctree.LangGo, "float_literal", "1_000.5", 1000.5, KindFloat},
		{doctree.LangGo, "rune_literal", "'x'", 'x', KindChar},
		{doctree.LangGo, "interpreted_string_literal", `"\x41é"`, "Aé", KindString},
		{doctree.LangGo, "raw_string_literal", "`a\\nb`", `a\nb`, KindString},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang)+"/"+tt.text, func(t *testing.T) {
			doc := doctree.NewDocument("f", tt.lang, doctree.Node("root", doctree.Leaf(tt.typ, tt.text)))
			e, ok := NewGenericEvaluator(tt.lang)
			require.True(t, ok)

			lit := doc.Child(doc.Root(), 0)
			require.True(t, e.Accepts(tt.typ))
			v, ok := e.Evaluate(doc, lit)
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.wantK, KindOf(v))
		})
	}
}

func TestParseToken_Rejects(t *testing.T) {
	tests := []struct {
		lang doctree.Language
		typ  string
		text string
	}{
		{doctree.LangJavaScript, "number", "10n"},
		{doctree.LangJavaScript, "template_string", "`a${b}`"},
		{doctree.LangKotlin, "string_literal", `"bad\q"`},
		{doctree.LangKotlin, "character_literal", `'ab'`},
		{doctree.LangGo, "int_literal", "99999999999999999999999"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			doc := doctree.NewDocument("f", tt.lang, doctree.Node("root", doctree.Leaf(tt.typ, tt.text)))
			e, _ := NewGenericEvaluator(tt.lang)
			_, ok := e.Evaluate(doc, doc.Child(doc.Root(), 0))
			assert.False(t, ok)
		})
	}
}

func binary(typ, op string, l, r doctree.Spec) doctree.Spec {
	return doctree.Node(typ, l, doctree.Space(" "), doctree.Token(op), doctree.Space(" "), r)
}

func TestGenericEvaluator_Folding(t *testing.T) {
	kInt := func(s string) doctree.Spec { return doctree.Leaf("integer_literal", s) }
	kStr := func(s string) doctree.Spec { return doctree.Leaf("string_literal", `"`+s+`"`) }
	kBool := func(s string) doctree.Spec { return doctree.Leaf("boolean_literal", s) }

	tests := []struct {
		name string
		expr doctree.Spec
		want any
		ok   bool
	}{
		{"add", binary("additive_expression", "+", kInt("3"), kInt("2")), int64(5), true},
		{"nested", binary("multiplicative_expression", "*",
			doctree.Node("parenthesized_expression", doctree.Token("("), binary("additive_expression", "+", kInt("1"), kInt("2")), doctree.Token(")")),
			kInt("4")), int64(12), true},
		{"mixed numeric", binary("additive_expression", "+", kInt("1"), doctree.Leaf("real_literal", "0.5")), 1.5, true},
		{"concat", binary("additive_expression", "+", kStr("a"), kStr("b")), "ab", true},
		{"concat any", binary("additive_expression", "+", kStr("n="), kInt("1")), "n=1", true},
		{"concat double", binary("additive_expression", "+", kStr("v"), doctree.Leaf("real_literal", "2.0")), "v2.0", true},
		{"concat char left", binary("additive_expression", "+", doctree.Leaf("character_literal", "'a'"), kStr("b")), "ab", true},
		{"concat int left", binary("additive_expression", "+", kInt("1"), kStr("v")), nil, false},
		{"compare", binary("comparison_expression", "<", kInt("1"), kInt("2")), true, true},
		{"logic", binary("conjunction_expression", "&&", kBool("true"), kBool("false")), false, true},
		{"negate", doctree.Node("prefix_expression", doctree.Token("-"), kInt("3")), int64(-3), true},
		{"not", doctree.Node("prefix_expression", doctree.Token("!"), kBool("false")), true, true},
		{"div by zero", binary("multiplicative_expression", "/", kInt("1"), kInt("0")), nil, false},
		{"string minus", binary("additive_expression", "-", kStr("a"), kStr("b")), nil, false},
		{"identifier operand", binary("additive_expression", "+", doctree.Leaf("simple_identifier", "x"), kInt("1")), nil, false},
		{"annotated prefix", doctree.Node("prefix_expression", doctree.Leaf("annotation", "@A"), kInt("3")), nil, false},
	}
	e, _ := NewGenericEvaluator(doctree.LangKotlin)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, doctree.Node("root", tt.expr))
			v, ok := e.Evaluate(doc, doc.Child(doc.Root(), 0))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestGenericEvaluator_ConcatNumberFormatting(t *testing.T) {
	tests := []struct {
		lang doctree.Language
		str  string
		num  doctree.Spec
		left bool
		want string
	}{
		{doctree.LangJava, "string_literal", doctree.Leaf("decimal_floating_point_literal", "2.0"), false, "v2.0"},
		{doctree.LangJava, "string_literal", doctree.Leaf("decimal_floating_point_literal", "1e20"), false, "v1.0E20"},
		{doctree.LangJava, "string_literal", doctree.Leaf("decimal_floating_point_literal", "1.5e-5"), false, "v1.5E-5"},
		{doctree.LangJava, "string_literal", doctree.Leaf("decimal_integer_literal", "7"), true, "7v"},
		{doctree.LangJavaScript, "string", doctree.Leaf("number", "2.0"), false, "v2"},
		{doctree.LangJavaScript, "string", doctree.Leaf("number", "1e21"), false, "v1e+21"},
		{doctree.LangJavaScript, "string", doctree.Leaf("number", "0.5"), true, "0.5v"},
	}
	for _, tt := range tests {
		t.Run(string(tt.lang)+" "+tt.want, func(t *testing.T) {
			str := doctree.Leaf(tt.str, `"v"`)
			expr := binary("binary_expression", "+", str, tt.num)
			if tt.left {
				expr = binary("binary_expression", "+", tt.num, str)
			}
			doc := doctree.NewDocument("f", tt.lang, doctree.Node("root", expr))
			e, _ := NewGenericEvaluator(tt.lang)
			v, ok := e.Evaluate(doc, doc.Child(doc.Root(), 0))
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestFormatJavaDouble(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2.0"},
		{0.001, "0.001"},
		{0.0001, "1.0E-4"},
		{123456.789, "123456.789"},
		{1e7, "1.0E7"},
		{-2.5e20, "-2.5E20"},
		{0, "0.0"},
		{math.Copysign(0, -1), "-0.0"},
		{math.Inf(1), "Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatJavaDouble(tt.in), "%v", tt.in)
	}
}

func TestFormatJSNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2"},
		{0.5, "0.5"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{1e-8, "1e-8"},
		{math.Copysign(0, -1), "0"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatJSNumber(tt.in), "%v", tt.in)
	}
}

func TestGenericEvaluator_GoShiftAndBitClear(t *testing.T) {
	e, _ := NewGenericEvaluator(doctree.LangGo)
	lit := func(s string) doctree.Spec { return doctree.Leaf("int_literal", s) }

	doc := doctree.NewDocument("a.go", doctree.LangGo, doctree.Node("root",
		binary("binary_expression", "<<", lit("1"), lit("10")),
		binary("binary_expression", "&^", lit("7"), lit("2")),
		binary("binary_expression", "+", doctree.Leaf("interpreted_string_literal", `"a"`), lit("1")),
	))

	v, ok := e.Evaluate(doc, doc.Child(doc.Root(), 0))
	require.True(t, ok)
	assert.Equal(t, int64(1024), v)

	v, ok = e.Evaluate(doc, doc.Child(doc.Root(), 1))
	require.True(t, ok)
	assert.Equal(t, int64(5), v)

	_, ok = e.Evaluate(doc, doc.Child(doc.Root(), 2))
	assert.False(t, ok, "Go does not concatenate strings with numbers")
}

func TestGenericEvaluator_JavaScriptStrictEquality(t *testing.T) {
	e, _ := NewGenericEvaluator(doctree.LangJavaScript)
	doc := doctree.NewDocument("a.js", doctree.LangJavaScript, doctree.Node("root",
		binary("binary_expression", "===", doctree.Leaf("number", "1"), doctree.Leaf("number", "1.0")),
		binary("binary_expression", "/", doctree.Leaf("number", "7"), doctree.Leaf("number", "2")),
	))

	v, ok := e.Evaluate(doc, doc.Child(doc.Root(), 0))
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = e.Evaluate(doc, doc.Child(doc.Root(), 1))
	require.True(t, ok)
	assert.Equal(t, 3.5, v)
}

func TestRawTextEvaluator(t *testing.T) {
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, doctree.Node("root",
		doctree.Leaf(doctree.TypeTemplateText, `Hi \n`),
		doctree.Leaf("string_literal", `"x"`),
	))
	var e RawTextEvaluator

	assert.True(t, e.Accepts(doctree.TypeTemplateText))
	assert.False(t, e.Accepts("string_literal"))

	v, ok := e.Evaluate(doc, doc.Child(doc.Root(), 0))
	require.True(t, ok)
	assert.Equal(t, `Hi \n`, v)

	_, ok = e.Evaluate(doc, doc.Child(doc.Root(), 1))
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(int64(1), int64(1)))
	assert.False(t, Equal(int64(1), 1.0))
	assert.True(t, Equal(math.NaN(), math.NaN()))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal('a', "a"))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, int64(0)))
}
