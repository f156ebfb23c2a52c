package literals

import (
	"livelits/internal/doctree"
)

type tokenKind int

const (
	tokInt tokenKind = iota
	tokFloat
	tokNumber // int or float decided by the token text
	tokString
	tokRawString
	tokVerbatim
	tokChar
	tokBool
)

// languageRules describes the literal surface of one grammar.
type languageRules struct {
	literals map[string]tokenKind
	binary   map[string]bool
	unary    map[string]bool
	paren    map[string]bool
	// excluded node types are skipped with their whole subtree.
	excluded map[string]bool
	// excludedParents exclude a literal that is a direct child of these types.
	excludedParents map[string]bool
	// interpolations mark a string literal as a template.
	interpolations map[string]bool
	// concatAny allows "a" + 1 style concatenation.
	concatAny bool
	// stringLeftOnly restricts concatAny to a string or char left operand.
	stringLeftOnly bool
	// numberFormat renders a float operand of a concatenation.
	numberFormat func(float64) string
	// floatNumbers parses every number as float64.
	floatNumbers    bool
	operatorAliases map[string]string

	// Owner path resolution.
	typeDecls   map[string]bool
	memberDecls map[string]bool
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

var rulesByLanguage = map[doctree.Language]*languageRules{
	doctree.LangGo: {
		literals: map[string]tokenKind{
			"int_literal":                tokInt,
			"float_literal":              tokFloat,
			"rune_literal":               tokChar,
			"interpreted_string_literal": tokString,
			"raw_string_literal":         tokVerbatim,
			"true":                       tokBool,
			"false":                      tokBool,
		},
		binary:          set("binary_expression"),
		unary:           set("unary_expression"),
		paren:           set("parenthesized_expression"),
		excluded:        set("import_declaration", "package_clause", "comment"),
		excludedParents: set("field_declaration"),
		typeDecls:       set("type_spec"),
		memberDecls:     set("function_declaration", "method_declaration", "var_spec", "const_spec"),
	},
	doctree.LangKotlin: {
		literals: map[string]tokenKind{
			"integer_literal":   tokInt,
			"long_literal":      tokInt,
			"hex_literal":       tokInt,
			"bin_literal":       tokInt,
			"unsigned_literal":  tokInt,
			"real_literal":      tokFloat,
			"boolean_literal":   tokBool,
			"character_literal": tokChar,
			"string_literal":    tokString,
		},
		binary: set(
			"additive_expression", "multiplicative_expression", "comparison_expression",
			"equality_expression", "conjunction_expression", "disjunction_expression",
		),
		unary:          set("prefix_expression"),
		paren:          set("parenthesized_expression"),
		excluded:       set("annotation", "file_annotation", "import_list", "import_header", "package_header", "comment", "multiline_comment", "line_comment"),
		interpolations: set("interpolated_identifier", "interpolated_expression"),
		concatAny:      true,
		stringLeftOnly: true,
		numberFormat:   formatJavaDouble,
		typeDecls:      set("class_declaration", "object_declaration"),
		memberDecls:    set("function_declaration", "property_declaration", "secondary_constructor", "anonymous_initializer"),
	},
	doctree.LangJava: {
		literals: map[string]tokenKind{
			"decimal_integer_literal":        tokInt,
			"hex_integer_literal":            tokInt,
			"octal_integer_literal":          tokInt,
			"binary_integer_literal":         tokInt,
			"decimal_floating_point_literal": tokFloat,
			"hex_floating_point_literal":     tokFloat,
			"character_literal":              tokChar,
			"string_literal":                 tokString,
			"text_block":                     tokRawString,
			"true":                           tokBool,
			"false":                          tokBool,
		},
		binary:       set("binary_expression"),
		unary:        set("unary_expression"),
		paren:        set("parenthesized_expression"),
		excluded:     set("annotation", "marker_annotation", "import_declaration", "package_declaration", "line_comment", "block_comment"),
		concatAny:    true,
		numberFormat: formatJavaDouble,
		typeDecls:    set("class_declaration", "interface_declaration", "enum_declaration", "record_declaration"),
		memberDecls:  set("method_declaration", "field_declaration", "constructor_declaration"),
	},
	doctree.LangJavaScript: {
		literals: map[string]tokenKind{
			"number":          tokNumber,
			"string":          tokString,
			"template_string": tokRawString,
			"true":            tokBool,
			"false":           tokBool,
		},
		binary:          set("binary_expression"),
		unary:           set("unary_expression"),
		paren:           set("parenthesized_expression"),
		excluded:        set("import_statement", "comment", "regex"),
		interpolations:  set("template_substitution"),
		concatAny:       true,
		numberFormat:    formatJSNumber,
		floatNumbers:    true,
		operatorAliases: map[string]string{"===": "==", "!==": "!="},
		typeDecls:       set("class_declaration", "class"),
		memberDecls:     set("function_declaration", "method_definition", "variable_declarator", "field_definition"),
	},
}

func rulesFor(lang doctree.Language) (*languageRules, bool) {
	r, ok := rulesByLanguage[lang]
	return r, ok
}

func (r *languageRules) accepts(typ string) bool {
	if _, ok := r.literals[typ]; ok {
		return true
	}
	return r.binary[typ] || r.unary[typ] || r.paren[typ]
}
