package literals

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livelits/internal/doctree"
	"livelits/internal/errors"
)

func TestFindLiterals_FoldOnce(t *testing.T) {
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin,
		kotlinFile(kotlinProperty("x", additive("3", "+", "2"))))

	snap := scan(t, doc)

	require.Equal(t, 1, snap.Len())
	ref := snap.All()[0]
	assert.Equal(t, doctree.Range{Start: 8, End: 13}, ref.InitialRange())
	assert.Equal(t, int64(5), ref.InitialValue())
	text, ok := ref.Text()
	require.True(t, ok)
	assert.Equal(t, "3 + 2", text)
}

func TestFindLiterals_NonConstantOperandDescends(t *testing.T) {
	expr := doctree.Node("additive_expression",
		doctree.Leaf("simple_identifier", "y"),
		doctree.Space(" "),
		doctree.Token("+"),
		doctree.Space(" "),
		doctree.Leaf("integer_literal", "2"),
	)
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, kotlinFile(kotlinProperty("x", expr)))

	snap := scan(t, doc)

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, int64(2), snap.All()[0].InitialValue())
}

func TestFindLiterals_TemplateSplit(t *testing.T) {
	tpl := template(
		doctree.Leaf(doctree.TypeTemplateText, "Hello "),
		doctree.Token("$"),
		doctree.Leaf("interpolated_identifier", "name"),
		doctree.Leaf(doctree.TypeTemplateText, "!!"),
	)
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, kotlinFile(kotlinProperty("greeting", tpl)))

	snap := scan(t, doc)

	require.Equal(t, 2, snap.Len())
	texts := make([]string, 0, 2)
	for _, ref := range snap.All() {
		text, ok := ref.Text()
		require.True(t, ok)
		texts = append(texts, text)
	}
	assert.Equal(t, []string{"Hello ", "!!"}, texts)
	assert.Equal(t, "Hello ", snap.All()[0].InitialValue())
}

func TestFindLiterals_InterpolationOnlyTemplate(t *testing.T) {
	onlyName := template(
		doctree.Token("$"),
		doctree.Leaf("interpolated_identifier", "name"),
	)
	withExpr := template(
		doctree.Token("${"),
		doctree.Node("interpolated_expression", additive("1", "+", "2")),
		doctree.Token("}"),
	)
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, kotlinFile(
		kotlinProperty("a", onlyName),
		kotlinProperty("b", withExpr),
	))

	snap := scan(t, doc)

	require.Equal(t, 1, snap.Len())
	ref := snap.All()[0]
	assert.Equal(t, int64(3), ref.InitialValue())
	assert.Equal(t, "MainKt.b", ref.OwnerPath())

	e, _ := NewGenericEvaluator(doctree.LangKotlin)
	for _, id := range findAll(doc, doc.Root(), "string_literal") {
		_, ok := e.Evaluate(doc, id)
		assert.False(t, ok, "template %q has no constant value", doc.Text(id))
	}
}

func TestFindLiterals_ExcludesAnnotations(t *testing.T) {
	annotation := doctree.Node("annotation",
		doctree.Token("@"),
		doctree.Leaf("user_type", "Suppress"),
		doctree.Token("("),
		doctree.Leaf("string_literal", `"unused"`),
		doctree.Token(")"),
	)
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, kotlinFile(
		annotation,
		doctree.Space("\n"),
		kotlinProperty("x", doctree.Leaf("string_literal", `"kept"`)),
	))

	snap := scan(t, doc)

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "kept", snap.All()[0].InitialValue())
}

func TestFindLiterals_EmptyDocument(t *testing.T) {
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, kotlinFile(doctree.Space("\n")))

	snap := scan(t, doc)

	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.Modified())
}

func TestFindLiterals_UnsupportedLanguage(t *testing.T) {
	doc := doctree.NewDocument("a.py", doctree.Language("python"), doctree.Node("module"))

	_, err := NewScanner(ScannerOptions{}).FindLiterals(context.Background(), doc, doc.Root())

	assert.True(t, errors.HasCode(err, errors.UnsupportedLanguage))
}

func TestFindLiterals_Cancelled(t *testing.T) {
	props := make([]doctree.Spec, 0, 400)
	for i := 0; i < 400; i++ {
		props = append(props, doctree.Leaf("simple_identifier", "x"))
	}
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin, kotlinFile(props...))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(ScannerOptions{}).FindLiterals(ctx, doc, doc.Root())

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindLiterals_UniqueIDCachedOnNode(t *testing.T) {
	doc := doctree.NewDocument("Main.kt", doctree.LangKotlin,
		kotlinFile(kotlinProperty("x", doctree.Leaf("integer_literal", "1"))))
	identity := NewIdentityProvider()
	scanner := NewScanner(ScannerOptions{Identity: identity})

	first, err := scanner.FindLiterals(context.Background(), doc, doc.Root())
	require.NoError(t, err)
	lit := findAll(doc, doc.Root(), "integer_literal")[0]
	setText(t, doc, lit, "2")
	second, err := scanner.FindLiterals(context.Background(), doc, doc.Root())
	require.NoError(t, err)

	assert.Equal(t, first.All()[0].UniqueID(), second.All()[0].UniqueID())
	assert.Equal(t, int64(2), second.All()[0].InitialValue())
}

func TestOwnerPath(t *testing.T) {
	classBody := doctree.Node("class_body",
		doctree.Token("{"),
		doctree.Node("function_declaration",
			doctree.Token("fun"),
			doctree.Space(" "),
			doctree.Leaf("simple_identifier", "greet"),
			doctree.Token("("),
			doctree.Token(")"),
			doctree.Space(" "),
			doctree.Node("function_body",
				doctree.Token("{"),
				kotlinProperty("local", doctree.Leaf("integer_literal", "1")),
				doctree.Token("}"),
			),
		),
		doctree.Node("secondary_constructor",
			doctree.Token("constructor"),
			doctree.Token("("),
			doctree.Token(")"),
			doctree.Node("statements", doctree.Leaf("integer_literal", "2")),
		),
		doctree.Token("}"),
	)
	class := doctree.Node("class_declaration",
		doctree.Token("class"),
		doctree.Space(" "),
		doctree.Leaf("type_identifier", "Greeter"),
		doctree.Space(" "),
		classBody,
	)
	doc := doctree.NewDocument("file:///src/main.kt", doctree.LangKotlin, kotlinFile(
		class,
		doctree.Space("\n"),
		kotlinProperty("top", doctree.Leaf("integer_literal", "3")),
	))

	snap := scan(t, doc)

	require.Equal(t, 3, snap.Len())
	owners := make([]string, 0, 3)
	for _, ref := range snap.All() {
		owners = append(owners, ref.OwnerPath())
	}
	assert.Equal(t, []string{"Greeter.greet", "Greeter.<init>", "MainKt.top"}, owners)
}

func goConstFile() doctree.Spec {
	constDecl := func(name string, value doctree.Spec) doctree.Spec {
		return doctree.Node("const_declaration",
			doctree.Token("const"),
			doctree.Space(" "),
			doctree.Node("const_spec",
				doctree.Leaf("identifier", name),
				doctree.Space(" "),
				doctree.Token("="),
				doctree.Space(" "),
				doctree.Node("expression_list", value),
			),
		)
	}
	return doctree.Node("source_file",
		doctree.Node("package_clause",
			doctree.Token("package"),
			doctree.Space(" "),
			doctree.Leaf("package_identifier", "main"),
		),
		doctree.Space("\n\n"),
		constDecl("a", doctree.Leaf("int_literal", "2")),
		doctree.Space("\n"),
		constDecl("b", doctree.Node("binary_expression",
			doctree.Leaf("identifier", "a"),
			doctree.Space(" "),
			doctree.Token("*"),
			doctree.Space(" "),
			doctree.Leaf("int_literal", "3"),
		)),
		doctree.Space("\n"),
	)
}

func TestFindLiterals_GoSemanticFoldsNamedConstants(t *testing.T) {
	doc := doctree.NewDocument("main.go", doctree.LangGo, goConstFile())

	snap, err := NewScanner(ScannerOptions{Semantic: true}).FindLiterals(context.Background(), doc, doc.Root())
	require.NoError(t, err)

	require.Equal(t, 2, snap.Len())
	refs := snap.All()
	assert.Equal(t, int64(2), refs[0].InitialValue())
	assert.Equal(t, "main.a", refs[0].OwnerPath())
	assert.Equal(t, int64(6), refs[1].InitialValue())
	text, _ := refs[1].Text()
	assert.Equal(t, "a * 3", text)
	assert.Equal(t, "main.b", refs[1].OwnerPath())
	assert.Equal(t, 4, refs[1].Line())
}

func TestFindLiterals_GoGenericStopsAtIdentifiers(t *testing.T) {
	doc := doctree.NewDocument("main.go", doctree.LangGo, goConstFile())

	snap, err := NewScanner(ScannerOptions{Semantic: false}).FindLiterals(context.Background(), doc, doc.Root())
	require.NoError(t, err)

	require.Equal(t, 2, snap.Len())
	assert.Equal(t, int64(2), snap.All()[0].InitialValue())
	assert.Equal(t, int64(3), snap.All()[1].InitialValue())
}

func TestSemanticEvaluator_TracksEditsToNamedConstants(t *testing.T) {
	doc := doctree.NewDocument("main.go", doctree.LangGo, goConstFile())
	snap, err := NewScanner(ScannerOptions{Semantic: true}).FindLiterals(context.Background(), doc, doc.Root())
	require.NoError(t, err)

	two := findAll(doc, doc.Root(), "int_literal")[0]
	setText(t, doc, two, "5")

	modified := snap.Modified()
	require.Len(t, modified, 2, "editing a changes both a and b = a * 3")
	v, ok := modified[1].Value()
	require.True(t, ok)
	assert.Equal(t, int64(15), v)
}
