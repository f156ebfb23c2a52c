package literals

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"go/types"
	"sync"

	"livelits/internal/doctree"
)

// SemanticEvaluator evaluates Go expressions with the type checker, so named
// constants and typed arithmetic fold the way the compiler folds them. Nodes
// the checker cannot place fall back to the structural evaluator.
type SemanticEvaluator struct {
	generic *GenericEvaluator

	mu    sync.Mutex
	cache map[*doctree.Document]*checkedFile
}

type checkedFile struct {
	stamp uint64
	fset  *token.FileSet
	file  *ast.File
	info  *types.Info
}

// NewSemanticEvaluator returns the type-checking evaluator for Go documents.
func NewSemanticEvaluator() *SemanticEvaluator {
	generic, _ := NewGenericEvaluator(doctree.LangGo)
	return &SemanticEvaluator{
		generic: generic,
		cache:   make(map[*doctree.Document]*checkedFile),
	}
}

// Accepts reports whether typ is a Go literal or foldable expression.
func (e *SemanticEvaluator) Accepts(typ string) bool {
	return e.generic.Accepts(typ)
}

// Evaluate returns the constant value the type checker assigns to the
// expression at id.
func (e *SemanticEvaluator) Evaluate(doc *doctree.Document, id doctree.NodeID) (any, bool) {
	if !doc.Alive(id) {
		return nil, false
	}
	cf := e.check(doc)
	if cf == nil {
		return e.generic.Evaluate(doc, id)
	}

	r := doc.Range(id)
	expr := findExpr(cf, r)
	if expr == nil {
		return e.generic.Evaluate(doc, id)
	}
	tv, ok := cf.info.Types[expr]
	if !ok || tv.Value == nil {
		return nil, false
	}
	return fromConstant(tv.Value, tv.Type)
}

func (e *SemanticEvaluator) check(doc *doctree.Document) *checkedFile {
	stamp := doc.ModificationStamp()

	e.mu.Lock()
	defer e.mu.Unlock()
	if cf, ok := e.cache[doc]; ok && cf.stamp == stamp {
		return cf
	}
	for d := range e.cache {
		if d.Disposed() {
			delete(e.cache, d)
		}
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, doc.URI(), doc.Source(), parser.SkipObjectResolution)
	if file == nil || (err != nil && file.Name == nil) {
		delete(e.cache, doc)
		return nil
	}

	info := &types.Info{Types: make(map[ast.Expr]types.TypeAndValue)}
	conf := types.Config{
		// Imports are not resolved; errors about them are expected and the
		// checker still records constant values for everything else.
		Error: func(error) {},
	}
	_, _ = conf.Check(file.Name.Name, fset, []*ast.File{file}, info)

	cf := &checkedFile{stamp: stamp, fset: fset, file: file, info: info}
	e.cache[doc] = cf
	return cf
}

func findExpr(cf *checkedFile, r doctree.Range) ast.Expr {
	tf := cf.fset.File(cf.file.Pos())
	if tf == nil || r.Start < 0 || r.End > tf.Size() {
		return nil
	}
	start, end := tf.Pos(r.Start), tf.Pos(r.End)

	var found ast.Expr
	ast.Inspect(cf.file, func(n ast.Node) bool {
		if found != nil || n == nil {
			return false
		}
		if n.End() < start || n.Pos() > end {
			return false
		}
		if expr, ok := n.(ast.Expr); ok && expr.Pos() == start && expr.End() == end {
			found = expr
			return false
		}
		return true
	})
	return found
}

func fromConstant(v constant.Value, typ types.Type) (any, bool) {
	switch v.Kind() {
	case constant.Bool:
		return constant.BoolVal(v), true
	case constant.String:
		return constant.StringVal(v), true
	case constant.Int:
		i, exact := constant.Int64Val(v)
		if !exact {
			f, _ := constant.Float64Val(v)
			return f, true
		}
		if isRune(typ) {
			return rune(i), true
		}
		return i, true
	case constant.Float:
		f, _ := constant.Float64Val(v)
		return f, true
	}
	return nil, false
}

func isRune(typ types.Type) bool {
	b, ok := typ.(*types.Basic)
	return ok && (b.Kind() == types.UntypedRune || b.Name() == "rune")
}
