package literals

import (
	"context"
	"sync"

	"livelits/internal/doctree"
	"livelits/internal/errors"
)

// ScannerOptions configures a Scanner.
type ScannerOptions struct {
	// Semantic enables the type-checking evaluator for Go documents.
	Semantic bool
	// Identity assigns unique ids; a fresh provider is used when nil.
	Identity *IdentityProvider
}

// Scanner discovers the literals of a subtree.
type Scanner struct {
	identity *IdentityProvider
	semantic bool
	raw      RawTextEvaluator

	mu         sync.Mutex
	evaluators map[doctree.Language]Evaluator
}

// NewScanner creates a scanner.
func NewScanner(opts ScannerOptions) *Scanner {
	identity := opts.Identity
	if identity == nil {
		identity = NewIdentityProvider()
	}
	return &Scanner{
		identity:   identity,
		semantic:   opts.Semantic,
		evaluators: make(map[doctree.Language]Evaluator),
	}
}

// EvaluatorFor returns the evaluator used for documents in lang.
func (s *Scanner) EvaluatorFor(lang doctree.Language) (Evaluator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.evaluators[lang]; ok {
		return e, nil
	}

	var e Evaluator
	if lang == doctree.LangGo && s.semantic {
		e = NewSemanticEvaluator()
	} else {
		g, ok := NewGenericEvaluator(lang)
		if !ok {
			return nil, errors.Newf(errors.UnsupportedLanguage, "no literal rules for language %q", lang)
		}
		e = g
	}
	s.evaluators[lang] = e
	return e, nil
}

const ctxCheckInterval = 256

// FindLiterals walks the subtree at root depth-first under the document's read
// lock and returns a snapshot of the literals found. A foldable expression is
// reported once at its outermost foldable node. An interpolated string yields
// one reference per literal text segment plus the literals inside its
// interpolations, and never a reference for the whole string.
func (s *Scanner) FindLiterals(ctx context.Context, doc *doctree.Document, root doctree.NodeID) (*Snapshot, error) {
	eval, err := s.EvaluatorFor(doc.Language())
	if err != nil {
		return nil, err
	}
	rules, _ := rulesFor(doc.Language())

	snap := &Snapshot{doc: doc}
	doc.Read(func() {
		if !doc.Alive(root) {
			err = errors.Newf(errors.NodeNotFound, "scan root %d is not alive in %s", root, doc.URI())
			return
		}
		var refs []*Reference
		refs, err = s.walk(ctx, doc, root, eval, rules)
		if err == nil {
			snap.capture(refs)
		}
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// walk requires the document read lock.
func (s *Scanner) walk(ctx context.Context, doc *doctree.Document, root doctree.NodeID, eval Evaluator, rules *languageRules) ([]*Reference, error) {
	var refs []*Reference
	stack := []doctree.NodeID{root}
	visited := 0

	for len(stack) > 0 {
		visited++
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if s.excluded(doc, rules, id) {
			continue
		}

		if s.raw.Accepts(doc.Type(id)) {
			if v, ok := s.raw.Evaluate(doc, id); ok {
				refs = append(refs, s.reference(doc, rules, id, s.raw, v))
			}
			continue
		}

		// Template text segments are visited in order and interpolations are
		// scanned like any other expression.
		if isTemplate(doc, rules, id) {
			for i := doc.ChildCount(id) - 1; i >= 0; i-- {
				stack = append(stack, doc.Child(id, i))
			}
			continue
		}

		if eval.Accepts(doc.Type(id)) {
			if v, ok := eval.Evaluate(doc, id); ok {
				refs = append(refs, s.reference(doc, rules, id, eval, v))
				continue
			}
		}

		for i := doc.ChildCount(id) - 1; i >= 0; i-- {
			stack = append(stack, doc.Child(id, i))
		}
	}
	return refs, nil
}

func (s *Scanner) excluded(doc *doctree.Document, rules *languageRules, id doctree.NodeID) bool {
	typ := doc.Type(id)
	if rules.excluded[typ] {
		return true
	}
	if _, isLit := rules.literals[typ]; isLit && rules.excludedParents[doc.Type(doc.Parent(id))] {
		return true
	}
	return false
}

func (s *Scanner) reference(doc *doctree.Document, rules *languageRules, id doctree.NodeID, eval Evaluator, v any) *Reference {
	return newReference(doc, id, eval, s.identity.UniqueID(doc, id), ownerPath(doc, rules, id), v)
}
