//go:build cgo

// Package sitter imports tree-sitter parse trees into doctree documents and
// keeps them in sync with incremental reparses.
package sitter

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"

	"livelits/internal/doctree"
	"livelits/internal/errors"
)

// IsAvailable reports whether tree-sitter parsing is compiled in.
func IsAvailable() bool {
	return true
}

func getLanguage(lang doctree.Language) (*sitter.Language, error) {
	switch lang {
	case doctree.LangGo:
		return golang.GetLanguage(), nil
	case doctree.LangKotlin:
		return kotlin.GetLanguage(), nil
	case doctree.LangJava:
		return java.GetLanguage(), nil
	case doctree.LangJavaScript:
		return javascript.GetLanguage(), nil
	default:
		return nil, errors.Newf(errors.UnsupportedLanguage, "no grammar for language %q", lang)
	}
}

// Parse parses source once and returns its tree shape.
func Parse(ctx context.Context, lang doctree.Language, source []byte) (doctree.Spec, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return doctree.Spec{}, err
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsLang)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return doctree.Spec{}, errors.New(errors.ParseFailed, "tree-sitter parse failed", err)
	}
	defer tree.Close()
	return convert(tree.RootNode(), source, lang), nil
}

// Session owns the parser state for one open document. Text edits go through
// Update or Edit, which reparse incrementally and reconcile the result into
// the document so that untouched nodes keep their identity.
type Session struct {
	mu     sync.Mutex
	lang   doctree.Language
	parser *sitter.Parser
	tree   *sitter.Tree
	source []byte
	doc    *doctree.Document
}

// Open parses source and creates the backing document.
func Open(ctx context.Context, uri string, lang doctree.Language, source []byte) (*Session, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)

	src := append([]byte(nil), source...)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		parser.Close()
		return nil, errors.New(errors.ParseFailed, "tree-sitter parse failed", err)
	}

	return &Session{
		lang:   lang,
		parser: parser,
		tree:   tree,
		source: src,
		doc:    doctree.NewDocument(uri, lang, convert(tree.RootNode(), src, lang)),
	}, nil
}

// Document returns the live document.
func (s *Session) Document() *doctree.Document { return s.doc }

// Source returns a copy of the current source.
func (s *Session) Source() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.source...)
}

// Edit replaces source[start:end] with text.
func (s *Session) Edit(ctx context.Context, start, end int, text string) error {
	s.mu.Lock()
	if start < 0 || end < start || end > len(s.source) {
		n := len(s.source)
		s.mu.Unlock()
		return errors.Newf(errors.InvalidEdit, "edit range [%d,%d) outside document of length %d", start, end, n)
	}
	next := make([]byte, 0, len(s.source)-(end-start)+len(text))
	next = append(next, s.source[:start]...)
	next = append(next, text...)
	next = append(next, s.source[end:]...)
	s.mu.Unlock()

	return s.Update(ctx, next)
}

// Update replaces the whole source. The changed span is derived from the
// common prefix and suffix, the old tree is edited to match and the new tree
// is parsed incrementally.
func (s *Session) Update(ctx context.Context, source []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree == nil {
		return errors.Newf(errors.DocumentDisposed, "session for %s is closed", s.doc.URI())
	}

	next := append([]byte(nil), source...)
	start, oldEnd, newEnd := diffSpan(s.source, next)
	if start == oldEnd && start == newEnd {
		return nil
	}

	s.tree.Edit(sitter.EditInput{
		StartIndex:  uint32(start),
		OldEndIndex: uint32(oldEnd),
		NewEndIndex: uint32(newEnd),
		StartPoint:  pointAt(s.source, start),
		OldEndPoint: pointAt(s.source, oldEnd),
		NewEndPoint: pointAt(next, newEnd),
	})

	tree, err := s.parser.ParseCtx(ctx, s.tree, next)
	if err != nil {
		return errors.New(errors.ParseFailed, "incremental parse failed", err)
	}
	s.tree.Close()
	s.tree = tree
	s.source = next

	return s.doc.Reparse(convert(tree.RootNode(), next, s.lang))
}

// Close releases the parser and disposes the document.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
	}
	if s.parser != nil {
		s.parser.Close()
		s.parser = nil
	}
	s.doc.Dispose()
}

func pointAt(src []byte, offset int) sitter.Point {
	var row, col uint32
	for _, b := range src[:offset] {
		if b == '\n' {
			row++
			col = 0
			continue
		}
		col++
	}
	return sitter.Point{Row: row, Column: col}
}
