//go:build !cgo

package sitter

import (
	"context"

	"livelits/internal/doctree"
	"livelits/internal/errors"
)

// ErrNoCGO is returned when tree-sitter parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New(errors.CGORequired, "source parsing requires CGO (tree-sitter)", nil)

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// Parse is unavailable without CGO.
func Parse(ctx context.Context, lang doctree.Language, source []byte) (doctree.Spec, error) {
	return doctree.Spec{}, ErrNoCGO
}

// Session is a stub implementation for non-CGO builds.
type Session struct{}

// Open is unavailable without CGO.
func Open(ctx context.Context, uri string, lang doctree.Language, source []byte) (*Session, error) {
	return nil, ErrNoCGO
}

// Document returns nil.
func (s *Session) Document() *doctree.Document { return nil }

// Source returns nil.
func (s *Session) Source() []byte { return nil }

// Edit returns ErrNoCGO.
func (s *Session) Edit(ctx context.Context, start, end int, text string) error { return ErrNoCGO }

// Update returns ErrNoCGO.
func (s *Session) Update(ctx context.Context, source []byte) error { return ErrNoCGO }

// Close does nothing.
func (s *Session) Close() {}
