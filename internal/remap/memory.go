package remap

import (
	"sync"
)

type constantKey struct {
	owner string
	kind  string
	old   string
}

// MemoryStore keeps remapped constants in memory. Safe for concurrent use.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[string]map[constantKey]any
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[string]map[constantKey]any)}
}

func keyFor(ownerPath string, oldValue any) constantKey {
	kind, text := encodeValue(oldValue)
	return constantKey{owner: ownerPath, kind: kind, old: text}
}

// AddConstant records that oldValue under ownerPath now reads newValue.
// Values of different kinds are rejected.
func (s *MemoryStore) AddConstant(scopeKey, ownerPath string, oldValue, newValue any) bool {
	if !Accepts(oldValue, newValue) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := s.scopes[scopeKey]
	if scope == nil {
		scope = make(map[constantKey]any)
		s.scopes[scopeKey] = scope
	}
	scope[keyFor(ownerPath, oldValue)] = newValue
	return true
}

// ClearConstants drops every remapping in the scope.
func (s *MemoryStore) ClearConstants(scopeKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scopeKey)
}

// Lookup returns the value that replaces oldValue under ownerPath.
func (s *MemoryStore) Lookup(scopeKey, ownerPath string, oldValue any) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scopes[scopeKey][keyFor(ownerPath, oldValue)]
	return v, ok
}

// Len returns the number of remappings across all scopes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, scope := range s.scopes {
		n += len(scope)
	}
	return n
}
