package literals

import (
	"github.com/google/uuid"

	"livelits/internal/doctree"
)

// UniqueIDKey is the node metadata key holding a literal's unique id.
const UniqueIDKey = "literals.uniqueId"

// IdentityProvider hands out ids cached on the node itself, so asking twice
// for the same node returns the same id even after its value changed. Ids are
// not stable across closing and reopening a document.
type IdentityProvider struct {
	newID func() string
}

// NewIdentityProvider returns a provider generating random UUID-based ids.
func NewIdentityProvider() *IdentityProvider {
	return &IdentityProvider{newID: func() string { return "lit:" + uuid.New().String() }}
}

// UniqueID returns the id stored on the node, assigning one first if needed.
func (p *IdentityProvider) UniqueID(doc *doctree.Document, id doctree.NodeID) string {
	if v, ok := doc.UserData(id, UniqueIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	uid := p.newID()
	doc.PutUserData(id, UniqueIDKey, uid)
	return uid
}
