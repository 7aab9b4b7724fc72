// Package enrollment builds and holds the per-identity embedding sets that
// the matcher searches. A set is rebuilt fresh for every matching session;
// it is read-only once handed to a session.
package enrollment

import (
	"errors"
	"fmt"

	"github.com/MrCodeEU/facemark/pkg/embedding"
)

// Identity is an enrolled person: an opaque unique id plus a display label.
type Identity struct {
	ID    string
	Label string
}

// ErrUnknownIdentity is returned when a vector is added for an unregistered identity.
var ErrUnknownIdentity = errors.New("identity not in enrollment set")

// Set maps identities to their enrollment vectors. Identity enumeration order
// is insertion order and is stable; tie-breaking in the matcher depends on it.
// An identity may be registered with zero vectors: it stays in the key space
// for reporting, but is excluded from the active matching pool.
type Set struct {
	order      []string
	identities map[string]Identity
	vectors    map[string][]embedding.Vector
	dim        int
}

// NewSet creates an empty enrollment set.
func NewSet() *Set {
	return &Set{
		identities: make(map[string]Identity),
		vectors:    make(map[string][]embedding.Vector),
	}
}

// Add registers an identity. Adding an already-registered identity is a no-op
// and keeps its original position in the enumeration order.
func (s *Set) Add(identity Identity) {
	if _, ok := s.identities[identity.ID]; ok {
		return
	}
	s.identities[identity.ID] = identity
	s.order = append(s.order, identity.ID)
}

// AddVector appends a vector to an identity. The first vector added to the
// set fixes the dimensionality D; any later vector with a different length
// is rejected with embedding.ErrDimensionMismatch. The set stores a copy,
// so the caller may reuse or mutate v afterwards.
func (s *Set) AddVector(identityID string, v embedding.Vector) error {
	if _, ok := s.identities[identityID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, identityID)
	}
	if v.Dim() == 0 {
		return fmt.Errorf("%w: empty vector for %s", embedding.ErrDimensionMismatch, identityID)
	}
	if s.dim == 0 {
		s.dim = v.Dim()
	} else if v.Dim() != s.dim {
		return fmt.Errorf("%w: got %d, set holds %d-dim vectors", embedding.ErrDimensionMismatch, v.Dim(), s.dim)
	}

	s.vectors[identityID] = append(s.vectors[identityID], v.Clone())
	return nil
}

// Identity returns the registered identity for an id.
func (s *Set) Identity(id string) (Identity, bool) {
	identity, ok := s.identities[id]
	return identity, ok
}

// Identities returns all registered identities in stable insertion order.
func (s *Set) Identities() []Identity {
	out := make([]Identity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.identities[id])
	}
	return out
}

// Active returns, in stable order, the identities eligible for matching:
// those with at least one vector.
func (s *Set) Active() []Identity {
	var out []Identity
	for _, id := range s.order {
		if len(s.vectors[id]) > 0 {
			out = append(out, s.identities[id])
		}
	}
	return out
}

// Vectors returns the vectors enrolled for an identity, in enrollment order.
func (s *Set) Vectors(identityID string) []embedding.Vector {
	return s.vectors[identityID]
}

// Remove deletes an identity and all its vectors. Returns false if the
// identity was not registered.
func (s *Set) Remove(identityID string) bool {
	if _, ok := s.identities[identityID]; !ok {
		return false
	}
	delete(s.identities, identityID)
	delete(s.vectors, identityID)
	for i, id := range s.order {
		if id == identityID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered identities, active or not.
func (s *Set) Len() int {
	return len(s.order)
}

// ActiveLen returns the number of identities with at least one vector.
func (s *Set) ActiveLen() int {
	n := 0
	for _, id := range s.order {
		if len(s.vectors[id]) > 0 {
			n++
		}
	}
	return n
}

// Dim returns the dimensionality of the set, or 0 if no vector was added yet.
func (s *Set) Dim() int {
	return s.dim
}
