package enrollment

import (
	"errors"
	"testing"

	"github.com/MrCodeEU/facemark/pkg/embedding"
)

func TestSet_AddAndOrder(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "a", Label: "Alice"})
	set.Add(Identity{ID: "b", Label: "Bob"})
	set.Add(Identity{ID: "c", Label: "Carol"})

	// Re-adding keeps the original position
	set.Add(Identity{ID: "a", Label: "Alice again"})

	ids := set.Identities()
	if len(ids) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(ids))
	}
	for i, want := range []string{"a", "b", "c"} {
		if ids[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ids[i].ID)
		}
	}
	if ids[0].Label != "Alice" {
		t.Errorf("re-add must not overwrite, got label %s", ids[0].Label)
	}
}

func TestSet_AddVector(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "a", Label: "Alice"})

	if err := set.AddVector("a", embedding.Vector{1, 2, 3}); err != nil {
		t.Fatalf("AddVector failed: %v", err)
	}
	if err := set.AddVector("a", embedding.Vector{4, 5, 6}); err != nil {
		t.Fatalf("AddVector failed: %v", err)
	}

	vecs := set.Vectors("a")
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	// Enrollment order is preserved
	if vecs[0][0] != 1 || vecs[1][0] != 4 {
		t.Error("vectors not in enrollment order")
	}
	if set.Dim() != 3 {
		t.Errorf("expected dim 3, got %d", set.Dim())
	}
}

func TestSet_AddVector_UnknownIdentity(t *testing.T) {
	set := NewSet()
	err := set.AddVector("ghost", embedding.Vector{1})
	if !errors.Is(err, ErrUnknownIdentity) {
		t.Errorf("expected ErrUnknownIdentity, got %v", err)
	}
}

func TestSet_AddVector_DimensionMismatch(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "a"})
	set.Add(Identity{ID: "b"})

	if err := set.AddVector("a", embedding.Vector{1, 2, 3}); err != nil {
		t.Fatalf("AddVector failed: %v", err)
	}

	err := set.AddVector("b", embedding.Vector{1, 2})
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	err = set.AddVector("b", embedding.Vector{})
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for empty vector, got %v", err)
	}
}

func TestSet_AddVector_StoresCopy(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "alice"})

	v := embedding.Vector{1, 2, 3}
	if err := set.AddVector("alice", v); err != nil {
		t.Fatalf("AddVector failed: %v", err)
	}

	// Mutating the caller's slice must not reach into the set
	v[0] = 99
	stored := set.Vectors("alice")[0]
	if stored[0] != 1 {
		t.Errorf("stored vector changed with caller's slice: got %v", stored)
	}
}

func TestSet_ActivePool(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "a", Label: "Alice"})
	set.Add(Identity{ID: "b", Label: "Bob"})

	// Bob has no vectors: registered but not matchable
	if err := set.AddVector("a", embedding.Vector{1, 2}); err != nil {
		t.Fatalf("AddVector failed: %v", err)
	}

	if set.Len() != 2 {
		t.Errorf("expected 2 registered identities, got %d", set.Len())
	}
	if set.ActiveLen() != 1 {
		t.Errorf("expected 1 active identity, got %d", set.ActiveLen())
	}

	active := set.Active()
	if len(active) != 1 || active[0].ID != "a" {
		t.Errorf("expected active pool [a], got %v", active)
	}
}

func TestSet_Remove(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "a"})
	set.Add(Identity{ID: "b"})
	_ = set.AddVector("a", embedding.Vector{1})

	if !set.Remove("a") {
		t.Fatal("Remove should return true for registered identity")
	}
	if set.Remove("a") {
		t.Error("Remove should return false for missing identity")
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 identity left, got %d", set.Len())
	}
	if len(set.Vectors("a")) != 0 {
		t.Error("vectors must be removed with their identity")
	}

	ids := set.Identities()
	if len(ids) != 1 || ids[0].ID != "b" {
		t.Errorf("expected [b] after removal, got %v", ids)
	}
}

func TestSet_Identity(t *testing.T) {
	set := NewSet()
	set.Add(Identity{ID: "a", Label: "Alice"})

	got, ok := set.Identity("a")
	if !ok || got.Label != "Alice" {
		t.Errorf("expected Alice, got %v ok=%v", got, ok)
	}
	if _, ok := set.Identity("ghost"); ok {
		t.Error("expected miss for unknown id")
	}
}
