package matching

import (
	"errors"
	"math"
	"testing"

	"github.com/MrCodeEU/facemark/pkg/embedding"
	"github.com/MrCodeEU/facemark/pkg/enrollment"
)

func newTestSet(t *testing.T, vectors map[string][]embedding.Vector, order []string) *enrollment.Set {
	t.Helper()
	set := enrollment.NewSet()
	for _, id := range order {
		set.Add(enrollment.Identity{ID: id, Label: id})
		for _, v := range vectors[id] {
			if err := set.AddVector(id, v); err != nil {
				t.Fatalf("AddVector(%s) failed: %v", id, err)
			}
		}
	}
	return set
}

func TestNewMatcher(t *testing.T) {
	if _, err := NewMatcher(Euclidean{}, AggregationMean); err != nil {
		t.Errorf("mean aggregation should be valid: %v", err)
	}
	if _, err := NewMatcher(Euclidean{}, AggregationMin); err != nil {
		t.Errorf("min aggregation should be valid: %v", err)
	}
	if _, err := NewMatcher(Euclidean{}, Aggregation("median")); !errors.Is(err, ErrUnknownAggregation) {
		t.Errorf("expected ErrUnknownAggregation, got %v", err)
	}
}

func TestMatch_MeanAggregation(t *testing.T) {
	v1 := embedding.Vector{1, 0, 0}
	v2 := embedding.Vector{0, 1, 0}
	v3 := embedding.Vector{0, 0, 1}

	set := newTestSet(t, map[string][]embedding.Vector{
		"alice": {v1, v2, v3},
		"carol": {{10, 10, 10}},
	}, []string{"alice", "carol"})

	matcher, err := NewMatcher(Euclidean{}, AggregationMean)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	// Probe exactly v2: distance 0 to v2, sqrt(2) to v1 and v3
	cand, err := matcher.Match(v2, set)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cand == nil {
		t.Fatal("expected candidate, got nil")
	}
	if cand.Identity.ID != "alice" {
		t.Errorf("expected alice, got %s", cand.Identity.ID)
	}

	want := (0 + math.Sqrt2 + math.Sqrt2) / 3
	if !almostEqual(cand.Score, want) {
		t.Errorf("expected mean score %f, got %f", want, cand.Score)
	}
}

func TestMatch_MinAggregation(t *testing.T) {
	set := newTestSet(t, map[string][]embedding.Vector{
		"alice": {{0, 0}, {10, 0}},
	}, []string{"alice"})

	matcher, err := NewMatcher(Euclidean{}, AggregationMin)
	if err != nil {
		t.Fatalf("NewMatcher failed: %v", err)
	}

	cand, err := matcher.Match(embedding.Vector{1, 0}, set)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if !almostEqual(cand.Score, 1.0) {
		t.Errorf("expected min score 1.0, got %f", cand.Score)
	}
}

func TestMatch_SelectsSmallestScore(t *testing.T) {
	set := newTestSet(t, map[string][]embedding.Vector{
		"far":  {{10, 0}},
		"near": {{1, 0}},
	}, []string{"far", "near"})

	matcher, _ := NewMatcher(Euclidean{}, AggregationMean)

	cand, err := matcher.Match(embedding.Vector{0, 0}, set)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cand.Identity.ID != "near" {
		t.Errorf("expected near, got %s", cand.Identity.ID)
	}
}

func TestMatch_TieBreaksToFirstInOrder(t *testing.T) {
	// Both identities sit at exactly distance 1 from the probe
	vectors := map[string][]embedding.Vector{
		"second": {{0, 1}},
		"first":  {{1, 0}},
	}

	matcher, _ := NewMatcher(Euclidean{}, AggregationMean)
	probe := embedding.Vector{0, 0}

	// Deterministic across repeated runs
	for i := 0; i < 20; i++ {
		set := newTestSet(t, vectors, []string{"first", "second"})
		cand, err := matcher.Match(probe, set)
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if cand.Identity.ID != "first" {
			t.Fatalf("run %d: tie must resolve to first enumerated identity, got %s", i, cand.Identity.ID)
		}
	}

	// Reversed insertion order flips the winner
	set := newTestSet(t, vectors, []string{"second", "first"})
	cand, err := matcher.Match(probe, set)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cand.Identity.ID != "second" {
		t.Errorf("expected second after reordering, got %s", cand.Identity.ID)
	}
}

func TestMatch_EmptyActivePool(t *testing.T) {
	matcher, _ := NewMatcher(Euclidean{}, AggregationMean)

	// Empty set
	cand, err := matcher.Match(embedding.Vector{1}, enrollment.NewSet())
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cand != nil {
		t.Errorf("expected nil candidate for empty set, got %v", cand)
	}

	// Registered identity without vectors is not matchable
	set := enrollment.NewSet()
	set.Add(enrollment.Identity{ID: "bob"})
	cand, err = matcher.Match(embedding.Vector{1}, set)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if cand != nil {
		t.Errorf("expected nil candidate, got %v", cand)
	}
}

func TestMatch_DimensionMismatch(t *testing.T) {
	set := newTestSet(t, map[string][]embedding.Vector{
		"alice": {{1, 2, 3}},
	}, []string{"alice"})

	matcher, _ := NewMatcher(Euclidean{}, AggregationMean)

	_, err := matcher.Match(embedding.Vector{1, 2}, set)
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMatch_Deterministic(t *testing.T) {
	set := newTestSet(t, map[string][]embedding.Vector{
		"a": {{1, 1}, {2, 2}},
		"b": {{3, 3}},
		"c": {{0.5, 0.5}},
	}, []string{"a", "b", "c"})

	matcher, _ := NewMatcher(Euclidean{}, AggregationMean)
	probe := embedding.Vector{1, 0}

	first, err := matcher.Match(probe, set)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		cand, err := matcher.Match(probe, set)
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if cand.Identity.ID != first.Identity.ID || cand.Score != first.Score {
			t.Fatalf("match not deterministic: run %d gave (%s, %f), first gave (%s, %f)",
				i, cand.Identity.ID, cand.Score, first.Identity.ID, first.Score)
		}
	}
}
