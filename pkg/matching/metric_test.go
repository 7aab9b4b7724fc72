package matching

import (
	"errors"
	"math"
	"testing"

	"github.com/MrCodeEU/facemark/pkg/embedding"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestForName(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "euclidean", want: "euclidean"},
		{name: "cosine", want: "cosine"},
		{name: "manhattan", wantErr: true},
		{name: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ForName(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownMetric) {
					t.Errorf("expected ErrUnknownMetric, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForName failed: %v", err)
			}
			if m.Name() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, m.Name())
			}
		})
	}
}

func TestEuclidean(t *testing.T) {
	tests := []struct {
		name     string
		a, b     embedding.Vector
		expected float64
	}{
		{
			name:     "identical",
			a:        embedding.Vector{1, 2, 3},
			b:        embedding.Vector{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "different",
			a:        embedding.Vector{1, 2, 3},
			b:        embedding.Vector{4, 6, 8},
			expected: math.Sqrt(50), // 3^2 + 4^2 + 5^2
		},
		{
			name:     "single axis",
			a:        embedding.Vector{0, 0},
			b:        embedding.Vector{0, 3},
			expected: 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := Euclidean{}.Distance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Distance failed: %v", err)
			}
			if !almostEqual(dist, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, dist)
			}
		})
	}
}

func TestEuclidean_Symmetry(t *testing.T) {
	a := embedding.Vector{1.5, -2.25, 0.75, 4}
	b := embedding.Vector{-0.5, 3, 2, 1}

	ab, err := Euclidean{}.Distance(a, b)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	ba, err := Euclidean{}.Distance(b, a)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if ab != ba {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}

	self, err := Euclidean{}.Distance(a, a)
	if err != nil {
		t.Fatalf("Distance failed: %v", err)
	}
	if self != 0 {
		t.Errorf("distance(a,a) must be 0, got %f", self)
	}
}

func TestEuclidean_DimensionMismatch(t *testing.T) {
	_, err := Euclidean{}.Distance(embedding.Vector{1, 2}, embedding.Vector{1, 2, 3})
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     embedding.Vector
		expected float64
	}{
		{
			name:     "identical direction",
			a:        embedding.Vector{1, 0},
			b:        embedding.Vector{5, 0},
			expected: 0.0,
		},
		{
			name:     "orthogonal",
			a:        embedding.Vector{1, 0},
			b:        embedding.Vector{0, 1},
			expected: 1.0,
		},
		{
			name:     "opposite",
			a:        embedding.Vector{1, 0},
			b:        embedding.Vector{-1, 0},
			expected: 2.0,
		},
		{
			name:     "zero vector is maximally distant",
			a:        embedding.Vector{0, 0},
			b:        embedding.Vector{1, 1},
			expected: 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, err := Cosine{}.Distance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Distance failed: %v", err)
			}
			if !almostEqual(dist, tt.expected) {
				t.Errorf("expected %f, got %f", tt.expected, dist)
			}
		})
	}
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine{}.Distance(embedding.Vector{1}, embedding.Vector{1, 2})
	if !errors.Is(err, embedding.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
