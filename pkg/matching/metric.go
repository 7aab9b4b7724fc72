// Package matching implements the identity matching core: distance metrics,
// the per-identity aggregation matcher, and the accept/reject threshold
// policy. It is pure CPU work over vectors and holds no state across calls.
package matching

import (
	"errors"
	"fmt"
	"math"

	"github.com/MrCodeEU/facemark/pkg/embedding"
)

// ErrUnknownMetric is returned for an unrecognized metric name.
var ErrUnknownMetric = errors.New("unknown distance metric")

// Metric computes a non-negative dissimilarity between two vectors of equal
// dimensionality. All higher-level comparisons route through a Metric so it
// can be swapped without touching the matcher.
type Metric interface {
	Name() string
	Distance(a, b embedding.Vector) (float64, error)
}

// ForName returns the metric registered under name ("euclidean" or "cosine").
func ForName(name string) (Metric, error) {
	switch name {
	case "euclidean":
		return Euclidean{}, nil
	case "cosine":
		return Cosine{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
}

// Euclidean is the L2 distance in embedding space. Zero iff the vectors are
// component-wise equal; symmetric. This is the default metric for dlib
// descriptors.
type Euclidean struct{}

// Name returns "euclidean".
func (Euclidean) Name() string { return "euclidean" }

// Distance returns the L2 distance between a and b.
func (Euclidean) Distance(a, b embedding.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", embedding.ErrDimensionMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

// Cosine is the cosine distance: 1 - cosine similarity, in [0, 2].
// A zero vector has no direction and is treated as maximally distant.
type Cosine struct{}

// Name returns "cosine".
func (Cosine) Name() string { return "cosine" }

// Distance returns the cosine distance between a and b.
func (Cosine) Distance(a, b embedding.Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", embedding.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 2.0, nil
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity, nil
}
