package matching

import (
	"errors"
	"fmt"

	"github.com/MrCodeEU/facemark/pkg/embedding"
	"github.com/MrCodeEU/facemark/pkg/enrollment"
)

// Aggregation collapses an identity's per-vector distances into one score.
type Aggregation string

const (
	// AggregationMean averages the distances to all of an identity's
	// vectors. One lucky near-duplicate enrollment image cannot dominate
	// the score, at the cost of some recall.
	AggregationMean Aggregation = "mean"
	// AggregationMin takes the distance to the closest vector only.
	AggregationMin Aggregation = "min"
)

// ErrUnknownAggregation is returned for an unrecognized aggregation name.
var ErrUnknownAggregation = errors.New("unknown aggregation")

// Candidate is the best-matching identity for one probe, with its
// aggregated score. Lower is more similar.
type Candidate struct {
	Identity enrollment.Identity
	Score    float64
}

// Matcher classifies a probe vector against an enrollment set.
type Matcher struct {
	metric      Metric
	aggregation Aggregation
}

// NewMatcher creates a Matcher with the given metric and aggregation.
func NewMatcher(metric Metric, aggregation Aggregation) (*Matcher, error) {
	switch aggregation {
	case AggregationMean, AggregationMin:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregation, aggregation)
	}
	return &Matcher{metric: metric, aggregation: aggregation}, nil
}

// Match returns the identity with the smallest aggregated distance to the
// probe, or nil when the set's active pool is empty. Exactly equal scores
// resolve to the identity that comes first in the set's stable enumeration
// order, so repeated calls with identical inputs return identical results.
// A probe whose dimensionality differs from the stored vectors fails with
// embedding.ErrDimensionMismatch.
func (m *Matcher) Match(probe embedding.Vector, set *enrollment.Set) (*Candidate, error) {
	var best *Candidate

	for _, identity := range set.Identities() {
		vectors := set.Vectors(identity.ID)
		if len(vectors) == 0 {
			continue
		}

		score, err := m.aggregate(probe, vectors)
		if err != nil {
			return nil, fmt.Errorf("matching against %s: %w", identity.ID, err)
		}

		// Strictly smaller keeps the first identity on exact ties.
		if best == nil || score < best.Score {
			best = &Candidate{Identity: identity, Score: score}
		}
	}

	return best, nil
}

func (m *Matcher) aggregate(probe embedding.Vector, vectors []embedding.Vector) (float64, error) {
	switch m.aggregation {
	case AggregationMin:
		min := 0.0
		for i, v := range vectors {
			d, err := m.metric.Distance(probe, v)
			if err != nil {
				return 0, err
			}
			if i == 0 || d < min {
				min = d
			}
		}
		return min, nil
	default: // AggregationMean
		sum := 0.0
		for _, v := range vectors {
			d, err := m.metric.Distance(probe, v)
			if err != nil {
				return 0, err
			}
			sum += d
		}
		return sum / float64(len(vectors)), nil
	}
}
