package matching

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidThreshold is returned for a non-positive or non-finite threshold.
// Invalid thresholds fail at construction; they are never clamped.
var ErrInvalidThreshold = errors.New("invalid distance threshold")

// Policy converts the matcher's best candidate into an accept/reject
// decision. The threshold is an aggregated distance: smaller means stricter
// acceptance, fewer false accepts, more false rejects.
type Policy struct {
	threshold float64
}

// NewPolicy validates the threshold and creates a Policy.
func NewPolicy(threshold float64) (*Policy, error) {
	if threshold <= 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}
	return &Policy{threshold: threshold}, nil
}

// Threshold returns the configured acceptance threshold.
func (p *Policy) Threshold() float64 {
	return p.threshold
}

// Decide maps a candidate to a decision. A nil candidate means the active
// pool was empty.
func (p *Policy) Decide(candidate *Candidate) Decision {
	if candidate == nil {
		return NoEnrollmentData()
	}
	if candidate.Score <= p.threshold {
		return Matched(candidate.Identity, candidate.Score)
	}
	return Unrecognized(candidate.Score)
}
