package matching

import (
	"fmt"

	"github.com/MrCodeEU/facemark/pkg/enrollment"
)

// Outcome classifies the terminal result of one matching attempt.
type Outcome string

const (
	OutcomeMatched      Outcome = "matched"
	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeNoFace       Outcome = "no_face_detected"
	OutcomeNoEnrollment Outcome = "no_enrollment_data"
)

// Decision is the single result of a matching attempt. Identity is set only
// for OutcomeMatched; Score carries the aggregated distance for Matched and
// the best score seen for Unrecognized.
type Decision struct {
	Outcome  Outcome
	Identity enrollment.Identity
	Score    float64
}

// Matched builds an accept decision.
func Matched(identity enrollment.Identity, score float64) Decision {
	return Decision{Outcome: OutcomeMatched, Identity: identity, Score: score}
}

// Unrecognized builds a reject decision carrying the best score seen.
func Unrecognized(bestScore float64) Decision {
	return Decision{Outcome: OutcomeUnrecognized, Score: bestScore}
}

// NoFaceDetected builds the decision for a capture without a usable face.
func NoFaceDetected() Decision {
	return Decision{Outcome: OutcomeNoFace}
}

// NoEnrollmentData builds the decision for an empty active pool.
func NoEnrollmentData() Decision {
	return Decision{Outcome: OutcomeNoEnrollment}
}

func (d Decision) String() string {
	switch d.Outcome {
	case OutcomeMatched:
		return fmt.Sprintf("matched %q (score %.4f)", d.Identity.Label, d.Score)
	case OutcomeUnrecognized:
		return fmt.Sprintf("unrecognized (best score %.4f)", d.Score)
	case OutcomeNoFace:
		return "no face detected"
	case OutcomeNoEnrollment:
		return "no enrollment data"
	default:
		return string(d.Outcome)
	}
}
