// Package session orchestrates one end-to-end matching attempt: localize
// faces in a capture, match each against the enrollment set, and apply the
// threshold policy. It owns no capture hardware and no persistent state;
// retrying is the caller's decision.
package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/MrCodeEU/facemark/pkg/embedding"
	"github.com/MrCodeEU/facemark/pkg/enrollment"
	"github.com/MrCodeEU/facemark/pkg/logging"
	"github.com/MrCodeEU/facemark/pkg/matching"
)

// Matcher is the matching core as the controller consumes it.
type Matcher interface {
	Match(probe embedding.Vector, set *enrollment.Set) (*matching.Candidate, error)
}

// Controller drives one matching attempt against a read-only enrollment set.
type Controller struct {
	detector      embedding.Detector
	matcher       Matcher
	policy        *matching.Policy
	minConfidence float64
	log           *logrus.Entry
}

// NewController creates a session controller. Faces whose detection
// confidence falls below minConfidence are treated as unusable; 0 disables
// the filter.
func NewController(detector embedding.Detector, matcher Matcher, policy *matching.Policy, minConfidence float64) *Controller {
	return &Controller{
		detector:      detector,
		matcher:       matcher,
		policy:        policy,
		minConfidence: minConfidence,
		log:           logging.Component("session"),
	}
}

// Evaluate runs one matching attempt over a single capture.
//
// Faces are evaluated in detector order and the first accepted match wins,
// short-circuiting the rest. If no face matches, the decision is Unrecognized
// with the best (lowest) score seen across all faces. A capture without
// localized faces, or whose every face lacks a usable descriptor or falls
// below the confidence floor, yields NoFaceDetected. An empty active pool
// yields NoEnrollmentData without any detection work.
//
// Cancellation is honored between per-face evaluations. Only dimensionality
// contract violations and detector failures surface as errors; every normal
// outcome is a Decision.
func (c *Controller) Evaluate(ctx context.Context, capture []byte, set *enrollment.Set) (matching.Decision, error) {
	if set == nil || set.ActiveLen() == 0 {
		c.log.Warn("no enrollment data, skipping detection")
		return matching.NoEnrollmentData(), nil
	}

	faces, err := c.detector.DetectFaces(ctx, capture)
	if err != nil {
		return matching.Decision{}, fmt.Errorf("face detection failed: %w", err)
	}
	if len(faces) == 0 {
		c.log.Debug("no face localized in capture")
		return matching.NoFaceDetected(), nil
	}

	var best *matching.Candidate
	usable := 0

	for i, face := range faces {
		if err := ctx.Err(); err != nil {
			return matching.Decision{}, err
		}

		if len(face.Vector) == 0 {
			c.log.WithFields(logging.Fields{"face": i}).Warn("skipping face without descriptor")
			continue
		}
		if face.Confidence < c.minConfidence {
			c.log.WithFields(logging.Fields{
				"face":       i,
				"confidence": face.Confidence,
				"floor":      c.minConfidence,
			}).Warn("skipping low-confidence face")
			continue
		}
		usable++

		candidate, err := c.matcher.Match(face.Vector, set)
		if err != nil {
			return matching.Decision{}, err
		}

		decision := c.policy.Decide(candidate)
		if decision.Outcome == matching.OutcomeMatched {
			c.log.WithFields(logging.Fields{
				"identity": decision.Identity.ID,
				"label":    decision.Identity.Label,
				"score":    decision.Score,
				"face":     i,
			}).Info("identity matched")
			return decision, nil
		}

		if candidate != nil && (best == nil || candidate.Score < best.Score) {
			best = candidate
		}
	}

	if usable == 0 {
		c.log.Debug("no usable descriptor in any localized face")
		return matching.NoFaceDetected(), nil
	}

	c.log.WithFields(logging.Fields{
		"faces":      len(faces),
		"best_score": best.Score,
		"threshold":  c.policy.Threshold(),
	}).Info("no face recognized")
	return matching.Unrecognized(best.Score), nil
}
