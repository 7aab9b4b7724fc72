package session

import (
	"context"

	"github.com/MrCodeEU/facemark/pkg/embedding"
	"github.com/MrCodeEU/facemark/pkg/enrollment"
	"github.com/MrCodeEU/facemark/pkg/matching"
)

// MockDetector implements embedding.Detector for testing
type MockDetector struct {
	DetectFacesFunc func(ctx context.Context, image []byte) ([]embedding.Face, error)
	Calls           int
}

func (m *MockDetector) DetectFaces(ctx context.Context, image []byte) ([]embedding.Face, error) {
	m.Calls++
	if m.DetectFacesFunc != nil {
		return m.DetectFacesFunc(ctx, image)
	}
	return nil, nil
}

// MockMatcher implements Matcher for testing
type MockMatcher struct {
	MatchFunc func(probe embedding.Vector, set *enrollment.Set) (*matching.Candidate, error)
	Calls     int
	Probes    []embedding.Vector
}

func (m *MockMatcher) Match(probe embedding.Vector, set *enrollment.Set) (*matching.Candidate, error) {
	m.Calls++
	m.Probes = append(m.Probes, probe)
	if m.MatchFunc != nil {
		return m.MatchFunc(probe, set)
	}
	return nil, nil
}
