package enrollment

import (
	"context"

	"github.com/MrCodeEU/facemark/pkg/embedding"
)

// MockProvider implements embedding.Provider for testing
type MockProvider struct {
	ExtractFunc func(ctx context.Context, image []byte) (embedding.Vector, error)
}

func (m *MockProvider) Extract(ctx context.Context, image []byte) (embedding.Vector, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, image)
	}
	return nil, embedding.ErrNoFaceDetected
}
