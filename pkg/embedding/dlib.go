package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/MrCodeEU/facemark/pkg/logging"
)

// FaceEngine is the subset of the go-face recognizer used by DlibProvider.
// It exists so tests can substitute the dlib engine.
type FaceEngine interface {
	Recognize(imgData []byte) ([]face.Face, error)
	Close()
}

type engineFactory func(modelPath string) (FaceEngine, error)

// DlibProvider implements Provider and Detector using dlib via go-face.
// It is a process-wide capability object: construct once, LoadModels once
// (idempotent), inject wherever embeddings are needed.
type DlibProvider struct {
	engine    FaceEngine
	factory   engineFactory
	modelPath string
	loaded    bool
	mu        sync.RWMutex
}

// NewDlibProvider creates a DlibProvider. Models are not loaded yet.
func NewDlibProvider() *DlibProvider {
	return &DlibProvider{
		factory: func(path string) (FaceEngine, error) {
			return face.NewRecognizer(path)
		},
	}
}

// LoadModels loads the dlib models from the specified path.
// The path should contain:
// - shape_predictor_5_face_landmarks.dat
// - dlib_face_recognition_resnet_model_v1.dat
func (p *DlibProvider) LoadModels(modelPath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return nil
	}

	logging.Infof("Loading face recognition models from: %s", modelPath)

	engine, err := p.factory(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	p.engine = engine
	p.modelPath = modelPath
	p.loaded = true

	logging.Info("Face recognition models loaded successfully")
	return nil
}

// IsLoaded returns true if models are loaded.
func (p *DlibProvider) IsLoaded() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loaded
}

// Close releases the dlib engine.
func (p *DlibProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine != nil {
		p.engine.Close()
		p.engine = nil
	}
	p.loaded = false
	return nil
}

// DetectFaces localizes all faces in the image and computes their descriptors.
// A capture without faces yields an empty slice, not an error.
func (p *DlibProvider) DetectFaces(ctx context.Context, imageData []byte) ([]Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded {
		return nil, ErrModelNotLoaded
	}

	faces, err := p.engine.Recognize(imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}

	result := make([]Face, len(faces))
	for i, f := range faces {
		rect := f.Rectangle
		result[i] = Face{
			BoundingBox: Rectangle{
				X:      rect.Min.X,
				Y:      rect.Min.Y,
				Width:  rect.Dx(),
				Height: rect.Dy(),
			},
			Confidence: 1.0, // go-face does not expose a detection confidence
			Vector:     append(Vector(nil), f.Descriptor[:]...),
		}
	}

	logging.Debugf("Detected %d face(s) in image", len(result))
	return result, nil
}

// Extract extracts the embedding of the single face in an enrollment image.
// Returns ErrNoFaceDetected or ErrMultipleFaces when the image is unusable.
func (p *DlibProvider) Extract(ctx context.Context, imageData []byte) (Vector, error) {
	faces, err := p.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, err
	}

	if len(faces) == 0 {
		return nil, ErrNoFaceDetected
	}
	if len(faces) > 1 {
		return nil, ErrMultipleFaces
	}

	return faces[0].Vector, nil
}
