// Package embedding defines the face embedding contract of facemark and a
// dlib-backed implementation. The matching core consumes vectors through the
// Provider and Detector interfaces; it never touches pixels itself.
package embedding

import (
	"context"
	"errors"
)

// Vector is a fixed-length face embedding. All vectors in a deployment share
// the same dimensionality; the dlib backend produces 128-dim descriptors.
type Vector []float32

// Dim returns the dimensionality of the vector.
func (v Vector) Dim() int {
	return len(v)
}

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Rectangle is a face bounding box.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// Face is a localized face in a capture. Vector is empty when the backend
// could not compute a descriptor for this face.
type Face struct {
	BoundingBox Rectangle
	Confidence  float64
	Vector      Vector
}

// ErrDimensionMismatch is returned when two vectors disagree in length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrNoFaceDetected is returned when no face is found in the image.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrMultipleFaces is returned when an enrollment image contains more than one face.
var ErrMultipleFaces = errors.New("multiple faces detected")

// ErrModelNotLoaded is returned when the recognition models are not loaded.
var ErrModelNotLoaded = errors.New("recognition models not loaded")

// Provider extracts a single embedding from an enrollment image.
// Enrollment images must contain exactly one face.
type Provider interface {
	Extract(ctx context.Context, image []byte) (Vector, error)
}

// Detector localizes every face in a capture and computes its descriptor.
// An empty result is not an error; the caller decides what it means.
type Detector interface {
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}
