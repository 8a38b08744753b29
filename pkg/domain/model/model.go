// Package model holds the boundary to the external vision-model
// capability: training and inference primitives, and the slot publishing
// the currently-served classifier.
package model

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/verdantlab/leafwise/pkg/domain"
)

// ErrUnavailable is returned by inference when no classifier is loaded.
var ErrUnavailable = errors.New("model unavailable")

// Classifier is the inference primitive of the external vision model.
type Classifier interface {
	// Classify ranks one image against every class the model knows.
	Classify(ctx context.Context, image []byte) (domain.Prediction, error)
}

// Trainer is the training primitive of the external vision model: point it
// at a split workspace and non-fine-tuned base weights, get new weights
// and validation metrics back.
type Trainer interface {
	Train(ctx context.Context, splitDir string, baseWeights string) (string, domain.Metrics, error)
}

// Slot is the single swappable handle to the currently-served classifier.
//
// Readers (inference requests) and the one writer (the training workflow's
// promote step) go through an atomic pointer, so a reader never observes a
// half-swapped model and the previous model keeps serving until the swap.
type Slot struct {
	current atomic.Pointer[slotEntry]
}

type slotEntry struct {
	classifier Classifier
	weights    string
}

// Swap publishes classifier (trained from the weights artifact at
// weightsPath) as the served model.
func (s *Slot) Swap(classifier Classifier, weightsPath string) {
	s.current.Store(&slotEntry{classifier: classifier, weights: weightsPath})
}

// Get returns the served classifier. ok is false when nothing has been
// published yet.
func (s *Slot) Get() (classifier Classifier, ok bool) {
	entry := s.current.Load()
	if entry == nil {
		return nil, false
	}
	return entry.classifier, true
}

// Weights returns the weights artifact path behind the served classifier.
func (s *Slot) Weights() string {
	entry := s.current.Load()
	if entry == nil {
		return ""
	}
	return entry.weights
}

// Classify runs the served classifier against one image. It fails fast
// with ErrUnavailable when the slot is empty; it never tries to load a
// model on the inference path.
func (s *Slot) Classify(ctx context.Context, image []byte) (domain.Prediction, error) {
	classifier, ok := s.Get()
	if !ok {
		return domain.Prediction{}, ErrUnavailable
	}
	return classifier.Classify(ctx, image)
}
