// Package model adapts diffusion reconstruction backends behind a uniform
// two-method contract, adds trivial stand-in models for pipelines that need
// no real reconstruction, and wraps the registry-backed models in a chunked
// parallel fitter that fans masked voxels out across workers.
package model

import (
	"errors"

	"dmrifit/pkg/gradient"
	"dmrifit/pkg/volume"
)

// Sentinel errors for model construction and use.
// Use errors.Is() to check for specific conditions.
var (
	// ErrUnsupportedModel indicates an unknown model name.
	ErrUnsupportedModel = errors.New("model: unsupported model")

	// ErrMissingBaseline indicates the baseline (S0) map required by the
	// baseline model was not provided.
	ErrMissingBaseline = errors.New("model: baseline map must be provided")

	// ErrNotFitted indicates Predict was called before a successful Fit.
	ErrNotFitted = errors.New("model: model has not been fitted")

	// ErrOptionNotAllowed indicates an option was passed to a model kind
	// that does not accept it.
	ErrOptionNotAllowed = errors.New("model: option not allowed for model")

	// ErrShapeMismatch indicates input arrays whose shapes disagree.
	ErrShapeMismatch = errors.New("model: shape mismatch")
)

// Model is the uniform contract every diffusion model variant implements.
type Model interface {
	// Fit estimates the model from a 4-D acquisition.
	Fit(data *volume.Volume) error

	// Predict evaluates the fitted model for a gradient table and returns
	// a full-volume signal map; voxels outside the model's mask are zero.
	// Predict is read-only and may be called any number of times after
	// Fit succeeds.
	Predict(gtab *gradient.Table, opts ...PredictOption) (*volume.Map, error)
}

// Kind identifies a model variant. The set is closed: the factory selects
// among exactly these.
type Kind int

const (
	KindBaseline Kind = iota
	KindAverage
	KindDTI
	KindDKI
	KindShore
)

// String returns the canonical model name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBaseline:
		return "b0"
	case KindAverage:
		return "average"
	case KindDTI:
		return "dti"
	case KindDKI:
		return "dki"
	case KindShore:
		return "3dshore"
	}
	return "unknown"
}

// PredictOption configures a single Predict call.
type PredictOption func(*predictConfig)

type predictConfig struct {
	step int
}

// WithStep sets the backend's per-call evaluation batch hint. Trivial
// models ignore it.
func WithStep(step int) PredictOption {
	return func(c *predictConfig) {
		c.step = step
	}
}
