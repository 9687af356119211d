// Package recon is the boundary to the reconstruction backends that carry
// the actual diffusion model mathematics (tensor, kurtosis, 3D-SHORE).
// Backends register a Constructor under their algorithm name; the model
// factory looks constructors up here and never depends on a concrete
// implementation.
package recon

import (
	"errors"
	"sync"

	"dmrifit/pkg/gradient"
)

// ErrNotRegistered indicates that no backend has been registered for a
// requested algorithm. Use errors.Is() to check for it.
var ErrNotRegistered = errors.New("recon: no backend registered for algorithm")

// Params carries the options a backend constructor understands. Fields
// outside a backend's vocabulary are ignored by it; the model factory is
// responsible for rejecting options that make no sense for the chosen
// model before they get here.
type Params struct {
	// MinSignal is the lowest signal value treated as valid during fitting.
	MinSignal float64

	// ReturnS0Hat asks the backend to estimate the non-diffusion-weighted
	// signal alongside the model parameters.
	ReturnS0Hat bool

	// FitMethod selects the backend's fitting algorithm, e.g. weighted vs
	// ordinary least squares.
	FitMethod string

	// Weighting selects the residual weighting scheme for robust fits.
	Weighting string

	// Sigma is the noise standard deviation used by weighted fits.
	Sigma float64

	// Jacobian toggles analytic Jacobians in nonlinear fits.
	Jacobian bool

	// RadialOrder, Zeta, LambdaN and LambdaL parameterize the 3D-SHORE
	// basis. Ignored by tensor and kurtosis backends.
	RadialOrder int
	Zeta        float64
	LambdaN     float64
	LambdaL     float64
}

// Model is an unfitted reconstruction model bound to a gradient table.
type Model interface {
	// Fit estimates the model from a dense (voxels × measurements)
	// row-major block and returns the fitted state. The receiver is not
	// modified, so one unfitted model may serve several chunks.
	Fit(data []float32, voxels, measurements int) (Fit, error)
}

// Fit is the fitted state of a reconstruction model.
type Fit interface {
	// Predict evaluates the fitted model for the given gradient table and
	// returns one value per fitted voxel, in fit order. baseline, when
	// non-nil, scales the prediction per voxel and has one entry per
	// fitted voxel. step is a backend-specific evaluation batch hint;
	// zero means the backend's default.
	Predict(gtab *gradient.Table, baseline []float32, step int) ([]float32, error)
}

// Constructor builds an unfitted Model for a gradient table.
type Constructor func(gtab *gradient.Table, params Params) (Model, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
)

// Register makes a backend constructor available under the given algorithm
// name. It panics if the constructor is nil or the name is already taken,
// so registration mistakes surface at process start.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if ctor == nil {
		panic("recon: Register constructor is nil")
	}
	if _, dup := registry[name]; dup {
		panic("recon: Register called twice for algorithm " + name)
	}
	registry[name] = ctor
}

// Lookup returns the constructor registered under name.
func Lookup(name string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	return ctor, ok
}
