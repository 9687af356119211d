package model

import (
	"dmrifit/pkg/recon"
	"dmrifit/pkg/volume"
)

// settings accumulates the configuration the factory hands to a model
// constructor.
type settings struct {
	baseline   *volume.Map
	mask       *volume.Mask
	numThreads int
	params     recon.Params
}

// Option configures a model under construction. Each option carries the
// set of model kinds that accept it; the factory rejects any option
// applied outside that set instead of silently dropping it.
type Option struct {
	name    string
	allowed map[Kind]bool
	apply   func(*settings)
}

// Name returns the option's name, as used in error messages.
func (o Option) Name() string {
	return o.name
}

func kinds(ks ...Kind) map[Kind]bool {
	m := make(map[Kind]bool, len(ks))
	for _, k := range ks {
		m[k] = true
	}
	return m
}

var (
	chunkedKinds  = kinds(KindDTI, KindDKI, KindShore)
	baselineKinds = kinds(KindBaseline, KindDTI, KindDKI, KindShore)
	shoreKinds    = kinds(KindShore)
)

// WithBaseline supplies the baseline (S0) intensity map. Required by the
// baseline model; used by the chunked models to normalize predictions and,
// absent an explicit mask, to derive one.
func WithBaseline(m *volume.Map) Option {
	return Option{
		name:    "baseline",
		allowed: baselineKinds,
		apply:   func(s *settings) { s.baseline = m },
	}
}

// WithMask restricts fitting and prediction to the selected voxels.
func WithMask(m *volume.Mask) Option {
	return Option{
		name:    "mask",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.mask = m },
	}
}

// WithNumThreads sets the worker count for chunked fitting and prediction.
// Non-positive values mean all available processing units.
func WithNumThreads(n int) Option {
	return Option{
		name:    "numThreads",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.numThreads = n },
	}
}

// WithMinSignal sets the lowest signal value the backend treats as valid.
func WithMinSignal(v float64) Option {
	return Option{
		name:    "minSignal",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.params.MinSignal = v },
	}
}

// WithReturnS0Hat asks the backend to estimate the b=0 signal during the fit.
func WithReturnS0Hat(v bool) Option {
	return Option{
		name:    "returnS0Hat",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.params.ReturnS0Hat = v },
	}
}

// WithFitMethod selects the backend fitting algorithm.
func WithFitMethod(method string) Option {
	return Option{
		name:    "fitMethod",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.params.FitMethod = method },
	}
}

// WithWeighting selects the residual weighting scheme for robust fits.
func WithWeighting(w string) Option {
	return Option{
		name:    "weighting",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.params.Weighting = w },
	}
}

// WithSigma sets the noise standard deviation used by weighted fits.
func WithSigma(v float64) Option {
	return Option{
		name:    "sigma",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.params.Sigma = v },
	}
}

// WithJacobian toggles analytic Jacobians in nonlinear fits.
func WithJacobian(v bool) Option {
	return Option{
		name:    "jacobian",
		allowed: chunkedKinds,
		apply:   func(s *settings) { s.params.Jacobian = v },
	}
}

// WithRadialOrder sets the 3D-SHORE radial basis order.
func WithRadialOrder(n int) Option {
	return Option{
		name:    "radialOrder",
		allowed: shoreKinds,
		apply:   func(s *settings) { s.params.RadialOrder = n },
	}
}

// WithZeta sets the 3D-SHORE scale factor.
func WithZeta(v float64) Option {
	return Option{
		name:    "zeta",
		allowed: shoreKinds,
		apply:   func(s *settings) { s.params.Zeta = v },
	}
}

// WithLambdaN sets the 3D-SHORE radial regularization weight.
func WithLambdaN(v float64) Option {
	return Option{
		name:    "lambdaN",
		allowed: shoreKinds,
		apply:   func(s *settings) { s.params.LambdaN = v },
	}
}

// WithLambdaL sets the 3D-SHORE angular regularization weight.
func WithLambdaL(v float64) Option {
	return Option{
		name:    "lambdaL",
		allowed: shoreKinds,
		apply:   func(s *settings) { s.params.LambdaL = v },
	}
}
