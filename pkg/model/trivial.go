package model

import (
	"dmrifit/pkg/gradient"
	"dmrifit/pkg/volume"
)

// Baseline is a trivial model that always predicts its stored baseline
// (S0) map, whatever gradient is requested. It stands in for a real model
// when a pipeline only needs the non-diffusion-weighted reference.
type Baseline struct {
	baseline *volume.Map
}

// NewBaseline constructs a baseline model. The map is required.
func NewBaseline(baseline *volume.Map) (*Baseline, error) {
	if baseline == nil {
		return nil, ErrMissingBaseline
	}
	return &Baseline{baseline: baseline}, nil
}

// Fit does nothing; the baseline model has no free parameters.
func (b *Baseline) Fit(data *volume.Volume) error {
	return nil
}

// Predict returns the stored baseline map unchanged.
func (b *Baseline) Predict(gtab *gradient.Table, opts ...PredictOption) (*volume.Map, error) {
	return b.baseline, nil
}

// Average is a trivial model that predicts the per-voxel mean over the
// measurement axis of the fitted acquisition.
type Average struct {
	mean *volume.Map
}

// NewAverage constructs an unfitted average model.
func NewAverage() *Average {
	return &Average{}
}

// Fit stores the mean over the measurement axis.
func (a *Average) Fit(data *volume.Volume) error {
	a.mean = data.MeanMap()
	return nil
}

// Predict returns the stored average map regardless of the gradient.
// It fails with ErrNotFitted before Fit has run.
func (a *Average) Predict(gtab *gradient.Table, opts ...PredictOption) (*volume.Map, error) {
	if a.mean == nil {
		return nil, ErrNotFitted
	}
	return a.mean, nil
}
