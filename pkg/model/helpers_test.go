package model

import (
	"errors"
	"sync/atomic"

	"dmrifit/pkg/gradient"
	"dmrifit/pkg/recon"
	"dmrifit/pkg/volume"
)

// stubBackend is a deterministic stand-in for a reconstruction backend:
// fitting stores the per-voxel mean signal, predicting returns it,
// scaled by the baseline chunk when one is given. Chunk boundaries cannot
// affect its output, which makes it suitable for the determinism tests.
type stubBackend struct{}

func (stubBackend) Fit(data []float32, voxels, measurements int) (recon.Fit, error) {
	means := make([]float32, voxels)
	for v := 0; v < voxels; v++ {
		var sum float64
		for m := 0; m < measurements; m++ {
			sum += float64(data[v*measurements+m])
		}
		means[v] = float32(sum / float64(measurements))
	}
	return &stubFit{means: means}, nil
}

type stubFit struct {
	means []float32
}

func (f *stubFit) Predict(gtab *gradient.Table, baseline []float32, step int) ([]float32, error) {
	out := make([]float32, len(f.means))
	for i, m := range f.means {
		if baseline != nil {
			out[i] = m * baseline[i]
		} else {
			out[i] = m
		}
	}
	return out, nil
}

var errStubFit = errors.New("stub fit failure")

// failingBackend fails every fit
type failingBackend struct{}

func (failingBackend) Fit(data []float32, voxels, measurements int) (recon.Fit, error) {
	return nil, errStubFit
}

// refitFailingBackend succeeds on its first fit and fails every one after,
// for exercising refits that go wrong
type refitFailingBackend struct {
	calls *int32
}

func (b refitFailingBackend) Fit(data []float32, voxels, measurements int) (recon.Fit, error) {
	if atomic.AddInt32(b.calls, 1) > 1 {
		return nil, errStubFit
	}
	return stubBackend{}.Fit(data, voxels, measurements)
}

// stepRecorder records the step hint its Predict receives
type stepRecorder struct {
	steps *int64
}

func (r stepRecorder) Fit(data []float32, voxels, measurements int) (recon.Fit, error) {
	return stepRecorderFit{voxels: voxels, steps: r.steps}, nil
}

type stepRecorderFit struct {
	voxels int
	steps  *int64
}

func (f stepRecorderFit) Predict(gtab *gradient.Table, baseline []float32, step int) ([]float32, error) {
	atomic.StoreInt64(f.steps, int64(step))
	return make([]float32, f.voxels), nil
}

// lastShoreParams captures the params the 3dshore stub was constructed
// with, so the factory tests can check the shore defaults.
var lastShoreParams recon.Params

var recordedStep int64

func init() {
	stub := func(gtab *gradient.Table, params recon.Params) (recon.Model, error) {
		return stubBackend{}, nil
	}
	recon.Register("dti", stub)
	recon.Register("dki", stub)
	recon.Register("3dshore", func(gtab *gradient.Table, params recon.Params) (recon.Model, error) {
		lastShoreParams = params
		return stubBackend{}, nil
	})
	recon.Register("failfit", func(gtab *gradient.Table, params recon.Params) (recon.Model, error) {
		return failingBackend{}, nil
	})
	recon.Register("failrefit", func(gtab *gradient.Table, params recon.Params) (recon.Model, error) {
		return refitFailingBackend{calls: new(int32)}, nil
	})
	recon.Register("steprec", func(gtab *gradient.Table, params recon.Params) (recon.Model, error) {
		return stepRecorder{steps: &recordedStep}, nil
	})
}

// singleGradient returns a one-measurement table for predict calls
func singleGradient() *gradient.Table {
	gtab, err := gradient.FromRASBVector([]float64{0, 0, 1, 1000})
	if err != nil {
		panic(err)
	}
	return gtab
}

// acquisitionGradient returns a table matching a 7-measurement acquisition
func acquisitionGradient() *gradient.Table {
	values := make([][]float64, 4)
	for r := range values {
		values[r] = make([]float64, 7)
	}
	for c := 0; c < 7; c++ {
		values[2][c] = 1
		values[3][c] = 1000
	}
	return mustTable(values)
}

func mustTable(values [][]float64) *gradient.Table {
	gtab, err := gradient.FromRASB(values)
	if err != nil {
		panic(err)
	}
	return gtab
}

// createTestVolume fills a volume with distinct positive values so no
// predicted voxel can come out zero: voxel i, measurement m holds
// i + m + 1
func createTestVolume(w, h, d, measurements int) *volume.Volume {
	v := volume.NewVolume(w, h, d, measurements)
	for i := 0; i < v.SpatialSize(); i++ {
		for m := 0; m < measurements; m++ {
			v.Data[i*measurements+m] = float32(i + m + 1)
		}
	}
	return v
}
