package model

import (
	"fmt"
	"runtime"

	"dmrifit/pkg/gradient"
	"dmrifit/pkg/recon"
	"dmrifit/pkg/volume"
)

// MaskPercentile is the baseline-intensity percentile used to derive a
// voxel mask when none is given explicitly.
const MaskPercentile = 35

// Chunked wraps a registry-backed reconstruction model and fits it
// chunk-by-chunk in parallel: the masked voxels are split into one
// contiguous chunk per worker, each chunk is fitted by its own sub-model
// instance, and predictions are reassembled onto the full voxel grid in
// chunk order.
//
// The workers for one Fit or Predict call are scoped to that call: they
// are started on entry, share no mutable state (each owns its chunk and
// its sub-model), and are all joined before the call returns, whether it
// succeeds or fails.
type Chunked struct {
	gtab       *gradient.Table
	numThreads int

	// baseline is the normalized S0 map subset to the masked voxels, or
	// nil when no baseline was supplied.
	baseline []float32

	mask *volume.Mask

	// templates holds one unfitted sub-model per worker. fits replaces
	// them logically after a successful Fit, in chunk order.
	templates  []recon.Model
	fits       []recon.Fit
	chunkSizes []int
}

// newChunked builds the wrapper around the backend constructor registered
// for the given algorithm. Mask resolution order: explicit mask, else the
// MaskPercentile threshold of the normalized baseline, else deferred to
// fit time (all-true over the data's spatial shape).
func newChunked(algorithm string, gtab *gradient.Table, s settings) (*Chunked, error) {
	ctor, ok := recon.Lookup(algorithm)
	if !ok {
		return nil, fmt.Errorf("%w %q", recon.ErrNotRegistered, algorithm)
	}

	numThreads := s.numThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	c := &Chunked{
		gtab:       gtab,
		numThreads: numThreads,
		mask:       s.mask,
	}

	if s.baseline != nil {
		normalized := volume.NormalizeBaseline(s.baseline)
		if c.mask == nil {
			c.mask = volume.ThresholdMask(normalized, MaskPercentile)
		}
		c.baseline = volume.MaskedValues(normalized, c.mask)
	}
	// With neither baseline nor mask, the mask stays nil and is resolved
	// to all-true at fit time.

	c.templates = make([]recon.Model, numThreads)
	for i := range c.templates {
		sub, err := ctor(gtab, s.params)
		if err != nil {
			return nil, fmt.Errorf("model: constructing %s sub-model %d: %w", algorithm, i, err)
		}
		c.templates[i] = sub
	}

	return c, nil
}

// NumThreads returns the resolved worker count.
func (c *Chunked) NumThreads() int {
	return c.numThreads
}

// Mask returns the resolved voxel mask, or nil before it is known.
func (c *Chunked) Mask() *volume.Mask {
	return c.mask
}

// Fit masks the acquisition, splits the masked voxels into one chunk per
// worker and fits all chunks concurrently. Results are stored in chunk
// order. If any chunk fails, the error of the lowest-indexed failing chunk
// is returned and no fitted state is kept: a failed Fit also discards the
// results of any earlier successful Fit, so Predict fails with
// ErrNotFitted instead of serving a stale fit.
func (c *Chunked) Fit(data *volume.Volume) error {
	c.fits = nil
	c.chunkSizes = nil

	if c.mask == nil {
		c.mask = volume.AllTrue(data.Width, data.Height, data.Depth)
	}

	rows, err := volume.MaskedRows(data, c.mask)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}

	voxels := c.mask.Count()
	measurements := data.Measurements
	sizes := volume.SplitSizes(voxels, c.numThreads)

	type fitResult struct {
		chunk int
		fit   recon.Fit
		err   error
	}
	results := make(chan fitResult, c.numThreads)

	offset := 0
	for i, size := range sizes {
		chunk := rows[offset*measurements : (offset+size)*measurements]
		offset += size

		go func(idx, size int, sub recon.Model, chunk []float32) {
			if size == 0 {
				// Nothing to fit; more workers than masked voxels.
				results <- fitResult{chunk: idx}
				return
			}
			fit, err := sub.Fit(chunk, size, measurements)
			results <- fitResult{chunk: idx, fit: fit, err: err}
		}(i, size, c.templates[i], chunk)
	}

	fits := make([]recon.Fit, c.numThreads)
	firstErr := -1
	var fitErr error
	for range sizes {
		res := <-results
		if res.err != nil {
			if firstErr < 0 || res.chunk < firstErr {
				firstErr = res.chunk
				fitErr = res.err
			}
			continue
		}
		fits[res.chunk] = res.fit
	}

	if firstErr >= 0 {
		return fmt.Errorf("model: fitting chunk %d of %d: %w", firstErr, c.numThreads, fitErr)
	}

	c.fits = fits
	c.chunkSizes = sizes
	return nil
}

// Predict evaluates every fitted sub-model concurrently, each against its
// own baseline chunk, concatenates the per-chunk predictions in chunk
// order and scatters them through the mask onto a zeroed full-volume map.
func (c *Chunked) Predict(gtab *gradient.Table, opts ...PredictOption) (*volume.Map, error) {
	if c.fits == nil {
		return nil, ErrNotFitted
	}

	var cfg predictConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	type predictResult struct {
		chunk  int
		values []float32
		err    error
	}
	results := make(chan predictResult, c.numThreads)

	offset := 0
	for i, size := range c.chunkSizes {
		var baselineChunk []float32
		if c.baseline != nil {
			baselineChunk = c.baseline[offset : offset+size]
		}
		offset += size

		go func(idx, size int, fit recon.Fit, baselineChunk []float32) {
			if size == 0 {
				results <- predictResult{chunk: idx}
				return
			}
			values, err := fit.Predict(gtab, baselineChunk, cfg.step)
			if err == nil && len(values) != size {
				err = fmt.Errorf("%w: chunk predicted %d values for %d voxels",
					ErrShapeMismatch, len(values), size)
			}
			results <- predictResult{chunk: idx, values: values, err: err}
		}(i, size, c.fits[i], baselineChunk)
	}

	chunks := make([][]float32, c.numThreads)
	firstErr := -1
	var predictErr error
	for range c.chunkSizes {
		res := <-results
		if res.err != nil {
			if firstErr < 0 || res.chunk < firstErr {
				firstErr = res.chunk
				predictErr = res.err
			}
			continue
		}
		chunks[res.chunk] = res.values
	}

	if firstErr >= 0 {
		return nil, fmt.Errorf("model: predicting chunk %d of %d: %w", firstErr, c.numThreads, predictErr)
	}

	predicted := make([]float32, 0, c.mask.Count())
	for _, chunk := range chunks {
		predicted = append(predicted, chunk...)
	}

	out, err := volume.Scatter(c.mask, predicted)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	return out, nil
}
