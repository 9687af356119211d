// Package volume holds the voxel-grid data model shared by the diffusion
// models: 4-D acquisitions, 3-D scalar maps, boolean masks, and the
// masking/chunking bookkeeping used to split voxels across workers.
//
// All grids are stored as flat slices in row-major order with the voxel
// index computed as z*W*H + y*W + x. A Volume additionally stores its
// per-voxel measurements contiguously, so masking yields a dense
// (voxels × measurements) block without further copying.
package volume

import (
	"fmt"
	"math"
	"sort"
)

// BaselineFloor is the lower clip bound applied when normalizing a baseline
// (S0) map. Voxels at or below the noise floor end up at this value.
const BaselineFloor = 1e-5

// Volume is a 4-D diffusion acquisition: three spatial axes plus one
// measurement axis.
type Volume struct {
	// Data holds the samples, measurement-fastest: the values for voxel v
	// occupy Data[v*Measurements : (v+1)*Measurements].
	Data []float32

	// Width, Height, Depth are the spatial dimensions in voxels.
	Width, Height, Depth int

	// Measurements is the number of samples per voxel (the q-space axis).
	Measurements int
}

// NewVolume allocates a zeroed volume with the given dimensions.
func NewVolume(width, height, depth, measurements int) *Volume {
	return &Volume{
		Data:         make([]float32, width*height*depth*measurements),
		Width:        width,
		Height:       height,
		Depth:        depth,
		Measurements: measurements,
	}
}

// SpatialSize returns the number of voxels in the grid.
func (v *Volume) SpatialSize() int {
	return v.Width * v.Height * v.Depth
}

// Voxel returns the measurement row of voxel i. The returned slice aliases
// the volume's backing array.
func (v *Volume) Voxel(i int) []float32 {
	return v.Data[i*v.Measurements : (i+1)*v.Measurements]
}

// MeanMap reduces the volume over its measurement axis, returning the
// per-voxel mean as a scalar map.
func (v *Volume) MeanMap() *Map {
	m := NewMap(v.Width, v.Height, v.Depth)
	for i := 0; i < v.SpatialSize(); i++ {
		var sum float64
		for _, s := range v.Voxel(i) {
			sum += float64(s)
		}
		m.Data[i] = float32(sum / float64(v.Measurements))
	}
	return m
}

// Map is a 3-D scalar map over the voxel grid: a baseline (S0) intensity
// map or a predicted signal map.
type Map struct {
	Data                 []float32
	Width, Height, Depth int
}

// NewMap allocates a zeroed map with the given spatial dimensions.
func NewMap(width, height, depth int) *Map {
	return &Map{
		Data:   make([]float32, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// Mask is a boolean selector over the voxel grid.
type Mask struct {
	Data                 []bool
	Width, Height, Depth int
}

// AllTrue returns a mask selecting every voxel of the given grid.
func AllTrue(width, height, depth int) *Mask {
	m := &Mask{
		Data:   make([]bool, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

// Count returns the number of selected voxels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Data {
		if b {
			n++
		}
	}
	return n
}

// MaskedRows gathers the masked voxels of a volume into a dense
// (voxels × measurements) row-major block, preserving voxel order.
func MaskedRows(v *Volume, mask *Mask) ([]float32, error) {
	if mask.Width != v.Width || mask.Height != v.Height || mask.Depth != v.Depth {
		return nil, fmt.Errorf("volume: mask shape (%d, %d, %d) does not match volume shape (%d, %d, %d)",
			mask.Width, mask.Height, mask.Depth, v.Width, v.Height, v.Depth)
	}
	rows := make([]float32, 0, mask.Count()*v.Measurements)
	for i, selected := range mask.Data {
		if selected {
			rows = append(rows, v.Voxel(i)...)
		}
	}
	return rows, nil
}

// MaskedValues gathers the masked voxels of a scalar map, preserving voxel
// order.
func MaskedValues(m *Map, mask *Mask) []float32 {
	values := make([]float32, 0, mask.Count())
	for i, selected := range mask.Data {
		if selected {
			values = append(values, m.Data[i])
		}
	}
	return values
}

// Scatter places one value per masked voxel back onto the full grid, in the
// same voxel order MaskedRows and MaskedValues use. Unmasked voxels stay
// zero.
func Scatter(mask *Mask, values []float32) (*Map, error) {
	if len(values) != mask.Count() {
		return nil, fmt.Errorf("volume: got %d values for %d masked voxels", len(values), mask.Count())
	}
	out := NewMap(mask.Width, mask.Height, mask.Depth)
	j := 0
	for i, selected := range mask.Data {
		if selected {
			out.Data[i] = values[j]
			j++
		}
	}
	return out, nil
}

// NormalizeBaseline rescales a baseline (S0) map by its maximum and clips
// the result to [BaselineFloor, 1.0]. The input map is not modified.
func NormalizeBaseline(m *Map) *Map {
	out := NewMap(m.Width, m.Height, m.Depth)
	var max float32
	for _, s := range m.Data {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		max = 1
	}
	for i, s := range m.Data {
		v := s / max
		if v < BaselineFloor {
			v = BaselineFloor
		} else if v > 1 {
			v = 1
		}
		out.Data[i] = v
	}
	return out
}

// ThresholdMask selects the voxels whose value exceeds the pct-th
// percentile of the map.
func ThresholdMask(m *Map, pct float64) *Mask {
	mask := &Mask{
		Data:   make([]bool, len(m.Data)),
		Width:  m.Width,
		Height: m.Height,
		Depth:  m.Depth,
	}
	if len(m.Data) == 0 {
		return mask
	}

	sorted := make([]float64, len(m.Data))
	for i, s := range m.Data {
		sorted[i] = float64(s)
	}
	sort.Float64s(sorted)
	threshold := percentile(sorted, pct)

	for i, s := range m.Data {
		mask.Data[i] = float64(s) > threshold
	}
	return mask
}

// percentile interpolates the pct-th percentile of sorted data linearly
// between the two order statistics nearest rank pct/100*(n-1), the
// Hyndman-Fan type 7 definition.
func percentile(sorted []float64, pct float64) float64 {
	idx := pct / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (idx-float64(lo))*(sorted[hi]-sorted[lo])
}

// SplitSizes partitions n items into k contiguous chunks, as equal as
// possible, with the remainder distributed to the leading chunks. Chunks
// beyond the item count come out empty.
func SplitSizes(n, k int) []int {
	sizes := make([]int, k)
	base := n / k
	rem := n % k
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}
