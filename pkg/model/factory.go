package model

import (
	"fmt"
	"strings"

	"dmrifit/pkg/gradient"
)

// 3D-SHORE basis defaults applied before options, matching the values the
// acquisition pipelines this adapter serves were tuned with.
const (
	defaultShoreRadialOrder = 6
	defaultShoreZeta        = 700
	defaultShoreLambdaN     = 1e-8
	defaultShoreLambdaL     = 1e-8
)

// New instantiates a diffusion model by name. Matching is
// case-insensitive; "s0" and "b0" select the baseline model, "average"
// and names starting with "avg" the average model, names starting with
// "3dshore" the SHORE backend, and "dti"/"dki" the tensor and kurtosis
// backends. Unknown names fail with ErrUnsupportedModel.
//
// Options are validated against the selected model kind: an option the
// kind does not accept fails construction with ErrOptionNotAllowed rather
// than being dropped.
func New(name string, gtab *gradient.Table, opts ...Option) (Model, error) {
	kind, err := kindForName(name)
	if err != nil {
		return nil, err
	}

	var s settings
	if kind == KindShore {
		s.params.RadialOrder = defaultShoreRadialOrder
		s.params.Zeta = defaultShoreZeta
		s.params.LambdaN = defaultShoreLambdaN
		s.params.LambdaL = defaultShoreLambdaL
	}
	for _, opt := range opts {
		if !opt.allowed[kind] {
			return nil, fmt.Errorf("%w %q: %s", ErrOptionNotAllowed, kind, opt.name)
		}
		opt.apply(&s)
	}

	switch kind {
	case KindBaseline:
		return NewBaseline(s.baseline)
	case KindAverage:
		return NewAverage(), nil
	default:
		return newChunked(kind.String(), gtab, s)
	}
}

func kindForName(name string) (Kind, error) {
	switch lower := strings.ToLower(name); {
	case lower == "s0" || lower == "b0":
		return KindBaseline, nil
	case lower == "average" || strings.HasPrefix(lower, "avg"):
		return KindAverage, nil
	case lower == "dti":
		return KindDTI, nil
	case lower == "dki":
		return KindDKI, nil
	case strings.HasPrefix(lower, "3dshore"):
		return KindShore, nil
	}
	return 0, fmt.Errorf("%w <%s>", ErrUnsupportedModel, name)
}
