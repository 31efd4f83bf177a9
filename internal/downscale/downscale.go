// Package downscale aligns an image to its pixel-art grid and reduces it by
// an integer scale, turning every s×s source block into one output pixel.
package downscale

import (
	"errors"
	"fmt"

	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Method names a downscale strategy.
type Method string

const (
	MethodDominant        Method = "dominant"
	MethodMedian          Method = "median"
	MethodMode            Method = "mode"
	MethodMean            Method = "mean"
	MethodNearest         Method = "nearest"
	MethodContentAdaptive Method = "content-adaptive"
)

// Methods lists every strategy in a stable order.
var Methods = []Method{
	MethodDominant, MethodMedian, MethodMode, MethodMean, MethodNearest, MethodContentAdaptive,
}

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown downscale method %q", s)
}

// ErrSVDUnavailable is returned when content-adaptive downscaling is
// requested without an SVD solver.
var ErrSVDUnavailable = errors.New("downscale: content-adaptive method requires an SVD solver")

// Options carries the tunables shared by all strategies.
type Options struct {
	// DominantThreshold is the minimum share of opaque pixels the most
	// frequent colour needs for the dominant strategy (default 0.15).
	DominantThreshold float64
	// Iterations is the number of EM rounds of the content-adaptive
	// strategy (default 3).
	Iterations int
	// SVD is required by the content-adaptive strategy.
	SVD ops.SVD
}

// Strategy reduces an image whose dimensions are multiples of scale.
type Strategy interface {
	Method() Method
	// PreservesPalette reports whether every output colour is guaranteed to
	// be one of the input colours.
	PreservesPalette() bool
	Downscale(img *raster.Image, scale int) (*raster.Image, error)
}

// New returns the strategy for m.
func New(m Method, opts Options) (Strategy, error) {
	if opts.DominantThreshold <= 0 || opts.DominantThreshold >= 1 {
		opts.DominantThreshold = 0.15
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 3
	}
	switch m {
	case MethodNearest:
		return blockStrategy{m, nearestBlock, true}, nil
	case MethodMedian:
		return blockStrategy{m, medianBlock, false}, nil
	case MethodMode:
		return blockStrategy{m, modeBlock, false}, nil
	case MethodMean:
		return blockStrategy{m, meanBlock, false}, nil
	case MethodDominant:
		th := opts.DominantThreshold
		return blockStrategy{m, func(b *block) [4]uint8 { return dominantBlock(b, th) }, false}, nil
	case MethodContentAdaptive:
		if opts.SVD == nil {
			return nil, ErrSVDUnavailable
		}
		return ContentAdaptive{Iterations: opts.Iterations, SVD: opts.SVD}, nil
	}
	return nil, fmt.Errorf("unknown downscale method %q", m)
}

// OutputSize returns the size of the grid an image reduces to.
func OutputSize(w, h, scale int) (int, int) {
	if scale < 1 {
		scale = 1
	}
	return w / scale, h / scale
}
