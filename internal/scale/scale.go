// Package scale estimates the logical pixel size of an image: the side
// length, in source pixels, of one pixel-art cell.
//
// Detection never fails. Any ambiguity degrades to a scale of 1, which the
// pipeline treats as "do not downscale".
package scale

import (
	"fmt"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Method selects the detection strategy.
type Method string

const (
	MethodAuto Method = "auto"
	MethodRuns Method = "runs"
	MethodEdge Method = "edge"
)

// EdgeMethod selects the edge-based variant used by MethodEdge and by the
// MethodAuto fallback.
type EdgeMethod string

const (
	EdgeTiled  EdgeMethod = "tiled"
	EdgeLegacy EdgeMethod = "legacy"
)

// ParseMethod validates a detection method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodAuto, MethodRuns, MethodEdge:
		return m, nil
	}
	return "", fmt.Errorf("unknown detect method %q (want auto, runs or edge)", s)
}

// ParseEdgeMethod validates an edge method name.
func ParseEdgeMethod(s string) (EdgeMethod, error) {
	switch m := EdgeMethod(s); m {
	case EdgeTiled, EdgeLegacy:
		return m, nil
	}
	return "", fmt.Errorf("unknown edge detect method %q (want tiled or legacy)", s)
}

// Options configures Detect.
type Options struct {
	Method     Method
	EdgeMethod EdgeMethod
}

// Result is a scale estimate together with how it was obtained.
type Result struct {
	Scale  int `json:"scale"`
	ScaleX int `json:"scale_x"`
	ScaleY int `json:"scale_y"`
	// Method names the strategy that produced Scale, with fallbacks joined
	// by "->", e.g. "runs->tiled".
	Method string `json:"method"`
}

// Detector is one detection strategy.
type Detector interface {
	Name() string
	Detect(img *raster.Image) Result
}

// largeImagePixels is the size above which tiled detection hands over to
// the run-length strategy.
const largeImagePixels = 8_000_000

// Detect runs the configured strategy.
func Detect(img *raster.Image, opts Options) Result {
	if img.Width == 0 || img.Height == 0 {
		return Result{Scale: 1, ScaleX: 1, ScaleY: 1, Method: string(opts.Method)}
	}
	edge := edgeDetector(opts.EdgeMethod)

	switch opts.Method {
	case MethodRuns:
		return Runs{}.Detect(img)
	case MethodEdge:
		return edge.Detect(img)
	default:
		r := Runs{}.Detect(img)
		if r.Scale > 1 {
			return r
		}
		e := edge.Detect(img)
		e.Method = r.Method + "->" + e.Method
		return e
	}
}

func edgeDetector(m EdgeMethod) Detector {
	if m == EdgeLegacy {
		return Edge{}
	}
	return Tiled{}
}

// Manual wraps a user supplied scale in a Result.
func Manual(s int) Result {
	if s < 1 {
		s = 1
	}
	return Result{Scale: s, ScaleX: s, ScaleY: s, Method: "manual"}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
