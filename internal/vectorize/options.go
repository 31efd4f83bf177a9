package vectorize

import "fmt"

// Filter names accepted by the pre and post filter steps.
const (
	FilterNone      = "none"
	FilterBilateral = "bilateral"
	FilterMedian    = "median"
	FilterGaussian  = "gaussian"
)

// PreProcess configures the filter applied before quantization.
type PreProcess struct {
	Filter     string  `json:"filter"` // none, bilateral, median
	Diameter   int     `json:"diameter"`
	SigmaColor float64 `json:"sigmaColor"`
	SigmaSpace float64 `json:"sigmaSpace"`
	MedianSize int     `json:"medianSize"`
	MorphClose bool    `json:"morphClose"`
}

// QuantizeOptions configures the optional palette reduction.
type QuantizeOptions struct {
	Enabled   bool `json:"enabled"`
	MaxColors int  `json:"maxColors"`
	Auto      bool `json:"auto"`
}

// PostProcess configures the filter applied right before tracing.
type PostProcess struct {
	Filter     string  `json:"filter"` // none, gaussian, median
	Sigma      float64 `json:"sigma"`
	MedianSize int     `json:"medianSize"`
}

// TraceOptions are the raw tracer settings.
type TraceOptions struct {
	// PathOmit drops regions with fewer pixels than this.
	PathOmit int `json:"pathOmit"`
	// Scale multiplies the output size of the document.
	Scale float64 `json:"scale"`
	// NumColors bounds the tracer's own quantization when no palette is
	// injected.
	NumColors int  `json:"numColors"`
	Viewbox   bool `json:"viewbox"`
	Desc      bool `json:"desc"`
}

// Options is the full vectorizer configuration. Nil steps are skipped.
type Options struct {
	PreProcess  *PreProcess      `json:"preProcess,omitempty"`
	Quantize    *QuantizeOptions `json:"quantize,omitempty"`
	PostProcess *PostProcess     `json:"postProcess,omitempty"`
	Trace       TraceOptions     `json:"trace"`
}

// DefaultOptions traces an already reconstructed pixel-art image without
// any filtering.
func DefaultOptions() Options {
	return Options{Trace: DefaultTraceOptions()}
}

// DefaultTraceOptions keeps every region, since single pixels carry detail
// in pixel art.
func DefaultTraceOptions() TraceOptions {
	return TraceOptions{PathOmit: 0, Scale: 1, NumColors: 16, Viewbox: true}
}

// Validate fills zero tracer values with defaults and rejects unknown
// filter names and out-of-range sizes.
func (o Options) Validate() (Options, error) {
	def := DefaultTraceOptions()
	if o.Trace.Scale <= 0 {
		o.Trace.Scale = def.Scale
	}
	if o.Trace.NumColors <= 0 {
		o.Trace.NumColors = def.NumColors
	}
	if o.Trace.NumColors < 2 || o.Trace.NumColors > 256 {
		return o, fmt.Errorf("vectorize: trace.numColors must be in [2,256], got %d", o.Trace.NumColors)
	}
	if o.Trace.PathOmit < 0 {
		return o, fmt.Errorf("vectorize: trace.pathOmit must be >= 0, got %d", o.Trace.PathOmit)
	}

	if p := o.PreProcess; p != nil {
		pp := *p
		switch pp.Filter {
		case "", FilterNone, FilterBilateral, FilterMedian:
		default:
			return o, fmt.Errorf("vectorize: unknown pre-process filter %q", pp.Filter)
		}
		if pp.Diameter == 0 {
			pp.Diameter = 5
		}
		if pp.SigmaColor == 0 {
			pp.SigmaColor = 50
		}
		if pp.SigmaSpace == 0 {
			pp.SigmaSpace = 50
		}
		if pp.MedianSize == 0 {
			pp.MedianSize = 3
		}
		o.PreProcess = &pp
	}
	if q := o.Quantize; q != nil {
		qq := *q
		if qq.MaxColors == 0 {
			qq.MaxColors = 16
		}
		if qq.MaxColors < 2 || qq.MaxColors > 256 {
			return o, fmt.Errorf("vectorize: quantize.maxColors must be in [2,256], got %d", qq.MaxColors)
		}
		o.Quantize = &qq
	}
	if p := o.PostProcess; p != nil {
		pp := *p
		switch pp.Filter {
		case "", FilterNone, FilterGaussian, FilterMedian:
		default:
			return o, fmt.Errorf("vectorize: unknown post-process filter %q", pp.Filter)
		}
		if pp.Sigma == 0 {
			pp.Sigma = 1
		}
		if pp.MedianSize == 0 {
			pp.MedianSize = 3
		}
		o.PostProcess = &pp
	}
	return o, nil
}
