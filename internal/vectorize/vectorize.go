// Package vectorize traces a quantized raster into an SVG document made of
// one closed path per colour region.
package vectorize

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/AnyUserName/pixelsnap-cli/internal/logging"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/quantize"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Sentinel is the background transparent pixels are composited onto before
// filtering. Paths in this colour are stripped from the output.
var Sentinel = quantize.Color{R: 255, G: 0, B: 1, A: 255}

var sentinelFill = fillText(Sentinel)

const morphCloseSize = 2

// Result is the output of Vectorize.
type Result struct {
	SVG      string
	Manifest manifest.Vector
	// Palette is re-extracted from the emitted path fills, in document
	// order.
	Palette []string
}

// Vectorize runs the optional filter and quantization steps and traces the
// result. Filter failures are logged and skipped; only invalid options are
// returned as errors. The input is not modified.
func Vectorize(img *raster.Image, opts Options) (*Result, error) {
	opts, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	log := logging.Logger()
	res := &Result{}
	m := &res.Manifest
	m.Size = manifest.Size{Width: img.Width, Height: img.Height}

	start := time.Now()
	work := img.Clone()
	var keep []quantize.Color
	if img.HasTransparency() {
		compositeOnto(work, Sentinel)
		keep = []quantize.Color{Sentinel}
		m.Sentinel = true
	}
	m.Timings.Track("composite", start)

	if p := opts.PreProcess; p != nil && p.Filter != "" && p.Filter != FilterNone {
		start = time.Now()
		var out *raster.Image
		var err error
		switch p.Filter {
		case FilterBilateral:
			out, err = ops.Bilateral(work, p.Diameter, p.SigmaColor, p.SigmaSpace)
		case FilterMedian:
			out, err = ops.MedianFilter(work, p.MedianSize)
		}
		m.PreFilter = &manifest.FilterInfo{Name: p.Filter}
		work = softStep(log, "pre-filter", work, out, err, m.PreFilter)
		m.Timings.Track("pre_filter", start)
	}
	if p := opts.PreProcess; p != nil && p.MorphClose {
		start = time.Now()
		work = ops.Close(work, morphCloseSize)
		m.MorphClose = &manifest.FilterInfo{Name: "close", Applied: true}
		m.Timings.Track("morph_close", start)
	}

	var palette []quantize.Color
	if q := opts.Quantize; q != nil && q.Enabled {
		start = time.Now()
		n := q.MaxColors
		if q.Auto {
			n = quantize.AutoColorCount(work, q.MaxColors, quantize.AutoOptions{})
		}
		qr := quantize.Quantize(work, n, keep)
		work, palette = qr.Image, qr.Palette
		m.Quantize = &manifest.QuantizeStats{
			Requested:  n,
			Auto:       q.Auto,
			ColorsUsed: qr.ColorsUsed,
			Fixed:      len(keep),
			Method:     string(qr.Method),
			FellBack:   qr.FellBack,
		}
		m.Timings.Track("quantize", start)
	}

	if p := opts.PostProcess; p != nil && p.Filter != "" && p.Filter != FilterNone {
		start = time.Now()
		var out *raster.Image
		var err error
		switch p.Filter {
		case FilterGaussian:
			out, err = ops.GaussianBlur(work, p.Sigma)
		case FilterMedian:
			out, err = ops.MedianFilter(work, p.MedianSize)
		}
		m.PostFilter = &manifest.FilterInfo{Name: p.Filter}
		work = softStep(log, "post-filter", work, out, err, m.PostFilter)
		m.Timings.Track("post_filter", start)
	}

	start = time.Now()
	traced := Trace(work, palette, keep, opts.Trace)
	m.Regions = traced.Regions
	m.OmittedRegions = traced.Omitted
	m.Timings.Track("trace", start)

	if m.Sentinel {
		kept := traced.Paths[:0]
		for _, p := range traced.Paths {
			if p.Fill == sentinelFill {
				m.StrippedPaths++
				continue
			}
			kept = append(kept, p)
		}
		traced.Paths = kept
	}
	m.Paths = len(traced.Paths)

	res.SVG = traced.SVG(opts.Trace)
	res.Palette, err = extractPalette(traced.Paths)
	if err != nil {
		return nil, err
	}
	m.Colors = len(res.Palette)
	log.Debug("vectorized", "paths", m.Paths, "colors", m.Colors,
		"omitted", m.OmittedRegions, "stripped", m.StrippedPaths)
	return res, nil
}

// softStep keeps the pre-failure image when a filter fails.
func softStep(log *slog.Logger, step string, cur, out *raster.Image, err error, info *manifest.FilterInfo) *raster.Image {
	if err != nil {
		log.Warn("vectorize step skipped", "step", step, "filter", info.Name, "err", err)
		info.Error = err.Error()
		return cur
	}
	info.Applied = true
	return out
}

// compositeOnto blends every pixel over an opaque background colour.
func compositeOnto(img *raster.Image, bg quantize.Color) {
	for i := 0; i < len(img.Pix); i += 4 {
		a := uint32(img.Pix[i+3])
		if a == 255 {
			continue
		}
		img.Pix[i] = uint8((uint32(img.Pix[i])*a + uint32(bg.R)*(255-a) + 127) / 255)
		img.Pix[i+1] = uint8((uint32(img.Pix[i+1])*a + uint32(bg.G)*(255-a) + 127) / 255)
		img.Pix[i+2] = uint8((uint32(img.Pix[i+2])*a + uint32(bg.B)*(255-a) + 127) / 255)
		img.Pix[i+3] = 255
	}
}

// extractPalette lists the distinct path fills as #rrggbb.
func extractPalette(paths []Path) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range paths {
		c, err := parseFill(p.Fill)
		if err != nil {
			return nil, fmt.Errorf("vectorize: %w", err)
		}
		h := c.Hex()
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out, nil
}
