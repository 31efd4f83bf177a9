package quantize

import (
	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// AutoOptions tunes AutoColorCount.
type AutoOptions struct {
	// Granularity is the bucket width per channel (default 24).
	Granularity int
	// Dominance is the minimum pixel share of a bucket (default 0.015).
	Dominance float64
	// StrictDominance replaces Dominance when more than maxColors buckets
	// qualify (default 0.02).
	StrictDominance float64
}

func (o AutoOptions) withDefaults() AutoOptions {
	if o.Granularity <= 0 {
		o.Granularity = 24
	}
	if o.Dominance <= 0 {
		o.Dominance = 0.015
	}
	if o.StrictDominance <= 0 {
		o.StrictDominance = 0.02
	}
	return o
}

const autoCountEdge = 64

// AutoColorCount estimates how many colours an image really uses,
// ignoring gradient and anti-aliasing noise. The result lies in
// [2, maxColors].
func AutoColorCount(img *raster.Image, maxColors int, opts AutoOptions) int {
	opts = opts.withDefaults()
	if maxColors < 2 {
		maxColors = 2
	}
	if img.Width == 0 || img.Height == 0 {
		return 2
	}

	small := ops.FitArea(img, autoCountEdge)
	if med, err := ops.MedianFilter(small, 3); err == nil {
		small = med
	}
	if blurred, err := ops.GaussianBlur(small, 1.0); err == nil {
		small = blurred
	}

	g := opts.Granularity
	buckets := make(map[[3]int]int)
	total := 0
	for i := 0; i < len(small.Pix); i += 4 {
		if small.Pix[i+3] < opaqueAlpha {
			continue
		}
		k := [3]int{int(small.Pix[i]) / g, int(small.Pix[i+1]) / g, int(small.Pix[i+2]) / g}
		buckets[k]++
		total++
	}
	if total == 0 {
		return 2
	}

	n := countDominant(buckets, total, opts.Dominance)
	if n > maxColors {
		n = countDominant(buckets, total, opts.StrictDominance)
	}
	return min(max(n, 2), maxColors)
}

func countDominant(buckets map[[3]int]int, total int, share float64) int {
	n := 0
	for _, c := range buckets {
		if float64(c)/float64(total) > share {
			n++
		}
	}
	return n
}
