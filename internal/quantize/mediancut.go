package quantize

import (
	"math"
	"sort"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Bin is one distinct colour and the number of pixels that carry it.
type Bin struct {
	C     [3]uint8
	Count int
}

// Histogram is the set of distinct opaque colours of an image, in first-seen
// order so results are deterministic.
type Histogram struct {
	Bins []Bin
}

// NewHistogram collects the opaque colours of img.
func NewHistogram(img *raster.Image) Histogram {
	index := make(map[[3]uint8]int)
	var h Histogram
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+3] < opaqueAlpha {
			continue
		}
		k := [3]uint8{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}
		if j, ok := index[k]; ok {
			h.Bins[j].Count++
			continue
		}
		index[k] = len(h.Bins)
		h.Bins = append(h.Bins, Bin{C: k, Count: 1})
	}
	return h
}

// Len is the number of distinct colours.
func (h Histogram) Len() int { return len(h.Bins) }

// MedianCut splits colour boxes until maxColors boxes exist, always
// splitting the box with the largest summed squared error along its channel
// of greatest variance at the pixel-weighted median.
type MedianCut struct{}

func (MedianCut) Method() Method { return MethodMedianCut }

func (MedianCut) Palette(h Histogram, maxColors int) ([]Color, error) {
	if h.Len() <= maxColors {
		out := make([]Color, h.Len())
		for i, b := range h.Bins {
			out[i] = Color{R: b.C[0], G: b.C[1], B: b.C[2], A: 255}
		}
		return out, nil
	}

	boxes := []*box{newBox(append([]Bin(nil), h.Bins...))}
	for len(boxes) < maxColors {
		best := -1
		for i, b := range boxes {
			if len(b.bins) < 2 {
				continue
			}
			if best < 0 || b.sse > boxes[best].sse {
				best = i
			}
		}
		if best < 0 || boxes[best].sse == 0 {
			break
		}
		lo, hi := boxes[best].split()
		boxes[best] = lo
		boxes = append(boxes, hi)
	}

	out := make([]Color, len(boxes))
	for i, b := range boxes {
		out[i] = b.mean()
	}
	return out, nil
}

type box struct {
	bins []Bin
	n    int
	sum  [3]float64
	sse  float64
	axis int
}

func newBox(bins []Bin) *box {
	b := &box{bins: bins}
	var sq [3]float64
	for _, bin := range bins {
		w := float64(bin.Count)
		b.n += bin.Count
		for c := 0; c < 3; c++ {
			v := float64(bin.C[c])
			b.sum[c] += w * v
			sq[c] += w * v * v
		}
	}
	bestVar := -1.0
	for c := 0; c < 3; c++ {
		v := sq[c] - b.sum[c]*b.sum[c]/float64(b.n)
		b.sse += v
		if v > bestVar {
			bestVar, b.axis = v, c
		}
	}
	return b
}

func (b *box) mean() Color {
	n := float64(b.n)
	return Color{
		R: uint8(math.Round(b.sum[0] / n)),
		G: uint8(math.Round(b.sum[1] / n)),
		B: uint8(math.Round(b.sum[2] / n)),
		A: 255,
	}
}

// split cuts the box at the weighted median of its widest-variance channel.
// Both halves are non-empty.
func (b *box) split() (*box, *box) {
	axis := b.axis
	sort.SliceStable(b.bins, func(i, j int) bool { return b.bins[i].C[axis] < b.bins[j].C[axis] })

	half := b.n / 2
	acc, cut := 0, 1
	for i, bin := range b.bins {
		acc += bin.Count
		if acc >= half {
			cut = i + 1
			break
		}
	}
	if cut >= len(b.bins) {
		cut = len(b.bins) - 1
	}
	if cut < 1 {
		cut = 1
	}
	return newBox(b.bins[:cut]), newBox(b.bins[cut:])
}

// Uniform reduces every channel to the same number of evenly spaced levels,
// the largest count whose cube fits in maxColors (at least 2). It needs no
// clustering and cannot fail. When even two levels per channel exceed
// maxColors, the most populated lattice colours are kept.
type Uniform struct{}

func (Uniform) Method() Method { return MethodUniform }

func (Uniform) Palette(h Histogram, maxColors int) ([]Color, error) {
	levels := UniformLevels(maxColors)
	counts := make(map[Color]int)
	var out []Color
	for _, bin := range h.Bins {
		c := Color{
			R: snapLevel(bin.C[0], levels),
			G: snapLevel(bin.C[1], levels),
			B: snapLevel(bin.C[2], levels),
			A: 255,
		}
		if _, ok := counts[c]; !ok {
			out = append(out, c)
		}
		counts[c] += bin.Count
	}
	if len(out) > maxColors {
		sort.SliceStable(out, func(i, j int) bool { return counts[out[i]] > counts[out[j]] })
		out = out[:maxColors]
	}
	return out, nil
}

// UniformLevels returns floor(cbrt(maxColors)), at least 2.
func UniformLevels(maxColors int) int {
	l := int(math.Floor(math.Cbrt(float64(maxColors)) + 1e-9))
	if l < 2 {
		l = 2
	}
	return l
}

func snapLevel(v uint8, levels int) uint8 {
	step := 255.0 / float64(levels-1)
	return uint8(math.Round(math.Round(float64(v)/step) * step))
}
