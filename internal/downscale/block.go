package downscale

import (
	"fmt"
	"sort"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// opaqueAlpha is the alpha at or above which a source pixel contributes
// colour to a block.
const opaqueAlpha = 128

// block is one s×s cell of the source image.
type block struct {
	img    *raster.Image
	x0, y0 int
	size   int
	// scratch reused across blocks
	opaque [][4]uint8
	alpha  []uint8
}

func (b *block) load() {
	b.opaque = b.opaque[:0]
	b.alpha = b.alpha[:0]
	for y := b.y0; y < b.y0+b.size; y++ {
		for x := b.x0; x < b.x0+b.size; x++ {
			o := b.img.Offset(x, y)
			p := [4]uint8{b.img.Pix[o], b.img.Pix[o+1], b.img.Pix[o+2], b.img.Pix[o+3]}
			b.alpha = append(b.alpha, p[3])
			if p[3] >= opaqueAlpha {
				b.opaque = append(b.opaque, p)
			}
		}
	}
}

type blockStrategy struct {
	method   Method
	reduce   func(b *block) [4]uint8
	preserve bool
}

func (s blockStrategy) Method() Method         { return s.method }
func (s blockStrategy) PreservesPalette() bool { return s.preserve }

func (s blockStrategy) Downscale(img *raster.Image, scale int) (*raster.Image, error) {
	if scale < 1 {
		return nil, fmt.Errorf("downscale: invalid scale %d", scale)
	}
	w, h := OutputSize(img.Width, img.Height, scale)
	out := raster.New(w, h)
	b := &block{img: img, size: scale}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.x0, b.y0 = x*scale, y*scale
			if s.method != MethodNearest {
				b.load()
			}
			p := s.reduce(b)
			o := out.Offset(x, y)
			copy(out.Pix[o:o+4], p[:])
		}
	}
	return out, nil
}

func nearestBlock(b *block) [4]uint8 {
	c := b.size / 2
	o := b.img.Offset(b.x0+c, b.y0+c)
	return [4]uint8{b.img.Pix[o], b.img.Pix[o+1], b.img.Pix[o+2], b.img.Pix[o+3]}
}

func medianBlock(b *block) [4]uint8 {
	var out [4]uint8
	vals := make([]int, len(b.opaque))
	for c := 0; c < 3 && len(b.opaque) > 0; c++ {
		for i, p := range b.opaque {
			vals[i] = int(p[c])
		}
		sort.Ints(vals)
		out[c] = uint8(vals[len(vals)/2])
	}
	out[3] = medianAlpha(b.alpha)
	return out
}

func modeBlock(b *block) [4]uint8 {
	var out [4]uint8
	for c := 0; c < 3 && len(b.opaque) > 0; c++ {
		var hist [256]int
		for _, p := range b.opaque {
			hist[p[c]]++
		}
		best := 0
		for v := 1; v < 256; v++ {
			if hist[v] > hist[best] {
				best = v
			}
		}
		out[c] = uint8(best)
	}
	out[3] = medianAlpha(b.alpha)
	return out
}

func meanBlock(b *block) [4]uint8 {
	out := meanOpaque(b.opaque)
	out[3] = medianAlpha(b.alpha)
	return out
}

// dominantBlock returns the most frequent exact opaque colour when its share
// of the opaque pixels reaches threshold, otherwise their per-channel mean.
// Alpha is the block median binarized at 128.
func dominantBlock(b *block, threshold float64) [4]uint8 {
	var out [4]uint8
	if len(b.opaque) > 0 {
		counts := make(map[[3]uint8]int, len(b.opaque))
		var best [3]uint8
		bestN := 0
		for _, p := range b.opaque {
			k := [3]uint8{p[0], p[1], p[2]}
			counts[k]++
			// First colour to reach the highest count wins ties.
			if n := counts[k]; n > bestN {
				best, bestN = k, n
			}
		}
		if float64(bestN)/float64(len(b.opaque)) >= threshold {
			out[0], out[1], out[2] = best[0], best[1], best[2]
		} else {
			out = meanOpaque(b.opaque)
		}
	}
	if medianAlpha(b.alpha) >= 128 {
		out[3] = 255
	} else {
		out[3] = 0
	}
	return out
}

func meanOpaque(px [][4]uint8) [4]uint8 {
	var out [4]uint8
	if len(px) == 0 {
		return out
	}
	var sum [3]int
	for _, p := range px {
		sum[0] += int(p[0])
		sum[1] += int(p[1])
		sum[2] += int(p[2])
	}
	n := len(px)
	for c := 0; c < 3; c++ {
		out[c] = uint8((sum[c] + n/2) / n)
	}
	return out
}

// medianAlpha returns the upper median of the block's alpha samples.
func medianAlpha(a []uint8) uint8 {
	if len(a) == 0 {
		return 0
	}
	var hist [256]int
	for _, v := range a {
		hist[v]++
	}
	target := len(a) / 2
	acc := 0
	for v := 0; v < 256; v++ {
		acc += hist[v]
		if acc > target {
			return uint8(v)
		}
	}
	return 255
}
