// Package cleanup removes reconstruction noise from a downscaled image and
// normalizes its alpha channel. All passes work in place.
package cleanup

import (
	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// FinalAlpha is the alpha threshold Finalize applies.
const FinalAlpha = 128

const morphSize = 2

// Morph runs a per-channel opening then closing with a 2×2 structuring
// element: isolated specks go first, then 1-pixel gaps are filled.
func Morph(img *raster.Image) {
	if img.Width == 0 || img.Height == 0 {
		return
	}
	out := ops.Close(ops.Open(img, morphSize), morphSize)
	copy(img.Pix, out.Pix)
}

// Jaggy clears every opaque pixel that has no opaque orthogonal neighbour
// and exactly one opaque diagonal neighbour. Neighbours are read from a
// snapshot taken before the pass, so the result does not depend on scan
// order. It returns the number of pixels cleared.
func Jaggy(img *raster.Image) int {
	w, h := img.Width, img.Height
	if w == 0 || h == 0 {
		return 0
	}
	snap := make([]bool, w*h)
	for i := range snap {
		snap[i] = img.Pix[i*4+3] >= FinalAlpha
	}
	opaque := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && snap[y*w+x]
	}

	removed := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !snap[y*w+x] {
				continue
			}
			if opaque(x, y-1) || opaque(x, y+1) || opaque(x-1, y) || opaque(x+1, y) {
				continue
			}
			diag := 0
			for _, d := range [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
				if opaque(x+d[0], y+d[1]) {
					diag++
				}
			}
			if diag != 1 {
				continue
			}
			o := img.Offset(x, y)
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = 0, 0, 0, 0
			removed++
		}
	}
	return removed
}

// BinarizeAlpha maps alpha to 255 when it reaches threshold and to 0
// otherwise. Colour channels are left alone.
func BinarizeAlpha(img *raster.Image, threshold uint8) {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] >= threshold {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}

// Finalize guarantees the shipped raster has no partial transparency:
// pixels below FinalAlpha become transparent black, the rest fully opaque.
func Finalize(img *raster.Image) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i+3] < FinalAlpha {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 0, 0, 0
		} else {
			img.Pix[i+3] = 255
		}
	}
}
