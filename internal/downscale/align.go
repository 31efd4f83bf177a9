package downscale

import (
	"image"

	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Offset is the crop origin that aligns the sampling grid with the image's
// pixel-art grid. Both components lie in [0, scale).
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Align picks, independently per axis, the phase in [0, scale) whose grid
// lines collect the most gradient energy. A grid line at position o sits
// between pixels o-1 and o, so both Sobel responses straddling it count.
// When the crop would leave less than one cell on an axis, Align returns
// the zero offset. Phases whose Sobel scores tie, as every phase does at
// scale 2, are separated by the raw pixel steps across their grid lines.
func Align(img *raster.Image, scale int) Offset {
	if scale <= 1 || img.Width < scale || img.Height < scale {
		return Offset{}
	}
	sc := ops.NewScope()
	defer sc.Release()

	cols, rows := ops.SobelProfiles(sc, img, image.Rect(0, 0, img.Width, img.Height))
	stepCols, stepRows := stepProfiles(sc, img)
	off := Offset{X: bestPhase(cols, stepCols, scale), Y: bestPhase(rows, stepRows, scale)}
	if img.Width-off.X < scale || img.Height-off.Y < scale {
		return Offset{}
	}
	return off
}

// bestPhase scores phase o by the Sobel responses straddling each grid
// line i ≡ o (mod scale). Scores within a relative phaseTie of each other
// are ranked by steps[i] summed over the same lines, then by the smaller
// offset.
func bestPhase(p, steps []float64, scale int) int {
	best, bestScore, bestStep := 0, -1.0, -1.0
	for o := 0; o < scale; o++ {
		var score, step float64
		for i := o; i <= len(p); i += scale {
			if i-1 >= 0 {
				score += p[i-1]
			}
			if i < len(p) {
				score += p[i]
			}
			if i < len(steps) {
				step += steps[i]
			}
		}
		tol := phaseTie * max(score, bestScore)
		switch {
		case score > bestScore+tol:
			best, bestScore, bestStep = o, score, step
		case score >= bestScore-tol && step > bestStep:
			best, bestScore, bestStep = o, score, step
		}
	}
	return best
}

const phaseTie = 1e-9

// stepProfiles sums, per column x and per row y, the absolute RGBA
// difference between each pixel and its left or upper neighbour.
func stepProfiles(sc *ops.Scope, img *raster.Image) (cols, rows []float64) {
	cols, rows = sc.Floats(img.Width), sc.Floats(img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := img.Offset(x, y)
			if x > 0 {
				cols[x] += pixelStep(img.Pix[o-4:o], img.Pix[o:o+4])
			}
			if y > 0 {
				u := img.Offset(x, y-1)
				rows[y] += pixelStep(img.Pix[u:u+4], img.Pix[o:o+4])
			}
		}
	}
	return cols, rows
}

func pixelStep(a, b []uint8) float64 {
	var d int
	for c := 0; c < 4; c++ {
		d += absDiff(a[c], b[c])
	}
	return float64(d)
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// Crop cuts the largest region starting at off whose sides are multiples of
// scale.
func Crop(img *raster.Image, off Offset, scale int) *raster.Image {
	if scale < 1 {
		scale = 1
	}
	w := (img.Width - off.X) / scale * scale
	h := (img.Height - off.Y) / scale * scale
	if w <= 0 || h <= 0 {
		return raster.New(0, 0)
	}
	return img.Crop(off.X, off.Y, w, h)
}
