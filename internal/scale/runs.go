package scale

import "github.com/AnyUserName/pixelsnap-cli/internal/raster"

const (
	minRunLength = 2
	minRunCount  = 10
)

// Runs measures runs of identical adjacent pixels along every row and
// column and returns the GCD of all runs of length >= 2. Clean pixel art
// upscaled by k yields runs that are multiples of k.
type Runs struct{}

func (Runs) Name() string { return "runs" }

func (Runs) Detect(img *raster.Image) Result {
	gx, nx := rowRuns(img)
	gy, ny := colRuns(img)

	res := Result{Scale: 1, ScaleX: 1, ScaleY: 1, Method: "runs"}
	if nx+ny < minRunCount {
		return res
	}
	if nx > 0 {
		res.ScaleX = gx
	}
	if ny > 0 {
		res.ScaleY = gy
	}
	if g := gcd(gx, gy); g > 1 {
		res.Scale = g
	}
	return res
}

// rowRuns returns the GCD and number of horizontal runs >= minRunLength.
func rowRuns(img *raster.Image) (g, n int) {
	for y := 0; y < img.Height; y++ {
		run := 1
		prev := img.Key(img.Offset(0, y))
		for x := 1; x <= img.Width; x++ {
			if x < img.Width {
				if k := img.Key(img.Offset(x, y)); k == prev {
					run++
					continue
				} else {
					prev = k
				}
			}
			if run >= minRunLength {
				g = gcd(g, run)
				n++
			}
			run = 1
		}
	}
	return g, n
}

// colRuns is rowRuns along columns.
func colRuns(img *raster.Image) (g, n int) {
	for x := 0; x < img.Width; x++ {
		run := 1
		prev := img.Key(img.Offset(x, 0))
		for y := 1; y <= img.Height; y++ {
			if y < img.Height {
				if k := img.Key(img.Offset(x, y)); k == prev {
					run++
					continue
				} else {
					prev = k
				}
			}
			if run >= minRunLength {
				g = gcd(g, run)
				n++
			}
			run = 1
		}
	}
	return g, n
}
