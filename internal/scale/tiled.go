package scale

import (
	"image"

	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

const (
	tileGrid     = 3
	tileOverlap  = 0.25
	minTiledEdge = 48
	blankTileStd = 4.0
)

// Tiled runs the edge strategy on a 3×3 grid of overlapping tiles and
// returns the most common per-tile scale. Local periodicity survives even
// when a single global profile is dominated by one busy region.
type Tiled struct{}

func (Tiled) Name() string { return "tiled" }

func (Tiled) Detect(img *raster.Image) Result {
	if img.Pixels() > largeImagePixels {
		r := Runs{}.Detect(img)
		r.Method = "tiled->runs"
		return r
	}
	if img.Width < minTiledEdge || img.Height < minTiledEdge {
		r := Edge{}.Detect(img)
		r.Method = "tiled->edge"
		return r
	}

	var xs, ys, scales []int
	for _, rect := range tiles(img.Width, img.Height) {
		if ops.GrayStdDev(img, rect) < blankTileStd {
			continue
		}
		x, y := detectRegion(img, rect)
		xs = append(xs, x.period)
		ys = append(ys, y.period)
		if c := combine(x, y, ""); c.Scale > 1 {
			scales = append(scales, c.Scale)
		}
	}
	if len(xs) == 0 {
		r := Edge{}.Detect(img)
		r.Method = "tiled->edge"
		return r
	}

	res := Result{Scale: 1, ScaleX: mode(xs), ScaleY: mode(ys), Method: "tiled"}
	if len(scales) > 0 {
		res.Scale = mode(scales)
	}
	return res
}

// tiles splits a w×h image into a 3×3 grid whose neighbouring tiles
// overlap by 25% of the tile size.
func tiles(w, h int) []image.Rectangle {
	tw := int(float64(w) / (tileGrid - (tileGrid-1)*tileOverlap))
	th := int(float64(h) / (tileGrid - (tileGrid-1)*tileOverlap))
	stepX := (w - tw) / (tileGrid - 1)
	stepY := (h - th) / (tileGrid - 1)

	out := make([]image.Rectangle, 0, tileGrid*tileGrid)
	for ty := 0; ty < tileGrid; ty++ {
		for tx := 0; tx < tileGrid; tx++ {
			x0, y0 := tx*stepX, ty*stepY
			out = append(out, image.Rect(x0, y0, x0+tw, y0+th))
		}
	}
	return out
}
