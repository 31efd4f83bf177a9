package ops

import (
	"fmt"
	"image"
	"math"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// GaussianBlur blurs all four channels with standard deviation sigma.
func GaussianBlur(img *raster.Image, sigma float64) (*raster.Image, error) {
	if sigma <= 0 || math.IsNaN(sigma) {
		return nil, fmt.Errorf("gaussian blur: sigma must be > 0, got %v", sigma)
	}
	return raster.FromImage(imaging.Blur(img.NRGBA(), sigma)), nil
}

// ResizeArea resamples to w×h with a box filter. For integer reductions this
// averages each source block exactly, matching area interpolation.
func ResizeArea(img *raster.Image, w, h int) *raster.Image {
	if w == img.Width && h == img.Height {
		return img.Clone()
	}
	return raster.FromImage(imaging.Resize(img.NRGBA(), w, h, imaging.Box))
}

// FitArea shrinks img so its longer edge is at most maxEdge, keeping the
// aspect ratio. Images already small enough are cloned.
func FitArea(img *raster.Image, maxEdge int) *raster.Image {
	if img.Width <= maxEdge && img.Height <= maxEdge {
		return img.Clone()
	}
	return raster.FromImage(imaging.Fit(img.NRGBA(), maxEdge, maxEdge, imaging.Box))
}

// ResizeAlpha area-resamples the alpha channel alone to w×h and returns it
// as a plane of bytes. Colour is ignored so fully transparent pixels still
// contribute their zero alpha.
func ResizeAlpha(img *raster.Image, w, h int) []byte {
	plane := raster.New(img.Width, img.Height)
	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		plane.Pix[i], plane.Pix[i+1], plane.Pix[i+2], plane.Pix[i+3] = a, a, a, 255
	}
	small := ResizeArea(plane, w, h)
	out := make([]byte, w*h)
	for i := range out {
		out[i] = small.Pix[i*4]
	}
	return out
}

// MedianFilter replaces every pixel with the neighbour of median luma in
// a size×size window, replicating edge pixels. Whole pixels are picked, so
// no new colours appear. Alpha is copied unchanged. size must be odd and in
// [3, 15].
func MedianFilter(img *raster.Image, size int) (*raster.Image, error) {
	if size < 3 || size > 15 || size%2 == 0 {
		return nil, fmt.Errorf("median filter: size must be odd in [3,15], got %d", size)
	}
	if img.Width == 0 || img.Height == 0 {
		return img.Clone(), nil
	}
	// effect only copies whole pixels around, so the straight-alpha bytes
	// can travel in an RGBA container untouched.
	src := &image.RGBA{Pix: img.Pix, Stride: img.Width * 4, Rect: image.Rect(0, 0, img.Width, img.Height)}
	med := effect.Median(src, float64(size/2))
	out := &raster.Image{Width: img.Width, Height: img.Height, Pix: med.Pix}
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = img.Pix[i]
	}
	return out, nil
}

// Erode replaces every channel value with the minimum over a size×size
// window anchored at ((size-1)/2, (size-1)/2).
func Erode(img *raster.Image, size int) *raster.Image {
	a := (size - 1) / 2
	return morph(img, -a, size-1-a, func(cur, v uint8) bool { return v < cur })
}

// Dilate replaces every channel value with the maximum over the reflected
// window used by Erode, so Dilate(Erode(x)) is a proper opening.
func Dilate(img *raster.Image, size int) *raster.Image {
	a := (size - 1) / 2
	return morph(img, -(size - 1 - a), a, func(cur, v uint8) bool { return v > cur })
}

// Open is erosion followed by dilation.
func Open(img *raster.Image, size int) *raster.Image { return Dilate(Erode(img, size), size) }

// Close is dilation followed by erosion.
func Close(img *raster.Image, size int) *raster.Image { return Erode(Dilate(img, size), size) }

func morph(img *raster.Image, lo, hi int, better func(cur, v uint8) bool) *raster.Image {
	out := raster.New(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := img.Offset(x, y)
			for c := 0; c < 4; c++ {
				best := img.Pix[o+c]
				for dy := lo; dy <= hi; dy++ {
					sy := clampInt(y+dy, 0, img.Height-1)
					for dx := lo; dx <= hi; dx++ {
						sx := clampInt(x+dx, 0, img.Width-1)
						if v := img.Pix[img.Offset(sx, sy)+c]; better(best, v) {
							best = v
						}
					}
				}
				out.Pix[o+c] = best
			}
		}
	}
	return out
}

// Bilateral applies an edge-preserving bilateral filter of diameter d to the
// RGB channels. Alpha is copied unchanged.
func Bilateral(img *raster.Image, d int, sigmaColor, sigmaSpace float64) (*raster.Image, error) {
	if d < 1 || d > 31 {
		return nil, fmt.Errorf("bilateral filter: diameter must be in [1,31], got %d", d)
	}
	if sigmaColor <= 0 || sigmaSpace <= 0 {
		return nil, fmt.Errorf("bilateral filter: sigmas must be > 0 (color=%v space=%v)", sigmaColor, sigmaSpace)
	}
	r := d / 2
	spaceCoef := -0.5 / (sigmaSpace * sigmaSpace)
	colorCoef := -0.5 / (sigmaColor * sigmaColor)

	spatial := make([]float64, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			spatial[(dy+r)*(2*r+1)+dx+r] = math.Exp(float64(dx*dx+dy*dy) * spaceCoef)
		}
	}
	var colorLUT [256 * 3]float64
	for i := range colorLUT {
		colorLUT[i] = math.Exp(float64(i*i) * colorCoef)
	}

	out := img.Clone()
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := img.Offset(x, y)
			cr, cg, cb := int(img.Pix[o]), int(img.Pix[o+1]), int(img.Pix[o+2])
			var sr, sg, sb, sw float64
			for dy := -r; dy <= r; dy++ {
				sy := clampInt(y+dy, 0, img.Height-1)
				for dx := -r; dx <= r; dx++ {
					sx := clampInt(x+dx, 0, img.Width-1)
					p := img.Offset(sx, sy)
					pr, pg, pb := int(img.Pix[p]), int(img.Pix[p+1]), int(img.Pix[p+2])
					diff := absInt(pr-cr) + absInt(pg-cg) + absInt(pb-cb)
					w := spatial[(dy+r)*(2*r+1)+dx+r] * colorLUT[diff]
					sr += w * float64(pr)
					sg += w * float64(pg)
					sb += w * float64(pb)
					sw += w
				}
			}
			out.Pix[o] = clampByte(sr / sw)
			out.Pix[o+1] = clampByte(sg / sw)
			out.Pix[o+2] = clampByte(sb / sw)
		}
	}
	return out, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
