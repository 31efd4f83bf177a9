package ops

import (
	"image"
	"math"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
	"github.com/disintegration/imaging"
)

// Sobel kernels scaled by 1/4 so the absolute response of an 8-bit plane
// stays within [0, 255] and survives imaging's uint8 output unclipped.
var (
	sobelX = [9]float64{
		-0.25, 0, 0.25,
		-0.5, 0, 0.5,
		-0.25, 0, 0.25,
	}
	sobelY = [9]float64{
		-0.25, -0.5, -0.25,
		0, 0, 0,
		0.25, 0.5, 0.25,
	}
)

// Luma returns the alpha-weighted Rec.601 luma of an RGBA pixel. Fully
// transparent pixels read as black so transparent borders produce edges.
func Luma(r, g, b, a uint8) float64 {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return y * float64(a) / 255
}

// GrayImage renders the luma of rect as an opaque gray NRGBA image, the
// form the imaging filters operate on.
func GrayImage(img *raster.Image, rect image.Rectangle) *image.NRGBA {
	rect = rect.Intersect(image.Rect(0, 0, img.Width, img.Height))
	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			i := img.Offset(rect.Min.X+x, rect.Min.Y+y)
			v := uint8(math.Round(Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3])))
			o := out.PixOffset(x, y)
			out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = v, v, v, 255
		}
	}
	return out
}

// GrayStdDev returns the standard deviation of the luma of rect.
func GrayStdDev(img *raster.Image, rect image.Rectangle) float64 {
	rect = rect.Intersect(image.Rect(0, 0, img.Width, img.Height))
	n := float64(rect.Dx() * rect.Dy())
	if n == 0 {
		return 0
	}
	var sum, sq float64
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := img.Offset(x, y)
			v := Luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3])
			sum += v
			sq += v * v
		}
	}
	mean := sum / n
	return math.Sqrt(math.Max(0, sq/n-mean*mean))
}

// SobelProfiles computes |∂/∂x| and |∂/∂y| of the luma inside rect and
// collapses them into a column profile (length rect.Dx(), summed over rows)
// and a row profile (length rect.Dy(), summed over columns). Profiles are
// allocated from sc.
func SobelProfiles(sc *Scope, img *raster.Image, rect image.Rectangle) (cols, rows []float64) {
	gray := GrayImage(img, rect)
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	cols = sc.Floats(w)
	rows = sc.Floats(h)
	if w == 0 || h == 0 {
		return cols, rows
	}

	gx := imaging.Convolve3x3(gray, sobelX, &imaging.ConvolveOptions{Abs: true})
	gy := imaging.Convolve3x3(gray, sobelY, &imaging.ConvolveOptions{Abs: true})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*gx.Stride + x*4
			cols[x] += 4 * float64(gx.Pix[o])
			rows[y] += 4 * float64(gy.Pix[y*gy.Stride+x*4])
		}
	}
	return cols, rows
}
