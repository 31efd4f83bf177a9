//go:build ignore

// gen_fixtures creates upscaled pixel-art images for the E2E smoke test.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
)

var palette = []color.NRGBA{
	{R: 26, G: 28, B: 44, A: 255},
	{R: 93, G: 39, B: 93, A: 255},
	{R: 177, G: 62, B: 83, A: 255},
	{R: 239, G: 125, B: 87, A: 255},
	{R: 255, G: 205, B: 117, A: 255},
	{R: 167, G: 240, B: 112, A: 255},
	{R: 56, G: 183, B: 100, A: 255},
	{R: 37, G: 113, B: 121, A: 255},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	os.MkdirAll(filepath.Join(dir, "sprites"), 0o755)
	rng := rand.New(rand.NewSource(1))

	// Clean nearest-neighbour upscales at several scales.
	for i, s := range []int{2, 3, 4} {
		art := sprite(rng, 16, 16)
		name := fmt.Sprintf("sprite-%d.png", i+1)
		writePNG(filepath.Join(dir, "sprites", name), upscale(art, s, 0))
	}

	// Misaligned grid with a transparent margin.
	writePNG(filepath.Join(dir, "offset.png"), upscale(sprite(rng, 24, 12), 5, 3))

	// Lossy JPEG of an 8x upscale; block edges are no longer exact.
	writeJPEG(filepath.Join(dir, "lossy.jpg"), upscale(sprite(rng, 20, 20), 8, 0))

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 5 fixtures in %s\n", dir)
}

// sprite draws a symmetric blob on a transparent background.
func sprite(rng *rand.Rand, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 1; y < h-1; y++ {
		for x := 1; x <= w/2; x++ {
			if rng.Intn(3) == 0 {
				continue
			}
			c := palette[rng.Intn(len(palette))]
			img.SetNRGBA(x, y, c)
			img.SetNRGBA(w-1-x, y, c)
		}
	}
	return img
}

// upscale repeats every pixel s×s times inside a transparent margin.
func upscale(src *image.NRGBA, s, margin int) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*s+2*margin, b.Dy()*s+2*margin))
	for y := 0; y < b.Dy()*s; y++ {
		for x := 0; x < b.Dx()*s; x++ {
			dst.SetNRGBA(margin+x, margin+y, src.NRGBAAt(x/s, y/s))
		}
	}
	return dst
}

func writePNG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	png.Encode(f, img)
}

func writeJPEG(path string, img image.Image) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	jpeg.Encode(f, img, &jpeg.Options{Quality: 85})
}
