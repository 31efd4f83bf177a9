// Package raster holds the RGBA8 pixel buffer that every pipeline stage
// consumes and produces.
//
// Pixels are interleaved, non-premultiplied RGBA, row-major with the origin
// at the top-left corner. A stage owns the Image it receives; stages that
// change dimensions allocate a new Image instead of aliasing the input.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Image is an interleaved RGBA8 raster.
type Image struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*4
}

// New allocates a fully transparent image.
func New(w, h int) *Image {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("raster: negative size %dx%d", w, h))
	}
	return &Image{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

// FromImage copies any image.Image into a new raster, un-premultiplying
// where the source colour model requires it.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	dst := New(b.Dx(), b.Dy())

	// Fast path: NRGBA already has the right layout.
	if n, ok := src.(*image.NRGBA); ok {
		for y := 0; y < dst.Height; y++ {
			row := n.Pix[(y+b.Min.Y-n.Rect.Min.Y)*n.Stride+(b.Min.X-n.Rect.Min.X)*4:]
			copy(dst.Pix[y*dst.Width*4:(y+1)*dst.Width*4], row[:dst.Width*4])
		}
		return dst
	}

	tmp := image.NewNRGBA(image.Rect(0, 0, dst.Width, dst.Height))
	draw.Draw(tmp, tmp.Rect, src, b.Min, draw.Src)
	copy(dst.Pix, tmp.Pix)
	return dst
}

// NRGBA returns a copy of the raster as *image.NRGBA.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	copy(out.Pix, m.Pix)
	return out
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{Width: m.Width, Height: m.Height, Pix: make([]byte, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// Offset returns the index of pixel (x, y) in Pix.
func (m *Image) Offset(x, y int) int {
	return (y*m.Width + x) * 4
}

// At returns the pixel at (x, y).
func (m *Image) At(x, y int) color.NRGBA {
	i := m.Offset(x, y)
	return color.NRGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: m.Pix[i+3]}
}

// Set writes the pixel at (x, y).
func (m *Image) Set(x, y int, c color.NRGBA) {
	i := m.Offset(x, y)
	m.Pix[i] = c.R
	m.Pix[i+1] = c.G
	m.Pix[i+2] = c.B
	m.Pix[i+3] = c.A
}

// Key packs the pixel at byte offset i into a single comparable value.
func (m *Image) Key(i int) uint32 {
	return uint32(m.Pix[i])<<24 | uint32(m.Pix[i+1])<<16 | uint32(m.Pix[i+2])<<8 | uint32(m.Pix[i+3])
}

// Crop copies the rectangle [x, x+w) × [y, y+h) into a new image.
// The rectangle must lie within the image.
func (m *Image) Crop(x, y, w, h int) *Image {
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > m.Width || y+h > m.Height {
		panic(fmt.Sprintf("raster: crop %d,%d %dx%d outside %dx%d", x, y, w, h, m.Width, m.Height))
	}
	out := New(w, h)
	for row := 0; row < h; row++ {
		src := m.Offset(x, y+row)
		copy(out.Pix[row*w*4:(row+1)*w*4], m.Pix[src:src+w*4])
	}
	return out
}

// HasTransparency reports whether any pixel is not fully opaque.
func (m *Image) HasTransparency() bool {
	for i := 3; i < len(m.Pix); i += 4 {
		if m.Pix[i] != 255 {
			return true
		}
	}
	return false
}

// Pixels returns Width*Height.
func (m *Image) Pixels() int { return m.Width * m.Height }
