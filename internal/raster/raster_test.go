package raster

import (
	"image"
	"image/color"
	"testing"
)

func TestFromImage_NRGBASubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	sub := src.SubImage(image.Rect(2, 3, 6, 7))

	m := FromImage(sub)
	if m.Width != 4 || m.Height != 4 {
		t.Fatalf("size: got %dx%d, want 4x4", m.Width, m.Height)
	}
	if c := m.At(0, 0); c.R != 2 || c.G != 3 {
		t.Errorf("origin pixel: got %v", c)
	}
	if c := m.At(3, 3); c.R != 5 || c.G != 6 {
		t.Errorf("last pixel: got %v", c)
	}
}

func TestFromImage_RGBAUnpremultiplies(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 64, G: 0, B: 0, A: 128})
	m := FromImage(src)
	c := m.At(0, 0)
	if c.A != 128 {
		t.Errorf("alpha: got %d", c.A)
	}
	if c.R < 126 || c.R > 128 {
		t.Errorf("red not un-premultiplied: got %d", c.R)
	}
}

func TestCropAndClone(t *testing.T) {
	m := New(5, 5)
	m.Set(3, 4, color.NRGBA{R: 9, A: 255})

	c := m.Crop(2, 2, 3, 3)
	if got := c.At(1, 2); got.R != 9 {
		t.Errorf("crop pixel: got %v", got)
	}

	d := c.Clone()
	d.Pix[0] = 200
	if c.Pix[0] == 200 {
		t.Error("clone aliases source")
	}
}

func TestHasTransparency(t *testing.T) {
	m := New(2, 2)
	if !m.HasTransparency() {
		t.Error("zeroed image should be transparent")
	}
	for i := 3; i < len(m.Pix); i += 4 {
		m.Pix[i] = 255
	}
	if m.HasTransparency() {
		t.Error("opaque image reported transparent")
	}
}
