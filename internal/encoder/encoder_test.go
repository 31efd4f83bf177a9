package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/HugoSmits86/nativewebp"
)

func sprite() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if (x+y)%3 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
			}
		}
	}
	return img
}

func samePixels(t *testing.T, got image.Image, want *image.NRGBA) {
	t.Helper()
	b := want.Bounds()
	if got.Bounds() != b {
		t.Fatalf("bounds: got %v, want %v", got.Bounds(), b)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.NRGBAModel.Convert(got.At(x, y)).(color.NRGBA)
			if w := want.NRGBAAt(x, y); g != w {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, g, w)
			}
		}
	}
}

func TestPNGIsLossless(t *testing.T) {
	src := sprite()
	data, err := (&PNGEncoder{}).Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	samePixels(t, got, src)
}

func TestWebPIsLossless(t *testing.T) {
	src := sprite()
	data, err := (&WebPEncoder{}).Encode(src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := nativewebp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	samePixels(t, got, src)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Get("PNG") == nil || r.Get("webp") == nil {
		t.Errorf("missing encoders: %s", r)
	}
	if _, err := r.Lookup("jpeg"); err == nil {
		t.Error("jpeg must not be available")
	}
	if got := r.Available(); len(got) != 2 || got[0] != "png" {
		t.Errorf("available: %v", got)
	}
}

func TestPNGUsesPaletteWhenExact(t *testing.T) {
	data, err := (&PNGEncoder{}).Encode(sprite())
	if err != nil {
		t.Fatal(err)
	}
	got, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	p, ok := got.(*image.Paletted)
	if !ok {
		t.Fatalf("decoded %T, want *image.Paletted", got)
	}
	if len(p.Palette) != 2 {
		t.Errorf("palette size: %d", len(p.Palette))
	}
}

func TestPNGFallsBackToTruecolor(t *testing.T) {
	soft := sprite()
	soft.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 10, B: 10, A: 100})

	many := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < 400; i++ {
		many.SetNRGBA(i%20, i/20, color.NRGBA{R: uint8(i), G: uint8(i >> 8), B: 7, A: 255})
	}

	for name, src := range map[string]*image.NRGBA{"partial alpha": soft, "400 colours": many} {
		data, err := (&PNGEncoder{}).Encode(src)
		if err != nil {
			t.Fatal(err)
		}
		got, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := got.(*image.Paletted); ok {
			t.Errorf("%s: encoded as paletted", name)
		}
		samePixels(t, got, src)
	}
}

type rawEncoder struct{}

func (rawEncoder) Format() string                         { return "RAW" }
func (rawEncoder) Extension() string                      { return "raw" }
func (rawEncoder) Encode(img image.Image) ([]byte, error) { return nil, nil }

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	r.Register(rawEncoder{})
	r.Register(rawEncoder{})
	if got := r.Available(); len(got) != 3 || got[2] != "raw" {
		t.Errorf("available: %v", got)
	}
	if r.Get("raw") == nil {
		t.Error("raw not found")
	}
}
