package quantize

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

func gradient(w, h int) *raster.Image {
	img := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := img.Offset(x, y)
			img.Pix[o] = uint8(x * 255 / (w - 1))
			img.Pix[o+1] = uint8(y * 255 / (h - 1))
			img.Pix[o+2] = uint8((x + y) * 255 / (w + h - 2))
			img.Pix[o+3] = 255
		}
	}
	return img
}

// stripes fills vertical bands with the given colours.
func stripes(w, h int, cols ...Color) *raster.Image {
	img := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cols[x*len(cols)/w]
			img.Set(x, y, c.NRGBA())
		}
	}
	return img
}

func TestQuantize_BoundsPalette(t *testing.T) {
	img := gradient(64, 64)
	for _, n := range []int{2, 5, 16, 64} {
		res := Quantize(img, n, nil)
		if len(res.Palette) > n {
			t.Errorf("max %d: palette has %d entries", n, len(res.Palette))
		}
		if got := Distinct(res.Image); got != res.ColorsUsed {
			t.Errorf("max %d: image has %d colours, ColorsUsed=%d", n, got, res.ColorsUsed)
		}
		if res.FellBack {
			t.Errorf("max %d: unexpected fallback", n)
		}
	}
}

func TestQuantize_FixedPaletteNotCounted(t *testing.T) {
	img := gradient(32, 32)
	fixed := []Color{{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255}}
	res := Quantize(img, 4, fixed)
	if len(res.Palette) > 4+len(fixed) {
		t.Errorf("palette size %d exceeds %d", len(res.Palette), 4+len(fixed))
	}
}

func TestQuantize_FixedColourUsedWhenNearest(t *testing.T) {
	red := Color{R: 250, G: 5, B: 5, A: 255}
	img := stripes(8, 2, Color{R: 10, G: 10, B: 10, A: 255}, red)
	res := Quantize(img, 1, []Color{{R: 255, A: 255}})
	if got := res.Image.At(7, 0); got.R != 255 || got.G != 0 {
		t.Errorf("red stripe not mapped to fixed red: %v", got)
	}
}

func TestQuantize_ExactColoursKept(t *testing.T) {
	a := Color{R: 12, G: 34, B: 56, A: 255}
	b := Color{R: 200, G: 100, B: 0, A: 255}
	img := stripes(10, 3, a, b)
	res := Quantize(img, 16, nil)
	if len(res.Palette) != 2 {
		t.Fatalf("palette: got %v", res.Palette)
	}
	for i := 0; i < len(img.Pix); i++ {
		if img.Pix[i] != res.Image.Pix[i] {
			t.Fatalf("pixel byte %d changed", i)
		}
	}
}

func TestQuantize_TransparentUntouched(t *testing.T) {
	img := gradient(8, 8)
	o := img.Offset(3, 3)
	img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = 1, 2, 3, 0
	res := Quantize(img, 2, nil)
	p := res.Image.Pix[o : o+4]
	if p[0] != 1 || p[1] != 2 || p[2] != 3 || p[3] != 0 {
		t.Errorf("transparent pixel modified: %v", p)
	}
}

type failing struct{ panics bool }

func (failing) Method() Method { return "failing" }

func (f failing) Palette(Histogram, int) ([]Color, error) {
	if f.panics {
		panic("boom")
	}
	return nil, errors.New("no convergence")
}

func TestQuantizeWith_FallsBackToUniform(t *testing.T) {
	img := gradient(16, 16)
	for _, q := range []Quantizer{failing{}, failing{panics: true}} {
		res := QuantizeWith(q, img, 8, nil)
		if !res.FellBack || res.Method != MethodUniform {
			t.Errorf("fallback not recorded: %+v", res.Method)
		}
		if len(res.Palette) > 8 {
			t.Errorf("uniform palette too large: %d", len(res.Palette))
		}
		for _, c := range res.Palette {
			for _, v := range []uint8{c.R, c.G, c.B} {
				if v != 0 && v != 255 {
					t.Fatalf("uniform level off-lattice: %v", c)
				}
			}
		}
	}
}

func TestUniformLevels(t *testing.T) {
	cases := map[int]int{2: 2, 8: 2, 26: 2, 27: 3, 64: 4, 256: 6}
	for in, want := range cases {
		if got := UniformLevels(in); got != want {
			t.Errorf("UniformLevels(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestUniform_RespectsTinyBudget(t *testing.T) {
	pal, err := Uniform{}.Palette(NewHistogram(gradient(16, 16)), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(pal) > 2 {
		t.Errorf("palette: got %d entries, want <= 2", len(pal))
	}
}

// quadrants fills the four quadrants of a size×size image with distinct
// colours.
func quadrants(size int) *raster.Image {
	cols := []Color{
		{R: 230, G: 30, B: 30, A: 255},
		{R: 30, G: 200, B: 40, A: 255},
		{R: 20, G: 40, B: 220, A: 255},
		{R: 240, G: 240, B: 240, A: 255},
	}
	img := raster.New(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, cols[(y*2/size)*2+x*2/size].NRGBA())
		}
	}
	return img
}

func TestAutoColorCount_FindsBlocks(t *testing.T) {
	img := quadrants(128)
	// Sprinkle low-amplitude noise so exact-colour counting would overshoot.
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(min(255, int(img.Pix[i])+rng.Intn(4)))
	}
	if got := AutoColorCount(img, 32, AutoOptions{}); got != 4 {
		t.Errorf("auto count: got %d, want 4", got)
	}
}

func TestAutoColorCount_Clamps(t *testing.T) {
	solidImg := stripes(16, 16, Color{R: 9, G: 9, B: 9, A: 255})
	if got := AutoColorCount(solidImg, 16, AutoOptions{}); got != 2 {
		t.Errorf("single colour: got %d, want 2", got)
	}
	if got := AutoColorCount(quadrants(128), 3, AutoOptions{}); got != 3 {
		t.Errorf("capped: got %d, want 3", got)
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#0a0B0c")
	if err != nil || c != (Color{R: 10, G: 11, B: 12, A: 255}) {
		t.Errorf("got %v, %v", c, err)
	}
	short, _ := ParseHex("f00")
	if short.R != 255 || short.G != 0 {
		t.Errorf("short form: %v", short)
	}
	if short.Hex() != "#ff0000" {
		t.Errorf("hex: %s", short.Hex())
	}
	if _, err := ParseHex("#12345"); err == nil {
		t.Error("expected error")
	}
}
