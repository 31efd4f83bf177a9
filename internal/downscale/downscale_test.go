package downscale

import (
	"errors"
	"math"
	"testing"

	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

var (
	red  = [4]uint8{255, 0, 0, 255}
	blue = [4]uint8{0, 0, 255, 255}
)

func fill(img *raster.Image, x0, y0, w, h int, c [4]uint8) {
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			copy(img.Pix[img.Offset(x, y):], c[:])
		}
	}
}

// bordered builds a checkerboard of n×n cells of k pixels surrounded by a
// transparent border of b pixels.
func bordered(n, k, b int) *raster.Image {
	img := raster.New(n*k+2*b, n*k+2*b)
	for cy := 0; cy < n; cy++ {
		for cx := 0; cx < n; cx++ {
			c := red
			if (cx+cy)%2 == 1 {
				c = blue
			}
			fill(img, b+cx*k, b+cy*k, k, k, c)
		}
	}
	return img
}

func pixel(img *raster.Image, x, y int) [4]uint8 {
	o := img.Offset(x, y)
	return [4]uint8{img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3]}
}

func TestAlign_TransparentBorder(t *testing.T) {
	img := bordered(8, 4, 2)
	off := Align(img, 4)
	if off != (Offset{X: 2, Y: 2}) {
		t.Fatalf("offset: got %+v, want {2 2}", off)
	}
	cropped := Crop(img, off, 4)
	if cropped.Width != 32 || cropped.Height != 32 {
		t.Errorf("crop: got %dx%d, want 32x32", cropped.Width, cropped.Height)
	}
	if pixel(cropped, 0, 0) != red {
		t.Errorf("crop origin: got %v", pixel(cropped, 0, 0))
	}
}

func TestAlign_AlreadyAligned(t *testing.T) {
	if off := Align(bordered(6, 4, 0), 4); off != (Offset{}) {
		t.Errorf("offset: got %+v, want zero", off)
	}
}

func TestAlign_ScaleTwoOddBorder(t *testing.T) {
	for _, b := range []int{1, 3} {
		img := bordered(6, 2, b)
		want := Offset{X: b % 2, Y: b % 2}
		if off := Align(img, 2); off != want {
			t.Errorf("border %d: got %+v, want %+v", b, off, want)
		}
	}
	if off := Align(bordered(6, 2, 2), 2); off != (Offset{}) {
		t.Errorf("even border: got %+v, want zero", off)
	}
}

func TestBestPhase_TieUsesSteps(t *testing.T) {
	p := []float64{5, 5, 5, 5, 5, 5}
	steps := []float64{0, 9, 0, 9, 0, 9}
	if got := bestPhase(p, steps, 2); got != 1 {
		t.Errorf("tied scores: got phase %d, want 1", got)
	}
	if got := bestPhase(p, make([]float64, len(p)), 2); got != 0 {
		t.Errorf("full tie: got phase %d, want 0", got)
	}
	p = []float64{0, 9, 9, 0, 9, 9}
	steps = []float64{0, 0, 50, 0, 0, 50}
	if got := bestPhase(p, steps, 3); got != 2 {
		t.Errorf("sobel score decides: got phase %d, want 2", got)
	}
}

func TestAlign_TooSmallSkips(t *testing.T) {
	img := raster.New(3, 3)
	if off := Align(img, 4); off != (Offset{}) {
		t.Errorf("offset: got %+v", off)
	}
}

func TestOutputSizeProperty(t *testing.T) {
	img := bordered(5, 3, 1) // 17×17
	for s := 1; s <= 6; s++ {
		for ox := 0; ox < s; ox++ {
			off := Offset{X: ox, Y: (ox + 1) % s}
			c := Crop(img, off, s)
			st, _ := New(MethodMean, Options{})
			out, err := st.Downscale(c, s)
			if err != nil {
				t.Fatal(err)
			}
			wantW := (img.Width - off.X) / s
			wantH := (img.Height - off.Y) / s
			if out.Width != wantW || out.Height != wantH {
				t.Errorf("s=%d off=%+v: got %dx%d, want %dx%d", s, off, out.Width, out.Height, wantW, wantH)
			}
		}
	}
}

func TestBlockStrategies_Checkerboard(t *testing.T) {
	img := bordered(4, 4, 0)
	for _, m := range []Method{MethodNearest, MethodMedian, MethodMode, MethodMean, MethodDominant} {
		st, err := New(m, Options{})
		if err != nil {
			t.Fatal(err)
		}
		out, err := st.Downscale(img, 4)
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if out.Width != 4 || out.Height != 4 {
			t.Fatalf("%s: size %dx%d", m, out.Width, out.Height)
		}
		if pixel(out, 0, 0) != red || pixel(out, 1, 0) != blue {
			t.Errorf("%s: got %v %v", m, pixel(out, 0, 0), pixel(out, 1, 0))
		}
	}
}

// mixedBlock is a 4×4 block with 5 red, 3 blue and 8 transparent pixels.
func mixedBlock() *raster.Image {
	img := raster.New(4, 4)
	n := 0
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			switch {
			case n < 5:
				fill(img, x, y, 1, 1, red)
			case n < 8:
				fill(img, x, y, 1, 1, blue)
			}
			n++
		}
	}
	return img
}

func TestDominant_PicksMajority(t *testing.T) {
	st, _ := New(MethodDominant, Options{DominantThreshold: 0.15})
	out, err := st.Downscale(mixedBlock(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := pixel(out, 0, 0); got != red {
		t.Errorf("got %v, want red", got)
	}
}

func TestDominant_FallsBackToMean(t *testing.T) {
	st, _ := New(MethodDominant, Options{DominantThreshold: 0.7})
	out, err := st.Downscale(mixedBlock(), 4)
	if err != nil {
		t.Fatal(err)
	}
	want := [4]uint8{uint8((5*255 + 4) / 8), 0, uint8((3*255 + 4) / 8), 255}
	if got := pixel(out, 0, 0); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMedian_AlphaIsBlockMedian(t *testing.T) {
	img := raster.New(2, 2)
	fill(img, 0, 0, 1, 1, red)
	st, _ := New(MethodMedian, Options{})
	out, _ := st.Downscale(img, 2)
	if got := pixel(out, 0, 0); got[3] != 0 {
		t.Errorf("alpha: got %d, want 0 (3 of 4 samples transparent)", got[3])
	}
	if got := pixel(out, 0, 0); got[0] != 255 {
		t.Errorf("colour taken from opaque pixels only: got %v", got)
	}
}

func TestNew_ContentAdaptiveNeedsSVD(t *testing.T) {
	if _, err := New(MethodContentAdaptive, Options{}); !errors.Is(err, ErrSVDUnavailable) {
		t.Errorf("got %v, want ErrSVDUnavailable", err)
	}
	if _, err := (ContentAdaptive{}).Downscale(raster.New(4, 4), 2); !errors.Is(err, ErrSVDUnavailable) {
		t.Errorf("direct call: got %v", err)
	}
}

func TestContentAdaptive_UniformImage(t *testing.T) {
	c := [4]uint8{37, 142, 201, 255}
	for _, s := range []int{2, 3, 4, 8} {
		n := 6 * s
		img := raster.New(n, n)
		fill(img, 0, 0, n, n, c)

		st, err := New(MethodContentAdaptive, Options{SVD: ops.GonumSVD{}})
		if err != nil {
			t.Fatal(err)
		}
		out, err := st.Downscale(img, s)
		if err != nil {
			t.Fatal(err)
		}
		if out.Width != 6 || out.Height != 6 {
			t.Fatalf("s=%d: size %dx%d", s, out.Width, out.Height)
		}
		for y := 0; y < 6; y++ {
			for x := 0; x < 6; x++ {
				if got := pixel(out, x, y); got != c {
					t.Fatalf("s=%d: pixel (%d,%d) = %v, want %v", s, x, y, got, c)
				}
			}
		}
	}
}

func TestContentAdaptive_KeepsHardEdges(t *testing.T) {
	img := bordered(4, 6, 0)
	st, _ := New(MethodContentAdaptive, Options{SVD: ops.GonumSVD{}})
	out, err := st.Downscale(img, 6)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := red
			if (x+y)%2 == 1 {
				want = blue
			}
			if got := pixel(out, x, y); got != want {
				t.Errorf("(%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

type brokenSVD struct{}

func (brokenSVD) Factorize(ops.Mat2) (ops.Mat2, [2]float64, ops.Mat2, bool) {
	return ops.Mat2{}, [2]float64{}, ops.Mat2{}, false
}

func TestContentAdaptive_SurvivesFailedFactorization(t *testing.T) {
	c := [4]uint8{90, 90, 90, 255}
	img := raster.New(8, 8)
	fill(img, 0, 0, 8, 8, c)
	out, err := ContentAdaptive{SVD: brokenSVD{}}.Downscale(img, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := pixel(out, 1, 1); got != c {
		t.Errorf("got %v", got)
	}
}

func TestKernelClamp(t *testing.T) {
	prev := ops.Mat2{2, 0, 0, 2}
	k := kernel{cov: prev, inv: prev.Inverse(eps)}
	k.clamp(ops.Mat2{9, 1, 1, 4}, brokenSVD{}, 3)
	if k.cov != prev || k.inv != prev.Inverse(eps) {
		t.Errorf("failed factorization: cov %v inv %v, want previous %v", k.cov, k.inv, prev)
	}

	k.clamp(ops.Mat2{100, 0, 0, 0.01}, ops.GonumSVD{}, 3)
	want := ops.Mat2{3, 0, 0, minSingular}
	for i := range want {
		if math.Abs(k.cov[i]-want[i]) > 1e-9 {
			t.Fatalf("clamped cov %v, want %v", k.cov, want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods {
		if got, err := ParseMethod(string(m)); err != nil || got != m {
			t.Errorf("%s: got %q, %v", m, got, err)
		}
	}
	if _, err := ParseMethod("bicubic"); err == nil {
		t.Error("expected error")
	}
}

func TestPreservesPalette(t *testing.T) {
	for _, m := range Methods {
		st, err := New(m, Options{SVD: ops.GonumSVD{}})
		if err != nil {
			t.Fatal(err)
		}
		if want := m == MethodNearest; st.PreservesPalette() != want {
			t.Errorf("%s: PreservesPalette=%v", m, st.PreservesPalette())
		}
	}
}

func benchmarkStrategy(b *testing.B, m Method) {
	img := bordered(32, 4, 0)
	st, err := New(m, Options{SVD: ops.GonumSVD{}})
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := st.Downscale(img, 4); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDominant(b *testing.B)        { benchmarkStrategy(b, MethodDominant) }
func BenchmarkContentAdaptive(b *testing.B) { benchmarkStrategy(b, MethodContentAdaptive) }
