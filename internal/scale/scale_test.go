package scale

import (
	"math/rand"
	"testing"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// checker builds an n×n grid of k×k blocks alternating between two colours.
func checker(n, k int) *raster.Image {
	img := raster.New(n*k, n*k)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			o := img.Offset(x, y)
			if (x/k+y/k)%2 == 0 {
				img.Pix[o], img.Pix[o+1], img.Pix[o+2] = 220, 40, 40
			} else {
				img.Pix[o], img.Pix[o+1], img.Pix[o+2] = 30, 60, 200
			}
			img.Pix[o+3] = 255
		}
	}
	return img
}

func noise(w, h int, seed int64) *raster.Image {
	rng := rand.New(rand.NewSource(seed))
	img := raster.New(w, h)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(rng.Intn(256))
		img.Pix[i+1] = uint8(rng.Intn(256))
		img.Pix[i+2] = uint8(rng.Intn(256))
		img.Pix[i+3] = 255
	}
	return img
}

func TestRuns_Checkerboard(t *testing.T) {
	r := Runs{}.Detect(checker(8, 4))
	if r.Scale != 4 {
		t.Errorf("scale: got %d, want 4", r.Scale)
	}
	if r.ScaleX != 4 || r.ScaleY != 4 {
		t.Errorf("per-axis: got %d,%d", r.ScaleX, r.ScaleY)
	}
}

func TestRuns_TooFewRuns(t *testing.T) {
	// 2 horizontal + 2 vertical runs, below the minimum of 10.
	img := raster.New(2, 2)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	if r := (Runs{}).Detect(img); r.Scale != 1 {
		t.Errorf("scale: got %d, want 1", r.Scale)
	}
}

func TestRuns_NoiseFallsBackToOne(t *testing.T) {
	if r := (Runs{}).Detect(noise(40, 40, 1)); r.Scale != 1 {
		t.Errorf("scale: got %d, want 1", r.Scale)
	}
}

func TestEdge_Checkerboard(t *testing.T) {
	r := Edge{}.Detect(checker(12, 8))
	if r.Scale != 8 {
		t.Errorf("scale: got %d (%+v), want 8", r.Scale, r)
	}
}

func TestEdge_FlatImage(t *testing.T) {
	img := raster.New(64, 64)
	if r := (Edge{}).Detect(img); r.Scale != 1 {
		t.Errorf("flat image scale: got %d", r.Scale)
	}
}

func TestTiled_Checkerboard(t *testing.T) {
	r := Tiled{}.Detect(checker(16, 8))
	if r.Scale != 8 {
		t.Errorf("scale: got %d (%+v), want 8", r.Scale, r)
	}
	if r.Method != "tiled" {
		t.Errorf("method: got %q", r.Method)
	}
}

func TestTiled_SmallImageUsesSingleRegion(t *testing.T) {
	r := Tiled{}.Detect(checker(4, 8))
	if r.Method != "tiled->edge" {
		t.Errorf("method: got %q", r.Method)
	}
}

func TestTiled_BlankImage(t *testing.T) {
	r := Tiled{}.Detect(raster.New(96, 96))
	if r.Scale != 1 || r.Method != "tiled->edge" {
		t.Errorf("blank: got %+v", r)
	}
}

func TestDetect_AutoPrefersRuns(t *testing.T) {
	r := Detect(checker(8, 4), Options{Method: MethodAuto, EdgeMethod: EdgeTiled})
	if r.Scale != 4 || r.Method != "runs" {
		t.Errorf("got %+v", r)
	}
}

func TestDetect_AutoFallsBackToEdge(t *testing.T) {
	r := Detect(noise(64, 64, 7), Options{Method: MethodAuto, EdgeMethod: EdgeLegacy})
	if r.Method != "runs->edge" {
		t.Errorf("method: got %q", r.Method)
	}
	if r.Scale < 1 {
		t.Errorf("scale must be >= 1, got %d", r.Scale)
	}
}

func TestDetect_EmptyImage(t *testing.T) {
	if r := Detect(raster.New(0, 0), Options{Method: MethodAuto}); r.Scale != 1 {
		t.Errorf("empty image: got %+v", r)
	}
}

func TestTilesCoverImage(t *testing.T) {
	rs := tiles(100, 60)
	if len(rs) != 9 {
		t.Fatalf("tiles: got %d", len(rs))
	}
	last := rs[8]
	if last.Max.X > 100 || last.Max.Y > 60 {
		t.Errorf("tile exceeds image: %v", last)
	}
	if rs[0].Dx() <= rs[1].Min.X-rs[0].Min.X {
		t.Errorf("neighbouring tiles do not overlap: %v %v", rs[0], rs[1])
	}
}

func TestParseMethod(t *testing.T) {
	if _, err := ParseMethod("edge"); err != nil {
		t.Error(err)
	}
	if _, err := ParseMethod("fft"); err == nil {
		t.Error("expected error for unknown method")
	}
	if _, err := ParseEdgeMethod("legacy"); err != nil {
		t.Error(err)
	}
}

func TestManual(t *testing.T) {
	if r := Manual(0); r.Scale != 1 || r.Method != "manual" {
		t.Errorf("got %+v", r)
	}
}

func spikes(n int, at ...int) []float64 {
	p := make([]float64, n)
	for _, i := range at {
		p[i] = 10
	}
	return p
}

func TestProfilePeriod(t *testing.T) {
	tests := []struct {
		name string
		p    []float64
		want int
	}{
		{"regular", spikes(40, 3, 9, 15, 21, 27, 33), 6},
		{"alternating around the period", spikes(40, 2, 7, 14, 19, 26, 31, 38), 6},
		{"jittered", spikes(48, 1, 9, 16, 24, 33, 41), 8},
		{"too few peaks", spikes(20, 4, 12), 1},
		{"flat", make([]float64, 20), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := profilePeriod(tt.p); got.period != tt.want {
				t.Errorf("period: got %d (%+v), want %d", got.period, got, tt.want)
			}
		})
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name string
		x, y axisPeriod
		want int
	}{
		{"agree", axisPeriod{6, 1}, axisPeriod{6, 1}, 6},
		{"off by one, x better supported", axisPeriod{6, 1}, axisPeriod{5, 0.6}, 6},
		{"off by one, y better supported", axisPeriod{7, 0.7}, axisPeriod{8, 0.9}, 8},
		{"off by one, tie", axisPeriod{5, 1}, axisPeriod{6, 1}, 6},
		{"multiple", axisPeriod{4, 1}, axisPeriod{8, 1}, 4},
		{"only x", axisPeriod{4, 1}, axisPeriod{1, 0}, 4},
		{"only y", axisPeriod{1, 0}, axisPeriod{3, 1}, 3},
		{"neither", axisPeriod{1, 0}, axisPeriod{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := combine(tt.x, tt.y, "edge")
			if r.Scale != tt.want || r.ScaleX != tt.x.period || r.ScaleY != tt.y.period {
				t.Errorf("got %+v, want scale %d", r, tt.want)
			}
		})
	}
}
