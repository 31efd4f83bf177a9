package cleanup

import (
	"math/rand"
	"testing"

	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

func set(img *raster.Image, x, y int, r, g, b, a uint8) {
	o := img.Offset(x, y)
	img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = r, g, b, a
}

func alphaAt(img *raster.Image, x, y int) uint8 {
	return img.Pix[img.Offset(x, y)+3]
}

func TestFinalize_NoPartialAlpha(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := raster.New(16, 16)
	rng.Read(img.Pix)

	Finalize(img)

	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		if a != 0 && a != 255 {
			t.Fatalf("pixel %d: alpha %d", i/4, a)
		}
		if a == 0 && (img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0) {
			t.Fatalf("pixel %d: transparent but rgb %v", i/4, img.Pix[i:i+3])
		}
	}
}

func TestFinalize_Threshold(t *testing.T) {
	img := raster.New(2, 1)
	set(img, 0, 0, 10, 20, 30, 127)
	set(img, 1, 0, 10, 20, 30, 128)
	Finalize(img)
	if alphaAt(img, 0, 0) != 0 || img.Pix[0] != 0 {
		t.Errorf("alpha 127 should clear, got %v", img.Pix[0:4])
	}
	if alphaAt(img, 1, 0) != 255 || img.Pix[4] != 10 {
		t.Errorf("alpha 128 should become opaque, got %v", img.Pix[4:8])
	}
}

func TestBinarizeAlpha(t *testing.T) {
	img := raster.New(3, 1)
	set(img, 0, 0, 1, 2, 3, 49)
	set(img, 1, 0, 1, 2, 3, 50)
	set(img, 2, 0, 1, 2, 3, 200)
	BinarizeAlpha(img, 50)
	want := []uint8{0, 255, 255}
	for x, a := range want {
		if got := alphaAt(img, x, 0); got != a {
			t.Errorf("x=%d: alpha %d, want %d", x, got, a)
		}
	}
	if img.Pix[0] != 1 {
		t.Error("colour should be untouched")
	}
}

func TestJaggy_RemovesOrphanDiagonal(t *testing.T) {
	img := raster.New(5, 5)
	// A solid 2×2 blob with one pixel hanging off its corner.
	set(img, 1, 1, 9, 9, 9, 255)
	set(img, 2, 1, 9, 9, 9, 255)
	set(img, 1, 2, 9, 9, 9, 255)
	set(img, 2, 2, 9, 9, 9, 255)
	set(img, 3, 3, 9, 9, 9, 255)

	if n := Jaggy(img); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if alphaAt(img, 3, 3) != 0 {
		t.Error("orphan pixel survived")
	}
	if alphaAt(img, 2, 2) != 255 {
		t.Error("blob pixel was removed")
	}
}

func TestJaggy_KeepsDiagonalLines(t *testing.T) {
	img := raster.New(5, 5)
	for i := 0; i < 5; i++ {
		set(img, i, i, 1, 1, 1, 255)
	}
	// The two ends of a diagonal line each have exactly one diagonal
	// neighbour; the interior pixels have two.
	if n := Jaggy(img); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	for i := 1; i < 4; i++ {
		if alphaAt(img, i, i) != 255 {
			t.Errorf("interior pixel %d removed", i)
		}
	}
}

func TestJaggy_SnapshotIsOrderIndependent(t *testing.T) {
	// Two pixels that are each other's only diagonal neighbour: with a
	// snapshot both go; a mutating scan would keep the second one.
	img := raster.New(4, 4)
	set(img, 1, 1, 5, 5, 5, 255)
	set(img, 2, 2, 5, 5, 5, 255)
	if n := Jaggy(img); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
}

func TestJaggy_IsolatedPixelKept(t *testing.T) {
	img := raster.New(3, 3)
	set(img, 1, 1, 5, 5, 5, 255)
	if n := Jaggy(img); n != 0 {
		t.Errorf("removed %d, want 0", n)
	}
}

func TestMorph_RemovesSpeckAndFillsGap(t *testing.T) {
	img := raster.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			set(img, x, y, 200, 200, 200, 255)
		}
	}
	set(img, 4, 4, 0, 0, 0, 255)

	Morph(img)

	if got := img.Pix[img.Offset(4, 4)]; got != 200 {
		t.Errorf("dark speck survived: %d", got)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 200 || img.Pix[i+3] != 255 {
			t.Fatalf("pixel %d changed: %v", i/4, img.Pix[i:i+4])
		}
	}
}

func TestMorph_Empty(t *testing.T) {
	Morph(raster.New(0, 0))
}
