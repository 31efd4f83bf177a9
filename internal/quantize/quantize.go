// Package quantize reduces an image to a bounded palette.
//
// The default strategy is a variance-driven median cut. Clustering problems
// never reach the caller: Quantize falls back to uniform per-channel level
// reduction and records the fallback in the Result.
package quantize

import (
	"errors"
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"github.com/AnyUserName/pixelsnap-cli/internal/logging"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Color is one palette entry.
type Color struct {
	R, G, B, A uint8
}

// Hex formats the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// NRGBA converts the entry to a standard library colour.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// ParseHex parses #rgb, #rrggbb or #rrggbbaa (leading # optional).
func ParseHex(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("invalid hex colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
	}
	if len(h) == 6 {
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// HexPalette formats a palette as #rrggbb strings.
func HexPalette(p []Color) []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// Method selects the palette builder.
type Method string

const (
	MethodMedianCut Method = "median-cut"
	MethodUniform   Method = "uniform"
)

// Quantizer builds a palette of at most maxColors entries from a colour
// histogram.
type Quantizer interface {
	Method() Method
	Palette(h Histogram, maxColors int) ([]Color, error)
}

// opaqueAlpha is the alpha at or above which a pixel takes part in
// quantization. Lower alpha pixels keep their value untouched.
const opaqueAlpha = 128

// Result is the output of Quantize.
type Result struct {
	Image *raster.Image
	// Palette holds the entries actually used, most frequent first.
	Palette    []Color
	ColorsUsed int
	Method     Method
	FellBack   bool
}

var errEmptyPalette = errors.New("quantize: clustering produced no colours")

// Quantize maps img onto a palette of at most maxColors entries plus the
// entries of fixed, which are always available to the mapping. The input is
// not modified.
func Quantize(img *raster.Image, maxColors int, fixed []Color) Result {
	return QuantizeWith(MedianCut{}, img, maxColors, fixed)
}

// QuantizeWith is Quantize with an explicit primary strategy. Any error from
// q degrades to Uniform.
func QuantizeWith(q Quantizer, img *raster.Image, maxColors int, fixed []Color) Result {
	if maxColors < 1 {
		maxColors = 1
	}
	hist := NewHistogram(img)
	res := Result{Method: q.Method()}

	pal, err := safePalette(q, hist, maxColors)
	if err == nil && len(pal) == 0 && hist.Len() > 0 {
		err = errEmptyPalette
	}
	if err != nil {
		logging.Logger().Warn("quantizer fell back to uniform levels",
			"method", q.Method(), "max_colors", maxColors, "err", err)
		pal, _ = Uniform{}.Palette(hist, maxColors)
		res.Method = MethodUniform
		res.FellBack = true
	}

	pal = appendFixed(pal, fixed)
	res.Image, res.Palette = apply(img, pal)
	res.ColorsUsed = len(res.Palette)
	return res
}

// safePalette runs q, converting a panic inside the clustering into an
// error so the caller can fall back.
func safePalette(q Quantizer, h Histogram, maxColors int) (pal []Color, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("quantize: %s panicked: %v", q.Method(), r)
		}
	}()
	return q.Palette(h, maxColors)
}

func appendFixed(pal, fixed []Color) []Color {
	seen := make(map[Color]bool, len(pal)+len(fixed))
	out := make([]Color, 0, len(pal)+len(fixed))
	for _, c := range pal {
		c.A = 255
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range fixed {
		c.A = 255
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// apply maps every opaque pixel of img to its nearest palette entry and
// returns the new image together with the used entries ordered by
// descending frequency.
func apply(img *raster.Image, pal []Color) (*raster.Image, []Color) {
	out := img.Clone()
	if len(pal) == 0 {
		return out, nil
	}
	cache := make(map[[3]uint8]int)
	counts := make([]int, len(pal))
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i+3] < opaqueAlpha {
			continue
		}
		key := [3]uint8{out.Pix[i], out.Pix[i+1], out.Pix[i+2]}
		idx, ok := cache[key]
		if !ok {
			idx = Nearest(pal, key[0], key[1], key[2])
			cache[key] = idx
		}
		c := pal[idx]
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = c.R, c.G, c.B
		counts[idx]++
	}

	order := make([]int, 0, len(pal))
	for i, n := range counts {
		if n > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	used := make([]Color, len(order))
	for i, idx := range order {
		used[i] = pal[idx]
	}
	return out, used
}

// Nearest returns the index of the palette entry closest to (r,g,b) in
// squared Euclidean RGB distance. Ties go to the earlier entry.
func Nearest(pal []Color, r, g, b uint8) int {
	best, bestD := 0, int(^uint(0)>>1)
	for i, c := range pal {
		dr := int(c.R) - int(r)
		dg := int(c.G) - int(g)
		db := int(c.B) - int(b)
		if d := dr*dr + dg*dg + db*db; d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

// Distinct counts the distinct opaque colours of img.
func Distinct(img *raster.Image) int {
	return NewHistogram(img).Len()
}
