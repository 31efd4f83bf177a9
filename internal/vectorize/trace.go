package vectorize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AnyUserName/pixelsnap-cli/internal/quantize"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

// Path is one traced colour region.
type Path struct {
	Fill   string // rgb(r,g,b)
	D      string
	Pixels int
}

// Traced is the tracer output before serialization.
type Traced struct {
	Width, Height int
	Paths         []Path
	Regions       int
	Omitted       int
}

// Trace turns every 4-connected region of equal colour into one closed
// path. When palette is empty the image is first quantized to
// opts.NumColors with keep forced into the palette; otherwise every pixel
// is snapped to its nearest palette entry. Pixels with alpha below 128 are
// never traced.
func Trace(img *raster.Image, palette, keep []quantize.Color, opts TraceOptions) Traced {
	w, h := img.Width, img.Height
	t := Traced{Width: w, Height: h}
	if w == 0 || h == 0 {
		return t
	}
	src := img
	if len(palette) == 0 {
		res := quantize.Quantize(img, max(opts.NumColors, 2), keep)
		src, palette = res.Image, res.Palette
	}
	if len(palette) == 0 {
		return t
	}

	idx := indexPixels(src, palette)
	labels, regions := label(idx, w, h)
	t.Regions = len(regions)

	factor := 1.0
	if !opts.Viewbox && opts.Scale > 0 {
		factor = opts.Scale
	}
	for id, px := range regions {
		if len(px) < opts.PathOmit {
			t.Omitted++
			continue
		}
		c := palette[idx[px[0]]]
		loops := traceLoops(labels, int32(id), px, w, h)
		t.Paths = append(t.Paths, Path{
			Fill:   fillText(c),
			D:      pathData(loops, factor),
			Pixels: len(px),
		})
	}
	return t
}

// indexPixels maps each pixel to its nearest palette index, -1 when
// transparent.
func indexPixels(img *raster.Image, palette []quantize.Color) []int {
	out := make([]int, img.Pixels())
	cache := make(map[[3]uint8]int)
	for i := range out {
		p := img.Pix[i*4 : i*4+4]
		if p[3] < 128 {
			out[i] = -1
			continue
		}
		k := [3]uint8{p[0], p[1], p[2]}
		n, ok := cache[k]
		if !ok {
			n = quantize.Nearest(palette, k[0], k[1], k[2])
			cache[k] = n
		}
		out[i] = n
	}
	return out
}

// label finds 4-connected components of equal index in scan order.
// Transparent pixels get label -1.
func label(idx []int, w, h int) ([]int32, [][]int) {
	labels := make([]int32, len(idx))
	for i := range labels {
		labels[i] = -1
	}
	var regions [][]int
	var stack []int
	for start := range idx {
		if idx[start] < 0 || labels[start] >= 0 {
			continue
		}
		id := int32(len(regions))
		var px []int
		labels[start] = id
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px = append(px, p)
			x, y := p%w, p/w
			for _, d := range [4]point{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
				nx, ny := x+d.x, y+d.y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				if labels[n] < 0 && idx[n] == idx[p] {
					labels[n] = id
					stack = append(stack, n)
				}
			}
		}
		regions = append(regions, px)
	}
	return labels, regions
}

type point struct{ x, y int }

type edge struct{ from, to point }

// traceLoops collects the directed boundary edges of one region, oriented
// with the region on the right, and chains them into closed loops. Holes
// come out with the opposite orientation, so both even-odd and non-zero
// filling render the region exactly.
func traceLoops(labels []int32, id int32, px []int, w, h int) [][]point {
	inside := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == id
	}
	var edges []edge
	for _, p := range px {
		x, y := p%w, p/w
		if !inside(x, y-1) {
			edges = append(edges, edge{point{x, y}, point{x + 1, y}})
		}
		if !inside(x+1, y) {
			edges = append(edges, edge{point{x + 1, y}, point{x + 1, y + 1}})
		}
		if !inside(x, y+1) {
			edges = append(edges, edge{point{x + 1, y + 1}, point{x, y + 1}})
		}
		if !inside(x-1, y) {
			edges = append(edges, edge{point{x, y + 1}, point{x, y}})
		}
	}

	out := make(map[point][]int, len(edges))
	for i, e := range edges {
		out[e.from] = append(out[e.from], i)
	}
	used := make([]bool, len(edges))
	var loops [][]point
	for i := range edges {
		if used[i] {
			continue
		}
		var loop []point
		cur := i
		for {
			used[cur] = true
			loop = append(loop, edges[cur].from)
			next := -1
			for _, j := range out[edges[cur].to] {
				if !used[j] {
					next = j
					break
				}
			}
			if next < 0 {
				break
			}
			cur = next
		}
		loops = append(loops, mergeCollinear(loop))
	}
	return loops
}

// mergeCollinear drops the vertices of a closed loop that sit in the middle
// of a straight run.
func mergeCollinear(loop []point) []point {
	n := len(loop)
	if n < 3 {
		return loop
	}
	out := loop[:0:0]
	for i, p := range loop {
		prev := loop[(i+n-1)%n]
		next := loop[(i+1)%n]
		if dir(prev, p) != dir(p, next) {
			out = append(out, p)
		}
	}
	return out
}

func dir(a, b point) point {
	return point{sign(b.x - a.x), sign(b.y - a.y)}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func pathData(loops [][]point, factor float64) string {
	var sb strings.Builder
	for _, loop := range loops {
		for i, p := range loop {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			if i == 0 {
				sb.WriteString("M")
			} else {
				sb.WriteString("L")
			}
			sb.WriteString(formatCoord(float64(p.x) * factor))
			sb.WriteByte(' ')
			sb.WriteString(formatCoord(float64(p.y) * factor))
		}
		sb.WriteString(" Z")
	}
	return sb.String()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fillText(c quantize.Color) string {
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// SVG serializes the traced paths as a standalone document.
func (t Traced) SVG(opts TraceOptions) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" version="1.1" width="%s" height="%s"`,
		formatCoord(float64(t.Width)*scale), formatCoord(float64(t.Height)*scale))
	if opts.Viewbox {
		fmt.Fprintf(&sb, ` viewBox="0 0 %d %d"`, t.Width, t.Height)
	}
	sb.WriteString(">\n")
	if opts.Desc {
		fmt.Fprintf(&sb, "<desc>pixelsnap: %d paths, %d regions, %d omitted</desc>\n",
			len(t.Paths), t.Regions, t.Omitted)
	}
	for _, p := range t.Paths {
		fmt.Fprintf(&sb, `<path fill="%s" fill-rule="evenodd" shape-rendering="crispEdges" d="%s"/>`+"\n", p.Fill, p.D)
	}
	sb.WriteString("</svg>\n")
	return sb.String()
}
