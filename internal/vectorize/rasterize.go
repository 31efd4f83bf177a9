package vectorize

import (
	"encoding/xml"
	"fmt"
	"image"
	"image/draw"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/vector"

	"github.com/AnyUserName/pixelsnap-cli/internal/quantize"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
)

type svgPath struct {
	fill quantize.Color
	d    string
}

type svgDoc struct {
	w, h  float64 // user-space extent
	paths []svgPath
}

// Rasterize renders a document produced by Traced.SVG to a w×h raster.
// A pixel takes a path's fill when the path covers at least half of it,
// so documents traced from pixel art render back without blending. A
// non-positive w or h uses the document's own extent.
func Rasterize(svg string, w, h int) (*raster.Image, error) {
	doc, err := parseSVG(svg)
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		w, h = int(doc.w+0.5), int(doc.h+0.5)
	}
	out := raster.New(w, h)
	if w == 0 || h == 0 || doc.w <= 0 || doc.h <= 0 {
		return out, nil
	}
	sx := float32(float64(w) / doc.w)
	sy := float32(float64(h) / doc.h)

	z := vector.NewRasterizer(w, h)
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for _, p := range doc.paths {
		// Reset restores DrawOp to Over.
		z.Reset(w, h)
		z.DrawOp = draw.Src
		clear(mask.Pix)
		if err := replay(z, p.d, sx, sy); err != nil {
			return nil, err
		}
		z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
		for i, a := range mask.Pix {
			if a >= 0x80 {
				o := i * 4
				out.Pix[o], out.Pix[o+1], out.Pix[o+2], out.Pix[o+3] = p.fill.R, p.fill.G, p.fill.B, 255
			}
		}
	}
	return out, nil
}

func parseSVG(svg string) (svgDoc, error) {
	var doc svgDoc
	dec := xml.NewDecoder(strings.NewReader(svg))
	seenRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return doc, fmt.Errorf("rasterize: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "svg":
			seenRoot = true
			var vb string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "width":
					if doc.w, err = parseLength(a.Value); err != nil {
						return doc, fmt.Errorf("rasterize: bad width: %w", err)
					}
				case "height":
					if doc.h, err = parseLength(a.Value); err != nil {
						return doc, fmt.Errorf("rasterize: bad height: %w", err)
					}
				case "viewBox":
					vb = a.Value
				}
			}
			if vb != "" {
				f := strings.Fields(strings.ReplaceAll(vb, ",", " "))
				if len(f) != 4 {
					return doc, fmt.Errorf("rasterize: bad viewBox %q", vb)
				}
				if doc.w, err = strconv.ParseFloat(f[2], 64); err != nil {
					return doc, fmt.Errorf("rasterize: bad viewBox %q: %w", vb, err)
				}
				if doc.h, err = strconv.ParseFloat(f[3], 64); err != nil {
					return doc, fmt.Errorf("rasterize: bad viewBox %q: %w", vb, err)
				}
			}
		case "path":
			var p svgPath
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "fill":
					c, err := parseFill(a.Value)
					if err != nil {
						return doc, fmt.Errorf("rasterize: %w", err)
					}
					p.fill = c
				case "d":
					p.d = a.Value
				}
			}
			doc.paths = append(doc.paths, p)
		}
	}
	if !seenRoot {
		return doc, fmt.Errorf("rasterize: no <svg> element")
	}
	return doc, nil
}

// parseLength accepts a plain number with an optional px unit.
func parseLength(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "px"), 64)
}

// replay feeds absolute M, L, H, V and Z commands to z.
func replay(z *vector.Rasterizer, d string, sx, sy float32) error {
	tokens := strings.Fields(strings.NewReplacer(",", " ",
		"M", " M ", "L", " L ", "H", " H ", "V", " V ", "Z", " Z ").Replace(d))
	var cmd string
	var cx, cy float32
	num := func(i *int) (float32, error) {
		if *i >= len(tokens) {
			return 0, fmt.Errorf("rasterize: truncated path data")
		}
		v, err := strconv.ParseFloat(tokens[*i], 32)
		*i++
		return float32(v), err
	}
	for i := 0; i < len(tokens); {
		switch t := tokens[i]; t {
		case "M", "L", "H", "V":
			cmd = t
			i++
			continue
		case "Z":
			z.ClosePath()
			i++
			continue
		}
		switch cmd {
		case "M", "L":
			x, err := num(&i)
			if err != nil {
				return err
			}
			y, err := num(&i)
			if err != nil {
				return err
			}
			cx, cy = x, y
			if cmd == "M" {
				z.MoveTo(cx*sx, cy*sy)
				cmd = "L"
			} else {
				z.LineTo(cx*sx, cy*sy)
			}
		case "H":
			x, err := num(&i)
			if err != nil {
				return err
			}
			cx = x
			z.LineTo(cx*sx, cy*sy)
		case "V":
			y, err := num(&i)
			if err != nil {
				return err
			}
			cy = y
			z.LineTo(cx*sx, cy*sy)
		default:
			return fmt.Errorf("rasterize: unsupported path data %q", tokens[i])
		}
	}
	return nil
}

// parseFill accepts rgb(r,g,b) and hex colours.
func parseFill(s string) (quantize.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return quantize.Color{}, fmt.Errorf("bad fill %q", s)
		}
		var v [3]uint8
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return quantize.Color{}, fmt.Errorf("bad fill %q: %w", s, err)
			}
			v[i] = uint8(n)
		}
		return quantize.Color{R: v[0], G: v[1], B: v[2], A: 255}, nil
	}
	return quantize.ParseHex(s)
}
