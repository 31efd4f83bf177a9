package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// maxPaletted is the largest colour count that fits an 8-bit PLTE chunk.
const maxPaletted = 256

// PNGEncoder writes PNG, the default output format. Finished pixel art has
// few colours and binary alpha, so it is written as an indexed PNG when
// that is exact; anything else falls back to truecolour with alpha.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }

func (e *PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	src := img
	if p, ok := toPaletted(img); ok {
		src = p
	}
	if err := enc.Encode(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// toPaletted converts img to an indexed image when the conversion is
// lossless: at most 256 colours, every alpha 0 or 255, and transparent
// pixels all (0,0,0,0). PLTE/tRNS cannot round-trip anything else exactly.
func toPaletted(img image.Image) (*image.Paletted, bool) {
	b := img.Bounds()
	dst := image.NewPaletted(b, nil)
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A != 0 && c.A != 0xff {
				return nil, false
			}
			if c.A == 0 && c != (color.NRGBA{}) {
				return nil, false
			}
			i, ok := index[c]
			if !ok {
				if len(pal) == maxPaletted {
					return nil, false
				}
				i = uint8(len(pal))
				index[c] = i
				pal = append(pal, c)
			}
			dst.SetColorIndex(x, y, i)
		}
	}
	dst.Palette = pal
	return dst, true
}
