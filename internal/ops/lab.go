package ops

import "github.com/lucasb-eyer/go-colorful"

// Lab is a CIE L*a*b* colour (D65 white point) with L in [0, 100].
type Lab struct {
	L, A, B float64
}

// go-colorful keeps L in [0, 1] and a, b scaled to match.
const labScale = 100

// RGBToLab converts an 8-bit sRGB colour to Lab.
func RGBToLab(r, g, b uint8) Lab {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	l, a, bb := c.Lab()
	return Lab{L: l * labScale, A: a * labScale, B: bb * labScale}
}

// LabToRGB converts Lab back to 8-bit sRGB, clamping out-of-gamut values.
func LabToRGB(c Lab) (r, g, b uint8) {
	return colorful.Lab(c.L/labScale, c.A/labScale, c.B/labScale).Clamped().RGB255()
}
