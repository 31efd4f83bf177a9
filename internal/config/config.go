// Package config holds the flat configuration of the reconstruction
// pipeline and validates it at the orchestrator boundary.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AnyUserName/pixelsnap-cli/internal/downscale"
	"github.com/AnyUserName/pixelsnap-cli/internal/quantize"
	"github.com/AnyUserName/pixelsnap-cli/internal/scale"
	"github.com/AnyUserName/pixelsnap-cli/internal/vectorize"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Output formats.
const (
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Cleanup toggles the optional cleanup passes.
type Cleanup struct {
	Morph bool `json:"morph"`
	Jaggy bool `json:"jaggy"`
}

// Config enumerates every pipeline tunable. Field names follow the JSON
// option names.
type Config struct {
	MaxColors        int      `json:"maxColors"`
	AutoColorCount   bool     `json:"autoColorCount"`
	DownscaleMethod  string   `json:"downscaleMethod"`
	DetectMethod     string   `json:"detectMethod"`
	EdgeDetectMethod string   `json:"edgeDetectMethod"`
	DomMeanThreshold float64  `json:"domMeanThreshold"`
	ManualScale      *int     `json:"manualScale"`
	Cleanup          Cleanup  `json:"cleanup"`
	FixedPalette     []string `json:"fixedPalette"`
	AlphaThreshold   int      `json:"alphaThreshold"`
	SnapGrid         bool     `json:"snapGrid"`
	MaxGridSize      int      `json:"maxGridSize"`

	PreQuantize      bool   `json:"preQuantize"`
	OutputFormat     string `json:"outputFormat"`
	CAIterations     int    `json:"caIterations"`
	ColorGranularity int    `json:"colorGranularity"`

	Vectorize *vectorize.Options `json:"vectorize,omitempty"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		MaxColors:        16,
		DownscaleMethod:  string(downscale.MethodDominant),
		DetectMethod:     string(scale.MethodAuto),
		EdgeDetectMethod: string(scale.EdgeTiled),
		DomMeanThreshold: 0.15,
		AlphaThreshold:   128,
		SnapGrid:         true,
		MaxGridSize:      256,
		PreQuantize:      true,
		OutputFormat:     FormatPNG,
		CAIterations:     3,
		ColorGranularity: 24,
	}
}

// Load reads a JSON config file on top of Default. Keys missing from the
// file keep their default value.
func Load(path string) (Config, error) {
	return LoadOver(Default(), path)
}

// LoadOver reads a JSON config file on top of base.
func LoadOver(base Config, path string) (Config, error) {
	cfg := base
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown method names, malformed palette entries and
// out-of-range manual scales, and clamps the remaining numeric tunables
// into range. The receiver is not modified.
func (c Config) Validate() (Config, error) {
	var errs []string
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	c.MaxColors = clamp(c.MaxColors, 2, 256)
	c.AlphaThreshold = clamp(c.AlphaThreshold, 0, 255)
	c.MaxGridSize = clamp(c.MaxGridSize, 8, 4096)
	c.CAIterations = clamp(c.CAIterations, 1, 10)
	c.ColorGranularity = clamp(c.ColorGranularity, 4, 64)
	if c.DomMeanThreshold <= 0 || c.DomMeanThreshold >= 1 {
		if c.DomMeanThreshold != 0 {
			bad("domMeanThreshold must be in (0,1), got %v", c.DomMeanThreshold)
		}
		c.DomMeanThreshold = 0.15
	}

	if _, err := downscale.ParseMethod(c.DownscaleMethod); err != nil {
		bad("%v", err)
	}
	if _, err := scale.ParseMethod(c.DetectMethod); err != nil {
		bad("%v", err)
	}
	if _, err := scale.ParseEdgeMethod(c.EdgeDetectMethod); err != nil {
		bad("%v", err)
	}
	if c.ManualScale != nil && (*c.ManualScale < 1 || *c.ManualScale > 256) {
		bad("manualScale must be in [1,256], got %d", *c.ManualScale)
	}
	for _, h := range c.FixedPalette {
		if _, err := quantize.ParseHex(h); err != nil {
			bad("fixedPalette: %v", err)
		}
	}
	switch c.OutputFormat {
	case "":
		c.OutputFormat = FormatPNG
	case FormatPNG, FormatWebP:
	default:
		bad("outputFormat must be png or webp, got %q", c.OutputFormat)
	}
	if c.Vectorize != nil {
		v, err := c.Vectorize.Validate()
		if err != nil {
			bad("%v", err)
		}
		c.Vectorize = &v
	}

	if len(errs) > 0 {
		return c, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return c, nil
}

// Palette parses FixedPalette. It assumes Validate has passed.
func (c Config) Palette() []quantize.Color {
	var out []quantize.Color
	for _, h := range c.FixedPalette {
		if col, err := quantize.ParseHex(h); err == nil {
			out = append(out, col)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
