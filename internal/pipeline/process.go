package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"sort"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/AnyUserName/pixelsnap-cli/internal/cleanup"
	"github.com/AnyUserName/pixelsnap-cli/internal/config"
	"github.com/AnyUserName/pixelsnap-cli/internal/downscale"
	"github.com/AnyUserName/pixelsnap-cli/internal/encoder"
	"github.com/AnyUserName/pixelsnap-cli/internal/hasher"
	"github.com/AnyUserName/pixelsnap-cli/internal/logging"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/ops"
	"github.com/AnyUserName/pixelsnap-cli/internal/quantize"
	"github.com/AnyUserName/pixelsnap-cli/internal/raster"
	"github.com/AnyUserName/pixelsnap-cli/internal/scale"
)

// Resource guards applied before decoding.
const (
	MaxFileBytes = 50 << 20
	MaxSide      = 8000
	MaxPixels    = 10_000_000
)

var (
	// ErrFileTooLarge is returned for inputs above MaxFileBytes.
	ErrFileTooLarge = errors.New("file too large")
	// ErrImageTooLarge is returned for images above MaxSide or MaxPixels.
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// Result is everything ProcessImage hands back to its caller.
type Result struct {
	Encoded  []byte
	Image    *raster.Image
	Palette  []string
	Manifest manifest.Processing
}

var registry = encoder.NewRegistry()

// CheckSize applies the file size guard.
func CheckSize(n int64) error {
	if n > MaxFileBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, n, MaxFileBytes)
	}
	return nil
}

// CheckDimensions applies the decoded size guards.
func CheckDimensions(w, h int) error {
	if w > MaxSide || h > MaxSide {
		return fmt.Errorf("%w: %dx%d exceeds %d px per side", ErrImageTooLarge, w, h, MaxSide)
	}
	if w*h > MaxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, w, h, MaxPixels)
	}
	return nil
}

// Decode validates and decodes an encoded image. The size guards run on
// the header before any pixel data is decoded.
func Decode(data []byte) (*raster.Image, string, error) {
	if err := CheckSize(int64(len(data))); err != nil {
		return nil, "", err
	}
	hdr, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode header: %w", err)
	}
	if err := CheckDimensions(hdr.Width, hdr.Height); err != nil {
		return nil, format, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, format, fmt.Errorf("decode: %w", err)
	}
	return raster.FromImage(img), format, nil
}

// ProcessImage decodes data, reconstructs the pixel-art raster and encodes
// it in cfg.OutputFormat.
func ProcessImage(data []byte, cfg config.Config) (*Result, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	strategy, err := newStrategy(cfg)
	if err != nil {
		return nil, err
	}
	enc, err := registry.Lookup(cfg.OutputFormat)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	img, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	decodeMs := float64(time.Since(start).Microseconds()) / 1000

	out, m := reconstruct(img, cfg, strategy)
	m.Timings = append(manifest.Timings{{Stage: "decode", Ms: decodeMs}}, m.Timings...)

	start = time.Now()
	encoded, err := enc.Encode(out.NRGBA())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", enc.Format(), err)
	}
	m.Timings.Track("encode", start)
	m.Output = manifest.EncodedInfo{
		Format: enc.Format(),
		Size:   len(encoded),
		Hash:   hasher.ContentHash(encoded, 16),
	}
	m.TotalMs = m.Timings.Total()

	return &Result{
		Encoded:  encoded,
		Image:    out,
		Palette:  PaletteOf(out),
		Manifest: m,
	}, nil
}

// Reconstruct runs the stage sequence on an already decoded image. The
// input is not modified.
func Reconstruct(img *raster.Image, cfg config.Config) (*raster.Image, manifest.Processing, error) {
	cfg, err := cfg.Validate()
	if err != nil {
		return nil, manifest.Processing{}, err
	}
	strategy, err := newStrategy(cfg)
	if err != nil {
		return nil, manifest.Processing{}, err
	}
	out, m := reconstruct(img, cfg, strategy)
	m.TotalMs = m.Timings.Total()
	return out, m, nil
}

func newStrategy(cfg config.Config) (downscale.Strategy, error) {
	return downscale.New(downscale.Method(cfg.DownscaleMethod), downscale.Options{
		DominantThreshold: cfg.DomMeanThreshold,
		Iterations:        cfg.CAIterations,
		SVD:               ops.GonumSVD{},
	})
}

// reconstruct assumes a validated cfg. Every stage either degrades or
// succeeds, so it cannot fail.
func reconstruct(img *raster.Image, cfg config.Config, strategy downscale.Strategy) (*raster.Image, manifest.Processing) {
	log := logging.Logger()
	m := manifest.Processing{
		OriginalSize:   manifest.Size{Width: img.Width, Height: img.Height},
		AlphaThreshold: cfg.AlphaThreshold,
		Cleanup:        manifest.CleanupInfo{Morph: cfg.Cleanup.Morph, Jaggy: cfg.Cleanup.Jaggy},
	}
	fixed := cfg.Palette()

	start := time.Now()
	work := img.Clone()
	cleanup.BinarizeAlpha(work, uint8(cfg.AlphaThreshold))
	m.Timings.Track("binarize", start)

	start = time.Now()
	var det scale.Result
	if cfg.ManualScale != nil {
		det = scale.Manual(*cfg.ManualScale)
	} else {
		det = scale.Detect(work, scale.Options{
			Method:     scale.Method(cfg.DetectMethod),
			EdgeMethod: scale.EdgeMethod(cfg.EdgeDetectMethod),
		})
	}
	m.Timings.Track("detect", start)
	m.DetectedScale = det.Scale
	m.ScaleX, m.ScaleY = det.ScaleX, det.ScaleY
	m.DetectionMethod = det.Method

	s := enforceGrid(det.Scale, work.Width, work.Height, cfg.MaxGridSize)
	if s != det.Scale {
		m.ScaleRaised = true
		log.Debug("scale raised to respect max grid size",
			"detected", det.Scale, "scale", s, "max_grid", cfg.MaxGridSize)
	}
	m.Scale = s

	if s > 1 && cfg.SnapGrid {
		start = time.Now()
		off := downscale.Align(work, s)
		m.GridOffset = manifest.GridOffset{X: off.X, Y: off.Y}
		m.Aligned = true
		work = downscale.Crop(work, off, s)
		m.Timings.Track("align", start)
	} else if s > 1 {
		work = downscale.Crop(work, downscale.Offset{}, s)
	}

	if cfg.Cleanup.Morph {
		start = time.Now()
		cleanup.Morph(work)
		m.Timings.Track("morph", start)
	}

	colors := cfg.MaxColors
	if cfg.AutoColorCount {
		colors = quantize.AutoColorCount(work, cfg.MaxColors, quantize.AutoOptions{Granularity: cfg.ColorGranularity})
	}

	preQuantized := false
	if cfg.PreQuantize && strategy.Method() != downscale.MethodContentAdaptive {
		start = time.Now()
		q := quantize.Quantize(work, colors, fixed)
		work = q.Image
		m.PreQuantize = quantStats(q, colors, cfg.AutoColorCount, len(fixed))
		preQuantized = true
		m.Timings.Track("pre_quantize", start)
	}

	if s > 1 {
		start = time.Now()
		out, err := strategy.Downscale(work, s)
		if err != nil {
			// Only reachable with scale < 1.
			log.Warn("downscale failed", "method", strategy.Method(), "err", err)
		} else {
			work = out
		}
		m.DownscaleMethod = string(strategy.Method())
		m.Timings.Track("downscale", start)
	} else {
		m.DownscaleMethod = "none"
	}

	if !(preQuantized && (s == 1 || strategy.PreservesPalette())) {
		start = time.Now()
		q := quantize.Quantize(work, colors, fixed)
		work = q.Image
		m.PostQuantize = quantStats(q, colors, cfg.AutoColorCount, len(fixed))
		m.Timings.Track("post_quantize", start)
	}

	if cfg.Cleanup.Jaggy {
		start = time.Now()
		m.Cleanup.JaggyRemoved = cleanup.Jaggy(work)
		m.Timings.Track("jaggy", start)
	}

	start = time.Now()
	cleanup.Finalize(work)
	m.Timings.Track("finalize", start)

	m.FinalSize = manifest.Size{Width: work.Width, Height: work.Height}
	log.Debug("reconstructed",
		"from", fmt.Sprintf("%dx%d", img.Width, img.Height),
		"to", fmt.Sprintf("%dx%d", work.Width, work.Height),
		"scale", s, "method", m.DetectionMethod)
	return work, m
}

// enforceGrid raises s until neither output side exceeds maxGrid.
func enforceGrid(s, w, h, maxGrid int) int {
	if s < 1 {
		s = 1
	}
	long := max(w, h)
	if maxGrid > 0 && long/s > maxGrid {
		s = (long + maxGrid - 1) / maxGrid
	}
	return s
}

func quantStats(q quantize.Result, requested int, auto bool, fixed int) *manifest.QuantizeStats {
	return &manifest.QuantizeStats{
		Requested:  requested,
		Auto:       auto,
		ColorsUsed: q.ColorsUsed,
		Fixed:      fixed,
		Method:     string(q.Method),
		FellBack:   q.FellBack,
	}
}

// PaletteOf lists the distinct opaque colours of img as #rrggbb, most
// frequent first.
func PaletteOf(img *raster.Image) []string {
	counts := make(map[quantize.Color]int)
	var order []quantize.Color
	for i := 0; i+3 < len(img.Pix); i += 4 {
		if img.Pix[i+3] == 0 {
			continue
		}
		c := quantize.Color{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: 255}
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	sort.SliceStable(order, func(a, b int) bool { return counts[order[a]] > counts[order[b]] })
	return quantize.HexPalette(order)
}
