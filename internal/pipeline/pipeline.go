package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
	"github.com/AnyUserName/pixelsnap-cli/internal/hasher"
	"github.com/AnyUserName/pixelsnap-cli/internal/logging"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/vectorize"
)

// ManifestName is the batch manifest file written into the output dir.
const ManifestName = "pixelsnap.manifest.json"

// BatchConfig holds all parameters for a directory run.
type BatchConfig struct {
	InputDir  string
	OutputDir string
	Profile   string
	Config    config.Config
	Workers   int
	// Vectorize also traces every result into an SVG written next to the
	// raster.
	Vectorize bool
}

// Batch processes every image of a directory through a Pool.
type Batch struct {
	cfg BatchConfig
}

// NewBatch creates a configured batch runner.
func NewBatch(cfg BatchConfig) *Batch {
	return &Batch{cfg: cfg}
}

type submitted struct {
	src Source
	out <-chan Outcome
}

// Run executes the batch and returns the manifest. Individual failures are
// logged and counted; Run fails only when nothing could be processed or
// the configuration is invalid.
func (b *Batch) Run(ctx context.Context) (*manifest.Manifest, error) {
	log := logging.Logger()
	cfg, err := b.cfg.Config.Validate()
	if err != nil {
		return nil, err
	}
	vopts := vectorize.DefaultOptions()
	if cfg.Vectorize != nil {
		vopts = *cfg.Vectorize
	}

	// Step 1: Scan for images.
	sources, err := ScanImages(b.cfg.InputDir, b.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", b.cfg.InputDir)
	}
	log.Info("found images", "count", len(sources), "dir", b.cfg.InputDir)

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	// Step 2: Reconstruct in parallel. Submit blocks while all workers are
	// busy, so at most Workers inputs are held in memory besides results.
	pool := NewPool(b.cfg.Workers)
	defer pool.Close()

	m := manifest.New(b.cfg.Profile)
	failed := 0
	pending := make([]submitted, 0, len(sources))
	for _, src := range sources {
		if err := CheckSize(src.Size); err != nil {
			log.Error("skipping", "key", src.Key, "err", err)
			failed++
			continue
		}
		data, err := os.ReadFile(src.AbsPath)
		if err != nil {
			log.Error("skipping", "key", src.Key, "err", err)
			failed++
			continue
		}
		log.Debug("processing", "key", src.Key)
		pending = append(pending, submitted{src, pool.Submit(ctx, Job{ID: src.Key, Data: data, Config: cfg})})
	}

	// Step 3: Write outputs and collect them into the manifest.
	for _, p := range pending {
		o := <-p.out
		if o.Err != nil {
			log.Error("failed", "key", p.src.Key, "err", o.Err)
			failed++
			continue
		}
		asset, err := writeAsset(p.src, o.Result, b.cfg.OutputDir, b.cfg.Vectorize, vopts)
		if err != nil {
			log.Error("failed", "key", p.src.Key, "err", err)
			failed++
			continue
		}
		m.Assets[p.src.Key] = asset
		log.Debug("done", "key", p.src.Key, "outputs", len(asset.Outputs))
	}

	if failed == len(sources) {
		return nil, fmt.Errorf("all %d images failed to process", failed)
	}
	if failed > 0 {
		log.Warn("some images had errors", "failed", failed, "total", len(sources))
	}
	if err := ctx.Err(); err != nil && len(m.Assets) == 0 {
		return nil, err
	}

	m.BuildInfo = &manifest.BuildInfo{
		Workers:         pool.Workers(),
		DownscaleMethod: cfg.DownscaleMethod,
		MaxColors:       cfg.MaxColors,
		OutputFormat:    cfg.OutputFormat,
	}
	m.Stats.Failed = failed
	m.ComputeStats()
	return m, nil
}

// writeAsset writes the encoded raster and, when asked, its SVG under
// content-addressed names: key.WxH.hash.ext.
func writeAsset(src Source, res *Result, outDir string, vector bool, vopts vectorize.Options) (manifest.Asset, error) {
	asset := manifest.Asset{
		Original: manifest.OriginalInfo{
			Width:    res.Manifest.OriginalSize.Width,
			Height:   res.Manifest.OriginalSize.Height,
			Format:   src.Format,
			Size:     src.Size,
			HasAlpha: res.Image.HasTransparency(),
		},
		Processing: res.Manifest,
		Palette:    res.Palette,
	}

	// Ensure output subdirectory exists.
	keyDir := filepath.Dir(src.Key)
	if keyDir != "." {
		if err := os.MkdirAll(filepath.Join(outDir, keyDir), 0o755); err != nil {
			return asset, fmt.Errorf("mkdir %s: %w", keyDir, err)
		}
	}
	w, h := res.Image.Width, res.Image.Height

	out, err := writeOutput(outDir, keyDir, src.Key, "raster", res.Manifest.Output.Format, w, h, res.Encoded)
	if err != nil {
		return asset, err
	}
	asset.Outputs = append(asset.Outputs, out)

	if vector {
		v, err := vectorize.Vectorize(res.Image, vopts)
		if err != nil {
			return asset, fmt.Errorf("vectorize %s: %w", src.Key, err)
		}
		asset.Vector = &v.Manifest
		svgOut, err := writeOutput(outDir, keyDir, src.Key, "svg", "svg", w, h, []byte(v.SVG))
		if err != nil {
			return asset, err
		}
		asset.Outputs = append(asset.Outputs, svgOut)
	}
	return asset, nil
}

func writeOutput(outDir, keyDir, key, kind, format string, w, h int, data []byte) (manifest.Output, error) {
	contentHash := hasher.ContentHash(data, 16)
	fileName := fmt.Sprintf("%s.%dx%d.%s.%s", filepath.Base(key), w, h, contentHash[:8], format)
	relPath := filepath.ToSlash(filepath.Join(keyDir, fileName))
	if err := os.WriteFile(filepath.Join(outDir, relPath), data, 0o644); err != nil {
		return manifest.Output{}, fmt.Errorf("write %s: %w", relPath, err)
	}
	return manifest.Output{
		Kind:   kind,
		Format: format,
		Width:  w,
		Height: h,
		Size:   int64(len(data)),
		Hash:   contentHash,
		Path:   relPath,
	}, nil
}
