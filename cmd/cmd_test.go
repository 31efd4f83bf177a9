package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/pipeline"
)

func writeChecker(t *testing.T, path string, n, k int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, n*k, n*k))
	for y := 0; y < n*k; y++ {
		for x := 0; x < n*k; x++ {
			c := color.NRGBA{R: 200, G: 40, B: 40, A: 255}
			if (x/k+y/k)%2 == 1 {
				c = color.NRGBA{R: 20, G: 20, B: 60, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func buildOutput(t *testing.T) (string, *manifest.Manifest) {
	t.Helper()
	in := t.TempDir()
	out := t.TempDir()
	writeChecker(t, filepath.Join(in, "a.png"), 8, 4)
	writeChecker(t, filepath.Join(in, "b.png"), 4, 3)
	m, err := pipeline.NewBatch(pipeline.BatchConfig{
		InputDir: in, OutputDir: out, Profile: "default", Config: config.Default(), Workers: 2,
	}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := manifest.WriteJSON(m, filepath.Join(out, pipeline.ManifestName)); err != nil {
		t.Fatal(err)
	}
	return out, m
}

func TestValidateManifest_Valid(t *testing.T) {
	out, _ := buildOutput(t)
	m, base, err := readManifest(out)
	if err != nil {
		t.Fatal(err)
	}
	if errs := validateManifest(m, base, true); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateManifest_DetectsTampering(t *testing.T) {
	out, m := buildOutput(t)
	o := m.Assets["a"].Outputs[0]
	path := filepath.Join(out, o.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[len(data)-1] ^= 0xff
	os.WriteFile(path, data, 0o644)

	errs := validateManifest(m, out, true)
	if len(errs) != 1 || !strings.Contains(errs[0], "hash mismatch") {
		t.Errorf("errors: %v", errs)
	}
	if errs := validateManifest(m, out, false); len(errs) != 0 {
		t.Errorf("without hashes: %v", errs)
	}

	os.Remove(path)
	errs = validateManifest(m, out, true)
	if len(errs) != 1 || !strings.Contains(errs[0], "file not found") {
		t.Errorf("errors: %v", errs)
	}
}

func TestValidateManifest_Stats(t *testing.T) {
	m := manifest.New("default")
	m.Stats.TotalAssets = 3
	errs := validateManifest(m, t.TempDir(), false)
	if len(errs) != 1 || !strings.Contains(errs[0], "total_assets") {
		t.Errorf("errors: %v", errs)
	}
	m.Version = 9
	if errs := validateManifest(m, t.TempDir(), false); len(errs) != 2 {
		t.Errorf("errors: %v", errs)
	}
}

func TestApplyProcessFlags(t *testing.T) {
	f := processCmd.Flags()
	for name, v := range map[string]string{
		"colors":    "8",
		"scale":     "3",
		"downscale": "median",
		"no-snap":   "true",
		"palette":   "#000000,#ffffff",
		"format":    "WEBP",
	} {
		if err := f.Set(name, v); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := applyProcessFlags(processCmd, config.Default()).Validate()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxColors != 8 || cfg.DownscaleMethod != "median" || cfg.SnapGrid {
		t.Errorf("cfg: %+v", cfg)
	}
	if cfg.ManualScale == nil || *cfg.ManualScale != 3 {
		t.Errorf("scale: %v", cfg.ManualScale)
	}
	if len(cfg.FixedPalette) != 2 || cfg.OutputFormat != config.FormatWebP {
		t.Errorf("palette=%v format=%q", cfg.FixedPalette, cfg.OutputFormat)
	}
	// Untouched flags keep the base value.
	if !cfg.PreQuantize || cfg.MaxGridSize != 256 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestFormatBytes(t *testing.T) {
	for in, want := range map[int64]string{
		512:     "512 B",
		2048:    "2.0 KB",
		3 << 20: "3.0 MB",
	} {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
