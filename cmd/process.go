package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/pipeline"
	"github.com/AnyUserName/pixelsnap-cli/internal/vectorize"
)

var (
	procOut        string
	procWorkers    int
	procScale      int
	procColors     int
	procAuto       bool
	procDownscale  string
	procDetect     string
	procEdge       string
	procFormat     string
	procMaxGrid    int
	procAlpha      int
	procNoSnap     bool
	procMorph      bool
	procJaggy      bool
	procPalette    []string
	procNoPreQuant bool
	procVectorize  bool
	procManifest   bool
)

var processCmd = &cobra.Command{
	Use:   "process <input_file_or_dir>",
	Short: "Reconstruct pixel art from one image or a whole directory",
	Long: `Detects the pixel scale of each image, aligns the grid, downscales one
block per pixel, reduces the palette and writes the result.

A single file is written to --out (default <name>.pixel.<format>).
A directory is processed in parallel; outputs are content-addressed
(<key>.<w>x<h>.<hash>.<ext>) and listed in pixelsnap.manifest.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVarP(&procOut, "out", "o", "", "output file or directory")
	f.IntVarP(&procWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	f.IntVarP(&procScale, "scale", "s", 0, "manual pixel scale, skips detection")
	f.IntVar(&procColors, "colors", 0, "maximum palette size")
	f.BoolVar(&procAuto, "auto-colors", false, "estimate the palette size from the image")
	f.StringVar(&procDownscale, "downscale", "", "downscale method: dominant, median, mode, mean, nearest, content-adaptive")
	f.StringVar(&procDetect, "detect", "", "scale detection: auto, runs, edge")
	f.StringVar(&procEdge, "edge", "", "edge detection variant: tiled, legacy")
	f.StringVarP(&procFormat, "format", "f", "", "output format: png, webp")
	f.IntVar(&procMaxGrid, "max-grid", 0, "largest allowed output side in pixels")
	f.IntVar(&procAlpha, "alpha-threshold", 0, "alpha below this becomes transparent")
	f.BoolVar(&procNoSnap, "no-snap", false, "do not align the grid before downscaling")
	f.BoolVar(&procMorph, "morph", false, "morphological cleanup before quantization")
	f.BoolVar(&procJaggy, "jaggy", false, "remove isolated diagonal pixels")
	f.StringSliceVar(&procPalette, "palette", nil, "fixed palette colours (#rrggbb), always kept")
	f.BoolVar(&procNoPreQuant, "no-pre-quantize", false, "quantize only after downscaling")
	f.BoolVar(&procVectorize, "vectorize", false, "also write an SVG trace of each result")
	f.BoolVar(&procManifest, "manifest", false, "single file: write a <out>.json processing record")
	rootCmd.AddCommand(processCmd)
}

// applyProcessFlags overrides cfg with every flag the user set explicitly.
func applyProcessFlags(cmd *cobra.Command, cfg config.Config) config.Config {
	set := cmd.Flags().Changed
	if set("scale") {
		s := procScale
		cfg.ManualScale = &s
	}
	if set("colors") {
		cfg.MaxColors = procColors
	}
	if set("auto-colors") {
		cfg.AutoColorCount = procAuto
	}
	if set("downscale") {
		cfg.DownscaleMethod = procDownscale
	}
	if set("detect") {
		cfg.DetectMethod = procDetect
	}
	if set("edge") {
		cfg.EdgeDetectMethod = procEdge
	}
	if set("format") {
		cfg.OutputFormat = strings.ToLower(procFormat)
	}
	if set("max-grid") {
		cfg.MaxGridSize = procMaxGrid
	}
	if set("alpha-threshold") {
		cfg.AlphaThreshold = procAlpha
	}
	if set("no-snap") {
		cfg.SnapGrid = !procNoSnap
	}
	if set("morph") {
		cfg.Cleanup.Morph = procMorph
	}
	if set("jaggy") {
		cfg.Cleanup.Jaggy = procJaggy
	}
	if set("palette") {
		cfg.FixedPalette = procPalette
	}
	if set("no-pre-quantize") {
		cfg.PreQuantize = !procNoPreQuant
	}
	return cfg
}

func runProcess(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg, err := baseConfig()
	if err != nil {
		return err
	}
	cfg, err = applyProcessFlags(cmd, cfg).Validate()
	if err != nil {
		return err
	}

	input, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("stat %s: %w", args[0], err)
	}
	if info.IsDir() {
		return processDir(cmd.Context(), input, cfg, start)
	}
	return processFile(input, cfg)
}

func processFile(input string, cfg config.Config) error {
	if err := pipeline.CheckSize(fileSize(input)); err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	res, err := pipeline.ProcessImage(data, cfg)
	if err != nil {
		return fmt.Errorf("process %s: %w", filepath.Base(input), err)
	}

	out := procOut
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".pixel." + res.Manifest.Output.Format
	}
	if err := os.WriteFile(out, res.Encoded, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logVerbose("wrote %s (%s)", out, formatBytes(int64(len(res.Encoded))))

	var vec *manifest.Vector
	if procVectorize {
		vopts := vectorize.DefaultOptions()
		if cfg.Vectorize != nil {
			vopts = *cfg.Vectorize
		}
		v, err := vectorize.Vectorize(res.Image, vopts)
		if err != nil {
			return fmt.Errorf("vectorize: %w", err)
		}
		svgPath := strings.TrimSuffix(out, filepath.Ext(out)) + ".svg"
		if err := os.WriteFile(svgPath, []byte(v.SVG), 0o644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
		vec = &v.Manifest
		logVerbose("wrote %s (%d paths)", svgPath, v.Manifest.Paths)
	}

	if procManifest {
		record := struct {
			Processing manifest.Processing `json:"processing"`
			Palette    []string            `json:"palette"`
			Vector     *manifest.Vector    `json:"vector,omitempty"`
		}{res.Manifest, res.Palette, vec}
		if err := manifest.WriteFile(out+".json", record); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}

	p := res.Manifest
	fmt.Printf("  %s: %dx%d → %dx%d (scale %d via %s, %d colours, %.0f ms)\n",
		filepath.Base(input),
		p.OriginalSize.Width, p.OriginalSize.Height,
		p.FinalSize.Width, p.FinalSize.Height,
		p.Scale, p.DetectionMethod, len(res.Palette), p.TotalMs)
	return nil
}

func processDir(ctx context.Context, input string, cfg config.Config, start time.Time) error {
	out := procOut
	if out == "" {
		out = "./pixelsnap_out"
	}
	absOutput, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	logVerbose("input:   %s", input)
	logVerbose("output:  %s", absOutput)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	m, err := pipeline.NewBatch(pipeline.BatchConfig{
		InputDir:  input,
		OutputDir: absOutput,
		Profile:   profileName,
		Config:    cfg,
		Workers:   procWorkers,
		Vectorize: procVectorize,
	}).Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, pipeline.ManifestName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	printProcessReport(m, time.Since(start))
	return nil
}

func printProcessReport(m *manifest.Manifest, elapsed time.Duration) {
	s := m.Stats
	fmt.Println()
	fmt.Printf("  Assets:      %d\n", s.TotalAssets)
	fmt.Printf("  Outputs:     %d\n", s.TotalOutputs)
	if s.Failed > 0 {
		fmt.Printf("  Failed:      %d\n", s.Failed)
	}
	fmt.Printf("  Input size:  %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(s.TotalOutputBytes))
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	if m.BuildInfo != nil {
		fmt.Printf("  Workers:     %d\n", m.BuildInfo.Workers)
	}
	fmt.Println()

	if len(m.Assets) == 0 {
		return
	}
	keys := make([]string, 0, len(m.Assets))
	for k := range m.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	n := min(len(keys), 10)
	fmt.Printf("  First %d assets (original → pixels):\n", n)
	for _, k := range keys[:n] {
		p := m.Assets[k].Processing
		fmt.Printf("    %-40s %5dx%-5d → %4dx%-4d  scale %-3d %3d colours\n",
			truncKey(k, 40),
			p.OriginalSize.Width, p.OriginalSize.Height,
			p.FinalSize.Width, p.FinalSize.Height,
			p.Scale, len(m.Assets[k].Palette))
	}
	fmt.Println()
	fmt.Printf("  Manifest:    %s\n", pipeline.ManifestName)
	fmt.Println()
}

func fileSize(path string) int64 {
	if info, err := os.Stat(path); err == nil {
		return info.Size()
	}
	return 0
}
