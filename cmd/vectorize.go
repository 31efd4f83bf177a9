package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/pixelsnap-cli/internal/encoder"
	"github.com/AnyUserName/pixelsnap-cli/internal/pipeline"
	"github.com/AnyUserName/pixelsnap-cli/internal/vectorize"
)

var (
	vecOut       string
	vecPreview   string
	vecReconst   bool
	vecColors    int
	vecPathOmit  int
	vecScale     float64
	vecFilter    string
	vecQuantize  int
	vecNoViewbox bool
	vecDesc      bool
)

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize <input_file>",
	Short: "Trace an image into an SVG of one path per colour region",
	Long: `Traces a raster into closed, axis-aligned paths, one per 4-connected
colour region. Transparent pixels are left out of the document.

With --reconstruct the image first goes through the full pixel-art
pipeline, so upscaled art is traced at its native resolution.`,
	Args: cobra.ExactArgs(1),
	RunE: runVectorize,
}

func init() {
	f := vectorizeCmd.Flags()
	f.StringVarP(&vecOut, "out", "o", "", "output SVG (default <name>.svg)")
	f.StringVar(&vecPreview, "preview", "", "also rasterize the SVG back to this PNG")
	f.BoolVar(&vecReconst, "reconstruct", false, "run the pixel-art pipeline before tracing")
	f.IntVar(&vecColors, "colors", 0, "tracer palette size when the input is not yet quantized")
	f.IntVar(&vecPathOmit, "path-omit", 0, "drop regions with fewer pixels than this")
	f.Float64Var(&vecScale, "scale", 0, "coordinate scale factor")
	f.StringVar(&vecFilter, "filter", "", "pre-filter: bilateral, median, gaussian")
	f.IntVar(&vecQuantize, "quantize", 0, "quantize to this many colours before tracing")
	f.BoolVar(&vecNoViewbox, "no-viewbox", false, "omit the viewBox attribute")
	f.BoolVar(&vecDesc, "desc", false, "add a <desc> element with tracer statistics")
	rootCmd.AddCommand(vectorizeCmd)
}

func runVectorize(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig()
	if err != nil {
		return err
	}
	cfg, err = cfg.Validate()
	if err != nil {
		return err
	}
	opts := vectorize.DefaultOptions()
	if cfg.Vectorize != nil {
		opts = *cfg.Vectorize
	}

	set := cmd.Flags().Changed
	if set("colors") {
		opts.Trace.NumColors = vecColors
	}
	if set("path-omit") {
		opts.Trace.PathOmit = vecPathOmit
	}
	if set("scale") {
		opts.Trace.Scale = vecScale
	}
	if set("no-viewbox") {
		opts.Trace.Viewbox = !vecNoViewbox
	}
	if set("desc") {
		opts.Trace.Desc = vecDesc
	}
	if set("filter") {
		opts.PreProcess = &vectorize.PreProcess{Filter: vecFilter}
	}
	if set("quantize") {
		opts.Quantize = &vectorize.QuantizeOptions{Enabled: true, MaxColors: vecQuantize}
	}

	input := args[0]
	if err := pipeline.CheckSize(fileSize(input)); err != nil {
		return err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	img, format, err := pipeline.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(input), err)
	}
	logVerbose("decoded %s: %dx%d %s", input, img.Width, img.Height, format)

	if vecReconst {
		out, m, err := pipeline.Reconstruct(img, cfg)
		if err != nil {
			return err
		}
		logVerbose("reconstructed to %dx%d (scale %d)", out.Width, out.Height, m.Scale)
		img = out
	}

	res, err := vectorize.Vectorize(img, opts)
	if err != nil {
		return err
	}

	out := vecOut
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}
	if err := os.WriteFile(out, []byte(res.SVG), 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}

	if vecPreview != "" {
		back, err := vectorize.Rasterize(res.SVG, img.Width, img.Height)
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		enc, err := encoder.NewRegistry().Lookup("png")
		if err != nil {
			return err
		}
		png, err := enc.Encode(back.NRGBA())
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		if err := os.WriteFile(vecPreview, png, 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		logVerbose("wrote preview %s", vecPreview)
	}

	v := res.Manifest
	fmt.Printf("  %s: %d regions, %d paths, %d colours → %s (%s)\n",
		filepath.Base(input), v.Regions, v.Paths, len(res.Palette), out, formatBytes(int64(len(res.SVG))))
	return nil
}
