package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/pixelsnap-cli/internal/cleanup"
	"github.com/AnyUserName/pixelsnap-cli/internal/downscale"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/pipeline"
	"github.com/AnyUserName/pixelsnap-cli/internal/scale"
)

var (
	detectJSON   bool
	detectMethod string
	detectEdge   string
)

var detectCmd = &cobra.Command{
	Use:   "detect <input_file>...",
	Short: "Print the detected pixel scale and grid offset of images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print results as JSON")
	detectCmd.Flags().StringVar(&detectMethod, "detect", "", "scale detection: auto, runs, edge")
	detectCmd.Flags().StringVar(&detectEdge, "edge", "", "edge detection variant: tiled, legacy")
	rootCmd.AddCommand(detectCmd)
}

type detection struct {
	File   string              `json:"file"`
	Size   manifest.Size       `json:"size"`
	Scale  scale.Result        `json:"scale"`
	Offset manifest.GridOffset `json:"offset"`
	Grid   manifest.Size       `json:"grid"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("detect") {
		cfg.DetectMethod = detectMethod
	}
	if cmd.Flags().Changed("edge") {
		cfg.EdgeDetectMethod = detectEdge
	}
	if cfg, err = cfg.Validate(); err != nil {
		return err
	}

	var results []detection
	for _, path := range args {
		if err := pipeline.CheckSize(fileSize(path)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		img, _, err := pipeline.Decode(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		cleanup.BinarizeAlpha(img, uint8(cfg.AlphaThreshold))

		res := scale.Detect(img, scale.Options{
			Method:     scale.Method(cfg.DetectMethod),
			EdgeMethod: scale.EdgeMethod(cfg.EdgeDetectMethod),
		})
		d := detection{
			File:  filepath.Base(path),
			Size:  manifest.Size{Width: img.Width, Height: img.Height},
			Scale: res,
			Grid:  manifest.Size{Width: img.Width / res.Scale, Height: img.Height / res.Scale},
		}
		if res.Scale > 1 {
			off := downscale.Align(img, res.Scale)
			d.Offset = manifest.GridOffset{X: off.X, Y: off.Y}
			d.Grid = manifest.Size{
				Width:  (img.Width - off.X) / res.Scale,
				Height: (img.Height - off.Y) / res.Scale,
			}
		}
		results = append(results, d)
	}

	if detectJSON {
		data, err := manifest.Marshal(results)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
		return nil
	}
	for _, d := range results {
		fmt.Printf("  %-32s %5dx%-5d scale %-3d (x=%d y=%d, %s)  offset (%d,%d)  grid %dx%d\n",
			truncKey(d.File, 32), d.Size.Width, d.Size.Height,
			d.Scale.Scale, d.Scale.ScaleX, d.Scale.ScaleY, d.Scale.Method,
			d.Offset.X, d.Offset.Y, d.Grid.Width, d.Grid.Height)
	}
	return nil
}
