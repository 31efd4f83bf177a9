package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/pixelsnap-cli/internal/hasher"
	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
)

var validateHashes bool

var validateCmd = &cobra.Command{
	Use:   "validate <out_dir_or_manifest>",
	Short: "Validate a pixelsnap manifest and check referenced files exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateHashes, "hashes", true, "re-hash every output and compare with the manifest")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	m, baseDir, err := readManifest(args[0])
	if err != nil {
		return err
	}

	errs := validateManifest(m, baseDir, validateHashes)
	if len(errs) == 0 {
		fmt.Println("  ✓ Manifest is valid")
		fmt.Printf("  ✓ %d assets, %d outputs, all files present\n", m.Stats.TotalAssets, m.Stats.TotalOutputs)
		return nil
	}

	fmt.Printf("  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string, checkHashes bool) []string {
	var errs []string

	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	for key, asset := range m.Assets {
		if asset.Original.Width <= 0 || asset.Original.Height <= 0 {
			errs = append(errs, fmt.Sprintf("asset %q: invalid original dimensions %dx%d",
				key, asset.Original.Width, asset.Original.Height))
		}

		p := asset.Processing
		if p.Scale < 1 {
			errs = append(errs, fmt.Sprintf("asset %q: invalid scale %d", key, p.Scale))
		} else if p.FinalSize.Width > asset.Original.Width/p.Scale || p.FinalSize.Height > asset.Original.Height/p.Scale {
			errs = append(errs, fmt.Sprintf("asset %q: final size %dx%d exceeds original/scale",
				key, p.FinalSize.Width, p.FinalSize.Height))
		}
		if len(asset.Palette) == 0 && asset.Original.Width > 0 && !asset.Original.HasAlpha {
			errs = append(errs, fmt.Sprintf("asset %q: empty palette", key))
		}

		if len(asset.Outputs) == 0 {
			errs = append(errs, fmt.Sprintf("asset %q: no outputs", key))
		}

		seenPaths := map[string]bool{}
		for i, o := range asset.Outputs {
			if o.Format == "" {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: empty format", key, i))
			}
			if o.Width <= 0 || o.Height <= 0 {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: invalid dimensions %dx%d",
					key, i, o.Width, o.Height))
			}
			if o.Hash == "" {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: missing hash", key, i))
			}
			if o.Path == "" {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: missing path", key, i))
				continue
			}

			if seenPaths[o.Path] {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: duplicate path %q", key, i, o.Path))
			}
			seenPaths[o.Path] = true

			fullPath := filepath.Join(baseDir, filepath.FromSlash(o.Path))
			info, err := os.Stat(fullPath)
			if err != nil {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: file not found: %s", key, i, o.Path))
				continue
			}
			if o.Size > 0 && info.Size() != o.Size {
				errs = append(errs, fmt.Sprintf("asset %q output[%d]: size mismatch: manifest=%d, disk=%d",
					key, i, o.Size, info.Size()))
			}
			if checkHashes && o.Hash != "" {
				if got, err := hasher.HashFile(fullPath, len(o.Hash)); err != nil {
					errs = append(errs, fmt.Sprintf("asset %q output[%d]: %v", key, i, err))
				} else if got != o.Hash {
					errs = append(errs, fmt.Sprintf("asset %q output[%d]: hash mismatch: manifest=%s, disk=%s",
						key, i, o.Hash, got))
				}
			}
		}
	}

	// Verify stats consistency.
	outputCount := 0
	for _, a := range m.Assets {
		outputCount += len(a.Outputs)
	}
	if m.Stats.TotalAssets != len(m.Assets) {
		errs = append(errs, fmt.Sprintf("stats.total_assets mismatch: %d != %d", m.Stats.TotalAssets, len(m.Assets)))
	}
	if m.Stats.TotalOutputs != outputCount {
		errs = append(errs, fmt.Sprintf("stats.total_outputs mismatch: %d != %d", m.Stats.TotalOutputs, outputCount))
	}

	return errs
}
