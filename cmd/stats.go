package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/pixelsnap-cli/internal/manifest"
	"github.com/AnyUserName/pixelsnap-cli/internal/pipeline"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a processed output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	m, _, err := readManifest(args[0])
	if err != nil {
		return err
	}
	printStats(m)
	return nil
}

// readManifest loads a manifest from a file or from the default name inside
// a directory. It returns the manifest's directory as well.
func readManifest(path string) (*manifest.Manifest, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, pipeline.ManifestName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read manifest: %w", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", fmt.Errorf("parse manifest: %w", err)
	}
	return &m, filepath.Dir(path), nil
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Profile:          %s\n", m.Profile)
	if b := m.BuildInfo; b != nil {
		fmt.Printf("  Workers:          %d\n", b.Workers)
		fmt.Printf("  Downscale:        %s, ≤%d colours, %s\n", b.DownscaleMethod, b.MaxColors, b.OutputFormat)
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Total assets:     %d\n", s.TotalAssets)
	fmt.Printf("  Total outputs:    %d\n", s.TotalOutputs)
	if s.Failed > 0 {
		fmt.Printf("  Failed inputs:    %d\n", s.Failed)
	}
	fmt.Printf("  Input size:       %s\n", formatBytes(s.TotalInputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.TotalOutputBytes))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Println()

	// Per-format breakdown.
	formatStats := map[string]struct {
		count int
		bytes int64
	}{}
	for _, a := range m.Assets {
		for _, o := range a.Outputs {
			fs := formatStats[o.Format]
			fs.count++
			fs.bytes += o.Size
			formatStats[o.Format] = fs
		}
	}
	fmt.Println("  Format breakdown:")
	for _, f := range []string{"png", "webp", "svg"} {
		if fs, ok := formatStats[f]; ok {
			fmt.Printf("    %-6s  %4d files  %s\n", f, fs.count, formatBytes(fs.bytes))
		}
	}
	fmt.Println()

	// Scale and detection breakdown.
	scales := map[int]int{}
	methods := map[string]int{}
	raised := 0
	for _, a := range m.Assets {
		scales[a.Processing.Scale]++
		methods[a.Processing.DetectionMethod]++
		if a.Processing.ScaleRaised {
			raised++
		}
	}
	var keys []int
	for s := range scales {
		keys = append(keys, s)
	}
	sort.Ints(keys)
	fmt.Println("  Scale breakdown:")
	for _, s := range keys {
		fmt.Printf("    %4dx  %4d assets\n", s, scales[s])
	}
	names := make([]string, 0, len(methods))
	for n := range methods {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Println("  Detection:")
	for _, n := range names {
		fmt.Printf("    %-16s %4d\n", n, methods[n])
	}
	if raised > 0 {
		fmt.Printf("  Scale raised by max grid size: %d assets\n", raised)
	}
	fmt.Println()

	// Warnings.
	var warnings []string
	for key, a := range m.Assets {
		if len(a.Outputs) == 0 {
			warnings = append(warnings, fmt.Sprintf("asset %q has no outputs", key))
		}
		if a.Processing.Scale == 1 && a.Processing.DetectionMethod != "manual" {
			warnings = append(warnings, fmt.Sprintf("asset %q: no pixel grid detected", key))
		}
		if q := a.Processing.PostQuantize; q != nil && q.FellBack {
			warnings = append(warnings, fmt.Sprintf("asset %q: quantizer fell back to %s", key, q.Method))
		}
	}
	if len(warnings) > 0 {
		sort.Strings(warnings)
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
		fmt.Println()
	}
}
