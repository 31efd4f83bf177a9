package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
	"github.com/AnyUserName/pixelsnap-cli/internal/logging"
	"github.com/AnyUserName/pixelsnap-cli/internal/profile"
)

var (
	version     = "0.1.0"
	verbose     bool
	profileName string
	configPath  string
)

var rootCmd = &cobra.Command{
	Use:   "pixelsnap",
	Short: "Turn upscaled or AI-generated pixel art back into true pixel art",
	Long: `pixelsnap recovers the logical pixel grid of upscaled, blurred or
AI-generated pixel art and rebuilds a clean raster at native resolution,
with one output pixel per source block.

Results can also be traced into an SVG of one path per colour region.`,
	Version: version,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "default", "processing profile")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "JSON config file applied on top of the profile")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"pixelsnap %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// baseConfig resolves --profile and --config. Flags of the individual
// commands are applied on top by the caller.
func baseConfig() (config.Config, error) {
	if !profile.Known(profileName) {
		return config.Config{}, fmt.Errorf("unknown profile %q (available: %v)", profileName, profile.Names())
	}
	cfg := profile.Get(profileName).Config(config.Default())
	if configPath != "" {
		var err error
		if cfg, err = config.LoadOver(cfg, configPath); err != nil {
			return cfg, err
		}
	}
	logVerbose("profile: %s", profileName)
	return cfg, nil
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[pixelsnap] "+format+"\n", args...)
	}
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
