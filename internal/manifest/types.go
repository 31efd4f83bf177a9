package manifest

import "time"

// Manifest is the top-level output of a pixelsnap batch run.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Profile     string           `json:"profile"`
	BasePath    string           `json:"base_path"`
	BuildInfo   *BuildInfo       `json:"build_info,omitempty"`
	Assets      map[string]Asset `json:"assets"`
	Stats       Stats            `json:"stats"`
}

// BuildInfo captures run-time parameters for diagnostics.
type BuildInfo struct {
	Workers         int    `json:"workers"`
	DownscaleMethod string `json:"downscale_method"`
	MaxColors       int    `json:"max_colors"`
	OutputFormat    string `json:"output_format"`
}

// Asset describes a single source image and everything produced from it.
type Asset struct {
	Original   OriginalInfo `json:"original"`
	Processing Processing   `json:"processing"`
	Palette    []string     `json:"palette"`
	Vector     *Vector      `json:"vector,omitempty"`
	Outputs    []Output     `json:"outputs"`
}

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	HasAlpha bool   `json:"has_alpha"`
}

// Output is one file written for an asset.
type Output struct {
	Kind   string `json:"kind"`   // "raster", "svg"
	Format string `json:"format"` // "png", "webp", "svg"
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"` // bytes on disk
	Hash   string `json:"hash"` // first 16 hex chars of xxhash64
	Path   string `json:"path"` // relative to base_path
}

// Stats aggregates batch metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalAssets      int   `json:"total_assets"`
	TotalOutputs     int   `json:"total_outputs"`
	Failed           int   `json:"failed,omitempty"`
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1

// Size is a width/height pair.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GridOffset is the crop origin chosen by grid alignment.
type GridOffset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// QuantizeStats records one quantization pass.
type QuantizeStats struct {
	Requested  int    `json:"requested"`
	Auto       bool   `json:"auto,omitempty"`
	ColorsUsed int    `json:"colors_used"`
	Fixed      int    `json:"fixed,omitempty"`
	Method     string `json:"method"`
	FellBack   bool   `json:"fell_back,omitempty"`
}

// CleanupInfo records which cleanup passes ran.
type CleanupInfo struct {
	Morph        bool `json:"morph"`
	Jaggy        bool `json:"jaggy"`
	JaggyRemoved int  `json:"jaggy_removed,omitempty"`
}

// EncodedInfo describes the encoded raster.
type EncodedInfo struct {
	Format string `json:"format"`
	Size   int    `json:"size"`
	Hash   string `json:"hash"`
}

// Processing is the provenance record of one raster reconstruction. It is
// filled in as the pipeline runs and only ever returned to the caller.
type Processing struct {
	OriginalSize    Size           `json:"original_size"`
	FinalSize       Size           `json:"final_size"`
	Scale           int            `json:"scale"`
	ScaleX          int            `json:"scale_x"`
	ScaleY          int            `json:"scale_y"`
	DetectedScale   int            `json:"detected_scale"`
	ScaleRaised     bool           `json:"scale_raised,omitempty"` // forced up by max grid size
	DetectionMethod string         `json:"detection_method"`
	GridOffset      GridOffset     `json:"grid_offset"`
	Aligned         bool           `json:"aligned"`
	DownscaleMethod string         `json:"downscale_method"`
	PreQuantize     *QuantizeStats `json:"pre_quantize,omitempty"`
	PostQuantize    *QuantizeStats `json:"post_quantize,omitempty"`
	Cleanup         CleanupInfo    `json:"cleanup"`
	AlphaThreshold  int            `json:"alpha_threshold"`
	Output          EncodedInfo    `json:"output"`
	Timings         Timings        `json:"timings"`
	TotalMs         float64        `json:"total_ms"`
}

// FilterInfo records an optional vectorizer filter step.
type FilterInfo struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// Vector is the provenance record of one vectorization.
type Vector struct {
	Size           Size           `json:"size"`
	Sentinel       bool           `json:"sentinel"`
	PreFilter      *FilterInfo    `json:"pre_filter,omitempty"`
	MorphClose     *FilterInfo    `json:"morph_close,omitempty"`
	Quantize       *QuantizeStats `json:"quantize,omitempty"`
	PostFilter     *FilterInfo    `json:"post_filter,omitempty"`
	Regions        int            `json:"regions"`
	Paths          int            `json:"paths"`
	OmittedRegions int            `json:"omitted_regions,omitempty"`
	StrippedPaths  int            `json:"stripped_paths,omitempty"`
	Colors         int            `json:"colors"`
	Timings        Timings        `json:"timings"`
}

// Timing is the wall time of one named stage.
type Timing struct {
	Stage string  `json:"stage"`
	Ms    float64 `json:"ms"`
}

// Timings keeps stage timings in execution order.
type Timings []Timing

// Track appends the time elapsed since start under stage.
func (t *Timings) Track(stage string, start time.Time) {
	*t = append(*t, Timing{Stage: stage, Ms: float64(time.Since(start).Microseconds()) / 1000})
}

// Total sums all stage timings.
func (t Timings) Total() float64 {
	var ms float64
	for _, s := range t {
		ms += s.Ms
	}
	return ms
}
