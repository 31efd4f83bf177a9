package profile

import (
	"sort"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
)

// Profile is a named preset applied on top of config.Default.
type Profile struct {
	Name        string
	Description string
	apply       func(c *config.Config)
}

// Built-in profiles.
var profiles = map[string]Profile{
	"default": {
		Name:        "default",
		Description: "dominant-colour downscale, 16 colours",
		apply:       func(*config.Config) {},
	},
	"clean": {
		Name:        "clean",
		Description: "already clean pixel art: run-length detection, nearest sampling, no pre-quantize",
		apply: func(c *config.Config) {
			c.DetectMethod = "runs"
			c.DownscaleMethod = "nearest"
			c.PreQuantize = false
			c.MaxColors = 256
		},
	},
	"ai-smooth": {
		Name:        "ai-smooth",
		Description: "smooth AI renders: content-adaptive resampler, auto colour count, full cleanup",
		apply: func(c *config.Config) {
			c.DownscaleMethod = "content-adaptive"
			c.AutoColorCount = true
			c.MaxColors = 32
			c.Cleanup = config.Cleanup{Morph: true, Jaggy: true}
		},
	},
	"icon": {
		Name:        "icon",
		Description: "small icons: 64px grid cap, 8 colours, jaggy cleanup, webp output",
		apply: func(c *config.Config) {
			c.MaxGridSize = 64
			c.MaxColors = 8
			c.Cleanup.Jaggy = true
			c.OutputFormat = config.FormatWebP
		},
	},
}

// Get returns a profile by name. Falls back to default if unknown.
func Get(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	p := profiles["default"]
	p.Name = name // preserve requested name
	return p
}

// Known reports whether name is a built-in profile.
func Known(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Names lists the built-in profiles in sorted order.
func Names() []string {
	out := make([]string, 0, len(profiles))
	for n := range profiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Config returns the profile's preset applied to base.
func (p Profile) Config(base config.Config) config.Config {
	if p.apply != nil {
		p.apply(&base)
	}
	return base
}
