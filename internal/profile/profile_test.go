package profile

import (
	"testing"

	"github.com/AnyUserName/pixelsnap-cli/internal/config"
)

func TestProfilesValidate(t *testing.T) {
	for _, name := range Names() {
		cfg := Get(name).Config(config.Default())
		if _, err := cfg.Validate(); err != nil {
			t.Errorf("profile %s: %v", name, err)
		}
	}
}

func TestGetUnknownFallsBack(t *testing.T) {
	p := Get("nope")
	if p.Name != "nope" {
		t.Errorf("name: got %q", p.Name)
	}
	if Known("nope") {
		t.Error("nope should be unknown")
	}
	if got := p.Config(config.Default()); got.DownscaleMethod != "dominant" {
		t.Errorf("fallback preset: %+v", got)
	}
}

func TestProfileDoesNotLeak(t *testing.T) {
	base := config.Default()
	_ = Get("ai-smooth").Config(base)
	if base.DownscaleMethod != "dominant" || base.Cleanup.Morph {
		t.Error("preset modified the base config")
	}
}
