package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Particles.Count != 1024 {
		t.Errorf("particles.count = %d", cfg.Particles.Count)
	}
	if cfg.World.Dimensions != 2 {
		t.Errorf("world.dimensions = %d", cfg.World.Dimensions)
	}
	if cfg.Active.Radius != 5.0 {
		t.Errorf("active.radius = %g", cfg.Active.Radius)
	}
	if cfg.Run.DT != 0.01 {
		t.Errorf("run.dt = %g", cfg.Run.DT)
	}
	if cfg.Manifold.Kind != "" {
		t.Errorf("manifold.kind = %q", cfg.Manifold.Kind)
	}
}

func TestLoadDerived(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Derived.Is2D {
		t.Error("derived is2d should be true for defaults")
	}
	// cell_size 0 falls back to the interaction radius.
	if cfg.Derived.CellSize != cfg.Active.Radius {
		t.Errorf("derived cell_size = %g", cfg.Derived.CellSize)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverlay(t *testing.T) {
	path := writeConfig(t, `
active:
  coupling: 2.5
run:
  cell_size: 7.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Active.Coupling != 2.5 {
		t.Errorf("overlay coupling = %g", cfg.Active.Coupling)
	}
	if cfg.Derived.CellSize != 7.5 {
		t.Errorf("explicit cell_size not used: %g", cfg.Derived.CellSize)
	}
	// Untouched fields keep their defaults.
	if cfg.Particles.Count != 1024 {
		t.Errorf("default lost under overlay: count = %d", cfg.Particles.Count)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad dimensions", "world:\n  dimensions: 4\n"},
		{"zero count", "particles:\n  count: 0\n"},
		{"negative radius", "active:\n  radius: -1\n"},
		{"zero dt", "run:\n  dt: 0\n"},
		{"unknown manifold", "manifold:\n  kind: torus\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Active.Coupling = 3.25

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Active.Coupling != 3.25 {
		t.Errorf("round-trip coupling = %g", back.Active.Coupling)
	}
}

func TestInitAndCfg(t *testing.T) {
	if err := Init(""); err != nil {
		t.Fatal(err)
	}
	if Cfg() == nil {
		t.Fatal("Cfg returned nil after Init")
	}
}
