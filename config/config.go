// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Particles ParticlesConfig `yaml:"particles"`
	Active    ActiveConfig    `yaml:"active"`
	Manifold  ManifoldConfig  `yaml:"manifold"`
	Run       RunConfig       `yaml:"run"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings for the graphical mode.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the simulation box dimensions.
// A 2D run uses Lx and Ly only; Lz is ignored when dimensions is 2.
type WorldConfig struct {
	Lx         float64 `yaml:"lx"`
	Ly         float64 `yaml:"ly"`
	Lz         float64 `yaml:"lz"`
	Dimensions int     `yaml:"dimensions"` // 2 or 3
}

// ParticlesConfig holds particle creation parameters.
type ParticlesConfig struct {
	Count int    `yaml:"count"`
	Seed  uint64 `yaml:"seed"` // 0 = time-based
}

// ActiveConfig holds the self-propulsion parameters.
type ActiveConfig struct {
	ForceMagnitude  float64 `yaml:"force_magnitude"`
	TorqueMagnitude float64 `yaml:"torque_magnitude"`
	Radius          float64 `yaml:"radius"`        // Alignment interaction cutoff
	Coupling        float64 `yaml:"coupling"`      // Neighbor alignment strength
	RotationDiff    float64 `yaml:"rotation_diff"` // Rotational diffusion constant

	OrientationLink        bool `yaml:"orientation_link"`
	OrientationReverseLink bool `yaml:"orientation_reverse_link"`
}

// ManifoldConfig holds the optional constraint surface.
// Kind is one of "", "sphere", "ellipsoid", "plane". Empty disables the constraint.
type ManifoldConfig struct {
	Kind   string     `yaml:"kind"`
	Radii  [3]float64 `yaml:"radii"`
	Center [3]float64 `yaml:"center"`
}

// RunConfig holds integration parameters.
type RunConfig struct {
	DT        float64 `yaml:"dt"`
	Drag      float64 `yaml:"drag"`       // Translational drag for the overdamped update
	CellSize  float64 `yaml:"cell_size"`  // Neighbor-list cell size (0 = active.radius)
	SortEvery int     `yaml:"sort_every"` // Steps between spatial sorts (0 = never)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Steps per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	CellSize float64 // Effective neighbor cell size
	Is2D     bool
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// validate rejects configurations the simulation cannot run with.
func (c *Config) validate() error {
	if c.World.Dimensions != 2 && c.World.Dimensions != 3 {
		return fmt.Errorf("world.dimensions must be 2 or 3, got %d", c.World.Dimensions)
	}
	if c.Particles.Count <= 0 {
		return fmt.Errorf("particles.count must be positive, got %d", c.Particles.Count)
	}
	if c.Active.Radius <= 0 {
		return fmt.Errorf("active.radius must be positive, got %g", c.Active.Radius)
	}
	if c.Run.DT <= 0 {
		return fmt.Errorf("run.dt must be positive, got %g", c.Run.DT)
	}
	switch c.Manifold.Kind {
	case "", "sphere", "ellipsoid", "plane":
	default:
		return fmt.Errorf("manifold.kind %q not supported", c.Manifold.Kind)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Is2D = c.World.Dimensions == 2

	c.Derived.CellSize = c.Run.CellSize
	if c.Derived.CellSize <= 0 {
		c.Derived.CellSize = c.Active.Radius
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
