package strata

import (
	"errors"
	"fmt"
	"os"

	"github.com/akmonengine/strata/character"
	"github.com/akmonengine/strata/constraint"
	"github.com/akmonengine/strata/logging"
	"github.com/akmonengine/strata/octree"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("strata: invalid config")

const DEFAULT_WORKERS = 1

// GridConfig sizes the body-vs-body broad phase. A disabled grid falls back to testing
// every pair, which is fine for a few dozen bodies.
type GridConfig struct {
	Enabled  bool    `yaml:"enabled"`
	CellSize float64 `yaml:"cell_size"`
	Cells    int     `yaml:"cells"`
}

// Config gathers the simulation settings, usually loaded from a YAML file.
type Config struct {
	// Dt is the fixed step, in seconds
	Dt float64 `yaml:"dt"`
	// MaxFrameTime caps the time accumulated by the loop in a single frame
	MaxFrameTime float64    `yaml:"max_frame_time"`
	Gravity      mgl64.Vec3 `yaml:"gravity"`

	ConstraintIterations int     `yaml:"constraint_iterations"`
	BiasFactor           float64 `yaml:"bias_factor"`
	Slop                 float64 `yaml:"slop"`
	// MeshFriction is the static mesh side of the friction product
	MeshFriction float64 `yaml:"mesh_friction"`

	Workers          int        `yaml:"workers"`
	Grid             GridConfig `yaml:"grid"`
	TrianglesPerLeaf int        `yaml:"tris_per_leaf"`
	// WorldFloor is the height below which bodies go back to where they were added
	WorldFloor float64 `yaml:"world_floor"`
	// Debug lowers the log level of loggers built from this config to debug
	Debug bool `yaml:"debug"`

	Character character.Config `yaml:"character"`
}

func DefaultConfig() Config {
	return Config{
		Dt:                   1.0 / 60.0,
		MaxFrameTime:         0.4,
		Gravity:              mgl64.Vec3{0, -9.81, 0},
		ConstraintIterations: constraint.DefaultIterations,
		BiasFactor:           constraint.DefaultBiasFactor,
		Slop:                 constraint.DefaultSlop,
		MeshFriction:         1.0,
		Workers:              DEFAULT_WORKERS,
		Grid: GridConfig{
			Enabled:  false,
			CellSize: 2.0,
			Cells:    1024,
		},
		TrianglesPerLeaf: octree.DefaultTrianglesPerLeaf,
		WorldFloor:       -30,
		Character:        character.DefaultConfig(),
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("strata: reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over the defaults and validates the result. Missing keys keep
// their default value.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first inconsistent setting.
// LogLevel is the minimum level for loggers built from this config.
func (c Config) LogLevel() logging.Level {
	if c.Debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func (c Config) Validate() error {
	switch {
	case c.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, c.Dt)
	case c.MaxFrameTime < c.Dt:
		return fmt.Errorf("%w: max_frame_time %v is shorter than dt %v", ErrInvalidConfig, c.MaxFrameTime, c.Dt)
	case c.ConstraintIterations < 1:
		return fmt.Errorf("%w: constraint_iterations must be at least 1", ErrInvalidConfig)
	case c.BiasFactor < 0 || c.BiasFactor > 1:
		return fmt.Errorf("%w: bias_factor %v out of [0, 1]", ErrInvalidConfig, c.BiasFactor)
	case c.Slop > 0:
		return fmt.Errorf("%w: slop is a penetration and must not be positive", ErrInvalidConfig)
	case c.MeshFriction < 0:
		return fmt.Errorf("%w: mesh_friction must not be negative", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.TrianglesPerLeaf < 1:
		return fmt.Errorf("%w: tris_per_leaf must be at least 1", ErrInvalidConfig)
	case c.Grid.Enabled && (c.Grid.CellSize <= 0 || c.Grid.Cells < 1):
		return fmt.Errorf("%w: grid needs a positive cell_size and cells", ErrInvalidConfig)
	}

	if err := c.Character.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
