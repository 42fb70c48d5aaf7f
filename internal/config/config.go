package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSolver    = "rk4"
	DefaultTimeStep  = 0.025
	DefaultStepSize  = 0.025
	DefaultDuration  = 10.0
	DefaultGravity   = 9.81
	DefaultTolerance = 0.01
	DefaultMaxStuck  = 20
	DefaultBoxSize   = 10.0
)

var ErrInvalidConfig = errors.New("config: invalid scenario")

// Config describes one scenario: the box, its discs and how to advance them.
type Config struct {
	Name              string         `yaml:"name"`
	Solver            string         `yaml:"solver"`
	TimeStep          float64        `yaml:"time_step"`
	StepSize          float64        `yaml:"step_size"`
	Duration          float64        `yaml:"duration"`
	Seed              int64          `yaml:"seed"`
	Gravity           float64        `yaml:"gravity"`
	Damping           float64        `yaml:"damping"`
	Tolerance         float64        `yaml:"tolerance"`
	MaxStuck          int            `yaml:"max_stuck"`
	JointSmallImpacts bool           `yaml:"joint_small_impacts"`
	RandomSpeed       float64        `yaml:"random_speed"`
	Box               BoxConfig      `yaml:"box"`
	Discs             []DiscConfig   `yaml:"discs"`
	Springs           []SpringConfig `yaml:"springs,omitempty"`
	Joints            []JointConfig  `yaml:"joints,omitempty"`
}

type BoxConfig struct {
	Left       float64 `yaml:"left"`
	Right      float64 `yaml:"right"`
	Bottom     float64 `yaml:"bottom"`
	Top        float64 `yaml:"top"`
	Elasticity float64 `yaml:"elasticity"`
}

type DiscConfig struct {
	Name       string  `yaml:"name"`
	Mass       float64 `yaml:"mass"`
	Radius     float64 `yaml:"radius"`
	Elasticity float64 `yaml:"elasticity"`
	X          float64 `yaml:"x"`
	Y          float64 `yaml:"y"`
	VX         float64 `yaml:"vx"`
	VY         float64 `yaml:"vy"`
}

// SpringConfig connects two discs by name. An empty B anchors the spring at
// (AnchorX, AnchorY).
type SpringConfig struct {
	A         string  `yaml:"a"`
	B         string  `yaml:"b,omitempty"`
	AnchorX   float64 `yaml:"anchor_x,omitempty"`
	AnchorY   float64 `yaml:"anchor_y,omitempty"`
	Rest      float64 `yaml:"rest"`
	Stiffness float64 `yaml:"stiffness"`
	Damping   float64 `yaml:"damping,omitempty"`
}

// JointConfig holds B at its initial offset from A.
type JointConfig struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:      "default",
		Solver:    DefaultSolver,
		TimeStep:  DefaultTimeStep,
		StepSize:  DefaultStepSize,
		Duration:  DefaultDuration,
		Gravity:   DefaultGravity,
		Tolerance: DefaultTolerance,
		MaxStuck:  DefaultMaxStuck,
		Box: BoxConfig{
			Right:      DefaultBoxSize,
			Top:        DefaultBoxSize,
			Elasticity: 1,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy so presets are never modified by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Discs = append([]DiscConfig(nil), c.Discs...)
	out.Springs = append([]SpringConfig(nil), c.Springs...)
	out.Joints = append([]JointConfig(nil), c.Joints...)
	return &out
}

func (c *Config) Validate() error {
	switch {
	case c.TimeStep <= 0:
		return fmt.Errorf("%w: time_step must be positive, got %g", ErrInvalidConfig, c.TimeStep)
	case c.StepSize <= 0:
		return fmt.Errorf("%w: step_size must be positive, got %g", ErrInvalidConfig, c.StepSize)
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, c.Duration)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	case c.MaxStuck < 1:
		return fmt.Errorf("%w: max_stuck must be at least 1, got %d", ErrInvalidConfig, c.MaxStuck)
	case len(c.Discs) == 0:
		return fmt.Errorf("%w: no discs", ErrInvalidConfig)
	}

	names := make(map[string]bool, len(c.Discs))
	for i, d := range c.Discs {
		if d.Name == "" {
			return fmt.Errorf("%w: disc %d has no name", ErrInvalidConfig, i)
		}
		if names[d.Name] {
			return fmt.Errorf("%w: duplicate disc %q", ErrInvalidConfig, d.Name)
		}
		if d.Mass <= 0 || d.Radius <= 0 {
			return fmt.Errorf("%w: disc %q needs positive mass and radius", ErrInvalidConfig, d.Name)
		}
		if d.Elasticity < 0 || d.Elasticity > 1 {
			return fmt.Errorf("%w: disc %q elasticity %g outside [0,1]", ErrInvalidConfig, d.Name, d.Elasticity)
		}
		names[d.Name] = true
	}
	for _, s := range c.Springs {
		if !names[s.A] || (s.B != "" && !names[s.B]) {
			return fmt.Errorf("%w: spring %s-%s names an unknown disc", ErrInvalidConfig, s.A, s.B)
		}
	}
	for _, j := range c.Joints {
		if !names[j.A] || !names[j.B] || j.A == j.B {
			return fmt.Errorf("%w: joint %s-%s must join two known discs", ErrInvalidConfig, j.A, j.B)
		}
	}
	return nil
}
