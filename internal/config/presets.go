package config

import "sort"

func box(size, elasticity float64) BoxConfig {
	return BoxConfig{Right: size, Top: size, Elasticity: elasticity}
}

func unit(name string, x, y float64) DiscConfig {
	return DiscConfig{Name: name, Mass: 1, Radius: 0.5, Elasticity: 1, X: x, Y: y}
}

var Presets = map[string]*Config{
	"bounce": {
		Name: "bounce", Solver: "rk4", TimeStep: 0.025, StepSize: 0.025, Duration: 10,
		Gravity: DefaultGravity, Tolerance: DefaultTolerance, MaxStuck: DefaultMaxStuck,
		Box:   box(DefaultBoxSize, 1),
		Discs: []DiscConfig{unit("ball", 5, 8)},
	},
	"cradle": {
		Name: "cradle", Solver: "rk4", TimeStep: 0.025, StepSize: 0.025, Duration: 10,
		Tolerance: DefaultTolerance, MaxStuck: DefaultMaxStuck,
		Box: box(12, 1),
		Discs: []DiscConfig{
			{Name: "striker", Mass: 1, Radius: 0.5, Elasticity: 1, X: 1.01, Y: 6, VX: 3},
			unit("b1", 5, 6), unit("b2", 6.005, 6), unit("b3", 7.01, 6), unit("b4", 8.015, 6),
		},
	},
	"billiards": {
		Name: "billiards", Solver: "rk4", TimeStep: 0.025, StepSize: 0.025, Duration: 20,
		Seed: 1, RandomSpeed: 3, Tolerance: DefaultTolerance, MaxStuck: DefaultMaxStuck,
		Box: box(DefaultBoxSize, 1),
		Discs: []DiscConfig{
			unit("p1", 2, 2), unit("p2", 5, 2), unit("p3", 8, 2),
			unit("p4", 2, 6), unit("p5", 5, 6), unit("p6", 8, 6),
		},
	},
	"chain": {
		Name: "chain", Solver: "rk4", TimeStep: 0.025, StepSize: 0.025, Duration: 10,
		Gravity: DefaultGravity, Tolerance: DefaultTolerance, MaxStuck: DefaultMaxStuck,
		JointSmallImpacts: true,
		Box:               box(DefaultBoxSize, 0.9),
		Discs: []DiscConfig{
			unit("head", 3, 7), unit("tail", 4.2, 7), unit("loose", 7, 4),
		},
		Joints: []JointConfig{{A: "head", B: "tail"}},
	},
	"springs": {
		Name: "springs", Solver: "rk4", TimeStep: 0.025, StepSize: 0.025, Duration: 10,
		Gravity: DefaultGravity, Tolerance: DefaultTolerance, MaxStuck: DefaultMaxStuck,
		Box: box(DefaultBoxSize, 1),
		Discs: []DiscConfig{
			unit("upper", 5, 7), unit("lower", 5, 4),
		},
		Springs: []SpringConfig{
			{A: "upper", AnchorX: 5, AnchorY: 10, Rest: 2, Stiffness: 40},
			{A: "upper", B: "lower", Rest: 2.5, Stiffness: 40},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
