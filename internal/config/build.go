package config

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/collisim/internal/physics"
)

// Build creates the host simulation described by the config. Random
// velocities are drawn from Seed, so equal configs build equal states.
func Build(cfg *Config) (*physics.BallBox, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discs := make([]physics.Disc, len(cfg.Discs))
	index := make(map[string]int, len(cfg.Discs))
	for i, d := range cfg.Discs {
		discs[i] = physics.Disc{Name: d.Name, Mass: d.Mass, Radius: d.Radius, Elasticity: d.Elasticity}
		index[d.Name] = i
	}

	b := physics.NewBallBox(discs, physics.Box{
		Left:       cfg.Box.Left,
		Right:      cfg.Box.Right,
		Bottom:     cfg.Box.Bottom,
		Top:        cfg.Box.Top,
		Elasticity: cfg.Box.Elasticity,
	})
	b.Gravity = cfg.Gravity
	b.Damping = cfg.Damping
	b.DistanceTol = cfg.Tolerance
	b.RecoveryTime = cfg.TimeStep

	rng := rand.New(rand.NewSource(cfg.Seed))
	for i, d := range cfg.Discs {
		v := mgl64.Vec2{d.VX, d.VY}
		if cfg.RandomSpeed > 0 {
			angle := rng.Float64() * 2 * math.Pi
			speed := rng.Float64() * cfg.RandomSpeed
			v = v.Add(mgl64.Vec2{math.Cos(angle), math.Sin(angle)}.Mul(speed))
		}
		b.SetPosition(i, mgl64.Vec2{d.X, d.Y})
		b.SetVelocity(i, v)
	}

	for _, s := range cfg.Springs {
		spring := physics.Spring{
			A:         index[s.A],
			B:         -1,
			Anchor:    mgl64.Vec2{s.AnchorX, s.AnchorY},
			Rest:      s.Rest,
			Stiffness: s.Stiffness,
			Damping:   s.Damping,
		}
		if s.B != "" {
			spring.B = index[s.B]
		}
		b.AddSpring(spring)
	}

	for _, j := range cfg.Joints {
		a, c := index[j.A], index[j.B]
		b.AddJoint(physics.Joint{A: a, B: c, Offset: b.Position(c).Sub(b.Position(a))})
		if cfg.RandomSpeed > 0 {
			b.SetVelocity(c, b.Velocity(a))
		}
	}

	if gap, ok := b.MinSeparation(); ok && gap < -cfg.Tolerance {
		return nil, fmt.Errorf("%w: discs overlap by %g at start", ErrInvalidConfig, -gap)
	}
	return b, nil
}
