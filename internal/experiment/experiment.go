package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/physics"
	"github.com/san-kum/collisim/internal/sim"
	"github.com/sirupsen/logrus"
)

// Experiment is one scenario wired to a solver, an advance and a simulator.
type Experiment struct {
	cfg       *config.Config
	host      *physics.BallBox
	simulator *sim.Simulator
	log       logrus.FieldLogger
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) SetLogger(l logrus.FieldLogger) {
	e.log = l
	if e.simulator != nil {
		e.simulator.SetLogger(l)
	}
}

func (e *Experiment) Setup(reg *Registry, metrics []sim.Metric) error {
	host, err := config.Build(e.cfg)
	if err != nil {
		return err
	}
	solver, err := reg.GetSolver(e.cfg.Solver, host)
	if err != nil {
		return err
	}

	adv := collision.NewAdvance(host, solver)
	if err := adv.SetTimeStep(e.cfg.TimeStep); err != nil {
		return err
	}
	if err := adv.SetDistanceTolerance(e.cfg.Tolerance); err != nil {
		return err
	}
	if err := adv.SetMaxStuck(e.cfg.MaxStuck); err != nil {
		return err
	}
	adv.SetJointSmallImpacts(e.cfg.JointSmallImpacts)

	e.host = host
	e.simulator = sim.New(adv)
	if e.log != nil {
		e.simulator.SetLogger(e.log.WithFields(logrus.Fields{
			"scenario": e.cfg.Name,
			"solver":   e.cfg.Solver,
		}))
	}
	for _, m := range metrics {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.simConfig())
}

func (e *Experiment) simConfig() sim.Config {
	return sim.Config{
		StepSize:      e.cfg.StepSize,
		Duration:      e.cfg.Duration,
		ValidateState: true,
		Record:        true,
	}
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Host returns the simulation being advanced, for verification after a run.
func (e *Experiment) Host() *physics.BallBox { return e.host }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

// Factory builds ensemble members that differ only in their seed.
func Factory(reg *Registry, cfg *config.Config) sim.Factory {
	return func(seed int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		c.Seed = seed
		e := New(c)
		if err := e.Setup(reg, reg.DefaultMetrics(c)); err != nil {
			return nil, err
		}
		return e.simulator, nil
	}
}
