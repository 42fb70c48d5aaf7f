package experiment

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/integrators"
	"github.com/san-kum/collisim/internal/metrics"
	"github.com/san-kum/collisim/internal/sim"
)

// SolverFactory binds a new solver to a host.
type SolverFactory func(host collision.Sim) dynamo.Solver

// Registry keeps solvers and scenarios in registration order, which is the
// order the CLI lists and compares them in.
type Registry struct {
	solvers   *orderedmap.OrderedMap[string, SolverFactory]
	scenarios *orderedmap.OrderedMap[string, *config.Config]
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers:   orderedmap.NewOrderedMap[string, SolverFactory](),
		scenarios: orderedmap.NewOrderedMap[string, *config.Config](),
	}

	r.RegisterSolver("euler", func(h collision.Sim) dynamo.Solver { return integrators.NewEuler(h) })
	r.RegisterSolver("modified_euler", func(h collision.Sim) dynamo.Solver { return integrators.NewModifiedEuler(h) })
	r.RegisterSolver("rk4", func(h collision.Sim) dynamo.Solver { return integrators.NewRK4(h) })
	r.RegisterSolver("adaptive_euler", func(h collision.Sim) dynamo.Solver {
		return integrators.NewAdaptive(h, integrators.NewEuler(h), integrators.NewEnergyOracle(h, true))
	})
	r.RegisterSolver("adaptive_rk4", func(h collision.Sim) dynamo.Solver {
		return integrators.NewAdaptive(h, integrators.NewRK4(h), integrators.NewEnergyOracle(h, true))
	})
	r.RegisterSolver("adaptive_rk4_state", func(h collision.Sim) dynamo.Solver {
		return integrators.NewAdaptive(h, integrators.NewRK4(h), integrators.NewStateOracle(h.VarsList()))
	})

	for _, name := range config.ListPresets() {
		r.RegisterScenario(config.GetPreset(name))
	}
	return r
}

// RegisterSolver adds or replaces a solver. Replacing keeps the original position.
func (r *Registry) RegisterSolver(name string, f SolverFactory) {
	r.solvers.Set(name, f)
}

func (r *Registry) RegisterScenario(cfg *config.Config) {
	r.scenarios.Set(cfg.Name, cfg)
}

func (r *Registry) GetSolver(name string, host collision.Sim) (dynamo.Solver, error) {
	f, ok := r.solvers.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown solver: %s", name)
	}
	return f(host), nil
}

// GetScenario returns a copy of the named scenario.
func (r *Registry) GetScenario(name string) (*config.Config, error) {
	cfg, ok := r.scenarios.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s", name)
	}
	return cfg.Clone(), nil
}

func (r *Registry) ListSolvers() []string   { return r.solvers.Keys() }
func (r *Registry) ListScenarios() []string { return r.scenarios.Keys() }

func (r *Registry) DefaultMetrics(cfg *config.Config) []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewCollisionRate(),
		metrics.NewSeparation(cfg.Tolerance),
	}
}
