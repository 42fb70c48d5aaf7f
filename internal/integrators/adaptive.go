package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/collisim/internal/dynamo"
)

// Oracle judges whether a refinement of the adaptive step is accurate enough.
type Oracle interface {
	// Begin is called with the simulation at the start of the requested step.
	Begin()
	// Measure is called after refinement k (2^k substeps). ok is false when the
	// oracle needs at least one more refinement before it can judge.
	Measure(k int) (discrepancy float64, ok bool)
}

// EnergyOracle measures energy change across the step, relative to the
// starting energy, or absolute while that is below one. In second-difference
// mode it compares the energy change of successive refinements instead, which
// also works for systems that gain or lose energy on purpose.
type EnergyOracle struct {
	Sim        dynamo.EnergySystem
	SecondDiff bool

	e0, scale, prev float64
}

func NewEnergyOracle(sim dynamo.EnergySystem, secondDiff bool) *EnergyOracle {
	return &EnergyOracle{Sim: sim, SecondDiff: secondDiff}
}

func (o *EnergyOracle) Begin() {
	o.e0 = o.Sim.EnergyInfo().Total()
	o.scale = math.Max(math.Abs(o.e0), 1)
	o.prev = 0
}

func (o *EnergyOracle) Measure(k int) (float64, bool) {
	delta := math.Abs(o.Sim.EnergyInfo().Total()-o.e0) / o.scale
	if !o.SecondDiff {
		return delta, true
	}
	if k == 0 {
		o.prev = delta
		return 0, false
	}
	d := math.Abs(delta - o.prev)
	o.prev = delta
	return d, true
}

// StateOracle compares the state reached by successive refinements (step
// doubling).
type StateOracle struct {
	Vars *dynamo.VarsList

	prev, cur dynamo.State
}

func NewStateOracle(vars *dynamo.VarsList) *StateOracle {
	return &StateOracle{Vars: vars}
}

func (o *StateOracle) Begin() {}

func (o *StateOracle) Measure(k int) (float64, bool) {
	n := o.Vars.Len()
	if len(o.cur) != n {
		o.cur = make(dynamo.State, n)
		o.prev = make(dynamo.State, n)
	}
	o.Vars.ReadInto(o.cur)
	o.prev, o.cur = o.cur, o.prev
	if k == 0 {
		return 0, false
	}
	return o.prev.Distance(o.cur), true
}

// Adaptive wraps another solver and subdivides each requested step until the
// oracle is satisfied. A step that cannot be made accurate enough leaves the
// state where it started.
type Adaptive struct {
	sim       dynamo.ODESim
	solver    dynamo.Solver
	oracle    Oracle
	Tolerance float64
	MinStep   float64
	MaxRefine int

	start     []float64
	substeps  int
	lastError float64
}

func NewAdaptive(sim dynamo.ODESim, solver dynamo.Solver, oracle Oracle) *Adaptive {
	return &Adaptive{
		sim:       sim,
		solver:    solver,
		oracle:    oracle,
		Tolerance: 1e-6,
		MinStep:   1e-8,
		MaxRefine: 16,
	}
}

func (a *Adaptive) Name() string { return "adaptive(" + a.solver.Name() + ")" }

// Inner returns the wrapped solver.
func (a *Adaptive) Inner() dynamo.Solver { return a.solver }

// LastSubsteps is the number of substeps the most recent Step settled on.
func (a *Adaptive) LastSubsteps() int { return a.substeps }

// LastDiscrepancy is the oracle's verdict on the most recent Step.
func (a *Adaptive) LastDiscrepancy() float64 { return a.lastError }

func (a *Adaptive) Step(stepSize float64) error {
	vars := a.sim.VarsList()
	if len(a.start) != vars.Len() {
		a.start = make([]float64, vars.Len())
	}
	vars.ReadInto(a.start)
	a.oracle.Begin()

	for k := 0; ; k++ {
		if k > 0 {
			vars.SetValues(a.start, true)
		}
		n := 1 << k
		h := stepSize / float64(n)
		for i := 0; i < n; i++ {
			if err := a.solver.Step(h); err != nil {
				vars.SetValues(a.start, true)
				return err
			}
		}
		a.substeps = n

		d, ok := a.oracle.Measure(k)
		if ok {
			a.lastError = d
			if d <= a.Tolerance {
				return nil
			}
		}
		if h/2 < a.MinStep || k >= a.MaxRefine {
			vars.SetValues(a.start, true)
			return fmt.Errorf("%w: substep %g, discrepancy %g", dynamo.ErrStepTooSmall, h, d)
		}
	}
}
