package integrators

import "github.com/san-kum/collisim/internal/dynamo"

// Euler is the explicit forward Euler method. It is first order and
// numerically unstable for oscillating systems; use it to demonstrate why
// better solvers exist, not for real runs.
type Euler struct {
	sim    dynamo.ODESim
	inp    []float64
	change []float64
}

func NewEuler(sim dynamo.ODESim) *Euler {
	return &Euler{sim: sim}
}

func (e *Euler) Name() string { return "euler" }

func (e *Euler) ensureScratch(n int) {
	if len(e.inp) != n {
		e.inp = make([]float64, n)
		e.change = make([]float64, n)
	}
}

func (e *Euler) Step(stepSize float64) error {
	vars := e.sim.VarsList()
	n := vars.Len()
	e.ensureScratch(n)

	vars.ReadInto(e.inp)
	zero(e.change)
	if err := e.sim.Evaluate(e.inp, e.change, 0); err != nil {
		return err
	}

	vars.ReadInto(e.inp)
	for i := 0; i < n; i++ {
		e.inp[i] += e.change[i] * stepSize
	}
	vars.SetValues(e.inp, true)
	return nil
}

// ModifiedEuler (Heun's method) averages the slope at the start with the slope
// at the Euler predictor. Second order and stable where Euler is not.
type ModifiedEuler struct {
	sim    dynamo.ODESim
	inp    []float64
	k1, k2 []float64
}

func NewModifiedEuler(sim dynamo.ODESim) *ModifiedEuler {
	return &ModifiedEuler{sim: sim}
}

func (m *ModifiedEuler) Name() string { return "modified_euler" }

func (m *ModifiedEuler) ensureScratch(n int) {
	if len(m.inp) != n {
		m.inp = make([]float64, n)
		m.k1 = make([]float64, n)
		m.k2 = make([]float64, n)
	}
}

func (m *ModifiedEuler) Step(stepSize float64) error {
	vars := m.sim.VarsList()
	n := vars.Len()
	m.ensureScratch(n)

	vars.ReadInto(m.inp)
	zero(m.k1)
	if err := m.sim.Evaluate(m.inp, m.k1, 0); err != nil {
		return err
	}

	vars.ReadInto(m.inp)
	for i := 0; i < n; i++ {
		m.inp[i] += m.k1[i] * stepSize
	}
	zero(m.k2)
	if err := m.sim.Evaluate(m.inp, m.k2, stepSize); err != nil {
		return err
	}

	vars.ReadInto(m.inp)
	half := stepSize / 2
	for i := 0; i < n; i++ {
		m.inp[i] += (m.k1[i] + m.k2[i]) * half
	}
	vars.SetValues(m.inp, true)
	return nil
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
