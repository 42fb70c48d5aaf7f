package integrators

import (
	"errors"

	"github.com/san-kum/collisim/internal/dynamo"
)

// freeFall is a point mass under constant acceleration: vars x, v, time.
type freeFall struct {
	vars  *dynamo.VarsList
	g     float64
	evals int
}

func newFreeFall(x0, v0, g float64) *freeFall {
	vl := dynamo.NewVarsList([]string{"x", "v", "time"}, "time")
	vl.SetValues([]float64{x0, v0, 0}, false)
	return &freeFall{vars: vl, g: g}
}

func (f *freeFall) VarsList() *dynamo.VarsList { return f.vars }

func (f *freeFall) Evaluate(vars, change []float64, timeStep float64) error {
	f.evals++
	change[0] = vars[1]
	change[1] = -f.g
	change[2] = 1
	return nil
}

func (f *freeFall) EnergyInfo() dynamo.EnergyInfo {
	v := f.vars.Value(1)
	return dynamo.EnergyInfo{Kinetic: 0.5 * v * v, Potential: f.g * f.vars.Value(0)}
}

// oscillator is d²x/dt² = -x with unit mass and stiffness.
type oscillator struct {
	vars *dynamo.VarsList
}

func newOscillator() *oscillator {
	vl := dynamo.NewVarsList([]string{"x", "v", "time"}, "time")
	vl.SetValues([]float64{1, 0, 0}, false)
	return &oscillator{vars: vl}
}

func (o *oscillator) VarsList() *dynamo.VarsList { return o.vars }

func (o *oscillator) Evaluate(vars, change []float64, timeStep float64) error {
	change[0] = vars[1]
	change[1] = -vars[0]
	change[2] = 1
	return nil
}

func (o *oscillator) EnergyInfo() dynamo.EnergyInfo {
	x, v := o.vars.Value(0), o.vars.Value(1)
	return dynamo.EnergyInfo{Kinetic: 0.5 * v * v, Potential: 0.5 * x * x}
}

var errDegenerate = errors.New("degenerate configuration")

// failing fails on the nth evaluation (1-based).
type failing struct {
	*oscillator
	failAt int
	calls  int
}

func (f *failing) Evaluate(vars, change []float64, timeStep float64) error {
	f.calls++
	if f.calls == f.failAt {
		return errDegenerate
	}
	return f.oscillator.Evaluate(vars, change, timeStep)
}

// scribbler writes garbage into its input after computing the derivative.
type scribbler struct {
	*oscillator
}

func (s *scribbler) Evaluate(vars, change []float64, timeStep float64) error {
	if err := s.oscillator.Evaluate(vars, change, timeStep); err != nil {
		return err
	}
	for i := range vars {
		vars[i] = 1e9
	}
	return nil
}
