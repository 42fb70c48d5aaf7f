package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Distance is the euclidean norm of s - other over the shared length.
func (s State) Distance(other State) float64 {
	sum := 0.0
	for i := range s {
		if i >= len(other) {
			break
		}
		d := s[i] - other[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// ODESim is a simulation whose state evolves by a vector field.
//
// Evaluate writes the time derivative of vars into change. timeStep is the
// offset from the current time at which vars are being evaluated. It returns
// nil on success; any error aborts the solver step that called it.
type ODESim interface {
	VarsList() *VarsList
	Evaluate(vars, change []float64, timeStep float64) error
}

// Solver advances the state vector of the ODESim it was built for.
type Solver interface {
	Name() string
	Step(stepSize float64) error
}

type EnergyInfo struct {
	Kinetic   float64
	Potential float64
}

func (e EnergyInfo) Total() float64 { return e.Kinetic + e.Potential }

type EnergySystem interface {
	EnergyInfo() EnergyInfo
}
