package sim

import (
	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/dynamo"
)

// Sample is what metrics and observers see after every step.
type Sample struct {
	Time   float64
	State  dynamo.State
	Energy dynamo.EnergyInfo
	Totals collision.Snapshot
	// Gap is the host's minimum separation; HasGap is false when the host
	// cannot report one.
	Gap    float64
	HasGap bool
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

// Separator is implemented by hosts that can report their minimum
// separation, such as physics.BallBox.
type Separator interface {
	MinSeparation() (float64, bool)
}

type Config struct {
	StepSize      float64
	Duration      float64
	ValidateState bool
	// Record keeps every state in the result. Off, only the final state is kept.
	Record bool
}

type Result struct {
	States      []dynamo.State
	Times       []float64
	Energies    []float64
	Metrics     map[string]float64
	Totals      collision.Snapshot
	StepsTaken  int
	EnergyDrift float64
	Fingerprint uint64
}

// Final returns the last recorded state, or nil for an empty result.
func (r *Result) Final() dynamo.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}
