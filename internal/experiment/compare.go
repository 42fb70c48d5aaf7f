package experiment

import (
	"context"
	"errors"

	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/sim"
)

// Comparison is one solver's run of a shared scenario.
type Comparison struct {
	Solver string
	Result *sim.Result
	Err    error
}

// Compare runs the scenario once per solver. A stuck run is reported in its
// Comparison and does not stop the others; setup errors and cancellation do.
func Compare(ctx context.Context, reg *Registry, cfg *config.Config, solvers []string) ([]Comparison, error) {
	out := make([]Comparison, 0, len(solvers))
	for _, name := range solvers {
		c := cfg.Clone()
		c.Solver = name
		e := New(c)
		if err := e.Setup(reg, reg.DefaultMetrics(c)); err != nil {
			return out, err
		}
		result, err := e.Run(ctx)
		if errors.Is(err, dynamo.ErrContextCanceled) {
			return out, err
		}
		out = append(out, Comparison{Solver: name, Result: result, Err: err})
	}
	return out, nil
}
