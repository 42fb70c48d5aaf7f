package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/experiment"
)

var ErrNoViableRun = errors.New("optim: every grid point failed")

// Param sets one tunable field of a scenario.
type Param func(cfg *config.Config, v float64)

// Params are the advance settings a grid can sweep.
var Params = map[string]Param{
	"tolerance":    func(c *config.Config, v float64) { c.Tolerance = v },
	"time_step":    func(c *config.Config, v float64) { c.TimeStep = v },
	"step_size":    func(c *config.Config, v float64) { c.StepSize = v },
	"damping":      func(c *config.Config, v float64) { c.Damping = v },
	"max_stuck":    func(c *config.Config, v float64) { c.MaxStuck = int(v) },
	"random_speed": func(c *config.Config, v float64) { c.RandomSpeed = v },
}

// Trial is one evaluated grid point. Err is set for runs that got stuck or
// were rejected by validation; those never win.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d params but %d ranges", len(params), len(ranges))
	}
	for _, p := range params {
		if _, ok := Params[p]; !ok {
			return nil, fmt.Errorf("optim: unknown param %q", p)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Search runs base once per grid point and returns the point with the lowest
// value of metricName, together with every trial in grid order.
func (g *GridSearch) Search(
	ctx context.Context,
	reg *experiment.Registry,
	base *config.Config,
	metricName string,
) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(0, map[string]float64{}, func(params map[string]float64) error {
		t := g.evaluate(ctx, reg, base, params, metricName)
		if errors.Is(t.Err, dynamo.ErrContextCanceled) {
			return t.Err
		}
		trials = append(trials, t)
		if t.Err == nil && t.Value < best {
			best = t.Value
			bestParams = t.Params
		}
		return nil
	})
	if err != nil {
		return bestParams, best, trials, err
	}
	if bestParams == nil {
		return nil, best, trials, ErrNoViableRun
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) evaluate(ctx context.Context, reg *experiment.Registry, base *config.Config, params map[string]float64, metricName string) Trial {
	t := Trial{Params: params}
	cfg := base.Clone()
	for name, v := range params {
		Params[name](cfg, v)
	}
	if t.Err = cfg.Validate(); t.Err != nil {
		return t
	}

	exp := experiment.New(cfg)
	if t.Err = exp.Setup(reg, reg.DefaultMetrics(cfg)); t.Err != nil {
		return t
	}
	result, err := exp.Run(ctx)
	if err != nil {
		t.Err = err
		return t
	}
	v, ok := result.Metrics[metricName]
	if !ok {
		t.Err = fmt.Errorf("optim: run has no metric %q", metricName)
		return t
	}
	t.Value = v
	return t
}

func (g *GridSearch) searchRecursive(
	depth int,
	current map[string]float64,
	visit func(map[string]float64) error,
) error {
	if depth == len(g.paramNames) {
		return visit(current)
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(depth+1, newParams, visit); err != nil {
			return err
		}
	}
	return nil
}
