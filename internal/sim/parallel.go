package sim

import (
	"context"
	"fmt"
	"sync"
)

// Factory builds an independent simulator for one ensemble member. Members
// never share a host, solver or advance.
type Factory func(seed int64) (*Simulator, error)

type Ensemble struct {
	factory   Factory
	numRuns   int
	seedStart int64
}

func NewEnsemble(factory Factory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

// Run executes every member concurrently and returns results in seed order.
// The first member error is returned after all members finish.
func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results, errs := e.RunAll(ctx, cfg)
	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunAll is Run with one error slot per member, for callers that treat a
// stuck member as data rather than failure.
func (e *Ensemble) RunAll(ctx context.Context, cfg Config) ([]*Result, []error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + int64(idx)
			s, err := e.factory(seed)
			if err != nil {
				errs[idx] = fmt.Errorf("member %d (seed %d): %w", idx, seed, err)
				return
			}
			results[idx], errs[idx] = s.Run(ctx, cfg)
		}(i)
	}

	wg.Wait()
	return results, errs
}
