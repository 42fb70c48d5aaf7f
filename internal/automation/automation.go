package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/experiment"
	"github.com/san-kum/collisim/internal/sim"
	"github.com/san-kum/collisim/internal/storage"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Script is a scripted sequence of scenario runs.
type Script struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Steps       []ScriptStep `yaml:"steps"`
}

// ScriptStep runs one preset or scenario file. Zero-valued overrides leave
// the scenario as it is.
type ScriptStep struct {
	Preset    string  `yaml:"preset"`
	Config    string  `yaml:"config"`
	Solver    string  `yaml:"solver"`
	Duration  float64 `yaml:"duration"`
	StepSize  float64 `yaml:"step_size"`
	Tolerance float64 `yaml:"tolerance"`
	Seed      int64   `yaml:"seed"`
	Save      bool    `yaml:"save"`
}

// StepResult is the outcome of one step. A stuck run keeps its partial
// Result and the error; the script carries on.
type StepResult struct {
	Scenario string
	Solver   string
	RunID    string
	Result   *sim.Result
	Err      error
}

func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script %s has no steps", path)
	}
	return &script, nil
}

func (s ScriptStep) scenario() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case s.Config != "":
		c, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = c
	case s.Preset != "":
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q", s.Preset)
		}
	default:
		return nil, errors.New("step names neither preset nor config")
	}

	if s.Solver != "" {
		cfg.Solver = s.Solver
	}
	if s.Duration > 0 {
		cfg.Duration = s.Duration
	}
	if s.StepSize > 0 {
		cfg.StepSize = s.StepSize
	}
	if s.Tolerance > 0 {
		cfg.Tolerance = s.Tolerance
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	return cfg, cfg.Validate()
}

// RunScript executes every step in order. Steps with Save set are written to
// store, which may be nil when nothing is saved. Setup errors and
// cancellation stop the script.
func RunScript(ctx context.Context, script *Script, reg *experiment.Registry, store *storage.Store, log logrus.FieldLogger) ([]StepResult, error) {
	if log == nil {
		quiet := logrus.New()
		quiet.SetOutput(io.Discard)
		log = quiet
	}
	results := make([]StepResult, 0, len(script.Steps))

	for i, step := range script.Steps {
		cfg, err := step.scenario()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		log := log.WithFields(logrus.Fields{"step": i + 1, "scenario": cfg.Name, "solver": cfg.Solver})
		log.Info("running step")

		exp := experiment.New(cfg)
		exp.SetLogger(log)
		if err := exp.Setup(reg, reg.DefaultMetrics(cfg)); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, runErr := exp.Run(ctx)
		sr := StepResult{Scenario: cfg.Name, Solver: cfg.Solver, Result: result, Err: runErr}
		if errors.Is(runErr, dynamo.ErrContextCanceled) {
			return append(results, sr), runErr
		}
		if runErr != nil {
			log.WithError(runErr).Warn("step failed")
		}

		if step.Save && store != nil && result != nil {
			id, err := store.Save(cfg, exp.Host().VarsList().Names(), result, runErr)
			if err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
			sr.RunID = id
		}
		results = append(results, sr)
	}

	return results, nil
}

// MonteCarloConfig runs one scenario under consecutive seeds. The scenario
// should set RandomSpeed, otherwise every trial is identical.
type MonteCarloConfig struct {
	NumTrials int
	SeedStart int64
}

type MonteCarloResult struct {
	Seed        int64
	Steps       int
	Collisions  int
	EnergyDrift float64
	Fingerprint uint64
	Err         error
}

// Stuck reports whether the trial ended with the advance giving up.
func (r MonteCarloResult) Stuck() bool { return errors.Is(r.Err, dynamo.ErrStuck) }

// RunMonteCarlo runs the trials concurrently through a sim.Ensemble. Trials
// that get stuck are reported, not fatal.
func RunMonteCarlo(ctx context.Context, reg *experiment.Registry, cfg *config.Config, mc MonteCarloConfig) ([]MonteCarloResult, error) {
	if mc.NumTrials < 1 {
		return nil, fmt.Errorf("%w: %d trials", dynamo.ErrParameterBounds, mc.NumTrials)
	}

	ens := sim.NewEnsemble(experiment.Factory(reg, cfg), mc.NumTrials, mc.SeedStart)
	results, errs := ens.RunAll(ctx, sim.Config{
		StepSize:      cfg.StepSize,
		Duration:      cfg.Duration,
		ValidateState: true,
	})

	out := make([]MonteCarloResult, mc.NumTrials)
	for i := range out {
		out[i] = MonteCarloResult{Seed: mc.SeedStart + int64(i), Err: errs[i]}
		if errs[i] != nil && !errors.Is(errs[i], dynamo.ErrStuck) && results[i] == nil {
			return out, errs[i]
		}
		if errors.Is(errs[i], dynamo.ErrContextCanceled) {
			return out, errs[i]
		}
		if r := results[i]; r != nil {
			out[i].Steps = r.StepsTaken
			out[i].Collisions = r.Totals.Collisions
			out[i].EnergyDrift = r.EnergyDrift
			out[i].Fingerprint = r.Fingerprint
		}
	}
	return out, nil
}

// MonteCarloStats summarises trials that completed.
func MonteCarloStats(results []MonteCarloResult) (completed, stuck int, meanDrift float64) {
	for _, r := range results {
		switch {
		case r.Err == nil:
			completed++
			meanDrift += r.EnergyDrift
		case r.Stuck():
			stuck++
		}
	}
	if completed > 0 {
		meanDrift /= float64(completed)
	}
	return
}
