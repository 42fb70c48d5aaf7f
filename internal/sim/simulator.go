package sim

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/sirupsen/logrus"
)

// Simulator drives an Advance with repeated fixed-size steps.
type Simulator struct {
	adv       *collision.Advance
	metrics   []Metric
	observers []Observer
	log       logrus.FieldLogger
}

func New(adv *collision.Advance) *Simulator {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	return &Simulator{
		adv:       adv,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       quiet,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l logrus.FieldLogger) {
	s.log = l
	s.adv.SetLogger(l)
}

func (s *Simulator) Advance() *collision.Advance { return s.adv }

// Run advances the simulation for cfg.Duration. On error the partial result
// up to the last completed step is returned with it.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.StepSize))
	result := &Result{Metrics: make(map[string]float64)}
	if cfg.Record {
		result.States = make([]dynamo.State, 0, steps+1)
		result.Times = make([]float64, 0, steps+1)
		result.Energies = make([]float64, 0, steps+1)
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	host := s.adv.Sim()
	vars := host.VarsList()
	initialEnergy := host.EnergyInfo().Total()
	s.record(result, cfg, s.sample())

	log := s.log.WithFields(logrus.Fields{"steps": steps, "step_size": cfg.StepSize})
	log.Debug("run started")

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.adv.Advance(cfg.StepSize); err != nil {
			runErr = err
			break
		}
		if cfg.ValidateState && !vars.Values().IsValid() {
			runErr = dynamo.SimError{Time: vars.Time(), Step: i, Message: "invalid state (NaN/Inf)"}
			break
		}

		result.StepsTaken++
		sample := s.sample()
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}
		s.record(result, cfg, sample)
	}

	if !cfg.Record {
		result.States = append(result.States, vars.Values())
		result.Times = append(result.Times, vars.Time())
		result.Energies = append(result.Energies, host.EnergyInfo().Total())
	}

	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(host.EnergyInfo().Total()-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Totals = s.adv.Totals().Snapshot()
	result.Fingerprint = vars.Fingerprint()

	entry := log.WithFields(logrus.Fields{
		"taken":  result.StepsTaken,
		"totals": result.Totals.String(),
	})
	if runErr != nil {
		entry.WithError(runErr).Warn("run stopped early")
		return result, runErr
	}
	entry.Debug("run finished")
	return result, nil
}

// RunWithCallback advances until the duration is reached or the callback
// returns false. Nothing is recorded.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Sample) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	steps := int(math.Round(cfg.Duration / cfg.StepSize))
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		if !callback(s.sample()) {
			return nil
		}
		if err := s.adv.Advance(cfg.StepSize); err != nil {
			return err
		}
	}
	callback(s.sample())
	return nil
}

func (s *Simulator) sample() Sample {
	host := s.adv.Sim()
	vars := host.VarsList()
	smp := Sample{
		Time:   vars.Time(),
		State:  vars.Values(),
		Energy: host.EnergyInfo(),
		Totals: s.adv.Totals().Snapshot(),
	}
	if sep, ok := host.(Separator); ok {
		smp.Gap, smp.HasGap = sep.MinSeparation()
	}
	return smp
}

func (s *Simulator) record(r *Result, cfg Config, smp Sample) {
	if !cfg.Record {
		return
	}
	r.States = append(r.States, smp.State)
	r.Times = append(r.Times, smp.Time)
	r.Energies = append(r.Energies, smp.Energy.Total())
}

func validateConfig(cfg Config) error {
	if cfg.StepSize <= 0 {
		return fmt.Errorf("%w: step size must be positive, got %f", dynamo.ErrParameterBounds, cfg.StepSize)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrParameterBounds, cfg.Duration)
	}
	return nil
}
