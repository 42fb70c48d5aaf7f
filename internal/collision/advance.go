package collision

import (
	"fmt"
	"io"
	"math"

	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTimeStep          = 0.025
	DefaultDistanceTolerance = 0.01
	DefaultMaxStuck          = 20

	maxSearches = 40
	// Backups halve the internal step; below this fraction of the configured
	// step the advance gives up.
	minStepFraction = 1.0 / 1024
)

// Advance moves a Sim forward by whole requested steps, locating collisions
// by binary search and handing them to the host for resolution.
type Advance struct {
	sim    Sim
	solver dynamo.Solver
	totals *Totals
	log    logrus.FieldLogger

	timeStep          float64
	distanceTol       float64
	targetGap         float64
	gapAccuracy       float64
	jointSmallImpacts bool
	maxStuck          int

	start     []float64
	lastFound []Collision
}

func NewAdvance(sim Sim, solver dynamo.Solver) *Advance {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	a := &Advance{
		sim:      sim,
		solver:   solver,
		totals:   NewTotals(),
		log:      quiet,
		timeStep: DefaultTimeStep,
		maxStuck: DefaultMaxStuck,
	}
	tol := DefaultDistanceTolerance
	if t, ok := sim.(Tolerances); ok && t.DistanceTolerance() > 0 {
		tol = t.DistanceTolerance()
	}
	a.setTolerance(tol)
	return a
}

func (a *Advance) Sim() Sim { return a.sim }

func (a *Advance) SetSolver(s dynamo.Solver) { a.solver = s }

func (a *Advance) Solver() dynamo.Solver { return a.solver }

func (a *Advance) SetTimeStep(seconds float64) error {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return fmt.Errorf("%w: time step %g", dynamo.ErrParameterBounds, seconds)
	}
	a.timeStep = seconds
	return nil
}

func (a *Advance) TimeStep() float64 { return a.timeStep }

func (a *Advance) SetJointSmallImpacts(on bool) {
	a.jointSmallImpacts = on
	if s, ok := a.sim.(JointImpactSetter); ok {
		s.SetJointSmallImpacts(on)
	}
}

func (a *Advance) JointSmallImpacts() bool { return a.jointSmallImpacts }

// Totals returns the live counters; they keep accumulating across calls.
func (a *Advance) Totals() *Totals { return a.totals }

func (a *Advance) SetLogger(l logrus.FieldLogger) { a.log = l }

func (a *Advance) SetMaxStuck(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: max stuck %d", dynamo.ErrParameterBounds, n)
	}
	a.maxStuck = n
	return nil
}

func (a *Advance) SetDistanceTolerance(tol float64) error {
	if tol <= 0 || math.IsNaN(tol) {
		return fmt.Errorf("%w: distance tolerance %g", dynamo.ErrParameterBounds, tol)
	}
	a.setTolerance(tol)
	return nil
}

func (a *Advance) setTolerance(tol float64) {
	a.distanceTol = tol
	a.targetGap = tol / 2
	a.gapAccuracy = tol * 0.4
}

func (a *Advance) DistanceTolerance() float64 { return a.distanceTol }
func (a *Advance) TargetGap() float64         { return a.targetGap }
func (a *Advance) GapAccuracy() float64       { return a.gapAccuracy }

// Advance moves the simulation forward by exactly stepSize. On success no
// collidable pair interpenetrates and every close approaching pair has been
// handled. A *dynamo.StuckError means the state is the last consistent one.
func (a *Advance) Advance(stepSize float64) error {
	if stepSize < 0 || math.IsNaN(stepSize) || math.IsInf(stepSize, 0) {
		return fmt.Errorf("%w: step size %g", dynamo.ErrParameterBounds, stepSize)
	}
	if stepSize == 0 {
		return nil
	}

	n := a.sim.VarsList().Len()
	if len(a.start) != n {
		a.start = make([]float64, n)
	}

	eps := 1e-12 * math.Max(1, stepSize)
	elapsed := 0.0
	h := a.timeStep
	stuck := 0

	for stepSize-elapsed > eps {
		if stuck >= a.maxStuck {
			return a.stuckError(stuck)
		}
		advanced, backedUp, err := a.subStep(math.Min(h, stepSize-elapsed))
		if err != nil {
			return err
		}
		if backedUp {
			h /= 2
			if h < a.timeStep*minStepFraction {
				return a.stuckError(stuck + 1)
			}
		}
		if advanced > 0 {
			elapsed += advanced
			stuck = 0
		} else {
			stuck++
		}
	}
	return nil
}

// subStep tries to advance by h and reports how far it actually got.
func (a *Advance) subStep(h float64) (float64, bool, error) {
	a.sim.VarsList().ReadInto(a.start)

	if err := a.solver.Step(h); err != nil {
		a.restore()
		return 0, false, err
	}
	a.sim.ModifyObjects()
	found := a.find(h)
	pen := Penetrating(found)
	if len(pen) == 0 {
		a.totals.AddSteps(1)
		return a.commit(h, found)
	}

	a.restore()
	atStart := a.find(0)
	if a.alreadyClose(pen, atStart) {
		return a.allowTiny(h, atStart)
	}
	return a.search(h)
}

// search bisects [0, h] until the worst approaching pair sits inside the
// target gap window.
func (a *Advance) search(h float64) (float64, bool, error) {
	lo, hi := 0.0, h
	for i := 0; i < maxSearches; i++ {
		mid := (lo + hi) / 2
		a.restore()
		if err := a.solver.Step(mid); err != nil {
			a.restore()
			return 0, false, err
		}
		a.sim.ModifyObjects()
		a.totals.AddSearches(1)

		found := a.find(mid)
		if len(Penetrating(found)) > 0 {
			hi = mid
			continue
		}
		w, ok := MinDistance(found, true)
		switch {
		case ok && w < a.targetGap-a.gapAccuracy:
			hi = mid
		case ok && w <= a.targetGap+a.gapAccuracy:
			a.log.WithFields(logrus.Fields{
				"t":        a.sim.VarsList().Time(),
				"gap":      w,
				"searches": i + 1,
			}).Debug("collision located")
			a.totals.AddSteps(1)
			return a.commit(mid, found)
		default:
			lo = mid
		}
	}

	a.log.WithFields(logrus.Fields{"lo": lo, "hi": hi}).Warn("binary search missed the target gap")
	a.restore()
	if lo > 0 {
		if err := a.solver.Step(lo); err != nil {
			a.restore()
			return 0, false, err
		}
		a.sim.ModifyObjects()
		a.totals.AddSteps(1)
	}
	return a.commit(lo, a.find(lo))
}

// allowTiny deals with a collision that was already under tolerance at the
// start of the sub-step, so there is no earlier time to search for. The end
// state is taken as it is unless something penetrates beyond tolerance, in
// which case the sub-step is halved.
func (a *Advance) allowTiny(h float64, atStart []Collision) (float64, bool, error) {
	if len(a.needingHandling(atStart)) > 0 {
		a.log.WithField("t", a.sim.VarsList().Time()).Debug("allowing tiny collision")
		return a.commit(0, atStart)
	}

	for {
		if err := a.solver.Step(h); err != nil {
			a.restore()
			return 0, false, err
		}
		a.sim.ModifyObjects()
		found := a.find(h)
		if len(a.illegal(found)) == 0 {
			a.totals.AddSteps(1)
			return a.commit(h, found)
		}
		a.restore()
		a.totals.AddSearches(1)
		h /= 2
		if h < a.timeStep*minStepFraction {
			return 0, false, nil
		}
	}
}

// commit keeps the current state and, if anything close is approaching,
// hands every close collision to the host as one group. The segment is rolled
// back if handling left the geometry invalid.
func (a *Advance) commit(advanced float64, found []Collision) (float64, bool, error) {
	if len(a.needingHandling(found)) == 0 {
		return advanced, false, nil
	}
	group := Dedup(a.nearby(found))

	a.log.WithFields(logrus.Fields{
		"t":          a.sim.VarsList().Time(),
		"collisions": len(group),
	}).Debug("handling collisions")
	if err := a.sim.HandleCollisions(group, a.totals); err != nil {
		return 0, false, err
	}

	if pen := a.illegal(a.find(0)); len(pen) > 0 {
		a.log.WithField("collisions", describe(pen)).Warn("handled state interpenetrates, backing up")
		a.restore()
		a.totals.AddBackups(1)
		return 0, true, nil
	}
	return advanced, false, nil
}

func (a *Advance) needingHandling(found []Collision) []Collision {
	var out []Collision
	for _, c := range a.nearby(found) {
		if c.NeedsHandling() {
			out = append(out, c)
		}
	}
	return out
}

func (a *Advance) nearby(found []Collision) []Collision {
	var out []Collision
	for _, c := range found {
		if c.Bilateral() || c.Distance() < a.distanceTol {
			out = append(out, c)
		}
	}
	return out
}

func (a *Advance) alreadyClose(pen, atStart []Collision) bool {
	for _, p := range pen {
		for _, s := range atStart {
			if s.SimilarTo(p) && s.Distance() < a.distanceTol {
				return true
			}
		}
	}
	return false
}

func (a *Advance) illegal(found []Collision) []Collision {
	var out []Collision
	for _, c := range found {
		if !c.Bilateral() && c.Distance() < -a.distanceTol {
			out = append(out, c)
		}
	}
	return out
}

func (a *Advance) find(stepSize float64) []Collision {
	found := a.sim.FindCollisions(nil, a.sim.VarsList().Values(), stepSize)
	if !a.jointSmallImpacts {
		kept := found[:0]
		for _, c := range found {
			if !c.Bilateral() {
				kept = append(kept, c)
			}
		}
		found = kept
	}
	a.lastFound = found
	return found
}

func (a *Advance) restore() {
	a.sim.VarsList().SetValues(a.start, true)
	a.sim.ModifyObjects()
}

func (a *Advance) stuckError(attempts int) error {
	err := &dynamo.StuckError{
		Time:       a.sim.VarsList().Time(),
		Attempts:   attempts,
		Collisions: describe(a.lastFound),
	}
	a.log.WithError(err).Error("advance stuck")
	return err
}
