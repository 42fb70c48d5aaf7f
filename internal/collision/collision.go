package collision

import "github.com/san-kum/collisim/internal/dynamo"

// Collision is a close approach found by a host simulation. Records are
// created by FindCollisions and discarded once handled.
type Collision interface {
	// Distance is the separation of the pair; negative means interpenetration.
	Distance() float64
	DetectedTime() float64
	// NormalVelocity is the relative velocity along the collision normal;
	// negative means the pair is approaching.
	NormalVelocity() float64
	Impulse() float64
	NeedsHandling() bool
	SetNeedsHandling(bool)
	// Bilateral is true for joint collisions, which have no separation to
	// search on.
	Bilateral() bool
	// SimilarTo reports whether other describes the same feature pair.
	SimilarTo(other Collision) bool
	String() string
}

// Sim is the host simulation the advance loop drives.
type Sim interface {
	dynamo.ODESim
	dynamo.EnergySystem
	// FindCollisions appends collisions present at vars, the state reached
	// after stepSize. It must not modify the simulation.
	FindCollisions(list []Collision, vars []float64, stepSize float64) []Collision
	// HandleCollisions changes velocities so that no collision in list is
	// left approaching, counting what it applied into totals.
	HandleCollisions(list []Collision, totals *Totals) error
	// ModifyObjects refreshes computed variables after the state changed.
	ModifyObjects()
}

// JointImpactSetter is implemented by hosts that only report joint
// collisions on request.
type JointImpactSetter interface {
	SetJointSmallImpacts(bool)
}

// Tolerances is implemented by hosts that define their own distance tolerance.
type Tolerances interface {
	DistanceTolerance() float64
}

// Dedup collapses similar collisions. Of two similar collisions the one that
// needs handling wins, otherwise the one with the smaller distance.
func Dedup(list []Collision) []Collision {
	out := make([]Collision, 0, len(list))
	for _, c := range list {
		dup := -1
		for j, kept := range out {
			if kept.SimilarTo(c) {
				dup = j
				break
			}
		}
		if dup < 0 {
			out = append(out, c)
			continue
		}
		kept := out[dup]
		switch {
		case kept.NeedsHandling() && !c.NeedsHandling():
		case c.NeedsHandling() && !kept.NeedsHandling():
			out[dup] = c
		case c.Distance() < kept.Distance():
			out[dup] = c
		}
	}
	return out
}

// Penetrating returns the non-joint collisions with negative distance.
func Penetrating(list []Collision) []Collision {
	var out []Collision
	for _, c := range list {
		if !c.Bilateral() && c.Distance() < 0 {
			out = append(out, c)
		}
	}
	return out
}

// MinDistance is the smallest distance among non-joint collisions. ok is
// false when there are none.
func MinDistance(list []Collision, approachingOnly bool) (min float64, ok bool) {
	for _, c := range list {
		if c.Bilateral() || (approachingOnly && !c.NeedsHandling()) {
			continue
		}
		if !ok || c.Distance() < min {
			min = c.Distance()
			ok = true
		}
	}
	return min, ok
}

func describe(list []Collision) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.String()
	}
	return out
}
