package physics

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/dynamo"
)

// HandleCollisions applies pairwise impulses until no collision in the list
// is still approaching. Velocities are written as discontinuous changes.
func (b *BallBox) HandleCollisions(list []collision.Collision, totals *collision.Totals) error {
	for _, c := range list {
		if !b.owns(c) {
			return &dynamo.IllegalCollisionError{Collision: c.String()}
		}
	}

	vars := b.vars.Values()
	v := make([]mgl64.Vec2, len(b.Discs))
	for i := range v {
		v[i] = vel(vars, i)
	}

	applied := make([]bool, len(list))
	impulses := 0
	for pass := 0; ; pass++ {
		if pass >= maxPasses {
			return fmt.Errorf("physics: %d collisions still approaching after %d passes", len(list), maxPasses)
		}
		progress := false
		for k, c := range list {
			if j := b.resolve(c, v); j != 0 {
				applied[k] = true
				impulses++
				progress = true
			}
		}
		if !progress {
			break
		}
	}

	for i := range b.Discs {
		b.vars.SetValue(i*varsPerBody+1, v[i][0], false)
		b.vars.SetValue(i*varsPerBody+3, v[i][1], false)
	}
	b.updateEnergy(false)

	if totals != nil {
		n := 0
		for _, ok := range applied {
			if ok {
				n++
			}
		}
		totals.AddCollisions(n)
		totals.AddImpulses(impulses)
	}
	return nil
}

func (b *BallBox) owns(c collision.Collision) bool {
	switch c := c.(type) {
	case *WallCollision:
		return c.sim == b && c.Body < len(b.Discs)
	case *DiscCollision:
		return c.sim == b && c.B < len(b.Discs)
	case *JointCollision:
		return c.sim == b && c.Joint < len(b.Joints)
	}
	return false
}

// resolve applies one impulse if the collision is approaching and returns its
// magnitude, or zero when nothing was done.
func (b *BallBox) resolve(c collision.Collision, v []mgl64.Vec2) float64 {
	switch c := c.(type) {
	case *WallCollision:
		n := c.normal
		vn := v[c.Body].Dot(n)
		if vn >= -b.VelocityTol {
			return 0
		}
		cl := b.owner[c.Body]
		m := b.clusterMass(cl)
		e := b.Discs[c.Body].Elasticity * b.Walls.Elasticity
		after := b.rebound(c.distance, vn, e)
		j := (after - vn) * m
		b.kick(v, cl, n.Mul(j/m))
		c.impulse += j
		c.normalVel = after
		return j

	case *DiscCollision:
		n := c.normal
		vn := v[c.B].Sub(v[c.A]).Dot(n)
		if vn >= -b.VelocityTol {
			return 0
		}
		ca, cb := b.owner[c.A], b.owner[c.B]
		ma, mb := b.clusterMass(ca), b.clusterMass(cb)
		e := b.Discs[c.A].Elasticity * b.Discs[c.B].Elasticity
		after := b.rebound(c.distance, vn, e)
		j := (after - vn) / (1/ma + 1/mb)
		b.kick(v, ca, n.Mul(-j/ma))
		b.kick(v, cb, n.Mul(j/mb))
		c.impulse += j
		c.normalVel = after
		return j

	case *JointCollision:
		// Only the velocities are matched; offset error built up before the
		// impulse stays.
		jt := b.Joints[c.Joint]
		rel := v[jt.B].Sub(v[jt.A])
		if rel.Len() <= b.JointTol {
			return 0
		}
		ma, mb := b.Discs[jt.A].Mass, b.Discs[jt.B].Mass
		p := rel.Mul(1 / (1/ma + 1/mb))
		v[jt.A] = v[jt.A].Add(p.Mul(1 / ma))
		v[jt.B] = v[jt.B].Sub(p.Mul(1 / mb))
		c.impulse += p.Len()
		c.normalVel = 0
		return p.Len()
	}
	return 0
}

// rebound is the normal velocity after an impact. A penetrating pair leaves at
// no less than the speed that clears the penetration within RecoveryTime.
func (b *BallBox) rebound(distance, vn, e float64) float64 {
	after := -e * vn
	if distance < 0 && b.RecoveryTime > 0 {
		after = math.Max(after, -distance/b.RecoveryTime)
	}
	return after
}

func (b *BallBox) kick(v []mgl64.Vec2, cluster int, dv mgl64.Vec2) {
	for _, i := range b.clusters[cluster] {
		v[i] = v[i].Add(dv)
	}
}
