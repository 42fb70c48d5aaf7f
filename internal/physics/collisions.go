package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/collisim/internal/collision"
)

type WallSide int

const (
	LeftWall WallSide = iota
	RightWall
	BottomWall
	TopWall
)

func (w WallSide) String() string {
	switch w {
	case LeftWall:
		return "left"
	case RightWall:
		return "right"
	case BottomWall:
		return "bottom"
	default:
		return "top"
	}
}

// contact holds the fields every collision record shares.
type contact struct {
	sim           *BallBox
	distance      float64
	normalVel     float64
	impulse       float64
	time          float64
	normal        mgl64.Vec2
	needsHandling bool
}

func (c *contact) Distance() float64       { return c.distance }
func (c *contact) DetectedTime() float64   { return c.time }
func (c *contact) NormalVelocity() float64 { return c.normalVel }
func (c *contact) Impulse() float64        { return c.impulse }
func (c *contact) NeedsHandling() bool     { return c.needsHandling }
func (c *contact) SetNeedsHandling(b bool) { c.needsHandling = b }
func (c *contact) Normal() mgl64.Vec2      { return c.normal }

// WallCollision is a disc close to one of the box walls. The normal points
// from the wall into the box.
type WallCollision struct {
	contact
	Body int
	Wall WallSide
}

func (c *WallCollision) Bilateral() bool { return false }

func (c *WallCollision) SimilarTo(other collision.Collision) bool {
	o, ok := other.(*WallCollision)
	return ok && o.sim == c.sim && o.Body == c.Body && o.Wall == c.Wall
}

func (c *WallCollision) String() string {
	return fmt.Sprintf("wall{%s-%s d=%.6f vn=%.6f}", c.sim.Discs[c.Body].Name, c.Wall, c.distance, c.normalVel)
}

// DiscCollision is two discs close to each other; A < B and the normal
// points from A to B.
type DiscCollision struct {
	contact
	A, B int
}

func (c *DiscCollision) Bilateral() bool { return false }

func (c *DiscCollision) SimilarTo(other collision.Collision) bool {
	o, ok := other.(*DiscCollision)
	return ok && o.sim == c.sim && o.A == c.A && o.B == c.B
}

func (c *DiscCollision) String() string {
	return fmt.Sprintf("disc{%s-%s d=%.6f vn=%.6f}", c.sim.Discs[c.A].Name, c.sim.Discs[c.B].Name, c.distance, c.normalVel)
}

// JointCollision reports a velocity mismatch across a joint.
type JointCollision struct {
	contact
	Joint int
}

func (c *JointCollision) Bilateral() bool { return true }

func (c *JointCollision) SimilarTo(other collision.Collision) bool {
	o, ok := other.(*JointCollision)
	return ok && o.sim == c.sim && o.Joint == c.Joint
}

func (c *JointCollision) String() string {
	j := c.sim.Joints[c.Joint]
	return fmt.Sprintf("joint{%s-%s vn=%.3g}", c.sim.Discs[j.A].Name, c.sim.Discs[j.B].Name, c.normalVel)
}

// FindCollisions appends every pair closer than the distance tolerance, and
// joint mismatches when joint small impacts are on. Disc pairs that met and
// passed each other during the last stepSize are reported with the negative
// gap at their closest approach.
func (b *BallBox) FindCollisions(list []collision.Collision, vars []float64, stepSize float64) []collision.Collision {
	t := vars[b.timeIdx]

	if b.Walls.enabled() {
		for i, d := range b.Discs {
			p, v := pos(vars, i), vel(vars, i)
			sides := [4]struct {
				side WallSide
				dist float64
				n    mgl64.Vec2
			}{
				{LeftWall, p[0] - d.Radius - b.Walls.Left, mgl64.Vec2{1, 0}},
				{RightWall, b.Walls.Right - p[0] - d.Radius, mgl64.Vec2{-1, 0}},
				{BottomWall, p[1] - d.Radius - b.Walls.Bottom, mgl64.Vec2{0, 1}},
				{TopWall, b.Walls.Top - p[1] - d.Radius, mgl64.Vec2{0, -1}},
			}
			for _, s := range sides {
				if s.dist >= b.DistanceTol {
					continue
				}
				vn := v.Dot(s.n)
				list = append(list, &WallCollision{
					contact: contact{
						sim:           b,
						distance:      s.dist,
						normalVel:     vn,
						time:          t,
						normal:        s.n,
						needsHandling: vn < -b.VelocityTol,
					},
					Body: i,
					Wall: s.side,
				})
			}
		}
	}

	for i := range b.Discs {
		for j := i + 1; j < len(b.Discs); j++ {
			if b.owner[i] == b.owner[j] {
				continue
			}
			dist, n := b.discGap(vars, i, j)
			rel := vel(vars, j).Sub(vel(vars, i))
			if dist >= b.DistanceTol {
				swept, sn, ok := b.sweptGap(vars, i, j, stepSize)
				if !ok || swept >= 0 {
					continue
				}
				dist, n = swept, sn
			}
			vn := rel.Dot(n)
			list = append(list, &DiscCollision{
				contact: contact{
					sim:           b,
					distance:      dist,
					normalVel:     vn,
					time:          t,
					normal:        n,
					needsHandling: vn < -b.VelocityTol,
				},
				A: i,
				B: j,
			})
		}
	}

	if b.jointImpacts {
		for k, jt := range b.Joints {
			rel := vel(vars, jt.B).Sub(vel(vars, jt.A))
			speed := rel.Len()
			if speed <= b.JointTol {
				continue
			}
			list = append(list, &JointCollision{
				contact: contact{
					sim:           b,
					normalVel:     -speed,
					time:          t,
					normal:        rel.Mul(1 / speed),
					needsHandling: true,
				},
				Joint: k,
			})
		}
	}
	return list
}

func (b *BallBox) discGap(vars []float64, i, j int) (float64, mgl64.Vec2) {
	d := pos(vars, j).Sub(pos(vars, i))
	length := d.Len()
	n := mgl64.Vec2{1, 0}
	if length > 0 {
		n = d.Mul(1 / length)
	}
	return length - b.Discs[i].Radius - b.Discs[j].Radius, n
}

// sweptGap follows the pair back over the last stepSize at the relative
// velocity in vars and returns the gap at their closest approach, with the
// normal at the start of the step. ok is false unless that approach lies
// strictly inside the step.
func (b *BallBox) sweptGap(vars []float64, i, j int, stepSize float64) (float64, mgl64.Vec2, bool) {
	if stepSize <= 0 {
		return 0, mgl64.Vec2{}, false
	}
	d := pos(vars, j).Sub(pos(vars, i))
	rel := vel(vars, j).Sub(vel(vars, i))
	speed2 := rel.Dot(rel)
	if speed2 == 0 {
		return 0, mgl64.Vec2{}, false
	}
	// d(s) = d - rel*s is the separation s seconds before vars.
	s := d.Dot(rel) / speed2
	if s <= 0 || s >= stepSize {
		return 0, mgl64.Vec2{}, false
	}
	gap := d.Sub(rel.Mul(s)).Len() - b.Discs[i].Radius - b.Discs[j].Radius

	start := d.Sub(rel.Mul(stepSize))
	n := mgl64.Vec2{1, 0}
	if l := start.Len(); l > 0 {
		n = start.Mul(1 / l)
	}
	return gap, n, true
}
