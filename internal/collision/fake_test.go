package collision_test

import (
	"errors"
	"fmt"

	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/dynamo"
)

var errBoom = errors.New("boom")

// pointHit is a point approaching a wall at x = 0.
type pointHit struct {
	id    int
	dist  float64
	vn    float64
	needs bool
}

func (c *pointHit) Distance() float64       { return c.dist }
func (c *pointHit) DetectedTime() float64   { return 0 }
func (c *pointHit) NormalVelocity() float64 { return c.vn }
func (c *pointHit) Impulse() float64        { return 0 }
func (c *pointHit) NeedsHandling() bool     { return c.needs }
func (c *pointHit) SetNeedsHandling(b bool) { c.needs = b }
func (c *pointHit) Bilateral() bool         { return false }
func (c *pointHit) String() string          { return fmt.Sprintf("hit%d{d=%.4f}", c.id, c.dist) }

func (c *pointHit) SimilarTo(other collision.Collision) bool {
	o, ok := other.(*pointHit)
	return ok && o.id == c.id
}

// wallPoint moves at constant velocity along x towards a wall at 0.
type wallPoint struct {
	vars *dynamo.VarsList

	failEval  bool
	duplicate bool
	// bandless reports only penetration, never a close approach.
	bandless  bool
	onHandle  func(p *wallPoint, group []collision.Collision) error

	handled   int
	lastGroup []collision.Collision
}

func newWallPoint(x, v float64) *wallPoint {
	vl := dynamo.NewVarsList([]string{"x", "v", "time"}, "time")
	vl.SetValues([]float64{x, v, 0}, false)
	return &wallPoint{vars: vl}
}

func (p *wallPoint) VarsList() *dynamo.VarsList { return p.vars }

func (p *wallPoint) Evaluate(vars, change []float64, _ float64) error {
	if p.failEval {
		return errBoom
	}
	change[0] = vars[1]
	change[1] = 0
	change[2] = 1
	return nil
}

func (p *wallPoint) EnergyInfo() dynamo.EnergyInfo {
	v := p.vars.Value(1)
	return dynamo.EnergyInfo{Kinetic: 0.5 * v * v}
}

func (p *wallPoint) FindCollisions(list []collision.Collision, vars []float64, _ float64) []collision.Collision {
	band := collision.DefaultDistanceTolerance
	if p.bandless {
		band = 0
	}
	if vars[0] >= band {
		return list
	}
	list = append(list, &pointHit{dist: vars[0], vn: vars[1], needs: vars[1] < 0})
	if p.duplicate {
		list = append(list, &pointHit{dist: vars[0] + 0.001, vn: vars[1], needs: vars[1] < 0})
	}
	return list
}

func (p *wallPoint) HandleCollisions(group []collision.Collision, totals *collision.Totals) error {
	p.handled++
	p.lastGroup = group
	if p.onHandle != nil {
		return p.onHandle(p, group)
	}
	p.vars.SetValue(1, -p.vars.Value(1), false)
	totals.AddCollisions(len(group))
	totals.AddImpulses(len(group))
	return nil
}

func (p *wallPoint) ModifyObjects() {}

func ignoreCollisions(*wallPoint, []collision.Collision) error { return nil }
