package metrics

import "github.com/san-kum/collisim/internal/sim"

// CollisionRate is the number of handled collisions per simulated second
// between the first and the last observed sample.
type CollisionRate struct {
	name        string
	first, last sim.Sample
	samples     int
}

func NewCollisionRate() *CollisionRate {
	return &CollisionRate{name: "collision_rate"}
}

func (c *CollisionRate) Name() string { return c.name }

func (c *CollisionRate) Observe(s sim.Sample) {
	if c.samples == 0 {
		c.first = s
	}
	c.last = s
	c.samples++
}

func (c *CollisionRate) Value() float64 {
	dt := c.last.Time - c.first.Time
	if c.samples < 2 || dt <= 0 {
		return 0
	}
	return float64(c.last.Totals.Collisions-c.first.Totals.Collisions) / dt
}

func (c *CollisionRate) Reset() {
	c.first = sim.Sample{}
	c.last = sim.Sample{}
	c.samples = 0
}
