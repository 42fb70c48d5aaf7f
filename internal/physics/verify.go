package physics

import (
	"fmt"
	"math"
)

// MinSeparation is the smallest gap between any disc and a wall or another
// disc outside its own cluster. ok is false when there is nothing to measure.
func (b *BallBox) MinSeparation() (gap float64, ok bool) {
	vars := b.vars.Values()
	gap = math.Inf(1)
	for i, d := range b.Discs {
		if b.Walls.enabled() {
			p := pos(vars, i)
			for _, g := range [4]float64{
				p[0] - d.Radius - b.Walls.Left,
				b.Walls.Right - p[0] - d.Radius,
				p[1] - d.Radius - b.Walls.Bottom,
				b.Walls.Top - p[1] - d.Radius,
			} {
				gap = math.Min(gap, g)
				ok = true
			}
		}
		for j := i + 1; j < len(b.Discs); j++ {
			if b.owner[i] == b.owner[j] {
				continue
			}
			g, _ := b.discGap(vars, i, j)
			gap = math.Min(gap, g)
			ok = true
		}
	}
	return gap, ok
}

// CheckJoints reports the first joint whose offset or relative velocity is
// off by more than tol.
func (b *BallBox) CheckJoints(tol float64) error {
	vars := b.vars.Values()
	for k, j := range b.Joints {
		off := pos(vars, j.B).Sub(pos(vars, j.A)).Sub(j.Offset).Len()
		rel := vel(vars, j.B).Sub(vel(vars, j.A)).Len()
		if off > tol || rel > tol {
			return fmt.Errorf("physics: joint %d (%s-%s) offset error %.3g, velocity error %.3g",
				k, b.Discs[j.A].Name, b.Discs[j.B].Name, off, rel)
		}
	}
	return nil
}
