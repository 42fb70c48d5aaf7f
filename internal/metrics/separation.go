package metrics

import "github.com/san-kum/collisim/internal/sim"

// Separation is the fraction of samples whose minimum gap stayed above
// -tolerance. Samples from hosts that report no gap are skipped.
type Separation struct {
	name       string
	tolerance  float64
	violations int
	samples    int
	minGap     float64
}

func NewSeparation(tolerance float64) *Separation {
	return &Separation{
		name:      "separation",
		tolerance: tolerance,
	}
}

func (s *Separation) Name() string {
	return s.name
}

func (s *Separation) Observe(smp sim.Sample) {
	if !smp.HasGap {
		return
	}
	if s.samples == 0 || smp.Gap < s.minGap {
		s.minGap = smp.Gap
	}
	s.samples++
	if smp.Gap < -s.tolerance {
		s.violations++
	}
}

func (s *Separation) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

// MinGap is the smallest gap seen since the last Reset.
func (s *Separation) MinGap() float64 { return s.minGap }

func (s *Separation) Reset() {
	s.violations = 0
	s.samples = 0
	s.minGap = 0
}
