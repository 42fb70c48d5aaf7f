package analysis

import "math"

// Impact is a velocity reversal between two stored samples.
type Impact struct {
	Time   float64
	Before float64
	After  float64
}

// Restitution is |After/Before|, the apparent coefficient of restitution.
func (i Impact) Restitution() float64 {
	if i.Before == 0 {
		return 0
	}
	return math.Abs(i.After / i.Before)
}

// Impacts finds sign changes of the velocity column name where both sides are
// faster than minSpeed. The slow turnaround at the top of a ballistic arc is
// skipped that way.
func Impacts(header []string, states [][]float64, times []float64, name string, minSpeed float64) ([]Impact, error) {
	idx, err := column(header, name)
	if err != nil {
		return nil, err
	}

	var out []Impact
	for i := 1; i < len(states) && i < len(times); i++ {
		before, after := states[i-1][idx], states[i][idx]
		if before*after >= 0 {
			continue
		}
		if math.Abs(before) <= minSpeed || math.Abs(after) <= minSpeed {
			continue
		}
		out = append(out, Impact{Time: times[i], Before: before, After: after})
	}
	return out, nil
}

// MeanRestitution averages the apparent restitution over impacts, or returns
// zero when there are none.
func MeanRestitution(impacts []Impact) float64 {
	if len(impacts) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range impacts {
		sum += i.Restitution()
	}
	return sum / float64(len(impacts))
}
