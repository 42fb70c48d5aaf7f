package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/experiment"
)

var header = []string{"x", "vx", "y", "vy"}

func TestPortrait(t *testing.T) {
	states := [][]float64{
		{0, 1, 0, 0},
		{1, 1, 1, 0},
		{2, 1, 0, 0},
	}
	p, err := NewPortrait(header, states, "x", "y")
	if err != nil {
		t.Fatalf("portrait failed: %v", err)
	}
	if len(p.Points) != 3 || p.Points[1] != (Point{1, 1}) {
		t.Errorf("unexpected points %v", p.Points)
	}

	out := p.ASCII(20, 5)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected frame of 8 lines, got %d:\n%s", len(lines), out)
	}
	for _, mark := range []string{".", "o", "●"} {
		if !strings.Contains(out, mark) {
			t.Errorf("missing %q in\n%s", mark, out)
		}
	}

	if _, err := NewPortrait(header, states, "x", "z"); err == nil {
		t.Error("expected error for unknown variable")
	}
	if (&Portrait2D{}).ASCII(10, 10) != "" {
		t.Error("empty portrait should render nothing")
	}
}

func TestPortraitFixedBounds(t *testing.T) {
	p := &Portrait2D{Points: []Point{{5, 5}}, Bounds: [4]float64{0, 10, 0, 10}}
	out := p.ASCII(11, 11)
	if !strings.Contains(out, "10.00") || !strings.Contains(out, "0.00") {
		t.Errorf("bounds not used:\n%s", out)
	}
}

func TestCrossings(t *testing.T) {
	states := [][]float64{{0, 0, 0, 0}, {0, 0, 2, 0}, {0, 0, 0, 0}, {0, 0, 4, 0}}
	times := []float64{0, 1, 2, 3}

	got, err := Crossings(header, states, times, "y", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 crossings, got %v", got)
	}
	if math.Abs(got[0].Time-0.5) > 1e-12 || math.Abs(got[1].Time-2.25) > 1e-12 {
		t.Errorf("interpolated times wrong: %v", got)
	}
}

func TestImpacts(t *testing.T) {
	states := [][]float64{
		{0, 0, 0, -4},
		{0, 0, 0, 3},
		{0, 0, 0, 0.1},
		{0, 0, 0, -0.1},
	}
	times := []float64{0, 0.1, 0.2, 0.3}

	got, err := Impacts(header, states, times, "vy", 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("apex turnaround counted as impact: %v", got)
	}
	if got[0].Time != 0.1 || math.Abs(got[0].Restitution()-0.75) > 1e-12 {
		t.Errorf("unexpected impact %+v", got[0])
	}
	if MeanRestitution(nil) != 0 {
		t.Error("no impacts should average to zero")
	}
}

func TestBounceRestitutionFromStoredStates(t *testing.T) {
	reg := experiment.NewRegistry()
	exp := experiment.New(config.GetPreset("bounce"))
	if err := exp.Setup(reg, nil); err != nil {
		t.Fatal(err)
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	states := make([][]float64, len(result.States))
	for i, s := range result.States {
		states[i] = s
	}
	hits, err := Impacts(exp.Host().VarsList().Names(), states, result.Times, "vy_ball", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) < 3 {
		t.Fatalf("expected several floor impacts, got %d", len(hits))
	}
	if e := MeanRestitution(hits); math.Abs(e-1) > 0.05 {
		t.Errorf("elastic floor gave apparent restitution %.4f", e)
	}
}
