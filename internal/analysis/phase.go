package analysis

import (
	"fmt"
	"strings"
)

type Point struct{ X, Y float64 }

// Portrait2D holds the path of two recorded variables, typically the position
// of one disc.
type Portrait2D struct {
	XName, YName string
	Points       []Point
	// Bounds fixes the plot area; zero means fit to the points.
	Bounds [4]float64
}

func column(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("analysis: unknown variable %q", name)
}

// NewPortrait extracts the (xName, yName) path from stored states.
func NewPortrait(header []string, states [][]float64, xName, yName string) (*Portrait2D, error) {
	xi, err := column(header, xName)
	if err != nil {
		return nil, err
	}
	yi, err := column(header, yName)
	if err != nil {
		return nil, err
	}

	p := &Portrait2D{
		XName:  xName,
		YName:  yName,
		Points: make([]Point, 0, len(states)),
	}
	for _, s := range states {
		if xi >= len(s) || yi >= len(s) {
			continue
		}
		p.Points = append(p.Points, Point{X: s[xi], Y: s[yi]})
	}
	return p, nil
}

func (p *Portrait2D) bounds() (minX, maxX, minY, maxY float64) {
	if b := p.Bounds; b[1] > b[0] && b[3] > b[2] {
		return b[0], b[1], b[2], b[3]
	}

	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	return minX - rangeX*0.1, maxX + rangeX*0.1, minY - rangeY*0.1, maxY + rangeY*0.1
}

// ASCII draws the path in a framed width×height canvas. Early points are
// drawn as '.', middle ones as 'o' and late ones as '●'.
func (p *Portrait2D) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := p.bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	n := len(p.Points)
	for i, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		switch {
		case i < n/3:
			canvas[row][col] = '.'
		case i < 2*n/3:
			canvas[row][col] = 'o'
		default:
			canvas[row][col] = '●'
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%8.2f ┌%s┐\n", maxY, strings.Repeat("─", width))
	for i, row := range canvas {
		if i == height-1 {
			fmt.Fprintf(&sb, "%8.2f │%s│\n", minY, string(row))
			continue
		}
		fmt.Fprintf(&sb, "         │%s│\n", string(row))
	}
	fmt.Fprintf(&sb, "         └%s┘\n", strings.Repeat("─", width))
	fmt.Fprintf(&sb, "         %-*.2f%.2f\n", width-4, minX, maxX)
	return sb.String()
}

// Crossing is one positive-going pass of a variable through a threshold.
type Crossing struct {
	Time  float64
	Value float64
}

// Crossings records when column name rises through threshold, interpolating
// the time linearly between samples. It is a Poincaré section of the stored
// run rather than of a fresh integration.
func Crossings(header []string, states [][]float64, times []float64, name string, threshold float64) ([]Crossing, error) {
	idx, err := column(header, name)
	if err != nil {
		return nil, err
	}

	var out []Crossing
	for i := 1; i < len(states) && i < len(times); i++ {
		prev, curr := states[i-1][idx], states[i][idx]
		if prev < threshold && curr >= threshold {
			frac := (threshold - prev) / (curr - prev)
			out = append(out, Crossing{
				Time:  times[i-1] + frac*(times[i]-times[i-1]),
				Value: curr,
			})
		}
	}
	return out, nil
}
