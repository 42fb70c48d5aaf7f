package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/sim"
)

type ExportData struct {
	Scenario    string             `json:"scenario"`
	Solver      string             `json:"solver"`
	StepSize    float64            `json:"step_size"`
	Duration    float64            `json:"duration"`
	Steps       int                `json:"steps"`
	Totals      collision.Snapshot `json:"totals"`
	EnergyDrift float64            `json:"energy_drift"`
	Fingerprint string             `json:"fingerprint"`
	Variables   []string           `json:"variables"`
	Times       []float64          `json:"times"`
	States      [][]float64        `json:"states"`
	Metrics     map[string]float64 `json:"metrics"`
}

// NewExport builds export data from a saved run.
func NewExport(meta *RunMetadata, states [][]float64, times []float64) ExportData {
	return ExportData{
		Scenario:    meta.Scenario,
		Solver:      meta.Solver,
		StepSize:    meta.StepSize,
		Duration:    meta.Duration,
		Steps:       meta.StepsTaken,
		Totals:      meta.Totals,
		EnergyDrift: meta.EnergyDrift,
		Fingerprint: meta.Fingerprint,
		Variables:   meta.Variables,
		Times:       times,
		States:      states,
		Metrics:     meta.Metrics,
	}
}

func ExportJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteCSV writes one row per recorded state, time first. Values keep full
// precision so a reloaded run fingerprints the same.
func WriteCSV(w io.Writer, variables []string, result *sim.Result) error {
	states := make([][]float64, len(result.States))
	for i, s := range result.States {
		states[i] = s
	}
	return WriteStates(w, variables, states, result.Times)
}

// WriteStates is WriteCSV for states already loaded from a run.
func WriteStates(w io.Writer, variables []string, states [][]float64, times []float64) error {
	if len(times) != len(states) {
		return fmt.Errorf("%d times for %d states", len(times), len(states))
	}
	cw := csv.NewWriter(w)

	header := append([]string{"time"}, variables...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, state := range states {
		row := make([]string, 0, len(state)+1)
		row = append(row, strconv.FormatFloat(times[i], 'g', -1, 64))
		for _, val := range state {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
