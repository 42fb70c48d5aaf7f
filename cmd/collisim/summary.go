package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/sim"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func renderSummary(runID string, cfg *config.Config, result *sim.Result, elapsed time.Duration, runErr error) string {
	t := result.Totals
	lines := []string{
		titleStyle.Render(runID),
		"",
		row("scenario", cfg.Name),
		row("solver", cfg.Solver),
		row("steps", fmt.Sprintf("%d × %gs", result.StepsTaken, cfg.StepSize)),
		row("wall time", elapsed.Round(time.Millisecond).String()),
		"",
		row("collisions", fmt.Sprint(t.Collisions)),
		row("impulses", fmt.Sprint(t.Impulses)),
		row("searches", fmt.Sprint(t.Searches)),
		row("sub-steps", fmt.Sprint(t.Steps)),
		row("backups", fmt.Sprint(t.Backups)),
		"",
		row("energy drift", fmt.Sprintf("%.3e", result.EnergyDrift)),
		row("fingerprint", fmt.Sprintf("%016x", result.Fingerprint)),
	}

	if len(result.Metrics) > 0 {
		names := make([]string, 0, len(result.Metrics))
		for name := range result.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		lines = append(lines, "")
		for _, name := range names {
			lines = append(lines, row(name, fmt.Sprintf("%.6f", result.Metrics[name])))
		}
	}

	if runErr != nil {
		lines = append(lines, "", errorStyle.Render(runErr.Error()))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
