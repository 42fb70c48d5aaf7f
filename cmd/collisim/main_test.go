package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/collisim/internal/collision"
	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/sim"
	"github.com/spf13/cobra"
)

func newScenarioCmd() *cobra.Command {
	configFile = ""
	cmd := &cobra.Command{Use: "test"}
	scenarioFlags(cmd)
	return cmd
}

func TestLoadScenarioPresetDefaults(t *testing.T) {
	cmd := newScenarioCmd()
	cfg, err := loadScenario(cmd, "")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Name != "bounce" {
		t.Errorf("expected bounce preset, got %s", cfg.Name)
	}
	if cfg.Duration != config.Presets["bounce"].Duration {
		t.Errorf("unset flag overrode duration: %g", cfg.Duration)
	}
}

func TestLoadScenarioOverridesChangedFlagsOnly(t *testing.T) {
	cmd := newScenarioCmd()
	for name, value := range map[string]string{
		"solver":        "euler",
		"time":          "2.5",
		"seed":          "7",
		"joint-impacts": "true",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := loadScenario(cmd, "cradle")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Solver != "euler" || cfg.Duration != 2.5 || cfg.Seed != 7 || !cfg.JointSmallImpacts {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.StepSize != config.Presets["cradle"].StepSize {
		t.Errorf("step size changed without flag: %g", cfg.StepSize)
	}
	if config.Presets["cradle"].Solver == "euler" {
		t.Error("preset was modified in place")
	}
}

func TestLoadScenarioRejectsBadInput(t *testing.T) {
	cmd := newScenarioCmd()
	if _, err := loadScenario(cmd, "missing"); err == nil {
		t.Error("expected error for unknown preset")
	}

	if err := cmd.Flags().Set("step", "-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := loadScenario(cmd, "bounce"); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	want := config.GetPreset("springs")
	want.Name = "custom"
	if err := config.Save(path, want); err != nil {
		t.Fatal(err)
	}

	cmd := newScenarioCmd()
	configFile = path
	defer func() { configFile = "" }()

	cfg, err := loadScenario(cmd, "bounce")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Name != "custom" || len(cfg.Springs) != 2 {
		t.Errorf("file not used: %+v", cfg)
	}
}

func TestRenderSummary(t *testing.T) {
	result := &sim.Result{
		StepsTaken:  4,
		Totals:      collision.Snapshot{Collisions: 3, Searches: 9},
		EnergyDrift: 1e-6,
		Fingerprint: 0xabc,
		Metrics:     map[string]float64{"collision_rate": 1.5},
	}
	out := renderSummary("bounce_1234", config.GetPreset("bounce"), result, time.Second,
		&dynamo.StuckError{Time: 1, Attempts: 20})

	for _, want := range []string{"bounce_1234", "collision_rate", "0000000000000abc", "stuck"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestParseGrid(t *testing.T) {
	names, ranges, err := parseGrid([]string{"tolerance=0.005:0.01", "time_step=0.02"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(names) != 2 || names[1] != "time_step" {
		t.Errorf("unexpected names %v", names)
	}
	if len(ranges[0]) != 2 || ranges[0][1] != 0.01 || ranges[1][0] != 0.02 {
		t.Errorf("unexpected ranges %v", ranges)
	}

	for _, bad := range []string{"tolerance", "tolerance=", "tolerance=a:b"} {
		if _, _, err := parseGrid([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
