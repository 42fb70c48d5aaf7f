package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/san-kum/collisim/internal/automation"
	"github.com/san-kum/collisim/internal/experiment"
	"github.com/san-kum/collisim/internal/storage"
	"github.com/spf13/cobra"
)

func runScript(cmd *cobra.Command, args []string) error {
	script, err := automation.LoadScript(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(titleStyle.Render(script.Name))
	if script.Description != "" {
		fmt.Println(script.Description)
	}
	fmt.Println()

	results, err := automation.RunScript(ctx, script, experiment.NewRegistry(), st, log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSCENARIO\tSOLVER\tSTEPS\tCOLLISIONS\tDRIFT\tRUN\tSTATUS")
	for i, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		steps, collisions, drift := 0, 0, 0.0
		if r.Result != nil {
			steps, collisions, drift = r.Result.StepsTaken, r.Result.Totals.Collisions, r.Result.EnergyDrift
		}
		runID := r.RunID
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%.2e\t%s\t%s\n",
			i+1, r.Scenario, r.Solver, steps, collisions, drift, runID, status)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunMonteCarlo(ctx, experiment.NewRegistry(), cfg, automation.MonteCarloConfig{
		NumTrials: trials,
		SeedStart: cfg.Seed,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tCOLLISIONS\tDRIFT\tFINGERPRINT\tSTATUS")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%.2e\t%016x\t%s\n",
			r.Seed, r.Steps, r.Collisions, r.EnergyDrift, r.Fingerprint, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	completed, stuck, drift := automation.MonteCarloStats(results)
	fmt.Printf("\n%d completed, %d stuck, mean drift %.3e\n", completed, stuck, drift)
	return nil
}
