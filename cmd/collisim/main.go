package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/collisim/internal/config"
	"github.com/san-kum/collisim/internal/dynamo"
	"github.com/san-kum/collisim/internal/experiment"
	"github.com/san-kum/collisim/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dataDir      string
	logLevel     string
	configFile   string
	solverName   string
	duration     float64
	stepSize     float64
	timeStep     float64
	tolerance    float64
	seed         int64
	jointImpacts bool
	plotVars     []string
	outFile      string
	discName     string
	minSpeed     float64
	tuneMetric   string
	tuneGrid     []string
	trials       int

	log = logrus.New()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "collisim",
		Short:         "collision-aware time stepping for disc simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}

	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".collisim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and save it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	scenarioFlags(runCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list scenarios and solvers",
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot variables of a run, the latest if none given",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotVars, "vars", []string{"te"}, "variables to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the states of a run as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [solver...]",
		Short: "run one scenario under several solvers",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSolvers,
	}
	scenarioFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "time a scenario over a grid of step sizes",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScenario,
	}

	pathCmd := &cobra.Command{
		Use:   "path [run_id]",
		Short: "draw the path of one disc inside the box",
		Args:  cobra.MaximumNArgs(1),
		RunE:  pathPlot,
	}
	pathCmd.Flags().StringVar(&discName, "disc", "", "disc name (default first disc)")

	impactsCmd := &cobra.Command{
		Use:   "impacts [run_id]",
		Short: "list velocity reversals of one disc",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listImpacts,
	}
	impactsCmd.Flags().StringVar(&discName, "disc", "", "disc name (default first disc)")
	impactsCmd.Flags().Float64Var(&minSpeed, "min-speed", 0.5, "ignore reversals slower than this")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search advance settings for the lowest metric",
		Args:  cobra.ExactArgs(1),
		RunE:  tuneScenario,
	}
	scenarioFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "energy_drift", "metric to minimise")
	tuneCmd.Flags().StringSliceVar(&tuneGrid, "grid",
		[]string{"tolerance=0.005:0.01:0.02", "time_step=0.01:0.025"},
		"param=v1:v2:... to sweep")

	scriptCmd := &cobra.Command{
		Use:   "script [file]",
		Short: "run a yaml script of scenario steps",
		Args:  cobra.ExactArgs(1),
		RunE:  runScript,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [preset]",
		Short: "run a scenario under consecutive seeds",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	scenarioFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 8, "number of seeds")

	rootCmd.AddCommand(runCmd, presetsCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, compareCmd, benchCmd,
		pathCmd, impactsCmd, tuneCmd, scriptCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().StringVar(&solverName, "solver", config.DefaultSolver, "solver")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "simulated duration")
	cmd.Flags().Float64Var(&stepSize, "step", config.DefaultStepSize, "requested step size")
	cmd.Flags().Float64Var(&timeStep, "time-step", config.DefaultTimeStep, "internal sub-step")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "distance tolerance")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().BoolVar(&jointImpacts, "joint-impacts", false, "handle joint micro-collisions")
}

// loadScenario picks the config file if given, else the named preset, and
// applies the flags the user actually set.
func loadScenario(cmd *cobra.Command, name string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	default:
		if name == "" {
			name = "bounce"
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("solver") {
		cfg.Solver = solverName
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("step") {
		cfg.StepSize = stepSize
	}
	if flags.Changed("time-step") {
		cfg.TimeStep = timeStep
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("joint-impacts") {
		cfg.JointSmallImpacts = jointImpacts
	}
	return cfg, cfg.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runScenario(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	cfg, err := loadScenario(cmd, name)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg)
	exp.SetLogger(log)
	if err := exp.Setup(registry, registry.DefaultMetrics(cfg)); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.WithFields(logrus.Fields{"scenario": cfg.Name, "solver": cfg.Solver}).Info("running")
	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	runID, err := st.Save(cfg, exp.Host().VarsList().Names(), result, runErr)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(runID, cfg, result, elapsed, runErr))

	var stuck *dynamo.StuckError
	if errors.As(runErr, &stuck) {
		return fmt.Errorf("run %s saved up to t=%.4f: %w", runID, stuck.Time, runErr)
	}
	return runErr
}

func listPresets(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tDISCS\tSPRINGS\tJOINTS\tSOLVER\tDURATION")
	for _, name := range registry.ListScenarios() {
		cfg, err := registry.GetScenario(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%.1fs\n",
			name, len(cfg.Discs), len(cfg.Springs), len(cfg.Joints), cfg.Solver, cfg.Duration)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nsolvers: %s\n", strings.Join(registry.ListSolvers(), ", "))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSOLVER\tSTEPS\tCOLLISIONS\tDRIFT\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.2e\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Solver,
			run.StepsTaken,
			run.Totals.Collisions,
			run.EnergyDrift,
			status,
		)
	}

	return w.Flush()
}

func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return st.Latest()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	header, states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Println(titleStyle.Render(meta.ID))
	fmt.Printf("scenario: %s  solver: %s  samples: %d\n\n", meta.Scenario, meta.Solver, len(states))

	for _, name := range plotVars {
		col := -1
		for i, h := range header {
			if h == name {
				col = i
				break
			}
		}
		if col < 0 {
			return fmt.Errorf("unknown variable %q (have %v)", name, header)
		}

		data := make([]float64, len(states))
		for i := range states {
			data[i] = states[i][col]
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func openOutput() (*os.File, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	_, states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(out, storage.NewExport(meta, states, times)); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	header, states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to export")
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	if err := storage.WriteStates(out, header, states, times); err != nil {
		closeOut()
		return err
	}
	return closeOut()
}

func compareSolvers(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args[0])
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	solvers := args[1:]
	if len(solvers) == 0 {
		solvers = registry.ListSolvers()
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing solvers for %s (step=%.4f, duration=%.1fs)\n\n", cfg.Name, cfg.StepSize, cfg.Duration)
	start := time.Now()
	runs, err := experiment.Compare(ctx, registry, cfg, solvers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tSTEPS\tDRIFT\tCOLLISIONS\tSEARCHES\tBACKUPS\tFINGERPRINT\tSTATUS")
	for _, c := range runs {
		status := "ok"
		if c.Err != nil {
			status = c.Err.Error()
		}
		if c.Result == nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\t%s\n", c.Solver, status)
			continue
		}
		r := c.Result
		fmt.Fprintf(w, "%s\t%d\t%.2e\t%d\t%d\t%d\t%016x\t%s\n",
			c.Solver, r.StepsTaken, r.EnergyDrift,
			r.Totals.Collisions, r.Totals.Searches, r.Totals.Backups,
			r.Fingerprint, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ncompleted in %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func benchScenario(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(args[0])
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}

	registry := experiment.NewRegistry()
	durations := []float64{1.0, 5.0, 10.0}
	steps := []float64{0.01, 0.025, 0.1}

	fmt.Printf("benchmarking %s with %s\n\n", base.Name, base.Solver)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tSTEP\tSTEPS\tSEARCHES\tTIME\tSTEPS/SEC")

	for _, dur := range durations {
		for _, h := range steps {
			cfg := base.Clone()
			cfg.Duration = dur
			cfg.StepSize = h

			exp := experiment.New(cfg)
			if err := exp.Setup(registry, nil); err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			if err != nil {
				return fmt.Errorf("%s at step %.3f: %w", cfg.Name, h, err)
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.1fs\t%.3fs\t%d\t%d\t%v\t%.0f\n",
				dur, h, result.StepsTaken, result.Totals.Searches,
				elapsed.Round(time.Microsecond), float64(result.StepsTaken)/elapsed.Seconds())
		}
	}

	return w.Flush()
}
