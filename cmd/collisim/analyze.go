package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/collisim/internal/analysis"
	"github.com/san-kum/collisim/internal/experiment"
	"github.com/san-kum/collisim/internal/optim"
	"github.com/san-kum/collisim/internal/storage"
	"github.com/spf13/cobra"
)

func loadRun(args []string) (*storage.RunMetadata, []string, [][]float64, []float64, error) {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	header, states, times, err := st.LoadStates(runID)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if len(states) == 0 {
		return nil, nil, nil, nil, fmt.Errorf("run %s has no states", runID)
	}
	return meta, header, states, times, nil
}

func pickDisc(meta *storage.RunMetadata) (string, error) {
	if discName != "" {
		return discName, nil
	}
	if meta.Config == nil || len(meta.Config.Discs) == 0 {
		return "", fmt.Errorf("run %s has no disc names, use --disc", meta.ID)
	}
	return meta.Config.Discs[0].Name, nil
}

func pathPlot(cmd *cobra.Command, args []string) error {
	meta, header, states, _, err := loadRun(args)
	if err != nil {
		return err
	}
	disc, err := pickDisc(meta)
	if err != nil {
		return err
	}

	p, err := analysis.NewPortrait(header, states, "x_"+disc, "y_"+disc)
	if err != nil {
		return err
	}
	if c := meta.Config; c != nil {
		p.Bounds = [4]float64{c.Box.Left, c.Box.Right, c.Box.Bottom, c.Box.Top}
	}

	fmt.Println(titleStyle.Render(meta.ID))
	fmt.Printf("path of %s, %d samples\n\n", disc, len(p.Points))
	fmt.Print(p.ASCII(70, 20))
	fmt.Printf("\nLegend: . = early, o = middle, ● = late\n")
	return nil
}

func listImpacts(cmd *cobra.Command, args []string) error {
	meta, header, states, times, err := loadRun(args)
	if err != nil {
		return err
	}
	disc, err := pickDisc(meta)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AXIS\tTIME\tBEFORE\tAFTER\tRESTITUTION")
	var all []analysis.Impact
	for _, axis := range []string{"vx", "vy"} {
		hits, err := analysis.Impacts(header, states, times, axis+"_"+disc, minSpeed)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\n", axis, h.Time, h.Before, h.After, h.Restitution())
		}
		all = append(all, hits...)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d impacts, mean restitution %.4f\n", len(all), analysis.MeanRestitution(all))
	return nil
}

// parseGrid reads "name=v1:v2:..." entries.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("bad grid entry %q, want param=v1:v2", e)
		}
		var values []float64
		for _, f := range strings.Split(list, ":") {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			values = append(values, v)
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	return names, ranges, nil
}

func tuneScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args[0])
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}
	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, value, trials, err := g.Search(ctx, experiment.NewRegistry(), cfg, tuneMetric)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(tuneMetric))
	for _, t := range trials {
		cols := make([]string, 0, len(names)+1)
		for _, n := range names {
			cols = append(cols, strconv.FormatFloat(t.Params[n], 'g', -1, 64))
		}
		if t.Err != nil {
			cols = append(cols, "failed: "+t.Err.Error())
		} else {
			cols = append(cols, fmt.Sprintf("%.4e", t.Value))
		}
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, best[k])
	}
	fmt.Printf("\nbest: %s (%s %.4e)\n", strings.Join(parts, " "), tuneMetric, value)
	return nil
}
