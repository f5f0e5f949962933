package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/delaynet/internal/analysis"
	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/experiment"
	"github.com/san-kum/delaynet/internal/network"
	"github.com/san-kum/delaynet/internal/storage"
	"github.com/san-kum/delaynet/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	opts, stopMetrics, err := networkOptions()
	if err != nil {
		return err
	}
	defer stopMetrics()

	if seeds > 1 {
		return runEnsemble(ctx, st, cfg, opts)
	}

	e, err := experiment.New(cfg, opts...)
	if err != nil {
		return err
	}
	net := e.Network()
	fmt.Printf("running %s: %d units, %d plants, %d connections\n",
		cfg.Name, net.NumUnits(), net.NumPlants(), net.NumConnections())

	start := time.Now()
	tr, err := e.Run(ctx, nil)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		slog.Warn("run interrupted, saving partial trace", slog.Int("steps", len(tr.Times)))
	}
	elapsed := time.Since(start)

	run := storage.NewRun(cfg, tr, net.SaveState())
	run.Meta.Metrics = runMetrics(tr, cfg.Network.MinDelay)
	runID, err := st.SaveRun(context.Background(), run)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", len(tr.Times))
	printMetrics(run.Meta.Metrics)
	return nil
}

func runEnsemble(ctx context.Context, st storage.Store, cfg *config.Config, opts []network.Option) error {
	ids := make([]int64, seeds)
	for i := range ids {
		ids[i] = cfg.Network.Seed + int64(i)
	}
	fmt.Printf("running %s over %d seeds...\n", cfg.Name, seeds)

	start := time.Now()
	results, err := experiment.Ensemble(ctx, cfg, ids, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tRUN ID\tMEAN\tSTD\tFREQ")
	for _, r := range results {
		c := *cfg
		c.Network.Seed = r.Seed
		run := storage.NewRun(&c, r.Trace, r.Final)
		run.Meta.Metrics = runMetrics(r.Trace, cfg.Network.MinDelay)
		runID, err := st.SaveRun(context.Background(), run)
		if err != nil {
			return err
		}
		m := run.Meta.Metrics
		fmt.Fprintf(w, "%d\t%s\t%.4f\t%.4f\t%.3f\n", r.Seed, runID, m["mean"], m["std"], m["frequency"])
	}
	return w.Flush()
}

// runMetrics summarises a trace into the numbers stored with a run.
func runMetrics(tr *network.Trace, md float64) map[string]float64 {
	if len(tr.Times) == 0 || len(tr.Units) == 0 {
		return nil
	}
	var mean, std float64
	for _, s := range analysis.SummarizeTrace(tr, 0) {
		mean += s.Mean
		std += s.Std
	}
	n := float64(len(tr.Units))
	m := map[string]float64{"mean": mean / n, "std": std / n}
	if f, err := analysis.DominantFrequency(tr.Units[0], md); err == nil {
		m["frequency"] = f
	}
	return m
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	fmt.Println("\nmetrics:")
	for _, name := range []string{"mean", "std", "frequency"} {
		if v, ok := m[name]; ok {
			fmt.Printf("  %s: %.6f\n", name, v)
		}
	}
}

func resumeRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	parent, err := loadRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	if parent.Config == nil || parent.Final == nil {
		return fmt.Errorf("run %s cannot be resumed: no config or final state", args[0])
	}

	opts, stopMetrics, err := networkOptions()
	if err != nil {
		return err
	}
	defer stopMetrics()

	cfg := parent.Config
	e, err := experiment.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := e.Restore(parent.Final); err != nil {
		return fmt.Errorf("restore %s: %w", args[0], err)
	}

	more := cfg.Run.Duration
	if cmd.Flags().Changed("time") {
		more = duration
	}
	fmt.Printf("resuming %s at t=%.3f for %.3f\n", parent.Meta.ID, e.Network().SimTime(), more)

	tr, err := e.RunFor(ctx, more, nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	run := storage.NewRun(cfg, tr, e.Network().SaveState())
	run.Meta.Parent = parent.Meta.ID
	run.Meta.Metrics = runMetrics(tr, cfg.Network.MinDelay)
	runID, err := st.SaveRun(context.Background(), run)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("sim time: %.3f\n", run.Meta.SimTime)
	printMetrics(run.Meta.Metrics)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tSIM TIME\tMODE\tUNITS\tCONNS\tPARENT")
	for _, run := range runs {
		mode := "object"
		if run.Flat {
			mode = "flat"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3fs\t%s\t%d\t%d\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.SimTime,
			mode,
			run.Units,
			run.Connections,
			run.Parent,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := loadRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	tr := run.Trace

	fmt.Printf("run: %s\n", run.Meta.ID)
	fmt.Printf("network: %s\n", run.Meta.Name)
	fmt.Printf("samples: %d (t=%.3f..%.3f)\n\n", len(tr.Times), tr.Times[0], tr.Times[len(tr.Times)-1])

	ids := units
	if len(ids) == 0 {
		for uid := 0; uid < min(6, len(tr.Units)); uid++ {
			ids = append(ids, uid)
		}
	}
	for _, uid := range ids {
		if uid < 0 || uid >= len(tr.Units) {
			return fmt.Errorf("unit %d not in run (%d units)", uid, len(tr.Units))
		}
		fmt.Println(asciigraph.Plot(tr.Units[uid],
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("unit %d", uid)),
		))
		fmt.Println()
	}

	for pid, series := range tr.Plants {
		data := make([]float64, len(series))
		for s, x := range series {
			data[s] = x[0]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("plant %d, variable 0", pid)),
		))
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := loadRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	portrait, err := analysis.NewPhasePortrait(run.Trace, xAxis, yAxis)
	if err != nil {
		return err
	}

	fmt.Printf("phase portrait: %s\n", run.Meta.ID)
	fmt.Printf("x: unit %d, y: unit %d\n\n", xAxis, yAxis)
	fmt.Print(portrait.ASCII(60, 20))

	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(portrait.SVG(800, 600, "#4ec9b0")), 0644); err != nil {
			return fmt.Errorf("failed to write svg: %w", err)
		}
		fmt.Printf("\nwrote %s\n", svgFile)
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := loadRun(ctx, st, args[0])
	if err != nil {
		return err
	}
	tr := run.Trace
	if unit < 0 || unit >= len(tr.Units) {
		return fmt.Errorf("unit %d not in run (%d units)", unit, len(tr.Units))
	}
	md := run.Meta.MinDelay
	first := min(int(skip/md), len(tr.Times))

	fmt.Printf("analysis: %s\n", run.Meta.ID)
	fmt.Printf("network: %s\n\n", run.Meta.Name)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UNIT\tMEAN\tSTD\tMIN\tMAX")
	for uid, s := range analysis.SummarizeTrace(tr, first) {
		fmt.Fprintf(w, "%d\t%.4f\t%.4f\t%.4f\t%.4f\n", uid, s.Mean, s.Std, s.Min, s.Max)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()

	freqs, power, err := analysis.Spectrum(tr.Units[unit][first:], md)
	if err != nil {
		return err
	}
	shown := max(len(power)/4, 2)
	fmt.Println(asciigraph.Plot(power[:shown],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (unit %d, 0..%.1f hz)", unit, freqs[shown-1])),
	))
	fmt.Println()

	freq, err := analysis.DominantFrequency(tr.Units[unit][first:], md)
	if err != nil {
		return err
	}
	fmt.Printf("dominant frequency: %.3f hz\n", freq)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1/freq)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := loadRun(ctx, st, args[0])
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return storage.ExportJSON(os.Stdout, run)
	case "csv":
		return storage.WriteTraceCSV(os.Stdout, run.Trace)
	case "state":
		if run.Final == nil {
			return fmt.Errorf("run %s has no final state", run.Meta.ID)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run.Final)
	}
	return fmt.Errorf("unknown export format: %s", format)
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUNITS\tPLANTS\tDURATION\tMODE")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		n := 0
		for _, p := range cfg.Populations {
			n += p.N
		}
		mode := "object"
		if cfg.Run.Flat {
			mode = "flat"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1fs\t%s\n", name, n, len(cfg.Plants), cfg.Run.Duration, mode)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, stopMetrics, err := networkOptions()
	if err != nil {
		return err
	}
	defer stopMetrics()

	e, err := experiment.New(cfg, opts...)
	if err != nil {
		return err
	}
	if cfg.Run.Flat {
		if err := e.Network().Flatten(); err != nil {
			return err
		}
	}

	m := viz.NewModel(cfg.Name, e.Network(), cfg.Run.Duration)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func benchNetwork(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, stopMetrics, err := networkOptions()
	if err != nil {
		return err
	}
	defer stopMetrics()

	fmt.Printf("benchmarking %s over %.1fs\n\n", cfg.Name, cfg.Run.Duration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tSTEPS\tTIME\tSTEPS/SEC")

	for _, mode := range []struct {
		name string
		flat bool
	}{{"object", false}, {"flat", true}} {
		e, err := experiment.New(cfg, opts...)
		if err != nil {
			return err
		}
		start := time.Now()
		tr, err := e.Network().RunContext(context.Background(), cfg.Run.Duration, mode.flat, nil)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		steps := len(tr.Times)
		fmt.Fprintf(w, "%s\t%d\t%v\t%.0f\n", mode.name, steps, elapsed, float64(steps)/elapsed.Seconds())
	}
	return w.Flush()
}

func sweepParams(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(sweepAxes) == 0 {
		return errors.New("sweep needs at least one --param")
	}
	axes := make([]experiment.Axis, len(sweepAxes))
	for i, s := range sweepAxes {
		if axes[i], err = experiment.ParseAxis(s); err != nil {
			return err
		}
	}
	opts, stopMetrics, err := networkOptions()
	if err != nil {
		return err
	}
	defer stopMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Lower is better, so the most variable unit activity wins.
	score := func(tr *network.Trace) float64 {
		if sweepUnit < 0 || sweepUnit >= len(tr.Units) {
			return 0
		}
		return -analysis.Summarize(tr.Units[sweepUnit]).Std
	}
	points, err := experiment.Sweep(ctx, cfg, axes, score, opts...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := ""
	for _, a := range axes {
		header += strings.ToUpper(a.Name) + "\t"
	}
	fmt.Fprintln(w, header+"STD")
	for _, p := range points {
		row := ""
		for _, a := range axes {
			row += fmt.Sprintf("%g\t", p.Params[a.Name])
		}
		fmt.Fprintf(w, "%s%.4f\n", row, -p.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := experiment.Best(points); ok {
		fmt.Printf("\nbest: %v (std %.4f)\n", best.Params, -best.Score)
	}
	return nil
}
