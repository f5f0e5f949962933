package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/delaynet/internal/config"
	"github.com/san-kum/delaynet/internal/network"
	"github.com/san-kum/delaynet/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	storeKind   string
	logLevel    string
	metricsAddr string

	configFile string
	preset     string
	duration   float64
	seed       int64
	seeds      int
	flat       bool
	sweepAxes  []string
	sweepUnit  int

	units   []int
	unit    int
	xAxis   int
	yAxis   int
	skip    float64
	format  string
	svgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "delaynet",
		Short:         "delayed-synapse network simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".delaynet", "data directory")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "file", "run store backend (file, sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while simulating")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "build a network from a config or preset and simulate it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addNetworkFlags(runCmd)
	runCmd.Flags().IntVar(&seeds, "seeds", 1, "run an ensemble over this many consecutive seeds")

	resumeCmd := &cobra.Command{
		Use:   "resume [run_id]",
		Short: "continue a stored run from its final state",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeRun,
	}
	resumeCmd.Flags().Float64Var(&duration, "time", 0, "additional simulated time (default: the config's duration)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot unit activity of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntSliceVar(&units, "units", nil, "units to plot (default: the first six)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot one unit against another",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x", 0, "unit on the x axis")
	phaseCmd.Flags().IntVar(&yAxis, "y", 1, "unit on the y axis")
	phaseCmd.Flags().StringVar(&svgFile, "svg", "", "also write the portrait as SVG to this file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "activity statistics and power spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&unit, "unit", 0, "unit whose spectrum is shown")
	analyzeCmd.Flags().Float64Var(&skip, "skip", 0, "transient time to ignore")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "write a run's trace to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "output format (json, csv, state)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "simulate with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addNetworkFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare per-object and flat stepping speed",
		Args:  cobra.NoArgs,
		RunE:  benchNetwork,
	}
	addNetworkFlags(benchCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a grid of population parameters and rank the results",
		Args:  cobra.NoArgs,
		RunE:  sweepParams,
	}
	addNetworkFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepAxes, "param", nil, "swept parameter, e.g. ring.tau=0.01,0.02 (repeatable)")
	sweepCmd.Flags().IntVar(&sweepUnit, "unit", 0, "unit whose activity variance is maximised")

	rootCmd.AddCommand(runCmd, resumeCmd, listCmd, plotCmd, phaseCmd, analyzeCmd, exportCmd, presetsCmd, liveCmd, benchCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "network description (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use a preset network")
	cmd.Flags().Float64Var(&duration, "time", 0, "simulated time (default: the config's duration)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: the config's seed)")
	cmd.Flags().BoolVar(&flat, "flat", false, "flatten the network before running")
}

func setupLogging(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

// loadConfig resolves --preset and --config (the file wins) and applies
// the command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	if cmd.Flags().Changed("time") {
		cfg.Run.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Network.Seed = seed
	}
	if flat {
		cfg.Run.Flat = true
	}
	return cfg, nil
}

func openStore(ctx context.Context) (storage.Store, error) {
	path := dataDir
	if storeKind == "sqlite" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, err
		}
		path = filepath.Join(dataDir, "runs.db")
	}
	st, err := storage.NewStore(storeKind, path)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func loadRun(ctx context.Context, st storage.Store, id string) (*storage.Run, error) {
	run, ok, err := st.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if run.Trace == nil || len(run.Trace.Times) == 0 {
		return nil, fmt.Errorf("run %s has no recorded data", id)
	}
	return run, nil
}

// networkOptions wires logging and, with --metrics-addr, a metrics
// endpoint. The returned stop function shuts the endpoint down.
func networkOptions() ([]network.Option, func(), error) {
	opts := []network.Option{network.WithLogger(slog.Default())}
	if metricsAddr == "" {
		return opts, func() {}, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	opts = append(opts, network.WithMetrics(network.NewMetrics(reg)))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.String("addr", metricsAddr), slog.Any("error", err))
		}
	}()
	slog.Info("serving metrics", slog.String("addr", metricsAddr))

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return opts, stop, nil
}
