package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/arte/internal/config"
	"github.com/san-kum/arte/internal/materials"
	"github.com/san-kum/arte/internal/metrics"
	"github.com/san-kum/arte/internal/report"
	"github.com/san-kum/arte/internal/sim"
	"github.com/san-kum/arte/internal/storage"
	"github.com/san-kum/arte/internal/sweep"
	"github.com/san-kum/arte/internal/tui"
)

const defaultPreset = "single-pin"

var (
	settings = viper.New()
	logger   *zap.Logger

	configFile string
	cycles     int
	metricsOut string
	noSave     bool
	format     string
	outFile    string
	location   string
	interval   time.Duration
	theme      string
	sweepArgs  []string
	objective  string
	minimize   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "arte",
		Short:         "axial thermal expansion of reactor fuel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(settings.GetBool("verbose"))
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().String("data", ".arte", "data directory")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().Float64("cold-temp", config.DefaultColdTempC, "cold reference temperature (°C)")
	rootCmd.PersistentFlags().Bool("input-temp", false, "start each component from its input temperature")

	settings.SetEnvPrefix("ARTE")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "expand a core through its schedule",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCore,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "core definition (yaml)")
	runCmd.Flags().IntVar(&cycles, "cycles", 0, "override the number of cycles")
	runCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write prometheus metrics to this textfile")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot assembly growth per node",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&location, "location", "", "plot a single assembly")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export the assembly report",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json, yaml or csv")
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "show the assembly report of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showReport,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list core presets",
		RunE:  listPresets,
	}

	materialsCmd := &cobra.Command{
		Use:   "materials",
		Short: "list materials and their linear expansion",
		RunE:  listMaterials,
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "step a core interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "core definition (yaml)")
	liveCmd.Flags().IntVar(&cycles, "cycles", 0, "override the number of cycles")
	liveCmd.Flags().DurationVar(&interval, "interval", 250*time.Millisecond, "time between nodes")
	liveCmd.Flags().StringVar(&theme, "theme", tui.ThemeCyberpunk.Name, "color theme ("+strings.Join(tui.ThemeNames(), ", ")+")")

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [preset] ...",
		Short: "expand several cores concurrently and compare growth",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareCores,
	}
	compareCmd.Flags().IntVar(&cycles, "cycles", 0, "override the number of cycles")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "expand a core over a grid of parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepCore,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "core definition (yaml)")
	sweepCmd.Flags().StringArrayVarP(&sweepArgs, "param", "p", nil, "name=v1,v2,... (cold_temperature, power_scale, cycles)")
	sweepCmd.Flags().StringVar(&objective, "metric", sweep.ReferenceGrowthMetric, "metric to rank points by")
	sweepCmd.Flags().BoolVar(&minimize, "min", false, "pick the smallest metric value")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, reportCmd, presetsCmd, materialsCmd, liveCmd, compareCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func dataDir() string { return settings.GetString("data") }

// loadCore resolves the core definition from --config or a preset name and
// applies the command-line overrides.
func loadCore(args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		name := defaultPreset
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(config.ListPresets(), ", "))
		}
	}
	applyOverrides(cfg)
	return cfg, nil
}

func applyOverrides(cfg *config.Config) {
	if cycles > 0 {
		cfg.Schedule.Cycles = cycles
	}
	if settings.IsSet("cold-temp") {
		t := settings.GetFloat64("cold-temp")
		cfg.ColdTemperature = &t
	}
	if settings.GetBool("input-temp") {
		cfg.ColdTemperature = nil
	}
}

func newRunner(cfg *config.Config) (*sim.Runner, error) {
	core, err := cfg.Build(materials.NewRegistry())
	if err != nil {
		return nil, err
	}
	runner, err := sim.New(core, cfg.EngineConfig(), logger.With(zap.String("core", cfg.Name)))
	if err != nil {
		return nil, err
	}
	for _, m := range metrics.Defaults() {
		runner.AddMetric(m)
	}
	return runner, nil
}

func runCore(cmd *cobra.Command, args []string) error {
	cfg, err := loadCore(args)
	if err != nil {
		return err
	}
	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}

	var exporter *metrics.Exporter
	if metricsOut != "" {
		exporter = metrics.NewExporter(cfg.Name, runner.Locations())
		runner.AddObserver(exporter)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, err := runner.Run(ctx, cfg.SimSchedule())
	if err != nil {
		return err
	}
	logger.Debug("run complete", zap.Duration("elapsed", time.Since(start)))

	fmt.Println(report.RenderTable(result.Rows))
	for _, e := range multierr.Errors(result.ReportErr) {
		fmt.Println("  skipped:", e)
	}
	if result.Reference != "" {
		fmt.Printf("\nTotal axial growth of the active fuel stack in assembly %s: %.2f cm\n",
			result.Reference, result.ReferenceGrowth)
	}

	if exporter != nil {
		if err := exporter.WriteTextfile(metricsOut); err != nil {
			return err
		}
		fmt.Printf("metrics: %s\n", metricsOut)
	}

	if noSave {
		return nil
	}
	st := storage.New(dataDir())
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}
	fmt.Printf("run: %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir())
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCORE\tTIME\tCYCLES\tNODES\tREF\tGROWTH")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%.2f cm\n",
			run.ID,
			run.Core,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Cycles,
			len(run.PowerFractions),
			run.Reference,
			run.ReferenceGrowth,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir())
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadGrowth(runID)
	if err != nil {
		return err
	}
	if len(series.Growth) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("core: %s\n", meta.Core)
	fmt.Printf("nodes: %d\n\n", len(series.Growth))

	locations := series.Locations
	if location != "" {
		locations = []string{location}
	}
	const maxPlots = 6
	if len(locations) > maxPlots {
		locations = locations[:maxPlots]
	}

	for _, loc := range locations {
		data, ok := series.Column(loc)
		if !ok {
			return fmt.Errorf("run %s has no fuel assembly %s", runID, loc)
		}
		if len(data) == 1 {
			data = append([]float64{0}, data...)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("assembly %s growth (cm) per node", loc)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir())

	if outFile == "" {
		return st.Export(os.Stdout, args[0], format)
	}

	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	if err := st.Export(f, args[0], format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", args[0], outFile)
	return nil
}

func showReport(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir())
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadReport(args[0])
	if err != nil {
		return err
	}

	fmt.Println(report.RenderTable(rows))
	for _, e := range meta.ReportErrors {
		fmt.Println("  skipped:", e)
	}
	if len(meta.Metrics) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, m := range metrics.Defaults() {
			if v, ok := meta.Metrics[m.Name()]; ok {
				fmt.Fprintf(w, "%s\t%.4f\n", m.Name(), v)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tASSEMBLIES\tCYCLES\tNODES/CYCLE\tCOLD")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		cold := "input"
		if cfg.ColdTemperature != nil {
			cold = fmt.Sprintf("%.0f °C", *cfg.ColdTemperature)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n",
			name,
			len(cfg.Assemblies),
			cfg.Schedule.Cycles,
			len(cfg.Schedule.PowerFractions),
			cold,
		)
	}
	return w.Flush()
}

func listMaterials(cmd *cobra.Command, args []string) error {
	reg := materials.NewRegistry()
	temps := []float64{20, 300, 600, 900}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := []string{"MATERIAL"}
	for _, t := range temps {
		header = append(header, fmt.Sprintf("dL/L @ %.0f °C (%%)", t))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, name := range reg.Names() {
		m, err := reg.Get(name)
		if err != nil {
			return err
		}
		cells := []string{name}
		for _, t := range temps {
			cells = append(cells, fmt.Sprintf("%.4f", m.LinearExpansionPercent(t)))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadCore(args)
	if err != nil {
		return err
	}
	// the live view owns the terminal
	logger = zap.NewNop()

	runner, err := newRunner(cfg)
	if err != nil {
		return err
	}

	m, err := tui.NewModel(cmd.Context(), runner, cfg.SimSchedule(), interval)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m.WithTheme(tui.GetTheme(theme)))
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(tui.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func compareCores(cmd *cobra.Command, args []string) error {
	configs := make([]*config.Config, len(args))
	runners := make([]*sim.Runner, len(args))
	for i, name := range args {
		cfg, err := loadCore([]string{name})
		if err != nil {
			return err
		}
		runner, err := newRunner(cfg)
		if err != nil {
			return err
		}
		configs[i], runners[i] = cfg, runner
	}

	ens, err := sim.NewEnsemble(runners...)
	if err != nil {
		return err
	}

	// members share one schedule; the first core's is used
	schedule := configs[0].SimSchedule()
	results, err := ens.Run(cmd.Context(), schedule)
	if err != nil {
		return err
	}

	fmt.Printf("comparing %d cores over %d nodes\n\n", len(results), schedule.TotalNodes())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CORE\tREF\tREF GROWTH\tTOTAL ΔL\tMEAN STRAIN\tMAX STRAIN\tSKIPPED")
	for _, res := range results {
		sum := report.Summarize(res.Rows)
		fmt.Fprintf(w, "%s\t%s\t%.2f cm\t%.2f cm\t%.3f%%\t%.3f%%\t%d\n",
			res.Core,
			res.Reference,
			res.ReferenceGrowth,
			sum.TotalGrowthCM,
			sum.MeanStrainPct,
			sum.MaxStrainPct,
			len(multierr.Errors(res.ReportErr)),
		)
	}
	return w.Flush()
}

// parseGrid turns "name=v1,v2" flags into a sweep grid.
func parseGrid(args []string) (*sweep.Grid, error) {
	params := make([]sweep.Param, 0, len(args))
	ranges := make([][]float64, 0, len(args))
	for _, arg := range args {
		name, values, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("bad --param %q: want name=v1,v2", arg)
		}
		vals := make([]float64, 0)
		for _, field := range strings.Split(values, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("bad --param %q: %w", arg, err)
			}
			vals = append(vals, v)
		}
		params = append(params, sweep.Param(strings.TrimSpace(name)))
		ranges = append(ranges, vals)
	}
	return sweep.NewGrid(params, ranges)
}

func sweepCore(cmd *cobra.Command, args []string) error {
	cfg, err := loadCore(args)
	if err != nil {
		return err
	}
	grid, err := parseGrid(sweepArgs)
	if err != nil {
		return err
	}

	points, err := grid.Run(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(sweepArgs))
	for k := range points[0].Params {
		names = append(names, string(k))
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\t"+strings.ToUpper(objective))
	for _, pt := range points {
		cells := make([]string, 0, len(names)+1)
		for _, n := range names {
			cells = append(cells, strconv.FormatFloat(pt.Params[sweep.Param(n)], 'g', -1, 64))
		}
		if pt.Err != nil {
			cells = append(cells, "error: "+pt.Err.Error())
		} else {
			cells = append(cells, fmt.Sprintf("%.4f", pt.Metrics[objective]))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best, ok := sweep.Best(points, objective, !minimize)
	if !ok {
		return fmt.Errorf("no point produced metric %q (available: %s)", objective, strings.Join(sweep.MetricNames(), ", "))
	}
	fmt.Printf("\nbest: %v  %s=%.4f\n", best.Params, objective, best.Metrics[objective])
	return nil
}
