package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"priceeda/internal/analysis"
	"priceeda/internal/app"
	"priceeda/internal/charts"
	"priceeda/internal/config"
	"priceeda/internal/infrastructure"
	"priceeda/internal/services"
	"priceeda/internal/store"
	"priceeda/internal/validation"
)

const usage = `Usage: eda <command> [flags]

Commands:
  ma          render the moving average chart
  volatility  render the rolling volatility chart
  decompose   render the seasonal decomposition chart
  correlate   print the correlation matrix and render the heatmap
  merge       left-join an auxiliary file and export the merged dataset
  impact      measure price changes around events
  report      render every chart and, with events, export an impact table
  serve       start the HTTP API

Run "eda <command> -h" for command flags.
`

type command func(ctx context.Context, args []string, stdout io.Writer) error

var commands = map[string]command{
	"ma":         runMovingAverage,
	"volatility": runVolatility,
	"decompose":  runDecompose,
	"correlate":  runCorrelate,
	"merge":      runMerge,
	"impact":     runImpact,
	"report":     runReport,
	"serve":      runServe,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "eda: unknown command %q\n\n%s", args[0], usage)
		return 2
	}
	if err := cmd(ctx, args[1:], stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "eda %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// commonFlags are shared by every analysis command
type commonFlags struct {
	configFile string
	dataFile   string
	column     string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "config", "", "YAML config file (defaults to "+config.ConfigFileEnv+" or config.yaml)")
	fs.StringVar(&c.dataFile, "data", "", "dataset file (defaults to paths.dataset_file)")
	fs.StringVar(&c.column, "column", "", "price column (defaults to analysis.price_column)")
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// loadConfig reads the named config file, or falls back to the usual search
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// environment is a configured analysis service with its dataset loaded
type environment struct {
	cfg     *config.Config
	paths   *config.Paths
	logger  *slog.Logger
	svc     *services.AnalysisService
	journal *store.SQLiteStore
}

func setup(ctx context.Context, flags commonFlags) (*environment, error) {
	cfg, err := loadConfig(flags.configFile)
	if err != nil {
		return nil, err
	}

	// stdout carries command output, so logs go to stderr
	logger, err := infrastructure.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := cfg.ResolvedPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	format, err := charts.ParseFormat(cfg.Charts.Format)
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, paths: paths, logger: logger}
	deps := services.Dependencies{
		Config: cfg.Analysis,
		Paths:  paths,
		Renderer: charts.NewRenderer(charts.Options{
			Width:  cfg.Charts.Width,
			Height: cfg.Charts.Height,
			Format: format,
		}, logger),
		Logger: logger,
	}
	if paths.JournalFile != "" {
		journal, err := store.NewSQLiteStore(ctx, paths.JournalFile, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open impact journal: %w", err)
		}
		env.journal = journal
		deps.Journal = journal
	}
	env.svc = services.NewAnalysisService(deps)

	dataFile := flags.dataFile
	if dataFile == "" {
		dataFile = paths.DatasetFile
	}
	if _, err := env.svc.LoadDataset(ctx, dataFile); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to load dataset %s: %w", dataFile, err)
	}
	return env, nil
}

func (e *environment) Close() {
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.logger.Warn("failed to close impact journal", slog.String("error", err.Error()))
		}
	}
}

// renderTo writes a chart to out, or to the charts directory when out is empty
func (e *environment) renderTo(ctx context.Context, req services.ChartRequest, out string, stdout io.Writer) error {
	path := out
	if path != "" {
		v := validation.NewFileValidator(e.logger)
		if filepath.Ext(path) != "" {
			if err := v.ValidateExtension(path, ".png", ".svg"); err != nil {
				return err
			}
		}
		if err := v.ValidateOutputDirectory(filepath.Dir(path)); err != nil {
			return err
		}
	} else {
		column := req.Column
		if column == "" {
			column = e.cfg.Analysis.PriceColumn
		}
		path = e.paths.GetChartPath(fmt.Sprintf("%s_%s", column, req.Kind))
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	format, err := e.svc.RenderChart(ctx, f, req)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}

	if filepath.Ext(path) == "" {
		path += "." + string(format)
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

func runMovingAverage(ctx context.Context, args []string, stdout io.Writer) error {
	return runLineChart(ctx, "ma", services.ChartMovingAverage, args, stdout)
}

func runVolatility(ctx context.Context, args []string, stdout io.Writer) error {
	return runLineChart(ctx, "volatility", services.ChartVolatility, args, stdout)
}

func runLineChart(ctx context.Context, name string, kind services.ChartKind, args []string, stdout io.Writer) error {
	var flags commonFlags
	fs := newFlagSet(name)
	flags.register(fs)
	window := fs.Int("window", 0, "rolling window in rows (defaults to the configured window)")
	out := fs.String("out", "", "chart output file (defaults to the charts directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.renderTo(ctx, services.ChartRequest{Kind: kind, Column: flags.column, Window: *window}, *out, stdout)
}

func runDecompose(ctx context.Context, args []string, stdout io.Writer) error {
	var flags commonFlags
	fs := newFlagSet("decompose")
	flags.register(fs)
	period := fs.Int("period", 0, "seasonal period in rows (defaults to the configured period)")
	out := fs.String("out", "", "chart output file (defaults to the charts directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.renderTo(ctx, services.ChartRequest{Kind: services.ChartDecomposition, Column: flags.column, Period: *period}, *out, stdout)
}

func runCorrelate(ctx context.Context, args []string, stdout io.Writer) error {
	var flags commonFlags
	fs := newFlagSet("correlate")
	flags.register(fs)
	out := fs.String("out", "", "heatmap output file (defaults to the charts directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	m, err := env.svc.Correlation(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(m.Columns, "\t"))
	for i, name := range m.Columns {
		cells := make([]string, len(m.Values[i]))
		for j, v := range m.Values[i] {
			cells[j] = fmt.Sprintf("%.4f", v)
		}
		fmt.Fprintf(tw, "%s\t%s\t\n", name, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = env.paths.GetChartPath("correlation")
	}
	return env.renderTo(ctx, services.ChartRequest{Kind: services.ChartCorrelation}, path, stdout)
}

func runMerge(ctx context.Context, args []string, stdout io.Writer) error {
	var flags commonFlags
	fs := newFlagSet("merge")
	flags.register(fs)
	with := fs.String("with", "", "auxiliary CSV, XLSX or Parquet file to join (required)")
	key := fs.String("key", "", "join key (defaults to analysis.index_column)")
	format := fs.String("format", "csv", "merged dataset export format: "+strings.Join(services.ExportFormats(), ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *with == "" {
		return errors.New("-with is required")
	}
	exportFormat, err := services.ParseExportFormat(*format)
	if err != nil {
		return err
	}

	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.svc.Merge(ctx, *with, *key, true)
	if err != nil {
		return err
	}
	env.logger.InfoContext(ctx, "merged auxiliary data",
		slog.String("file", *with),
		slog.Any("added", result.Added),
		slog.Int("rows", result.Dataset.Rows))

	path, err := env.svc.ExportDataset(ctx, exportFormat)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, path)
	return nil
}

// eventFlags collects repeated -event date=label values
type eventFlags map[string]string

func (e eventFlags) String() string {
	pairs := make([]string, 0, len(e))
	for date, label := range e {
		pairs = append(pairs, date+"="+label)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (e eventFlags) Set(v string) error {
	date, label, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(date) == "" {
		return fmt.Errorf("event %q must be date=label", v)
	}
	e[strings.TrimSpace(date)] = strings.TrimSpace(label)
	return nil
}

// readEvents loads a JSON file holding either a date to label object or a
// list of {"date", "label"} objects, then adds the flag events
func readEvents(path string, extra eventFlags) ([]analysis.Event, error) {
	merged := make(map[string]string, len(extra))
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var byDate map[string]string
		if err := json.Unmarshal(data, &byDate); err != nil {
			var list []analysis.Event
			if lerr := json.Unmarshal(data, &list); lerr != nil {
				return nil, fmt.Errorf("parse events file %s: %w", path, err)
			}
			for _, ev := range list {
				merged[ev.Date] = ev.Label
			}
		}
		for date, label := range byDate {
			merged[date] = label
		}
	}
	for date, label := range extra {
		merged[date] = label
	}
	return analysis.EventsFromMap(merged), nil
}

func runImpact(ctx context.Context, args []string, stdout io.Writer) error {
	var flags commonFlags
	events := eventFlags{}
	fs := newFlagSet("impact")
	flags.register(fs)
	eventsFile := fs.String("events", "", "JSON file of events")
	fs.Var(events, "event", "event as date=label, repeatable")
	window := fs.Int("window", 0, "days either side of each event (defaults to analysis.event_window)")
	format := fs.String("format", "", "also export the records: "+strings.Join(services.ExportFormats(), ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := readEvents(*eventsFile, events)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return errors.New("no events given, use -events or -event")
	}

	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := env.svc.EventImpact(ctx, flags.column, list, *window)
	if err != nil {
		return err
	}
	if err := printImpact(stdout, report); err != nil {
		return err
	}

	if *format != "" {
		exportFormat, err := services.ParseExportFormat(*format)
		if err != nil {
			return err
		}
		path, err := env.svc.ExportImpactRun(ctx, report.RunID, exportFormat)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
	}
	return nil
}

func printImpact(w io.Writer, report analysis.ImpactReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Event\tDate\tPrice_Before\tPrice_After\tPct_Change")
	for _, rec := range report.Records() {
		fmt.Fprintf(tw, "%s\t%s\t%.4f\t%.4f\t%.2f%%\n",
			rec.Event, rec.Date.Format("2006-01-02"), rec.PriceBefore, rec.PriceAfter, rec.PctChange)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, o := range report.Skipped() {
		fmt.Fprintf(w, "skipped %s (%s): %s\n", o.Event.Label, o.Event.Date, o.Reason)
	}
	fmt.Fprintf(w, "run %s: %d resolved, %d skipped\n", report.RunID, len(report.Records()), len(report.Skipped()))
	return nil
}

func runReport(ctx context.Context, args []string, stdout io.Writer) error {
	var flags commonFlags
	events := eventFlags{}
	fs := newFlagSet("report")
	flags.register(fs)
	eventsFile := fs.String("events", "", "JSON file of events")
	fs.Var(events, "event", "event as date=label, repeatable")
	window := fs.Int("window", 0, "days either side of each event")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := readEvents(*eventsFile, events)
	if err != nil {
		return err
	}

	env, err := setup(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.svc.Report(ctx, services.ReportOptions{
		Column: flags.column,
		Events: list,
		Window: *window,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Charts  []string                      `json:"charts"`
		Exports []string                      `json:"exports,omitempty"`
		Skipped map[services.ChartKind]string `json:"skipped,omitempty"`
	}{result.Charts, result.Exports, result.Skipped})
}

func runServe(_ context.Context, args []string, _ io.Writer) error {
	fs := newFlagSet("serve")
	configFile := fs.String("config", "", "YAML config file")
	port := fs.Int("port", 0, "listen port (overrides server.port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return err
	}
	return application.Run()
}
