// Package main provides the entry point for bpsim, a trace-driven
// perceptron branch predictor simulator.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/sarchlab/bpsim/benchmarks"
	"github.com/sarchlab/bpsim/timing/driver"
	"github.com/sarchlab/bpsim/timing/predictor"
	"github.com/sarchlab/bpsim/trace"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	variant    string
	bench      bool
	script     string
	format     string
	dumpConfig string
	verbose    bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bpsim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to predictor configuration JSON file")
	fs.StringVar(&opts.variant, "variant", "default", "Built-in calibration: default (48/12) or long (64/8)")
	fs.BoolVar(&opts.bench, "bench", false, "Run the built-in microbenchmarks")
	fs.StringVar(&opts.script, "script", "", "Path to a Lua workload script")
	fs.StringVar(&opts.format, "format", "text", "Benchmark output format: text, csv or json")
	fs.StringVar(&opts.dumpConfig, "dump-config", "", "Write the effective configuration to this path")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose output")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := checkFormat(opts.format); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error parsing options: %v\n", err)
		return 1
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	config, err := resolveConfig(opts)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error loading predictor config: %v\n", err)
		return 1
	}
	logger.Debug("predictor configured",
		"long_history", config.LongHistory,
		"short_history", config.ShortHistory,
		"table_bits", config.TableBits,
		"threshold", config.Threshold)

	if opts.dumpConfig != "" {
		if err := config.SaveConfig(opts.dumpConfig); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing config: %v\n", err)
			return 1
		}
		logger.Debug("config written", "path", opts.dumpConfig)
	}

	switch {
	case opts.bench || opts.script != "":
		return runBenchmarks(opts, config, stdout, stderr, logger)
	case fs.NArg() >= 1:
		return runTrace(fs.Arg(0), config, stdout, stderr, logger)
	case opts.dumpConfig != "":
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "Usage: bpsim [options] <trace[.gz]>\n")
		_, _ = fmt.Fprintf(stderr, "       bpsim -bench [-script workload.lua] [options]\n")
		_, _ = fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
		return 1
	}
}

func resolveConfig(opts options) (predictor.Config, error) {
	if opts.configPath != "" {
		return predictor.LoadConfig(opts.configPath)
	}
	return predictor.ConfigByName(opts.variant)
}

// runTrace replays a trace file through a fresh predictor.
func runTrace(
	path string,
	config predictor.Config,
	stdout, stderr io.Writer,
	logger *slog.Logger,
) int {
	f, err := trace.Open(path)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error opening trace: %v\n", err)
		return 1
	}
	defer func() { _ = f.Close() }()

	builder := driver.MakeBuilder().
		WithPredictor(predictor.New(config)).
		WithSource(f)

	if isTerminal(stderr) {
		builder = builder.WithProgress(1<<20, func(s driver.Stats) {
			_, _ = fmt.Fprintf(stderr, "\r%d branches, %.3f MPKI", s.Branches, s.MPKI())
		})
	}

	d := builder.Build("Driver")
	logger.Debug("replaying trace", "path", path)

	stats, err := d.Run()
	if isTerminal(stderr) {
		_, _ = fmt.Fprintln(stderr)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error replaying trace: %v\n", err)
		return 1
	}

	printReport(stdout, path, config, stats)
	return 0
}

func runBenchmarks(
	opts options,
	config predictor.Config,
	stdout, stderr io.Writer,
	logger *slog.Logger,
) int {
	harness := benchmarks.NewHarness(benchmarks.HarnessConfig{
		Predictor: config,
		Output:    stdout,
	})

	if opts.bench {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}
	if opts.script != "" {
		b, err := benchmarks.FromLuaFile(opts.script)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error loading workload: %v\n", err)
			return 1
		}
		logger.Debug("workload loaded", "name", b.Name, "branches", len(b.Records))
		harness.AddBenchmark(b)
	}

	results, err := harness.RunAll()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error running benchmarks: %v\n", err)
		return 1
	}

	switch opts.format {
	case "csv":
		harness.PrintCSV(results)
	case "json":
		if err := harness.PrintJSON(results); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error writing JSON: %v\n", err)
			return 1
		}
	case "text":
		harness.PrintResults(results)
	}
	return 0
}

func checkFormat(format string) error {
	switch format {
	case "text", "csv", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, csv or json)", format)
	}
}

func printReport(w io.Writer, path string, config predictor.Config, stats driver.Stats) {
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Trace: %s\n", path)
	_, _ = fmt.Fprintf(w, "Predictor: perceptron long=%d short=%d table_bits=%d threshold=%d\n",
		config.LongHistory, config.ShortHistory, config.TableBits, config.Threshold)
	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Branches:            %d\n", stats.Branches)
	_, _ = fmt.Fprintf(w, "Conditional:         %d\n", stats.Conditional)
	_, _ = fmt.Fprintf(w, "Instructions:        %d\n", stats.Instructions)
	_, _ = fmt.Fprintf(w, "Mispredictions:      %d\n", stats.Mispredictions)
	_, _ = fmt.Fprintf(w, "Trainings:           %d\n", stats.Trainings)
	_, _ = fmt.Fprintf(w, "Accuracy:            %.3f%%\n", stats.Accuracy())
	_, _ = fmt.Fprintf(w, "MPKI:                %.3f\n", stats.MPKI())
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
