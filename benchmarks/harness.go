package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/bpsim/timing/driver"
	"github.com/sarchlab/bpsim/timing/predictor"
	"github.com/sarchlab/bpsim/trace"
)

// Result holds the accuracy results for a single benchmark run.
type Result struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark exercises
	Description string `json:"description"`

	// Branches is the number of branches replayed
	Branches uint64 `json:"branches"`

	// Conditional is the number of conditional branches scored
	Conditional uint64 `json:"conditional"`

	// Mispredictions is the number of mispredicted conditional branches
	Mispredictions uint64 `json:"mispredictions"`

	// Trainings is the number of updates that changed weights
	Trainings uint64 `json:"trainings"`

	// Instructions covered by the trace
	Instructions uint64 `json:"instructions"`

	// AccuracyPercent is the conditional prediction accuracy
	AccuracyPercent float64 `json:"accuracy_percent"`

	// MPKI is mispredictions per thousand instructions
	MPKI float64 `json:"mpki"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Predictor is the configuration each benchmark's fresh predictor uses
	Predictor predictor.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Predictor: predictor.DefaultConfig(),
		Output:    os.Stdout,
	}
}

// Harness runs benchmarks through the predictor and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() ([]Result, error) {
	results := make([]Result, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result, err := h.runBenchmark(bench)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}

	return results, nil
}

// runBenchmark replays one benchmark through a fresh predictor.
func (h *Harness) runBenchmark(bench Benchmark) (Result, error) {
	d := driver.MakeBuilder().
		WithPredictor(predictor.New(h.config.Predictor)).
		WithSource(trace.NewSliceSource(bench.Records)).
		Build("Driver")

	start := time.Now()
	stats, err := d.Run()
	wallTime := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("benchmark %s: %w", bench.Name, err)
	}

	return Result{
		Name:            bench.Name,
		Description:     bench.Description,
		Branches:        stats.Branches,
		Conditional:     stats.Conditional,
		Mispredictions:  stats.Mispredictions,
		Trainings:       stats.Trainings,
		Instructions:    stats.Instructions,
		AccuracyPercent: stats.Accuracy(),
		MPKI:            stats.MPKI(),
		WallTime:        wallTime,
	}, nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output, "=== Perceptron Predictor Benchmark Results ===")
	_, _ = fmt.Fprintf(h.config.Output, "Config: long=%d short=%d table_bits=%d threshold=%d\n",
		h.config.Predictor.LongHistory, h.config.Predictor.ShortHistory,
		h.config.Predictor.TableBits, h.config.Predictor.Threshold)
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Branches:        %d\n", r.Branches)
		_, _ = fmt.Fprintf(h.config.Output, "  Conditional:     %d\n", r.Conditional)
		_, _ = fmt.Fprintf(h.config.Output, "  Mispredictions:  %d\n", r.Mispredictions)
		_, _ = fmt.Fprintf(h.config.Output, "  Trainings:       %d\n", r.Trainings)
		_, _ = fmt.Fprintf(h.config.Output, "  Accuracy:        %.2f%%\n", r.AccuracyPercent)
		_, _ = fmt.Fprintf(h.config.Output, "  MPKI:            %.3f\n", r.MPKI)
		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,branches,conditional,mispredictions,trainings,instructions,accuracy,mpki")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%d,%.3f,%.3f\n",
			r.Name,
			r.Branches,
			r.Conditional,
			r.Mispredictions,
			r.Trainings,
			r.Instructions,
			r.AccuracyPercent,
			r.MPKI,
		)
	}
}

// Report is the JSON output format for benchmark results.
type Report struct {
	Timestamp string           `json:"timestamp"`
	Config    predictor.Config `json:"config"`
	Results   []Result         `json:"results"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []Result) error {
	report := Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Config:    h.config.Predictor,
		Results:   results,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
