// Package benchmarks provides synthetic branch workloads and a harness for
// measuring predictor accuracy on them.
package benchmarks

import (
	"math/rand"

	"github.com/sarchlab/bpsim/timing/predictor"
	"github.com/sarchlab/bpsim/trace"
)

// Benchmark is a named branch trace.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains the branch behavior being exercised
	Description string

	// Records is the resolved branch stream in program order
	Records []trace.Record
}

// GetMicrobenchmarks returns the standard set of synthetic workloads.
// Each one targets a specific predictor characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		alwaysTaken(),
		fixedTripLoop(),
		alternating(),
		correlatedPair(),
		longPeriod(),
		biasedRandom(),
		callReturnMix(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		fixedTripLoop(),
		correlatedPair(),
		callReturnMix(),
	}
}

// recorder accumulates records for a generator.
type recorder struct {
	records []trace.Record
}

func (r *recorder) cond(addr uint64, taken bool, insts uint64) {
	r.records = append(r.records, trace.Record{
		Branch:       predictor.BranchInfo{Address: addr, Flags: predictor.FlagConditional},
		Taken:        taken,
		Instructions: insts,
	})
}

func (r *recorder) uncond(addr uint64, flags predictor.BranchFlags, target uint64) {
	r.records = append(r.records, trace.Record{
		Branch:       predictor.BranchInfo{Address: addr, Flags: flags},
		Taken:        true,
		Target:       target,
		Instructions: 1,
	})
}

// 1. Always Taken - a single loop back-edge that never exits
func alwaysTaken() Benchmark {
	r := &recorder{}
	for i := 0; i < 2000; i++ {
		r.cond(0x1000, true, 4)
	}
	return Benchmark{
		Name:        "always_taken",
		Description: "One back-edge, always taken - measures warmup cost",
		Records:     r.records,
	}
}

// 2. Fixed Trip Loop - an 8-iteration inner loop inside an outer loop
func fixedTripLoop() Benchmark {
	r := &recorder{}
	for outer := 0; outer < 500; outer++ {
		for inner := 0; inner < 8; inner++ {
			r.cond(0x1100, inner < 7, 5)
		}
		r.cond(0x1120, true, 3)
	}
	return Benchmark{
		Name:        "fixed_trip_loop",
		Description: "Inner loop with trip count 8 - exit is predictable from history",
		Records:     r.records,
	}
}

// 3. Alternating - T, N, T, N on one branch
func alternating() Benchmark {
	r := &recorder{}
	for i := 0; i < 2000; i++ {
		r.cond(0x1200, i%2 == 0, 6)
	}
	return Benchmark{
		Name:        "alternating",
		Description: "Single branch alternating taken/not-taken",
		Records:     r.records,
	}
}

// 4. Correlated Pair - the second branch repeats the first branch's random
// outcome
func correlatedPair() Benchmark {
	rng := rand.New(rand.NewSource(1))
	r := &recorder{}
	for i := 0; i < 3000; i++ {
		a := rng.Intn(2) == 0
		r.cond(0x1300, a, 8)
		r.cond(0x1340, a, 4)
	}
	return Benchmark{
		Name:        "correlated_pair",
		Description: "Random branch followed by a branch with the same outcome - needs global history",
		Records:     r.records,
	}
}

// 5. Long Period - a fixed random pattern of period 24 on one branch
func longPeriod() Benchmark {
	rng := rand.New(rand.NewSource(2))
	pattern := make([]bool, 24)
	for i := range pattern {
		pattern[i] = rng.Intn(2) == 0
	}

	r := &recorder{}
	for i := 0; i < 4800; i++ {
		r.cond(0x1400, pattern[i%len(pattern)], 5)
	}
	return Benchmark{
		Name:        "long_period",
		Description: "Period-24 pattern - longer than the short history, within the long one",
		Records:     r.records,
	}
}

// 6. Biased Random - 90% taken, no structure
func biasedRandom() Benchmark {
	rng := rand.New(rand.NewSource(3))
	r := &recorder{}
	for i := 0; i < 5000; i++ {
		r.cond(0x1500, rng.Intn(10) != 0, 7)
	}
	return Benchmark{
		Name:        "biased_random",
		Description: "Independent 90% taken branch - bounded by the bias",
		Records:     r.records,
	}
}

// 7. Call/Return Mix - conditional branches interleaved with calls and
// returns that must not disturb history
func callReturnMix() Benchmark {
	r := &recorder{}
	for i := 0; i < 1000; i++ {
		r.uncond(0x1600, predictor.FlagCall, 0x8000)
		r.cond(0x8010, i%4 != 3, 6)
		r.uncond(0x8020, predictor.FlagReturn, 0x1604)
		r.cond(0x1610, i%2 == 0, 4)
	}
	return Benchmark{
		Name:        "call_return_mix",
		Description: "Calls and returns between conditional branches - unconditional branches are not scored",
		Records:     r.records,
	}
}
