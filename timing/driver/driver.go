// Package driver replays branch traces through a direction predictor as an
// Akita ticking component, one branch per cycle.
package driver

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/bpsim/timing/predictor"
	"github.com/sarchlab/bpsim/trace"
)

// Trainer is implemented by predictors that can report whether an update
// will adjust their weights.
type Trainer interface {
	ShouldTrain(p predictor.Prediction, taken bool) bool
}

// ProgressFunc is called periodically with the statistics so far.
type ProgressFunc func(Stats)

// Driver feeds trace records to a predictor and scores its predictions.
type Driver struct {
	*sim.TickingComponent

	engine    sim.Engine
	predictor predictor.DirectionPredictor
	trainer   Trainer
	source    trace.Source

	progress      ProgressFunc
	progressEvery uint64

	stats Stats
	done  bool
	err   error
}

// Tick replays one record. It returns false once the source is exhausted
// or fails.
func (d *Driver) Tick() bool {
	if d.done {
		return false
	}

	rec, err := d.source.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			d.err = err
		}
		d.done = true
		return false
	}

	d.Step(rec)

	if d.progress != nil && d.stats.Branches%d.progressEvery == 0 {
		d.progress(d.stats)
	}

	return true
}

// Step runs one predict/update pair for rec and records the result.
func (d *Driver) Step(rec trace.Record) {
	pred := d.predictor.Predict(rec.Branch)

	d.stats.Branches++
	insts := rec.Instructions
	if insts == 0 {
		insts = 1
	}
	d.stats.Instructions += insts

	if rec.Branch.Flags.IsConditional() {
		d.stats.Conditional++
		if pred.Taken == rec.Taken {
			d.stats.Correct++
		} else {
			d.stats.Mispredictions++
		}

		if d.trainer != nil && d.trainer.ShouldTrain(pred, rec.Taken) {
			d.stats.Trainings++
		}
	}

	d.predictor.Update(pred, rec.Taken, rec.Target)
}

// Run schedules the first tick and runs the engine until the trace ends.
func (d *Driver) Run() (Stats, error) {
	d.engine.Schedule(sim.MakeTickEvent(d.TickingComponent, 0))

	if err := d.engine.Run(); err != nil {
		return d.stats, fmt.Errorf("simulation failed: %w", err)
	}

	if d.err != nil {
		return d.stats, fmt.Errorf("trace replay stopped after %d branches: %w",
			d.stats.Branches, d.err)
	}

	return d.stats, nil
}

// Stats returns the statistics collected so far.
func (d *Driver) Stats() Stats {
	return d.stats
}
