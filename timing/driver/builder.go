package driver

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/bpsim/timing/predictor"
	"github.com/sarchlab/bpsim/trace"
)

// Builder creates Drivers.
type Builder struct {
	engine        sim.Engine
	freq          sim.Freq
	predictor     predictor.DirectionPredictor
	source        trace.Source
	progress      ProgressFunc
	progressEvery uint64
}

// MakeBuilder returns a Builder with a 1 GHz clock, a fresh serial engine
// and a default perceptron predictor.
func MakeBuilder() Builder {
	return Builder{
		freq:          1 * sim.GHz,
		progressEvery: 1 << 20,
	}
}

// WithEngine sets the engine the driver is scheduled on.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the tick frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithPredictor sets the predictor under test.
func (b Builder) WithPredictor(p predictor.DirectionPredictor) Builder {
	b.predictor = p
	return b
}

// WithSource sets the record source.
func (b Builder) WithSource(src trace.Source) Builder {
	b.source = src
	return b
}

// WithProgress installs a callback invoked every n branches.
func (b Builder) WithProgress(n uint64, fn ProgressFunc) Builder {
	if n > 0 {
		b.progressEvery = n
	}
	b.progress = fn
	return b
}

// Build creates the driver.
func (b Builder) Build(name string) *Driver {
	if b.engine == nil {
		b.engine = sim.NewSerialEngine()
	}
	if b.predictor == nil {
		b.predictor = predictor.New(predictor.DefaultConfig())
	}
	if b.source == nil {
		b.source = trace.NewSliceSource(nil)
	}

	d := &Driver{
		engine:        b.engine,
		predictor:     b.predictor,
		source:        b.source,
		progress:      b.progress,
		progressEvery: b.progressEvery,
	}

	if t, ok := b.predictor.(Trainer); ok {
		d.trainer = t
	}

	d.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, d)

	return d
}
