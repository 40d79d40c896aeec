package predictor

import "fmt"

// Perceptron predicts branch directions with two perceptrons, one over a
// long global history and one over a short global history, whose outputs
// are summed. It is a sequential state machine: each Predict is followed by
// the matching Update before the next branch is predicted.
type Perceptron struct {
	config Config
	mask   uint64

	longHist  history
	shortHist history

	longTable  weightTable
	shortTable weightTable
}

// New creates a perceptron predictor with all weights and history cleared.
// The zero Config selects DefaultConfig. New panics if config is invalid.
func New(config Config) *Perceptron {
	if config == (Config{}) {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid predictor config: %v", err))
	}

	rows := config.TableSize()

	return &Perceptron{
		config:     config,
		mask:       uint64(rows - 1),
		longHist:   newHistory(config.LongHistory),
		shortHist:  newHistory(config.ShortHistory),
		longTable:  newWeightTable(rows, config.LongHistory),
		shortTable: newWeightTable(rows, config.ShortHistory),
	}
}

// Config returns the predictor configuration.
func (p *Perceptron) Config() Config {
	return p.config
}

// longIndex maps the address directly onto the table.
func (p *Perceptron) longIndex(addr uint64) uint32 {
	return uint32(addr & p.mask)
}

// shortIndex folds address bits to spread branches that share low bits.
func (p *Perceptron) shortIndex(addr uint64) uint32 {
	return uint32((addr ^ (addr >> 2)) & p.mask)
}

// Predict returns the predicted direction for b. It does not modify the
// predictor and may be called for any kind of branch.
func (p *Perceptron) Predict(b BranchInfo) Prediction {
	pred := Prediction{
		branch:     b,
		longIndex:  p.longIndex(b.Address),
		shortIndex: p.shortIndex(b.Address),
	}

	pred.longScore = p.longTable.dot(pred.longIndex, &p.longHist)
	pred.shortScore = p.shortTable.dot(pred.shortIndex, &p.shortHist)

	// A zero score predicts taken.
	pred.Taken = pred.Score() >= 0

	return pred
}

// ShouldTrain reports whether Update would adjust weights for pred given
// the actual outcome: on a misprediction, or when the combined score is
// inside the confidence threshold.
func (p *Perceptron) ShouldTrain(pred Prediction, taken bool) bool {
	y := pred.Score()
	if (y >= 0) != taken {
		return true
	}
	if y < 0 {
		y = -y
	}
	return int(y) < p.config.Threshold
}

// Update trains the predictor with the resolved outcome of the branch pred
// was made for. Non-conditional branches are ignored. The target is not
// learned.
func (p *Perceptron) Update(pred Prediction, taken bool, _ uint64) {
	if !pred.branch.Flags.IsConditional() {
		return
	}

	var t int8 = -1
	if taken {
		t = 1
	}

	if p.ShouldTrain(pred, taken) {
		p.longTable.train(pred.longIndex, &p.longHist, t)
		p.shortTable.train(pred.shortIndex, &p.shortHist, t)
	}

	p.longHist.push(t)
	p.shortHist.push(t)
}

// Reset clears all weights and history.
func (p *Perceptron) Reset() {
	p.longTable.clear()
	p.shortTable.clear()
	p.longHist.clear()
	p.shortHist.clear()
}

// LongHistory returns a copy of the long history register, most recent
// outcome first.
func (p *Perceptron) LongHistory() []int8 {
	return p.longHist.snapshot()
}

// ShortHistory returns a copy of the short history register, most recent
// outcome first.
func (p *Perceptron) ShortHistory() []int8 {
	return p.shortHist.snapshot()
}

// LongWeights returns a copy of a long-table row. Element 0 is the bias.
func (p *Perceptron) LongWeights(index uint32) []int8 {
	return append([]int8(nil), p.longTable.row(index)...)
}

// ShortWeights returns a copy of a short-table row. Element 0 is the bias.
func (p *Perceptron) ShortWeights(index uint32) []int8 {
	return append([]int8(nil), p.shortTable.row(index)...)
}
