package driver

// Stats holds the outcome of replaying a trace through a predictor.
type Stats struct {
	// Branches is the number of records replayed.
	Branches uint64
	// Conditional is the number of conditional branches scored.
	Conditional uint64
	// Correct is the number of correctly predicted conditional branches.
	Correct uint64
	// Mispredictions is the number of mispredicted conditional branches.
	Mispredictions uint64
	// Trainings is the number of updates that adjusted weights. Only
	// counted for predictors that report it.
	Trainings uint64
	// Instructions is the number of instructions the trace covers.
	Instructions uint64
}

// Accuracy returns the conditional prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	if s.Conditional == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Conditional) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s Stats) MispredictionRate() float64 {
	if s.Conditional == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Conditional) * 100
}

// MPKI returns mispredictions per thousand instructions.
func (s Stats) MPKI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Instructions) * 1000
}
