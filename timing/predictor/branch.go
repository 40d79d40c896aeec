// Package predictor provides a perceptron branch-direction predictor for
// trace-driven and cycle-level simulation.
package predictor

import "strings"

// BranchFlags describes the kind of control-flow instruction being queried.
type BranchFlags uint8

const (
	// FlagConditional marks a conditional branch. Only conditional branches
	// train the predictor.
	FlagConditional BranchFlags = 1 << iota
	// FlagIndirect marks a branch through a register.
	FlagIndirect
	// FlagCall marks a call.
	FlagCall
	// FlagReturn marks a return.
	FlagReturn
)

// IsConditional reports whether the conditional bit is set.
func (f BranchFlags) IsConditional() bool {
	return f&FlagConditional != 0
}

func (f BranchFlags) String() string {
	if f == 0 {
		return "-"
	}

	var sb strings.Builder
	if f&FlagConditional != 0 {
		sb.WriteByte('C')
	}
	if f&FlagIndirect != 0 {
		sb.WriteByte('I')
	}
	if f&FlagCall != 0 {
		sb.WriteByte('L')
	}
	if f&FlagReturn != 0 {
		sb.WriteByte('R')
	}
	return sb.String()
}

// BranchInfo is the query the host simulator presents for each branch.
type BranchInfo struct {
	// Address is the instruction address of the branch.
	Address uint64
	// Flags describes the branch kind.
	Flags BranchFlags
}

// Prediction is the result of a Predict call. It also carries the state the
// matching Update call needs, so hosts must hand it back unchanged.
type Prediction struct {
	// Taken is the predicted direction.
	Taken bool
	// Target is the predicted target address. Targets are not modeled, so
	// this is always zero.
	Target uint64

	branch     BranchInfo
	longIndex  uint32
	shortIndex uint32
	longScore  int32
	shortScore int32
}

// Branch returns the query this prediction was made for.
func (p Prediction) Branch() BranchInfo { return p.branch }

// LongIndex returns the long-history table row used.
func (p Prediction) LongIndex() uint32 { return p.longIndex }

// ShortIndex returns the short-history table row used.
func (p Prediction) ShortIndex() uint32 { return p.shortIndex }

// LongScore returns the long-history perceptron output.
func (p Prediction) LongScore() int32 { return p.longScore }

// ShortScore returns the short-history perceptron output.
func (p Prediction) ShortScore() int32 { return p.shortScore }

// Score returns the combined output of both perceptrons.
func (p Prediction) Score() int32 { return p.longScore + p.shortScore }

// DirectionPredictor is the contract between a host simulator and a
// direction predictor. Every Predict must be followed by exactly one Update
// with the returned Prediction once the branch resolves.
type DirectionPredictor interface {
	Predict(b BranchInfo) Prediction
	Update(p Prediction, taken bool, target uint64)
}
