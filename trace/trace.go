// Package trace reads and writes branch traces for trace-driven predictor
// simulation.
//
// A trace is plain text with one resolved branch per line:
//
//	<address hex> <flags> <T|N> [target hex] [instructions]
//
// Flags are any combination of C (conditional), I (indirect), L (call) and
// R (return), or "-" for none. Instructions counts the instructions since
// the previous branch, including this one, and defaults to 1. Blank lines
// and lines starting with '#' are ignored.
package trace

import (
	"errors"
	"io"

	"github.com/sarchlab/bpsim/timing/predictor"
)

// ErrMalformed is wrapped by every parse error.
var ErrMalformed = errors.New("malformed trace record")

// Record is one resolved branch.
type Record struct {
	// Branch is the query presented to the predictor.
	Branch predictor.BranchInfo
	// Taken is the resolved direction.
	Taken bool
	// Target is the resolved target address.
	Target uint64
	// Instructions is the number of instructions since the previous branch,
	// including this one.
	Instructions uint64
}

// Source yields records in program order. Next returns io.EOF after the
// last record.
type Source interface {
	Next() (Record, error)
}

// SliceSource replays records held in memory.
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource creates a source over records.
func NewSliceSource(records []Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record.
func (s *SliceSource) Next() (Record, error) {
	if s.pos >= len(s.records) {
		return Record{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// ReadAll drains src into a slice.
func ReadAll(src Source) ([]Record, error) {
	var records []Record
	for {
		r, err := src.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, r)
	}
}
