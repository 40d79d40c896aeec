package trace

import (
	"bufio"
	"fmt"
	"io"
)

// Writer emits records in the text trace format.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer over w. Call Flush when done.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record.
func (w *Writer) Write(r Record) error {
	outcome := "N"
	if r.Taken {
		outcome = "T"
	}

	insts := r.Instructions
	if insts == 0 {
		insts = 1
	}

	_, err := fmt.Fprintf(w.w, "%#x %s %s %#x %d\n",
		r.Branch.Address, r.Branch.Flags, outcome, r.Target, insts)
	if err != nil {
		return fmt.Errorf("failed to write trace record: %w", err)
	}
	return nil
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
