package trace

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/bpsim/timing/predictor"
)

// Reader parses the text trace format.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next record, or io.EOF at the end of the input.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		rec, err := parseRecord(text)
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return rec, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("failed to read trace: %w", err)
	}
	return Record{}, io.EOF
}

func parseRecord(text string) (Record, error) {
	fields := strings.Fields(text)
	if len(fields) < 3 || len(fields) > 5 {
		return Record{}, fmt.Errorf("%w: expected 3 to 5 fields, got %d", ErrMalformed, len(fields))
	}

	addr, err := parseHex(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: address %q", ErrMalformed, fields[0])
	}

	flags, err := ParseFlags(fields[1])
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Branch:       predictor.BranchInfo{Address: addr, Flags: flags},
		Instructions: 1,
	}

	switch fields[2] {
	case "T", "t", "1":
		rec.Taken = true
	case "N", "n", "0":
	default:
		return Record{}, fmt.Errorf("%w: outcome %q", ErrMalformed, fields[2])
	}

	if len(fields) > 3 {
		rec.Target, err = parseHex(fields[3])
		if err != nil {
			return Record{}, fmt.Errorf("%w: target %q", ErrMalformed, fields[3])
		}
	}

	if len(fields) > 4 {
		rec.Instructions, err = strconv.ParseUint(fields[4], 10, 64)
		if err != nil || rec.Instructions == 0 {
			return Record{}, fmt.Errorf("%w: instruction count %q", ErrMalformed, fields[4])
		}
	}

	return rec, nil
}

func parseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

// ParseFlags parses the flag column of a trace line.
func ParseFlags(s string) (predictor.BranchFlags, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty flags, use \"-\" for none", ErrMalformed)
	}
	if s == "-" {
		return 0, nil
	}

	var flags predictor.BranchFlags
	for _, c := range s {
		switch c {
		case 'C', 'c':
			flags |= predictor.FlagConditional
		case 'I', 'i':
			flags |= predictor.FlagIndirect
		case 'L', 'l':
			flags |= predictor.FlagCall
		case 'R', 'r':
			flags |= predictor.FlagReturn
		default:
			return 0, fmt.Errorf("%w: flag %q", ErrMalformed, c)
		}
	}
	return flags, nil
}

// File is a Reader backed by a file on disk.
type File struct {
	*Reader
	closers []io.Closer
}

// Open opens a trace file. Files ending in .gz are decompressed.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}

	tf := &File{closers: []io.Closer{f}}
	var in io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip trace: %w", err)
		}
		tf.closers = append([]io.Closer{gz}, tf.closers...)
		in = gz
	}

	tf.Reader = NewReader(in)
	return tf, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	var first error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
