// Package stream handles the CSV wire format of the scoring pipeline.
// Input records are headerless "source,dest,time" lines of unsigned
// integers; output is one "%.6f" score per line, in input order.
package stream

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Edge is a single input record.
type Edge struct {
	Source uint64
	Dest   uint64
	Time   uint64
}

// Reader decodes edges from a headerless CSV stream. Blank lines are
// skipped; anything else that fails to parse is a hard error carrying the
// 1-based line number.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader wraps r for edge decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{scanner: bufio.NewScanner(r)}
}

// Next returns the next edge. It returns io.EOF when the stream is
// exhausted.
func (r *Reader) Next() (Edge, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" {
			continue
		}
		edge, err := parseEdge(text)
		if err != nil {
			return Edge{}, fmt.Errorf("stream: line %d: %w", r.line, err)
		}
		return edge, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Edge{}, fmt.Errorf("stream: read failed after line %d: %w", r.line, err)
	}
	return Edge{}, io.EOF
}

// Line returns the 1-based line number of the record last returned by Next.
func (r *Reader) Line() int { return r.line }

func parseEdge(text string) (Edge, error) {
	fields := strings.Split(text, ",")
	if len(fields) != 3 {
		return Edge{}, fmt.Errorf("expected 3 fields, got %d", len(fields))
	}

	var values [3]uint64
	for i, field := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return Edge{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		values[i] = v
	}

	return Edge{Source: values[0], Dest: values[1], Time: values[2]}, nil
}

// ScoreWriter encodes scores, one per line, with six decimal places.
type ScoreWriter struct {
	w *bufio.Writer
}

// NewScoreWriter wraps w for score encoding.
func NewScoreWriter(w io.Writer) *ScoreWriter {
	return &ScoreWriter{w: bufio.NewWriter(w)}
}

// Write appends one score line.
func (w *ScoreWriter) Write(score float64) error {
	_, err := fmt.Fprintf(w.w, "%.6f\n", score)
	return err
}

// Flush drains buffered output to the underlying writer.
func (w *ScoreWriter) Flush() error {
	return w.w.Flush()
}
