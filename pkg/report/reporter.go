// Package report formats sample sets into the sentinel-framed text report and
// decodes that report on the host side.
//
// One report is:
//
//	SOS
//	<channel 0, %.2f>
//	<channel 1, %.2f>
//	<channel 2, %.2f>
//	<channel 3, %.2f>
//	EOS
//
// Every line is terminated by '\n'.
package report

import (
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"github.com/itohio/capsense/pkg/acquire"
)

// Framing sentinels.
const (
	StartSentinel = "SOS"
	EndSentinel   = "EOS"
)

// Precision is the number of decimals of each value line.
const Precision = 2

// Reporter writes one framed report per Emit to a transport. Lines are written
// as they are produced; the whole report is never buffered.
type Reporter struct {
	w     io.Writer
	bound float32
	line  Line
}

// NewReporter creates a Reporter for values whose magnitude never exceeds
// bound. It fails if the widest such value, or a sentinel, cannot fit a Line.
func NewReporter(w io.Writer, bound float32) (*Reporter, error) {
	if math32.IsNaN(bound) || math32.IsInf(bound, 0) {
		return nil, fmt.Errorf("%w: unbounded values", ErrFormatOverflow)
	}
	if n := MaxLineLen(bound); n > LineSize {
		return nil, fmt.Errorf("%w: values up to %v need %d bytes, have %d", ErrFormatOverflow, bound, n, LineSize)
	}
	return &Reporter{w: w, bound: math32.Abs(bound)}, nil
}

// MaxLineLen returns the longest line, terminator included, that a report can
// contain for values within [-bound, bound].
func MaxLineLen(bound float32) int {
	var buf [64]byte
	n := len(formatValue(buf[:0], -math32.Abs(bound), Precision)) + 1
	return max(n, len(StartSentinel)+1, len(EndSentinel)+1)
}

// Emit writes the report for set. A transport error does not stop the
// remaining lines; the first one is returned. A value too wide for a line is
// reported saturated at the bound and ErrFormatOverflow is returned, so the
// frame always carries four values.
func (r *Reporter) Emit(set *acquire.SampleSet) error {
	firstErr := r.sentinel(StartSentinel)

	for ch := range set {
		if err := r.format(set[ch].Value); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			r.format(math32.Max(-r.bound, math32.Min(r.bound, set[ch].Value)))
		}
		if _, err := r.w.Write(r.line.Bytes()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := r.sentinel(EndSentinel); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (r *Reporter) sentinel(s string) error {
	r.line.Reset()
	r.line.WriteString(s)
	r.line.WriteByte('\n')
	if err := r.line.Err(); err != nil {
		return err
	}
	_, err := r.w.Write(r.line.Bytes())
	return err
}

func (r *Reporter) format(v float32) error {
	r.line.Reset()
	r.line.AppendFloat(v, Precision)
	r.line.WriteByte('\n')
	return r.line.Err()
}

// FormatValue appends the wire representation of a single value.
func FormatValue(dst []byte, v float32) []byte {
	return formatValue(dst, v, Precision)
}
