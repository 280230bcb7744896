package report

import (
	"errors"
	"strconv"
)

// LineSize is the capacity of the per-line scratch buffer.
const LineSize = 24

// ErrFormatOverflow is returned when a line would not fit LineSize.
var ErrFormatOverflow = errors.New("report: formatted line exceeds buffer")

// Line is a fixed-capacity, bounds-checked line builder. Once an append
// overflows, the line keeps its previous contents and Err reports the overflow;
// nothing is ever truncated.
type Line struct {
	buf [LineSize]byte
	n   int
	err error
}

// Reset empties the line and clears the error.
func (l *Line) Reset() {
	l.n = 0
	l.err = nil
}

// WriteString appends s.
func (l *Line) WriteString(s string) {
	if l.err != nil {
		return
	}
	if len(s) > LineSize-l.n {
		l.err = ErrFormatOverflow
		return
	}
	l.n += copy(l.buf[l.n:], s)
}

// WriteByte appends b.
func (l *Line) WriteByte(b byte) error {
	if l.err != nil {
		return l.err
	}
	if l.n == LineSize {
		l.err = ErrFormatOverflow
		return l.err
	}
	l.buf[l.n] = b
	l.n++
	return nil
}

// AppendFloat appends v in fixed notation with prec decimals.
func (l *Line) AppendFloat(v float32, prec int) {
	if l.err != nil {
		return
	}
	// strconv appends in place while the result fits the remaining capacity.
	out := formatValue(l.buf[l.n:l.n:LineSize], v, prec)
	if len(out) > LineSize-l.n {
		l.err = ErrFormatOverflow
		return
	}
	l.n += len(out)
}

// Bytes returns the line contents. The slice is valid until the next Reset.
func (l *Line) Bytes() []byte {
	return l.buf[:l.n]
}

// Err returns ErrFormatOverflow if any append overflowed.
func (l *Line) Err() error {
	return l.err
}

func formatValue(dst []byte, v float32, prec int) []byte {
	return strconv.AppendFloat(dst, float64(v), 'f', prec, 32)
}
