package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/capsense/pkg/acquire"
)

// Frame is one decoded report.
type Frame struct {
	Timestamp time.Time // host receive time
	Values    [acquire.NumChannels]float32
}

var errMalformed = errors.New("malformed report")

// maxReceiveLine bounds a received line. Longer lines are line noise and are
// discarded up to the next newline.
const maxReceiveLine = 256

// Decoder reads framed reports from a byte stream. It resynchronizes on the
// start sentinel and skips any block that is not exactly four values followed
// by the end sentinel.
type Decoder struct {
	rd      *bufio.Reader
	now     func() time.Time
	dropped int
	pending bool // a start sentinel was consumed while parsing the previous block
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		rd:  bufio.NewReaderSize(r, maxReceiveLine),
		now: time.Now,
	}
}

// Dropped returns the number of malformed blocks skipped so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Next returns the next well-formed frame. It returns io.EOF when the stream
// ends cleanly, or the underlying read error.
func (d *Decoder) Next() (Frame, error) {
	for {
		if !d.pending {
			if err := d.seekStart(); err != nil {
				return Frame{}, err
			}
		}
		d.pending = false

		frame, err := d.readBody()
		if err == nil {
			frame.Timestamp = d.now()
			return frame, nil
		}
		if !errors.Is(err, errMalformed) {
			return Frame{}, err
		}
		d.dropped++
	}
}

func (d *Decoder) seekStart() error {
	for {
		line, err := d.line()
		if errors.Is(err, errMalformed) {
			continue
		}
		if err != nil {
			return err
		}
		if line == StartSentinel {
			return nil
		}
	}
}

func (d *Decoder) readBody() (Frame, error) {
	var f Frame
	for ch := range f.Values {
		line, err := d.line()
		if err != nil {
			return f, err
		}
		if line == StartSentinel {
			d.pending = true
			return f, fmt.Errorf("%w: restarted at channel %d", errMalformed, ch)
		}
		v, err := ParseValue(line)
		if err != nil {
			return f, fmt.Errorf("%w: channel %d: %v", errMalformed, ch, err)
		}
		f.Values[ch] = v
	}

	line, err := d.line()
	if err != nil {
		return f, err
	}
	switch line {
	case EndSentinel:
		return f, nil
	case StartSentinel:
		d.pending = true
	}
	return f, fmt.Errorf("%w: expected %s, got %q", errMalformed, EndSentinel, line)
}

// line returns the next line without surrounding whitespace. An unterminated
// last line is returned before io.EOF.
func (d *Decoder) line() (string, error) {
	buf, err := d.rd.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = d.rd.ReadSlice('\n')
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return "", fmt.Errorf("%w: line longer than %d bytes", errMalformed, maxReceiveLine)
	}
	if err != nil && (!errors.Is(err, io.EOF) || len(buf) == 0) {
		return "", err
	}
	return strings.TrimSpace(string(buf)), nil
}

// ParseValue parses one value line.
func ParseValue(line string) (float32, error) {
	if line == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(line, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value: %w", err)
	}
	f := float32(v)
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid value: %q is not finite", line)
	}
	return f, nil
}
