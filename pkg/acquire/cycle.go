// Package acquire sequences channel reads into a fixed-size sample set.
package acquire

import (
	"errors"

	"github.com/itohio/capsense/pkg/fdc1004"
)

// NumChannels is the fixed number of channels in a SampleSet.
const NumChannels = fdc1004.NumChannels

// Sample is the most recent successfully converted reading of one channel.
type Sample struct {
	Channel uint8
	Value   float32 // pF
}

// SampleSet holds one Sample per channel, indexed by channel.
// Entries that fail to refresh keep their previous value.
type SampleSet [NumChannels]Sample

// NewSampleSet returns a zeroed set with channel ids filled in.
func NewSampleSet() SampleSet {
	var s SampleSet
	for ch := range s {
		s[ch].Channel = uint8(ch)
	}
	return s
}

// Reader reads one channel in picofarads.
type Reader interface {
	ReadCapacitance(channel int) (float32, error)
}

var _ Reader = (*fdc1004.Device)(nil)

// Result summarizes one Run.
type Result struct {
	Fresh    uint8 // bit n set when channel n was refreshed
	BusError int
	NotReady int
	Other    int
}

// Stale returns the number of channels that kept their previous value.
func (r Result) Stale() int {
	n := 0
	for ch := range NumChannels {
		if r.Fresh&(1<<ch) == 0 {
			n++
		}
	}
	return n
}

// IsFresh reports whether a channel was refreshed.
func (r Result) IsFresh(ch int) bool {
	return r.Fresh&(1<<ch) != 0
}

// Cycle reads all channels in ascending order.
type Cycle struct {
	reader Reader
}

// NewCycle creates a Cycle reading from r.
func NewCycle(r Reader) *Cycle {
	return &Cycle{reader: r}
}

// Run refreshes set in place. A failing channel never aborts the cycle or
// affects other channels.
func (c *Cycle) Run(set *SampleSet) Result {
	var res Result
	for ch := range NumChannels {
		v, err := c.reader.ReadCapacitance(ch)
		switch {
		case err == nil:
			set[ch].Channel = uint8(ch)
			set[ch].Value = v
			res.Fresh |= 1 << ch
		case errors.Is(err, fdc1004.ErrBus):
			res.BusError++
		case errors.Is(err, fdc1004.ErrNotReady):
			res.NotReady++
		default:
			res.Other++
		}
	}
	return res
}
