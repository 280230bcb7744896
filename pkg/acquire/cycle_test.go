package acquire

import (
	"errors"
	"testing"

	"github.com/itohio/capsense/pkg/fdc1004"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	values [NumChannels]float32
	errs   [NumChannels]error
	order  []int
}

func (f *fakeReader) ReadCapacitance(ch int) (float32, error) {
	f.order = append(f.order, ch)
	if f.errs[ch] != nil {
		return 0, f.errs[ch]
	}
	return f.values[ch], nil
}

func values(set *SampleSet) [NumChannels]float32 {
	var v [NumChannels]float32
	for ch := range set {
		v[ch] = set[ch].Value
	}
	return v
}

func TestNewSampleSet(t *testing.T) {
	set := NewSampleSet()
	for ch, s := range set {
		assert.Equal(t, uint8(ch), s.Channel)
		assert.Zero(t, s.Value)
	}
}

func TestCycle_AllFresh(t *testing.T) {
	r := &fakeReader{values: [NumChannels]float32{1, 2, 3, 4}}
	set := NewSampleSet()

	res := NewCycle(r).Run(&set)

	assert.Equal(t, []int{0, 1, 2, 3}, r.order, "channels must be read in ascending order")
	assert.Equal(t, uint8(0xF), res.Fresh)
	assert.Equal(t, 0, res.Stale())
	assert.Equal(t, [NumChannels]float32{1, 2, 3, 4}, values(&set))
}

func TestCycle_PartialFailure(t *testing.T) {
	r := &fakeReader{values: [NumChannels]float32{1, 2, 3, 4}}
	set := NewSampleSet()
	c := NewCycle(r)
	c.Run(&set)

	r.values = [NumChannels]float32{10, 20, 30, 40}
	r.errs[2] = fdc1004.ErrBus

	res := c.Run(&set)

	assert.Equal(t, [NumChannels]float32{10, 20, 3, 40}, values(&set))
	assert.Equal(t, 1, res.BusError)
	assert.Equal(t, 1, res.Stale())
	assert.False(t, res.IsFresh(2))
	assert.True(t, res.IsFresh(3))
}

func TestCycle_ErrorKinds(t *testing.T) {
	r := &fakeReader{}
	r.errs[0] = fdc1004.ErrNotReady
	r.errs[1] = fdc1004.ErrBus
	r.errs[3] = errors.New("boom")
	set := NewSampleSet()
	set[0].Value = 5

	res := NewCycle(r).Run(&set)

	assert.Equal(t, 1, res.NotReady)
	assert.Equal(t, 1, res.BusError)
	assert.Equal(t, 1, res.Other)
	assert.Equal(t, 3, res.Stale())
	assert.Equal(t, float32(5), set[0].Value)
}

func TestCycle_WithDevice(t *testing.T) {
	sim := fdc1004.NewSim()
	dev := fdc1004.New(sim, fdc1004.DefaultConfig())
	require.NoError(t, dev.Configure())
	for ch := range NumChannels {
		sim.SetRaw16(ch, int16(0x0800*(ch+1)))
	}
	set := NewSampleSet()

	res := NewCycle(dev).Run(&set)

	require.Equal(t, 0, res.Stale())
	assert.Equal(t, [NumChannels]float32{1, 2, 3, 4}, values(&set))
}

func TestCycle_NoAllocations(t *testing.T) {
	sim := fdc1004.NewSim()
	dev := fdc1004.New(sim, fdc1004.DefaultConfig())
	sim.Fail(1, true)
	c := NewCycle(dev)
	set := NewSampleSet()

	allocs := testing.AllocsPerRun(100, func() {
		c.Run(&set)
	})
	assert.Zero(t, allocs)
}
