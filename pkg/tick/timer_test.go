package tick

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTickable struct {
	n       atomic.Int64
	active  atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (c *countingTickable) Tick() bool {
	if c.active.Add(1) > 1 {
		c.overlap.Store(true)
	}
	defer c.active.Add(-1)

	c.n.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return true
}

type rejectingTickable struct{}

func (rejectingTickable) Tick() bool { return false }

func TestTicker_Fires(t *testing.T) {
	target := &countingTickable{}
	tk := NewTicker(5 * time.Millisecond)
	require.NoError(t, tk.Start(target))
	defer tk.Stop()

	assert.Eventually(t, func() bool { return target.n.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, tk.Fired(), uint64(3))
}

func TestTicker_StartErrors(t *testing.T) {
	assert.ErrorIs(t, NewTicker(0).Start(&countingTickable{}), ErrPeriod)

	tk := NewTicker(time.Hour)
	require.NoError(t, tk.Start(&countingTickable{}))
	defer tk.Stop()
	assert.ErrorIs(t, tk.Start(&countingTickable{}), ErrRunning)
}

func TestTicker_RestartAfterStop(t *testing.T) {
	tk := NewTicker(time.Hour)
	require.NoError(t, tk.Start(&countingTickable{}))
	tk.Stop()
	tk.Stop() // idempotent
	require.NoError(t, tk.Start(&countingTickable{}))
	tk.Stop()
}

func TestTicker_SlowTickIsMissedNotOverlapped(t *testing.T) {
	target := &countingTickable{delay: 25 * time.Millisecond}
	tk := NewTicker(5 * time.Millisecond)
	require.NoError(t, tk.Start(target))
	defer tk.Stop()

	assert.Eventually(t, func() bool { return tk.Missed() > 0 }, 2*time.Second, time.Millisecond)
	assert.False(t, target.overlap.Load(), "ticks must never overlap")
}

func TestTicker_CountsRejected(t *testing.T) {
	tk := NewTicker(5 * time.Millisecond)
	require.NoError(t, tk.Start(rejectingTickable{}))
	defer tk.Stop()

	assert.Eventually(t, func() bool { return tk.Missed() >= 2 }, 2*time.Second, time.Millisecond)
}

func TestManual(t *testing.T) {
	m := &Manual{}
	target := &countingTickable{}

	assert.False(t, m.Fire(), "not started")
	require.NoError(t, m.Start(target))
	assert.ErrorIs(t, m.Start(target), ErrRunning)

	assert.True(t, m.Fire())
	assert.True(t, m.Fire())
	assert.Equal(t, 2, m.Fired())
	assert.Zero(t, m.Missed())
	assert.Equal(t, int64(2), target.n.Load())

	m.Stop()
	assert.False(t, m.Fire())
	assert.Equal(t, 2, m.Fired())
}

func TestManual_RecordsRejected(t *testing.T) {
	m := &Manual{}
	require.NoError(t, m.Start(rejectingTickable{}))
	assert.False(t, m.Fire())
	assert.Equal(t, 1, m.Fired())
	assert.Equal(t, 1, m.Missed())
}
