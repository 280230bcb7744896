// Package tick runs the acquisition-and-report cycle once per timer tick.
package tick

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/itohio/capsense/pkg/acquire"
	"github.com/itohio/capsense/pkg/report"
)

// State of the handler.
type State uint32

const (
	Idle State = iota
	InCycle
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InCycle:
		return "in-cycle"
	}
	return "unknown"
}

// Tickable is invoked by a Timer on every tick. Tick returns false when the
// tick was rejected because a cycle was still running.
type Tickable interface {
	Tick() bool
}

// Handler owns the sample set and the reporter's line buffer. Only Tick
// touches them; Stats is the only state safe to read from elsewhere.
type Handler struct {
	cycle    *acquire.Cycle
	reporter *report.Reporter
	period   time.Duration
	now      func() time.Time

	set   acquire.SampleSet
	state atomic.Uint32
	stats stats
}

var _ Tickable = (*Handler)(nil)

// Option configures a Handler.
type Option func(*Handler)

// WithClock replaces the clock used to time cycles.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.now = now
	}
}

// NewHandler creates a Handler in the Idle state with a zeroed sample set.
// period is the tick period; cycles that take at least that long are counted
// as overruns.
func NewHandler(cycle *acquire.Cycle, reporter *report.Reporter, period time.Duration, opts ...Option) *Handler {
	h := &Handler{
		cycle:    cycle,
		reporter: reporter,
		period:   period,
		now:      time.Now,
		set:      acquire.NewSampleSet(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Tick runs one acquisition cycle followed by one report. It is not
// reentrant: a tick arriving while a cycle is in progress is dropped.
func (h *Handler) Tick() bool {
	if !h.state.CompareAndSwap(uint32(Idle), uint32(InCycle)) {
		h.stats.dropped.Add(1)
		return false
	}
	defer h.state.Store(uint32(Idle))

	start := h.now()
	res := h.cycle.Run(&h.set)
	err := h.reporter.Emit(&h.set)
	elapsed := h.now().Sub(start)

	h.stats.ticks.Add(1)
	h.stats.busErrors.Add(uint64(res.BusError))
	h.stats.notReady.Add(uint64(res.NotReady))
	h.stats.readErrors.Add(uint64(res.Other))
	h.stats.staleReads.Add(uint64(res.Stale()))
	if err != nil {
		if errors.Is(err, report.ErrFormatOverflow) {
			h.stats.formatErrors.Add(1)
		} else {
			h.stats.writeErrors.Add(1)
		}
	}
	h.stats.lastCycle.Store(int64(elapsed))
	for {
		prev := h.stats.maxCycle.Load()
		if int64(elapsed) <= prev || h.stats.maxCycle.CompareAndSwap(prev, int64(elapsed)) {
			break
		}
	}
	if h.period > 0 && elapsed >= h.period {
		h.stats.overruns.Add(1)
	}
	return true
}

// Period returns the configured tick period.
func (h *Handler) Period() time.Duration {
	return h.period
}

// Stats returns a snapshot of the diagnostic counters.
func (h *Handler) Stats() Stats {
	return h.stats.snapshot()
}
