package tick

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats are the handler's diagnostic counters. The report itself never
// reflects failures, so this is where stale channels become visible.
type Stats struct {
	Ticks        uint64        // completed cycles
	Dropped      uint64        // ticks rejected while a cycle was running
	Overruns     uint64        // cycles that took at least one period
	BusErrors    uint64        // channel reads that failed on the bus
	NotReady     uint64        // channel reads skipped because no conversion was done
	ReadErrors   uint64        // other channel read failures
	StaleReads   uint64        // channel values reported from a previous cycle
	WriteErrors  uint64        // reports with at least one failed transport write
	FormatErrors uint64        // reports aborted by a line overflow
	LastCycle    time.Duration // duration of the most recent cycle
	MaxCycle     time.Duration // longest cycle so far
}

// Healthy reports whether no error of any kind was recorded.
func (s Stats) Healthy() bool {
	return s.Dropped == 0 && s.Overruns == 0 && s.StaleReads == 0 && s.WriteErrors == 0 && s.FormatErrors == 0
}

func (s Stats) String() string {
	return fmt.Sprintf("ticks=%d dropped=%d overruns=%d bus=%d notready=%d read=%d stale=%d write=%d format=%d last=%s max=%s",
		s.Ticks, s.Dropped, s.Overruns, s.BusErrors, s.NotReady, s.ReadErrors, s.StaleReads,
		s.WriteErrors, s.FormatErrors, s.LastCycle, s.MaxCycle)
}

type stats struct {
	ticks        atomic.Uint64
	dropped      atomic.Uint64
	overruns     atomic.Uint64
	busErrors    atomic.Uint64
	notReady     atomic.Uint64
	readErrors   atomic.Uint64
	staleReads   atomic.Uint64
	writeErrors  atomic.Uint64
	formatErrors atomic.Uint64
	lastCycle    atomic.Int64
	maxCycle     atomic.Int64
}

func (s *stats) snapshot() Stats {
	return Stats{
		Ticks:        s.ticks.Load(),
		Dropped:      s.dropped.Load(),
		Overruns:     s.overruns.Load(),
		BusErrors:    s.busErrors.Load(),
		NotReady:     s.notReady.Load(),
		ReadErrors:   s.readErrors.Load(),
		StaleReads:   s.staleReads.Load(),
		WriteErrors:  s.writeErrors.Load(),
		FormatErrors: s.formatErrors.Load(),
		LastCycle:    time.Duration(s.lastCycle.Load()),
		MaxCycle:     time.Duration(s.maxCycle.Load()),
	}
}
