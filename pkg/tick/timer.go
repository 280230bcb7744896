package tick

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrRunning = errors.New("tick: timer already running")
	ErrPeriod  = errors.New("tick: period must be positive")
)

// Timer invokes a Tickable periodically. Implementations deliver ticks from a
// single execution context and never block waiting for a rejected tick.
type Timer interface {
	Start(t Tickable) error
	Stop()
}

// Ticker is a Timer backed by time.Ticker. Ticks are delivered from one
// goroutine, so a slow cycle delays or drops following ticks rather than
// overlapping them; dropped ticks are counted as missed.
type Ticker struct {
	period time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}

	fired  atomic.Uint64
	missed atomic.Uint64
}

var _ Timer = (*Ticker)(nil)

// NewTicker creates a stopped Ticker.
func NewTicker(period time.Duration) *Ticker {
	return &Ticker{period: period}
}

// Start begins delivering ticks to t.
func (k *Ticker) Start(t Tickable) error {
	if k.period <= 0 {
		return ErrPeriod
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stop != nil {
		return ErrRunning
	}
	k.stop = make(chan struct{})
	k.done = make(chan struct{})

	go k.run(t, k.stop, k.done)
	return nil
}

// Stop stops the ticker and waits for an in-progress tick to finish.
func (k *Ticker) Stop() {
	k.mu.Lock()
	stop, done := k.stop, k.done
	k.stop, k.done = nil, nil
	k.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Fired returns the number of ticks delivered.
func (k *Ticker) Fired() uint64 {
	return k.fired.Load()
}

// Missed returns the number of ticks that were dropped or rejected.
func (k *Ticker) Missed() uint64 {
	return k.missed.Load()
}

func (k *Ticker) run(t Tickable, stop, done chan struct{}) {
	defer close(done)

	tk := time.NewTicker(k.period)
	defer tk.Stop()

	var last time.Time
	for {
		select {
		case <-stop:
			return
		case now := <-tk.C:
			if !last.IsZero() {
				// time.Ticker drops ticks for a slow receiver; the gap shows how many.
				if gap := now.Sub(last); gap > k.period*3/2 {
					k.missed.Add(uint64((gap+k.period/2)/k.period) - 1)
				}
			}
			last = now

			k.fired.Add(1)
			if !t.Tick() {
				k.missed.Add(1)
			}
		}
	}
}

// Manual is a Timer driven by explicit Fire calls. It records every tick it
// delivers and every tick the target rejected.
type Manual struct {
	mu      sync.Mutex
	target  Tickable
	fired   int
	missed  int
	running bool
}

var _ Timer = (*Manual)(nil)

// Start registers t.
func (m *Manual) Start(t Tickable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return ErrRunning
	}
	m.target = t
	m.running = true
	return nil
}

// Stop unregisters the target. Further Fire calls are ignored.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// Fire delivers one tick and reports whether the target accepted it.
// It may be called from inside a running tick to model a nested timer event.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	target, running := m.target, m.running
	if running {
		m.fired++
	}
	m.mu.Unlock()

	if !running {
		return false
	}
	if target.Tick() {
		return true
	}

	m.mu.Lock()
	m.missed++
	m.mu.Unlock()
	return false
}

// Fired returns the number of ticks delivered.
func (m *Manual) Fired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

// Missed returns the number of ticks the target rejected.
func (m *Manual) Missed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.missed
}
