package monitor

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"github.com/itohio/capsense/pkg/acquire"
	"github.com/itohio/capsense/pkg/config"
	"github.com/itohio/capsense/pkg/fdc1004"
	"github.com/itohio/capsense/pkg/report"
	"github.com/itohio/capsense/pkg/tick"
)

// Mock runs the sensor firmware's acquisition loop against a simulated
// FDC1004 and decodes its report stream, for development without hardware.
type Mock struct {
	cfg *config.MockConfig
	sim *fdc1004.Sim
	now func() time.Time

	mu        sync.RWMutex
	connected bool
	conv      fdc1004.Conversion
	start     time.Time
	handler   *tick.Handler
	ticker    *tick.Ticker
	pw        *io.PipeWriter
	pump      *pump
}

// NewMock creates a new mocked device instance from a copy of cfg.
func NewMock(cfg *config.MockConfig) *Mock {
	c := config.Default().Mock
	if cfg != nil {
		// The simulation reads its copy without locking.
		c = *cfg
	}

	return &Mock{
		cfg: &c,
		sim: fdc1004.NewSim(),
		now: time.Now,
	}
}

// Connect configures the simulated converter and starts ticking.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %s", m.cfg.SampleRate)
	}

	dev := fdc1004.New(m.sim, fdc1004.DefaultConfig())
	if err := dev.Probe(); err != nil {
		return err
	}
	if err := dev.Configure(); err != nil {
		return err
	}
	for ch := range fdc1004.NumChannels {
		m.sim.Fail(ch, ch == m.cfg.FailChannel)
	}

	pr, pw := io.Pipe()
	rep, err := report.NewReporter(pw, dev.MaxMagnitude())
	if err != nil {
		pw.Close()
		return err
	}

	m.conv = dev.Conversion(0)
	m.start = m.now()
	m.handler = tick.NewHandler(acquire.NewCycle(dev), rep, m.cfg.SampleRate)
	m.pump = startPump(pr, DefaultBufferSize)
	m.ticker = tick.NewTicker(m.cfg.SampleRate)
	if err := m.ticker.Start(stimulus{m: m, next: m.handler}); err != nil {
		pw.Close()
		m.pump.wait()
		return err
	}

	m.pw = pw
	m.connected = true
	return nil
}

// Close stops ticking and waits for the last report to be decoded.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.ticker.Stop()
	m.pump.stop()
	m.pw.Close()
	m.pump.wait()
	m.connected = false

	return nil
}

// Frames returns the channel of the current connection, nil before the
// first Connect.
func (m *Mock) Frames() <-chan report.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pump == nil {
		return nil
	}
	return m.pump.frames
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected && !m.pump.exited()
}

// Stats returns the counters of the current or last connection.
func (m *Mock) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pump == nil {
		return Stats{}
	}
	return m.pump.stats()
}

// TickStats returns the acquisition loop counters.
func (m *Mock) TickStats() tick.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handler == nil {
		return tick.Stats{}
	}
	return m.handler.Stats()
}

// value is the simulated capacitance of channel ch at t seconds: a sine per
// channel, a quarter period apart, plus deterministic noise.
func (m *Mock) value(ch int, t float32) float32 {
	v := m.cfg.Baseline
	if p := float32(m.cfg.Period.Seconds()); p > 0 {
		phase := 2*math32.Pi*t/p + float32(ch)*math32.Pi/2
		v += m.cfg.Amplitude * math32.Sin(phase)
	}
	noise := (math32.Sin(t*1000*float32(ch+1)) + math32.Cos(t*1300)) * m.cfg.NoiseLevel * 0.5
	return v + noise
}

// drive loads the measurement registers for the upcoming tick. It runs on the
// ticker goroutine and must not take m.mu, which Close holds while stopping
// the ticker.
func (m *Mock) drive() {
	t := float32(m.now().Sub(m.start).Seconds())
	for ch := range fdc1004.NumChannels {
		m.sim.SetRaw16(ch, int16(m.conv.Raw(m.value(ch, t))))
	}
}

type stimulus struct {
	m    *Mock
	next tick.Tickable
}

func (s stimulus) Tick() bool {
	s.m.drive()
	return s.next.Tick()
}
