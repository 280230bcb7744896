package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/itohio/capsense/pkg/acquire"
	"github.com/itohio/capsense/pkg/config"
	"github.com/itohio/capsense/pkg/fdc1004"
	"github.com/itohio/capsense/pkg/report"
	"github.com/itohio/capsense/pkg/tick"
	"tinygo.org/x/drivers"
)

// sampler wires the converter, the acquisition cycle and the reporter to a
// periodic timer.
type sampler struct {
	cfg     *config.Config
	dev     *fdc1004.Device
	handler *tick.Handler
	ticker  *tick.Ticker
	budget  tick.Budget
}

// newSampler probes and configures the converter on bus and checks that one
// cycle fits the tick period. Reports go to out. If dump is not nil the
// register file is written to it after configuration.
func newSampler(cfg *config.Config, bus drivers.I2C, out, dump io.Writer) (*sampler, error) {
	dev := fdc1004.New(bus, cfg.FDC1004())
	if err := dev.Probe(); err != nil {
		return nil, fmt.Errorf("failed to probe FDC1004 at 0x%02X: %w", cfg.Device.Address, err)
	}
	if err := dev.Configure(); err != nil {
		return nil, fmt.Errorf("failed to configure FDC1004: %w", err)
	}
	if dump != nil {
		if err := dev.DumpRegisters(dump); err != nil {
			log.Printf("Register dump incomplete: %v", err)
		}
	}

	bound := dev.MaxMagnitude()
	budget := cfg.Budget(bound)
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	rep, err := report.NewReporter(out, bound)
	if err != nil {
		return nil, err
	}

	return &sampler{
		cfg:     cfg,
		dev:     dev,
		handler: tick.NewHandler(acquire.NewCycle(dev), rep, cfg.Sampler.Period),
		ticker:  tick.NewTicker(cfg.Sampler.Period),
		budget:  budget,
	}, nil
}

// run ticks until ctx is done, logging stats every StatsInterval. On the way
// out the converter is soft reset, which stops repeated measurements.
func (s *sampler) run(ctx context.Context) error {
	log.Printf("Sampling every %s, estimated cycle %s (bus %s, serial %s)",
		s.handler.Period(), s.budget.Cycle(), s.budget.Bus(), s.budget.Serial())

	if err := s.ticker.Start(s.handler); err != nil {
		return err
	}
	defer s.ticker.Stop()

	var statsC <-chan time.Time
	if s.cfg.Sampler.StatsInterval > 0 {
		t := time.NewTicker(s.cfg.Sampler.StatsInterval)
		defer t.Stop()
		statsC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			s.ticker.Stop()
			s.logStats()
			if err := s.dev.Reset(); err != nil {
				log.Printf("Failed to reset FDC1004: %v", err)
			}
			return nil
		case <-statsC:
			s.logStats()
		}
	}
}

func (s *sampler) logStats() {
	st := s.handler.Stats()
	log.Printf("Stats: %s timer_fired=%d timer_missed=%d", st, s.ticker.Fired(), s.ticker.Missed())
	if err := s.dev.Err(); err != nil && !st.Healthy() {
		log.Printf("Last bus error: %v", err)
	}
}
