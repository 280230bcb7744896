// Command sampler reads an FDC1004 on a Linux I2C bus and streams the
// framed capacitance report to a serial port or stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/capsense/pkg/config"
	"go.bug.st/serial"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		busFlag    = flag.String("bus", "", "I2C bus override (e.g., /dev/i2c-1 or 1)")
		outFlag    = flag.String("out", "", "Report output: serial port, or - for stdout (default: config serial port)")
		baudFlag   = flag.Int("baud", 0, "Baud rate override")
		periodFlag = flag.Duration("period", 0, "Tick period override")
		dumpFlag   = flag.Bool("dump", false, "Dump FDC1004 registers at startup")
		statsFlag  = flag.Duration("stats", -1, "Stats logging interval override (0 = disabled)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *busFlag != "" {
		cfg.Sampler.I2CBus = *busFlag
	}
	if *baudFlag > 0 {
		cfg.Serial.BaudRate = *baudFlag
	}
	if *periodFlag > 0 {
		cfg.Sampler.Period = *periodFlag
	}
	if *statsFlag >= 0 {
		cfg.Sampler.StatsInterval = *statsFlag
	}
	output := cfg.Serial.Port
	if *outFlag != "" {
		output = *outFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if closer := setupLogging(cfg.Log); closer != nil {
		defer closer.Close()
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("Failed to initialize host drivers: %v", err)
	}

	bus, err := i2creg.Open(cfg.Sampler.I2CBus)
	if err != nil {
		log.Fatalf("Failed to open I2C bus %q: %v", cfg.Sampler.I2CBus, err)
	}
	defer bus.Close()

	if err := bus.SetSpeed(physic.Frequency(cfg.Sampler.I2CHz) * physic.Hertz); err != nil {
		// Linux i2c-dev fixes the clock in the device tree.
		log.Printf("Cannot set I2C clock to %d Hz, using the bus default: %v", cfg.Sampler.I2CHz, err)
	}

	out, err := openOutput(output, cfg.Serial.BaudRate)
	if err != nil {
		log.Fatalf("Failed to open output: %v", err)
	}
	defer out.Close()

	var dump io.Writer
	if *dumpFlag {
		dump = log.Writer()
	}

	s, err := newSampler(cfg, bus, out, dump)
	if err != nil {
		log.Fatalf("Failed to start sampler: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Streaming reports to %s", output)
	if err := s.run(ctx); err != nil {
		log.Fatalf("Sampler failed: %v", err)
	}
	log.Printf("Stopped")
}

// openOutput opens the report transport: a serial port, or stdout for "-".
func openOutput(name string, baudRate int) (io.WriteCloser, error) {
	if name == "-" {
		return nopCloser{os.Stdout}, nil
	}

	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return port, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
