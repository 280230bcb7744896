//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/capsense/pkg/acquire"
	"github.com/itohio/capsense/pkg/fdc1004"
	"github.com/itohio/capsense/pkg/report"
	"github.com/itohio/capsense/pkg/tick"
)

var (
	i2c  = machine.I2C0
	uart = machine.UART0
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	err := i2c.Configure(machine.I2CConfig{
		Frequency: I2C_FREQUENCY,
		SDA:       PIN_SDA,
		SCL:       PIN_SCL,
	})
	if err != nil {
		halt("i2c configure", err)
	}

	cfg := fdc1004.DefaultConfig()
	cfg.Extended = FDC_EXTENDED
	cfg.CheckReady = FDC_CHECK_READY

	dev := fdc1004.New(i2c, cfg)
	if err := dev.Probe(); err != nil {
		halt("fdc1004 probe", err)
	}
	if err := dev.Configure(); err != nil {
		halt("fdc1004 configure", err)
	}

	bound := dev.MaxMagnitude()

	period := TICK_PERIOD_MS * time.Millisecond
	budget := tick.Budget{
		Period:     period,
		I2CHz:      int(I2C_FREQUENCY),
		BaudRate:   UART_BAUD_RATE,
		Channels:   fdc1004.NumChannels,
		Extended:   cfg.Extended,
		CheckReady: cfg.CheckReady,
		MaxLineLen: report.MaxLineLen(bound),
	}
	if err := budget.Validate(); err != nil {
		halt("timing budget", err)
	}

	rep, err := report.NewReporter(uart, bound)
	if err != nil {
		halt("reporter", err)
	}

	handler := tick.NewHandler(acquire.NewCycle(dev), rep, period)
	ticker := tick.NewTicker(period)
	if err := ticker.Start(handler); err != nil {
		halt("ticker", err)
	}

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Main loop: the ticker goroutine does the work. The LED lights while
	// any channel is being reported stale.
	var lastStale uint64
	for {
		time.Sleep(STATUS_INTERVAL_MS * time.Millisecond)
		st := handler.Stats()
		led.Set(st.StaleReads != lastStale)
		lastStale = st.StaleReads
	}
}

// halt reports a fatal startup error on the console and blinks forever.
// No report has been written yet, so the host only sees unframed lines.
func halt(what string, err error) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		println(what+":", err.Error())
		led.Set(!led.Get())
		time.Sleep(500 * time.Millisecond)
	}
}
