//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	TICK_PERIOD_MS     = 100 // One acquisition-and-report cycle per tick
	STATUS_INTERVAL_MS = 500 // LED status update interval

	// FDC1004 configuration
	FDC_EXTENDED    = false // 24-bit reads cost one extra register read per channel
	FDC_CHECK_READY = true  // Read FDC_CONF DONE bits before each channel

	// I2C configuration
	I2C_FREQUENCY = 100 * machine.KHz

	// Serial configuration
	// Report format: "SOS\n", four "%.2f\n" lines, "EOS\n".
	// With 16-bit reads and no CAPDAC the widest line is "-16.00\n" = 7 bytes,
	// so one report is at most 4 + 4*7 + 4 = 36 bytes = 360 bits at 8N1.
	// 9600 baud: 37.5 ms per report. Bus: 4 channels * 2 reads * 48 bits at
	// 100 kHz = 3.84 ms. Cycle ~41 ms fits in the 100 ms tick with ~2.4x headroom.
	UART_BAUD_RATE = 9600
)

// Sensor bus pins (XIAO defaults).
var (
	PIN_SDA = machine.SDA_PIN
	PIN_SCL = machine.SCL_PIN
)
