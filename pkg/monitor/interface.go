package monitor

import "github.com/itohio/capsense/pkg/report"

// Device defines the interface for report sources (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Frames() <-chan report.Frame
	IsConnected() bool
	Stats() Stats
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
