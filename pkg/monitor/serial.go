package monitor

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/itohio/capsense/pkg/report"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the UART rate of the sensor firmware.
	DefaultBaudRate = 9600
	// DefaultBufferSize is the default size for the frames channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

type opener func(name string, baudRate int) (io.ReadWriteCloser, error)

func openSerial(name string, baudRate int) (io.ReadWriteCloser, error) {
	return serial.Open(name, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Serial receives reports from the sensor over a serial port.
type Serial struct {
	port     string
	baudRate int
	bufSize  int
	open     opener

	mu        sync.RWMutex
	conn      io.ReadWriteCloser
	pump      *pump
	connected bool
}

// New creates a new Serial instance with the specified port, baud rate, and buffer size.
func New(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		open:     openSerial,
	}
}

// Ports returns a list of available serial ports. USB ports are described by
// their vendor and product IDs when the platform reports them.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil && len(details) > 0 {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB {
				desc = strings.TrimSpace(fmt.Sprintf("%s (USB %s:%s) %s", d.Name, d.VID, d.PID, d.Product))
			}
			result = append(result, Port{Name: d.Name, Description: desc})
		}
		return result, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts decoding reports.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	conn, err := d.open(d.port, d.baudRate)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = conn
	d.pump = startPump(conn, d.bufSize)
	d.connected = true

	return nil
}

// Close closes the port and waits for the reader to exit. The frames
// channel is closed once the reader is gone.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	p := d.pump
	p.stop()
	if err := d.conn.Close(); err != nil {
		log.Printf("Error closing serial port: %v", err)
	}
	d.conn = nil
	d.connected = false
	d.mu.Unlock()

	p.wait()
	return nil
}

// Frames returns the channel of the current connection, nil before the
// first Connect.
func (d *Serial) Frames() <-chan report.Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pump == nil {
		return nil
	}
	return d.pump.frames
}

// IsConnected returns whether the device is connected and its port is still
// delivering data. A port that failed stays open until Close.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected && !d.pump.exited()
}

// Stats returns the counters of the current or last connection.
func (d *Serial) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.pump == nil {
		return Stats{}
	}
	return d.pump.stats()
}
