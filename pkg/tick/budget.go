package tick

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/capsense/pkg/report"
)

// ErrBudget is returned when a cycle cannot complete within one period.
var ErrBudget = errors.New("tick: cycle exceeds tick period")

// Bus timing: START, address+W, register pointer, repeated START, address+R
// and two data bytes, 9 bit times per byte plus start/stop conditions.
const (
	bitsPerRegisterRead = 5*9 + 3
	bitsPerUARTByte     = 10 // 8N1
)

// Budget estimates the worst-case duration of one cycle.
type Budget struct {
	Period     time.Duration
	I2CHz      int
	BaudRate   int
	Channels   int
	Extended   bool // two measurement register reads per channel
	CheckReady bool // one status register read per channel
	MaxLineLen int  // longest value line, terminator included
}

// Bus returns the time spent on register reads.
func (b Budget) Bus() time.Duration {
	if b.I2CHz <= 0 {
		return 0
	}
	reads := 1
	if b.Extended {
		reads++
	}
	if b.CheckReady {
		reads++
	}
	bits := b.Channels * reads * bitsPerRegisterRead
	return time.Duration(bits) * time.Second / time.Duration(b.I2CHz)
}

// ReportBytes returns the size of the largest report.
func (b Budget) ReportBytes() int {
	return len(report.StartSentinel) + 1 + b.Channels*b.MaxLineLen + len(report.EndSentinel) + 1
}

// Serial returns the time needed to shift the largest report out.
func (b Budget) Serial() time.Duration {
	if b.BaudRate <= 0 {
		return 0
	}
	bits := b.ReportBytes() * bitsPerUARTByte
	return time.Duration(bits) * time.Second / time.Duration(b.BaudRate)
}

// Cycle returns the estimated worst-case cycle duration.
func (b Budget) Cycle() time.Duration {
	return b.Bus() + b.Serial()
}

// Validate checks that the cycle fits strictly inside the period.
func (b Budget) Validate() error {
	if b.Period <= 0 {
		return ErrPeriod
	}
	if c := b.Cycle(); c >= b.Period {
		return fmt.Errorf("%w: estimated %s (bus %s, serial %s) for period %s", ErrBudget, c, b.Bus(), b.Serial(), b.Period)
	}
	return nil
}
