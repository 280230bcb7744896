package fdc1004

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrNack is returned by Sim for transactions it does not acknowledge.
var ErrNack = errors.New("fdc1004 sim: no acknowledge")

// Sim is an in-memory FDC1004 at register level. It implements drivers.I2C and is
// used by tests and by the mock monitor device.
type Sim struct {
	mu   sync.Mutex
	addr uint16
	regs [256]uint16
	fail [NumChannels]bool
	down bool

	// OnTx, when set, runs at the start of every transaction.
	OnTx func()
}

var _ drivers.I2C = (*Sim)(nil)

// NewSim returns a simulator with identity registers set and all channels ready.
func NewSim() *Sim {
	s := &Sim{addr: Address}
	s.reset()
	return s
}

func (s *Sim) reset() {
	s.regs = [256]uint16{}
	s.regs[MANUFACTURER_ID] = ManufacturerID
	s.regs[DEVICE_ID] = DeviceID
	for ch := range NumChannels {
		s.regs[confMeas(ch)] = uint16(ch)<<confCHAShift | chbDisabled<<confCHBShift
		s.regs[FDC_CONF] |= doneBit(ch)
	}
}

// Tx implements drivers.I2C.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	if s.OnTx != nil {
		s.OnTx()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down || addr != s.addr || len(w) == 0 {
		return ErrNack
	}

	reg := w[0]
	switch len(w) {
	case 1:
	case 3:
		v := uint16(w[1])<<8 | uint16(w[2])
		if reg == FDC_CONF && v&fdcReset != 0 {
			s.reset()
			return nil
		}
		if reg == FDC_CONF {
			// DONE bits are read-only
			v = v&^0xF | s.regs[FDC_CONF]&0xF
		}
		s.regs[reg] = v
		return nil
	default:
		return ErrNack
	}

	if len(r) == 0 {
		return nil
	}
	if len(r) != 2 {
		return ErrNack
	}
	if reg <= MEAS4_LSB && s.fail[reg/2] {
		return ErrNack
	}
	v := s.regs[reg]
	r[0], r[1] = byte(v>>8), byte(v)
	return nil
}

// SetRaw16 stores a 16-bit code in the channel's MSB register.
func (s *Sim) SetRaw16(ch int, raw int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[measMSB(ch)] = uint16(raw)
	s.regs[measLSB(ch)] = 0
}

// SetRaw24 stores a 24-bit code across the channel's MSB and LSB registers.
func (s *Sim) SetRaw24(ch int, raw int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := uint32(raw) & 0xFFFFFF
	s.regs[measMSB(ch)] = uint16(u >> 8)
	s.regs[measLSB(ch)] = uint16(u&0xFF) << 8
}

// SetReady sets or clears the channel's DONE bit.
func (s *Sim) SetReady(ch int, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ready {
		s.regs[FDC_CONF] |= doneBit(ch)
	} else {
		s.regs[FDC_CONF] &^= doneBit(ch)
	}
}

// Fail makes measurement reads of a channel fail.
func (s *Sim) Fail(ch int, fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[ch] = fail
}

// Disconnect makes every transaction fail.
func (s *Sim) Disconnect(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Register returns the current contents of a register.
func (s *Sim) Register(reg uint8) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}
