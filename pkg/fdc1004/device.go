// Package fdc1004 provides a driver for the TI FDC1004 4-channel
// capacitance-to-digital converter.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/fdc1004.pdf
package fdc1004

import (
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/drivers"
)

var (
	// ErrBus is returned when a register transaction fails (no ACK, timeout).
	// The underlying cause is available from Device.Err.
	ErrBus = errors.New("fdc1004: bus transaction failed")
	// ErrNotReady is returned when the channel has no completed measurement.
	ErrNotReady = errors.New("fdc1004: measurement not ready")
	// ErrChannel is returned for a channel outside [0, NumChannels).
	ErrChannel = errors.New("fdc1004: channel out of range")
	// ErrIdentity is returned by Probe when the ID registers do not match.
	ErrIdentity = errors.New("fdc1004: unexpected device identity")
)

// Channel configures one single-ended input.
type Channel struct {
	CAPDAC uint8   // offset capacitance in 3.125 pF steps, 0..31
	Scale  float32 // gain correction, 1 for the datasheet value
	Trim   float32 // additional offset in pF
}

// Config configures the device.
type Config struct {
	Address    uint16
	Rate       Rate
	Extended   bool // read MSB and LSB for 24-bit results
	CheckReady bool // check the DONE bit before reading a channel
	Channels   [NumChannels]Channel
}

// DefaultConfig returns 100 S/s, 16-bit reads, no CAPDAC.
func DefaultConfig() Config {
	cfg := Config{
		Address:    Address,
		Rate:       Rate100,
		CheckReady: true,
	}
	for i := range cfg.Channels {
		cfg.Channels[i].Scale = 1
	}
	return cfg
}

// Device wraps an I2C connection to an FDC1004.
type Device struct {
	bus     drivers.I2C
	Address uint16
	cfg     Config
	conv    [NumChannels]Conversion

	// scratch for register transactions, reused to keep reads allocation free
	w   [3]byte
	r   [2]byte
	lsb [2]byte
	err error
}

// New creates a Device on an already configured bus. It does not touch the
// hardware; call Configure before reading.
func New(bus drivers.I2C, cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	if cfg.Rate == 0 {
		cfg.Rate = Rate100
	}
	d := &Device{
		bus:     bus,
		Address: cfg.Address,
		cfg:     cfg,
	}
	for ch, c := range cfg.Channels {
		scale := c.Scale
		if scale == 0 {
			scale = 1
		}
		d.conv[ch] = NewConversion(cfg.Extended, c.CAPDAC, scale, c.Trim)
	}
	return d
}

// Conversion returns the conversion used for a channel.
func (d *Device) Conversion(ch int) Conversion {
	return d.conv[ch]
}

// MaxMagnitude is the widest value any channel can produce. Reports sized
// for it never overflow.
func (d *Device) MaxMagnitude() float32 {
	var m float32
	for _, c := range d.conv {
		if v := c.MaxMagnitude(); v > m {
			m = v
		}
	}
	return m
}

// Err returns the cause of the last ErrBus.
func (d *Device) Err() error {
	return d.err
}

// Configure programs CONF_MEAS1..4 as single-ended CINn against CAPDAC and
// starts repeated measurements on all channels.
func (d *Device) Configure() error {
	for ch, c := range d.cfg.Channels {
		if c.CAPDAC > CAPDACMax {
			return fmt.Errorf("channel %d: CAPDAC %d exceeds %d", ch, c.CAPDAC, CAPDACMax)
		}
		conf := uint16(ch)<<confCHAShift | chbCAPDAC<<confCHBShift | uint16(c.CAPDAC)<<confCAPDACShift
		if err := d.WriteRegister(confMeas(ch), conf); err != nil {
			return fmt.Errorf("failed to configure channel %d: %w", ch, err)
		}
	}

	fdc := uint16(d.cfg.Rate)<<fdcRateShift | fdcRepeat | 0xF<<fdcMeasShift
	if err := d.WriteRegister(FDC_CONF, fdc); err != nil {
		return fmt.Errorf("failed to start measurements: %w", err)
	}
	return nil
}

// Reset issues a soft reset. Configuration registers return to defaults.
func (d *Device) Reset() error {
	return d.WriteRegister(FDC_CONF, fdcReset)
}

// Probe verifies the manufacturer and device ID registers.
func (d *Device) Probe() error {
	mfr, err := d.ReadRegister(MANUFACTURER_ID)
	if err != nil {
		return err
	}
	dev, err := d.ReadRegister(DEVICE_ID)
	if err != nil {
		return err
	}
	if mfr != ManufacturerID || dev != DeviceID {
		return fmt.Errorf("%w: manufacturer 0x%04x device 0x%04x", ErrIdentity, mfr, dev)
	}
	return nil
}

// DumpRegisters writes "0xRR: 0xVVVV" lines for registers 0x00..0x14.
// Unreadable registers are printed as "----".
func (d *Device) DumpRegisters(w io.Writer) error {
	for reg := 0; reg <= LastRegister; reg++ {
		v, err := d.ReadRegister(uint8(reg))
		if err != nil {
			_, err = fmt.Fprintf(w, "0x%02X: ----\n", reg)
		} else {
			_, err = fmt.Fprintf(w, "0x%02X: 0x%04x\n", reg, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadRegister reads a 16-bit register.
func (d *Device) ReadRegister(reg uint8) (uint16, error) {
	if err := d.read(reg, d.r[:]); err != nil {
		return 0, err
	}
	return uint16(d.r[0])<<8 | uint16(d.r[1]), nil
}

// WriteRegister writes a 16-bit register.
func (d *Device) WriteRegister(reg uint8, v uint16) error {
	d.w[0], d.w[1], d.w[2] = reg, byte(v>>8), byte(v)
	if err := d.bus.Tx(d.Address, d.w[:3], nil); err != nil {
		d.err = err
		return ErrBus
	}
	return nil
}

func (d *Device) read(reg uint8, buf []byte) error {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], buf); err != nil {
		d.err = err
		return ErrBus
	}
	return nil
}

// ReadRaw reads the raw measurement code of a channel.
func (d *Device) ReadRaw(ch int) (int32, error) {
	if ch < 0 || ch >= NumChannels {
		return 0, ErrChannel
	}

	if d.cfg.CheckReady {
		conf, err := d.ReadRegister(FDC_CONF)
		if err != nil {
			return 0, err
		}
		if conf&doneBit(ch) == 0 {
			return 0, ErrNotReady
		}
	}

	if err := d.read(measMSB(ch), d.r[:]); err != nil {
		return 0, err
	}
	if !d.cfg.Extended {
		return Raw16(d.r[:]), nil
	}
	if err := d.read(measLSB(ch), d.lsb[:]); err != nil {
		return 0, err
	}
	return Raw24(d.r[:], d.lsb[:]), nil
}

// ReadCapacitance reads a channel and converts it to picofarads.
func (d *Device) ReadCapacitance(ch int) (float32, error) {
	raw, err := d.ReadRaw(ch)
	if err != nil {
		return 0, err
	}
	return d.conv[ch].Capacitance(raw), nil
}
