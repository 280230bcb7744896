package fdc1004

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
)

// Fixed-point formats of the measurement result.
const (
	// FracBits16 applies to the MSB register alone: 16-bit two's complement, 2^11 counts per pF.
	FracBits16 = 11
	// FracBits24 applies to MSB+LSB: 24-bit two's complement, 2^19 counts per pF.
	FracBits24 = 19
)

var ErrConversion = errors.New("fdc1004: invalid conversion")

// Conversion maps a raw two's-complement fixed-point code to picofarads:
//
//	pF = raw / 2^FracBits * Scale + Offset
type Conversion struct {
	Bits     uint    // raw code width, 16 or 24
	FracBits uint    // fractional bits of the code
	Scale    float32 // pF per unit
	Offset   float32 // pF, CAPDAC plus trim
}

// NewConversion returns the datasheet conversion for a single-ended channel.
func NewConversion(extended bool, capdac uint8, scale, trim float32) Conversion {
	c := Conversion{Bits: 16, FracBits: FracBits16, Scale: scale}
	if extended {
		c.Bits, c.FracBits = 24, FracBits24
	}
	c.Offset = float32(capdac)*CAPDACStep + trim
	return c
}

// Validate checks that the conversion produces finite values for every raw code.
func (c Conversion) Validate() error {
	if c.Bits != 16 && c.Bits != 24 {
		return fmt.Errorf("%w: width %d bits", ErrConversion, c.Bits)
	}
	if c.FracBits > 31 {
		return fmt.Errorf("%w: %d fractional bits", ErrConversion, c.FracBits)
	}
	if c.Scale == 0 || math32.IsNaN(c.Scale) || math32.IsInf(c.Scale, 0) {
		return fmt.Errorf("%w: scale %v", ErrConversion, c.Scale)
	}
	if math32.IsNaN(c.Offset) || math32.IsInf(c.Offset, 0) {
		return fmt.Errorf("%w: offset %v", ErrConversion, c.Offset)
	}
	lo, hi := c.Range()
	if math32.IsInf(lo, 0) || math32.IsInf(hi, 0) {
		return fmt.Errorf("%w: range overflows float32", ErrConversion)
	}
	return nil
}

// MinRaw is the most negative code.
func (c Conversion) MinRaw() int32 { return -(1 << (c.Bits - 1)) }

// MaxRaw is the most positive code.
func (c Conversion) MaxRaw() int32 { return 1<<(c.Bits-1) - 1 }

// Capacitance converts a raw code.
func (c Conversion) Capacitance(raw int32) float32 {
	return float32(raw)/float32(uint32(1)<<c.FracBits)*c.Scale + c.Offset
}

// Raw is the inverse of Capacitance, rounded to the nearest code and clamped
// to the representable range.
func (c Conversion) Raw(pF float32) int32 {
	x := (pF - c.Offset) / c.Scale * float32(uint32(1)<<c.FracBits)
	x = math32.Floor(x + 0.5)
	if x <= float32(c.MinRaw()) {
		return c.MinRaw()
	}
	if x >= float32(c.MaxRaw()) {
		return c.MaxRaw()
	}
	return int32(x)
}

// Range returns the smallest and largest value the conversion can produce.
func (c Conversion) Range() (lo, hi float32) {
	lo, hi = c.Capacitance(c.MinRaw()), c.Capacitance(c.MaxRaw())
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo, hi
}

// MaxMagnitude is the largest absolute value the conversion can produce.
func (c Conversion) MaxMagnitude() float32 {
	lo, hi := c.Range()
	return math32.Max(math32.Abs(lo), math32.Abs(hi))
}

// Raw16 interprets a big-endian 16-bit two's-complement register.
func Raw16(b []byte) int32 {
	return int32(int16(uint16(b[0])<<8 | uint16(b[1])))
}

// Raw24 assembles the 24-bit result from the MSB register and the upper byte
// of the LSB register, with sign extension.
func Raw24(msb, lsb []byte) int32 {
	u := uint32(msb[0])<<16 | uint32(msb[1])<<8 | uint32(lsb[0])
	if u&0x800000 != 0 {
		u |= 0xFF000000
	}
	return int32(u)
}
