package fdc1004

// Address is the fixed I2C address of the FDC1004.
const Address = 0x50

// NumChannels is the number of measurement channels (CIN1..CIN4).
const NumChannels = 4

// Registers
const (
	MEAS1_MSB = 0x00
	MEAS1_LSB = 0x01
	MEAS2_MSB = 0x02
	MEAS2_LSB = 0x03
	MEAS3_MSB = 0x04
	MEAS3_LSB = 0x05
	MEAS4_MSB = 0x06
	MEAS4_LSB = 0x07

	CONF_MEAS1 = 0x08
	CONF_MEAS2 = 0x09
	CONF_MEAS3 = 0x0A
	CONF_MEAS4 = 0x0B

	FDC_CONF = 0x0C

	OFFSET_CAL_CIN1 = 0x0D
	OFFSET_CAL_CIN2 = 0x0E
	OFFSET_CAL_CIN3 = 0x0F
	OFFSET_CAL_CIN4 = 0x10
	GAIN_CAL_CIN1   = 0x11
	GAIN_CAL_CIN2   = 0x12
	GAIN_CAL_CIN3   = 0x13
	GAIN_CAL_CIN4   = 0x14

	MANUFACTURER_ID = 0xFE
	DEVICE_ID       = 0xFF
)

// Expected identification register contents.
const (
	ManufacturerID = 0x5449 // Texas Instruments
	DeviceID       = 0x1004
)

// CONF_MEASn fields.
const (
	confCHAShift    = 13
	confCHBShift    = 10
	confCAPDACShift = 5

	chbCAPDAC   = 0x4
	chbDisabled = 0x7
)

// FDC_CONF fields.
const (
	fdcReset  = 1 << 15
	fdcRepeat = 1 << 8

	fdcRateShift = 10
	fdcMeasShift = 4
)

// CAPDAC limits. Each step adds 3.125 pF of offset to a single-ended channel.
const (
	CAPDACMax  = 31
	CAPDACStep = 3.125
)

// LastRegister is the last configuration register dumped at startup.
const LastRegister = GAIN_CAL_CIN4

// Rate is the sample rate programmed into FDC_CONF.
type Rate uint8

const (
	Rate100 Rate = 1
	Rate200 Rate = 2
	Rate400 Rate = 3
)

// SamplesPerSecond returns the numeric sample rate.
func (r Rate) SamplesPerSecond() int {
	switch r {
	case Rate100:
		return 100
	case Rate200:
		return 200
	case Rate400:
		return 400
	}
	return 0
}

// RateFromSPS maps 100/200/400 to a Rate. Anything else returns 0.
func RateFromSPS(sps int) Rate {
	switch sps {
	case 100:
		return Rate100
	case 200:
		return Rate200
	case 400:
		return Rate400
	}
	return 0
}

func measMSB(ch int) uint8  { return uint8(MEAS1_MSB + 2*ch) }
func measLSB(ch int) uint8  { return uint8(MEAS1_LSB + 2*ch) }
func confMeas(ch int) uint8 { return uint8(CONF_MEAS1 + ch) }

// doneBit is DONE_1 at bit 3 down to DONE_4 at bit 0.
func doneBit(ch int) uint16 { return 1 << (3 - ch) }
