// Package co2mon implements the frame protocol of ZyAura/Holtek
// USB CO2 monitors (vendor 04d9 product a052, sold as MT8057,
// ZG01C module and friends).
//
// The device pushes fixed 8-byte HID reports on its own schedule.
// Only bytes 0..4 carry the reading:
//
//	byte 0  metric code
//	byte 1  value high
//	byte 2  value low
//	byte 3  checksum = byte0+byte1+byte2 (mod 256)
//	byte 4  terminator, always 0x0d
//
// Older firmware obfuscates reports with the key sent during the
// handshake, see hidraw transport.
package co2mon

import (
	"github.com/juju/errors"
)

const FrameSize = 8

// Metric codes observed in the wild. Other codes are decoded too,
// callers decide what to do with them.
const (
	CodeTamb = 0x42 // ambient temperature, 1/16 K
	CodeCntR = 0x50 // relative CO2 concentration, ppm
)

const frameTerminator = 0x0d

// CO2 values above this are emitted by the sensor before it warms up.
const cntrMax = 3000

type Frame [FrameSize]byte

// Reading is one decoded sample. Immutable.
type Reading struct {
	Code byte
	Raw  uint16
}

var (
	ErrBadTerminator = errors.New("frame terminator mismatch")
	ErrChecksum      = errors.New("frame checksum mismatch")
	ErrOutOfRange    = errors.New("frame value out of range")
)

// Decode validates f and extracts the reading.
// Errors wrap one of ErrBadTerminator, ErrChecksum, ErrOutOfRange;
// match with errors.Cause. Decode failures are expected device noise,
// callers log and read the next frame.
func Decode(f Frame) (Reading, error) {
	if f[4] != frameTerminator {
		return Reading{}, errors.Annotatef(ErrBadTerminator, "data[4]=%02x want=%02x", f[4], frameTerminator)
	}
	if sum := f[0] + f[1] + f[2]; sum != f[3] {
		return Reading{}, errors.Annotatef(ErrChecksum, "sum=%02x data[3]=%02x", sum, f[3])
	}
	r := Reading{
		Code: f[0],
		Raw:  uint16(f[1])<<8 | uint16(f[2]),
	}
	if r.Code == CodeCntR && r.Raw > cntrMax {
		return Reading{}, errors.Annotatef(ErrOutOfRange, "co2 raw=%d max=%d", r.Raw, cntrMax)
	}
	return r, nil
}
