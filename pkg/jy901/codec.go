// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned when a register buffer is smaller than the layout it decodes
var ErrShortBuffer = errors.New("short register buffer")

// The Decode functions need at least the bytes of their layout and ignore any
// trailing bytes. Reads are whole registers, so the 9-byte time, pressure and
// position blocks carry a padding byte past their 8-byte layouts.
//
// Layout sizes of the decoded blocks. Reads may request more (see DefaultRegisterMap).
const (
	vectorSize     = 6
	timeSize       = 8
	pressureSize   = 8
	positionSize   = 8
	quaternionSize = 8
	pinStatusSize  = PinCount * RegisterWidth
)

// need fails unless b holds at least n bytes
func need(name string, b []byte, n int) error {
	if len(b) < n {
		return fmt.Errorf("%s: %w (got %d bytes, need %d)", name, ErrShortBuffer, len(b), n)
	}
	return nil
}

// Int16 decodes a little-endian two's-complement 16-bit word
func Int16(b []byte) int16 {
	return int16(uint16(b[1])<<8 | uint16(b[0]))
}

// Uint16 decodes a little-endian unsigned 16-bit word
func Uint16(b []byte) uint16 {
	return uint16(b[1])<<8 | uint16(b[0])
}

// Int32 decodes a little-endian two's-complement 32-bit value
func Int32(b []byte) int32 {
	return int32(uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0]))
}

func vector(name string, b []byte, scale float64) (x, y, z float64, err error) {
	if err := need(name, b, vectorSize); err != nil {
		return 0, 0, 0, err
	}
	return float64(Int16(b[0:])) * scale, float64(Int16(b[2:])) * scale, float64(Int16(b[4:])) * scale, nil
}

// DecodeAxis decodes one scaled 16-bit register
func DecodeAxis(b []byte, scale float64) (float64, error) {
	if err := need("axis", b, RegisterWidth); err != nil {
		return 0, err
	}
	return float64(Int16(b)) * scale, nil
}

// DecodeOrientation decodes roll, pitch and yaw in radians
func DecodeOrientation(b []byte) (Orientation, error) {
	x, y, z, err := vector("orientation", b, OrientationScale)
	return Orientation{Roll: x, Pitch: y, Yaw: z}, err
}

// DecodeAngularVelocity decodes the gyroscope block in °/s
func DecodeAngularVelocity(b []byte) (AngularVelocity, error) {
	x, y, z, err := vector("angular velocity", b, GyroScale)
	return AngularVelocity{X: x, Y: y, Z: z}, err
}

// DecodeAcceleration decodes the accelerometer block in m/s²
func DecodeAcceleration(b []byte) (Acceleration, error) {
	x, y, z, err := vector("acceleration", b, AccelScale)
	return Acceleration{X: x, Y: y, Z: z}, err
}

// DecodeMagneticField decodes the magnetometer block without scaling
func DecodeMagneticField(b []byte) (MagneticField, error) {
	x, y, z, err := vector("magnetic field", b, 1)
	return MagneticField{X: x, Y: y, Z: z}, err
}

// DecodeTemperature decodes the chip temperature in °C
func DecodeTemperature(b []byte) (float64, error) {
	if err := need("temperature", b, RegisterWidth); err != nil {
		return 0, err
	}
	return float64(Int16(b)) * TemperatureScale, nil
}

// DecodePressureHeight decodes pressure (Pa) followed by height (cm) from the first 8 bytes of b
func DecodePressureHeight(b []byte) (PressureHeight, error) {
	if err := need("pressure", b, pressureSize); err != nil {
		return PressureHeight{}, err
	}
	return PressureHeight{Pressure: Int32(b[0:]), Height: Int32(b[4:])}, nil
}

// DecodePosition decodes longitude followed by latitude from the first 8 bytes of b
func DecodePosition(b []byte) (Position, error) {
	if err := need("position", b, positionSize); err != nil {
		return Position{}, err
	}
	return Position{Longitude: Int32(b[0:]), Latitude: Int32(b[4:])}, nil
}

// DecodeTime decodes the device clock block from the first 8 bytes of b
func DecodeTime(b []byte) (Time, error) {
	if err := need("time", b, timeSize); err != nil {
		return Time{}, err
	}
	return Time{
		Year:        BaseYear + uint16(b[0]),
		Month:       b[1],
		Day:         b[2],
		Hour:        b[3],
		Minute:      b[4],
		Second:      b[5],
		Millisecond: Uint16(b[6:]),
	}, nil
}

// DecodeQuaternion decodes the attitude quaternion
func DecodeQuaternion(b []byte) (Quaternion, error) {
	if err := need("quaternion", b, quaternionSize); err != nil {
		return Quaternion{}, err
	}
	return Quaternion{
		Q0: float64(Int16(b[0:])) * QuaternionScale,
		Q1: float64(Int16(b[2:])) * QuaternionScale,
		Q2: float64(Int16(b[4:])) * QuaternionScale,
		Q3: float64(Int16(b[6:])) * QuaternionScale,
	}, nil
}

// DecodePinStatus decodes the four port readings
func DecodePinStatus(b []byte) (PinStatus, error) {
	var s PinStatus
	if err := need("pin status", b, pinStatusSize); err != nil {
		return s, err
	}
	for i := range s {
		s[i] = Uint16(b[i*2:])
	}
	return s, nil
}

// DecodeInt16 decodes one signed register
func DecodeInt16(b []byte) (int16, error) {
	if err := need("register", b, RegisterWidth); err != nil {
		return 0, err
	}
	return Int16(b), nil
}

// DecodeUint16 decodes one unsigned register
func DecodeUint16(b []byte) (uint16, error) {
	if err := need("register", b, RegisterWidth); err != nil {
		return 0, err
	}
	return Uint16(b), nil
}

// Encoders. Every payload is little-endian and at most one register wide.

// EncodeUint16 packs v low byte first
func EncodeUint16(v uint16) []byte {
	return []byte{byte(v), byte(v >> 8)}
}

// EncodeInt16 packs a signed value low byte first
func EncodeInt16(v int16) []byte {
	return EncodeUint16(uint16(v))
}

// EncodeSave is the payload that persists the current configuration
func EncodeSave() []byte {
	return []byte{SaveSettings, 0x00}
}

// EncodeDefaults is the payload that restores factory configuration
func EncodeDefaults() []byte {
	return []byte{RestoreDefaults, 0x00}
}

// EncodeCalibration selects a calibration mode
func EncodeCalibration(mode CalibrationMode) []byte {
	return []byte{byte(mode), 0x00}
}

// EncodeRate selects the output rate
func EncodeRate(r Rate) []byte {
	return []byte{byte(r), 0x00}
}

// EncodeContent selects which blocks are streamed on the UART
func EncodeContent(mask uint16) []byte {
	return EncodeUint16(mask)
}

// EncodeBaud selects a baud rate
func EncodeBaud(b Baud) []byte {
	return []byte{byte(b)}
}

// EncodePinMode selects a port function
func EncodePinMode(m PinMode) []byte {
	return []byte{byte(m)}
}

// EncodeDigital is the digital write payload: the mode byte with the level in bit 0
func EncodeDigital(level uint8) []byte {
	return []byte{DigitalWriteFlag | (level & 0x01)}
}

// EncodeLED switches the status LED
func EncodeLED(on bool) []byte {
	if on {
		return []byte{LEDOn}
	}
	return []byte{LEDOff}
}

// EncodeAddress sets a new bus address
func EncodeAddress(addr uint8) []byte {
	return []byte{addr}
}

// PWMWidth converts a duty rate into a pulse width for period.
// The duty rate is clamped to [0,1] so the width never exceeds the period.
func PWMWidth(duty float64, period uint16) uint16 {
	if math.IsNaN(duty) || duty < 0 {
		duty = 0
	}
	if duty > 1 {
		duty = 1
	}
	return uint16(duty * float64(period))
}

func radToDeg(r float64) float64 {
	return r * 180.0 / math.Pi
}

// GPSMotion is the GPS ground track reported in the 0x58 frame
type GPSMotion struct {
	Height  float64 `json:"height"`  // m
	Heading float64 `json:"heading"` // degrees
	Speed   float64 `json:"speed"`   // km/h
}

// GPSAccuracy is the satellite count and dilution of precision from the 0x5A frame
type GPSAccuracy struct {
	Satellites uint16  `json:"satellites"`
	PDOP       float64 `json:"pdop"`
	HDOP       float64 `json:"hdop"`
	VDOP       float64 `json:"vdop"`
}

// DecodeGPSMotion decodes GPS height (0.1 m), heading (0.01°) and speed (0.001 km/h)
func DecodeGPSMotion(b []byte) (GPSMotion, error) {
	if err := need("gps motion", b, 8); err != nil {
		return GPSMotion{}, err
	}
	return GPSMotion{
		Height:  float64(Int16(b[0:])) / 10,
		Heading: float64(Int16(b[2:])) / 100,
		Speed:   float64(Int32(b[4:])) / 1000,
	}, nil
}

// DecodeGPSAccuracy decodes the satellite count and DOP values (0.01 units)
func DecodeGPSAccuracy(b []byte) (GPSAccuracy, error) {
	if err := need("gps accuracy", b, 8); err != nil {
		return GPSAccuracy{}, err
	}
	return GPSAccuracy{
		Satellites: Uint16(b[0:]),
		PDOP:       float64(Uint16(b[2:])) / 100,
		HDOP:       float64(Uint16(b[4:])) / 100,
		VDOP:       float64(Uint16(b[6:])) / 100,
	}, nil
}
