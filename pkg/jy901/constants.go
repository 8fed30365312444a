// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package jy901 provides a Go implementation of the WitMotion JY901 register protocol.
//
// The JY901 is a 9-axis attitude module (accelerometer, gyroscope, magnetometer) with
// optional barometer and GPS input. It exposes its configuration and telemetry as 16-bit
// little-endian registers reachable over I2C, and streams the same blocks as 11-byte
// frames when attached to a UART. This package holds the register map, the pure
// codec between register bytes and physical values, the UART frame decoder, and
// helpers for formatting, validating and encoding telemetry.
package jy901

import "math"

// Configuration registers (write)
const (
	RegSave        = 0x00
	RegCalibrate   = 0x01
	RegContent     = 0x02
	RegRate        = 0x03
	RegBaud        = 0x04
	RegAccelBiasX  = 0x05
	RegGyroBiasX   = 0x08
	RegMagBiasX    = 0x0B
	RegPinModeBase = 0x0E
	RegPWMWidth    = 0x12
	RegPWMPeriod   = 0x16
	RegAddress     = 0x1A
	RegLED         = 0x1B
	RegGPSBaud     = 0x1C
	RegReadAddr    = 0x27
	RegKey         = 0x69
)

// Telemetry registers (read)
const (
	RegTime          = 0x30
	RegAcceleration  = 0x34
	RegAngularVel    = 0x37
	RegMagnetic      = 0x3A
	RegOrientation   = 0x3D
	RegTemperature   = 0x40
	RegPinStatus     = 0x41
	RegPressure      = 0x45 // 0x56 is FramePressure
	RegPosition      = 0x49 // 0x57 is FramePosition, the UART frame of this block
	RegQuaternion    = 0x51
	RegisterWidth    = 2 // every register holds one little-endian 16-bit word
	PinCount         = 4
	DigitalWriteFlag = 0x10
)

// Save register payloads
const (
	SaveSettings    = 0x00
	RestoreDefaults = 0x01
)

// CalibrationMode selects the device-side calibration routine
type CalibrationMode uint8

const (
	CalibrationNone   CalibrationMode = 0
	CalibrationGyro   CalibrationMode = 1
	CalibrationMag    CalibrationMode = 2
	CalibrationHeight CalibrationMode = 3
)

// Rate is the output (return) rate enumeration written to RegRate
type Rate uint8

const (
	Rate0_1Hz  Rate = 0x01
	Rate0_5Hz  Rate = 0x02
	Rate1Hz    Rate = 0x03
	Rate2Hz    Rate = 0x04
	Rate5Hz    Rate = 0x05
	Rate10Hz   Rate = 0x06 // factory default
	Rate20Hz   Rate = 0x07
	Rate50Hz   Rate = 0x08
	Rate100Hz  Rate = 0x09
	Rate200Hz  Rate = 0x0A
	RateSingle Rate = 0x0B
	RateNone   Rate = 0x0C
)

// Baud is the serial baud rate enumeration used by RegBaud and RegGPSBaud
type Baud uint8

const (
	Baud2400     Baud = 0x00
	Baud4800     Baud = 0x01
	Baud9600     Baud = 0x02
	Baud19200    Baud = 0x03
	Baud38400    Baud = 0x04
	Baud57600    Baud = 0x05
	Baud115200   Baud = 0x06
	Baud230400   Baud = 0x07
	Baud460800   Baud = 0x08
	Baud921600   Baud = 0x09
	BaudNoDevice Baud = 0xFF
)

// PinMode is the function selected for one of the four D0-D3 ports
type PinMode uint8

const (
	PinAnalogIn    PinMode = 0x00
	PinDigitalIn   PinMode = 0x01
	PinDigitalHigh PinMode = 0x02
	PinDigitalLow  PinMode = 0x03
	PinPWMOut      PinMode = 0x04
)

// Return content mask bits for RegContent
const (
	ContentTime         = 1 << 0
	ContentAcceleration = 1 << 1
	ContentAngularVel   = 1 << 2
	ContentOrientation  = 1 << 3
	ContentMagnetic     = 1 << 4
	ContentPinStatus    = 1 << 5
	ContentPressure     = 1 << 6
	ContentPosition     = 1 << 7
	ContentGPSSpeed     = 1 << 8
	ContentQuaternion   = 1 << 9
	ContentGPSAccuracy  = 1 << 10
	ContentDefault      = ContentAcceleration | ContentAngularVel | ContentOrientation | ContentMagnetic
)

// LED register payloads
const (
	LEDOn  = 0x00
	LEDOff = 0x01
)

// Physical scales
const (
	Gravity           = 9.8
	AccelRange        = 16.0   // ±16 g
	GyroRange         = 2000.0 // ±2000 °/s
	fullScale         = 32768.0
	AccelScale        = AccelRange * Gravity / fullScale
	GyroScale         = GyroRange / fullScale
	OrientationScale  = math.Pi / fullScale
	QuaternionScale   = 1.0 / fullScale
	TemperatureScale  = 1.0 / 100.0
	BaseYear          = 2000
	DefaultDeviceAddr = 0x50
)
