// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"fmt"
	"strconv"
	"strings"
)

var rateHz = map[Rate]float64{
	Rate0_1Hz: 0.1,
	Rate0_5Hz: 0.5,
	Rate1Hz:   1,
	Rate2Hz:   2,
	Rate5Hz:   5,
	Rate10Hz:  10,
	Rate20Hz:  20,
	Rate50Hz:  50,
	Rate100Hz: 100,
	Rate200Hz: 200,
}

// Hz returns the output frequency, or 0 for single-shot and disabled output
func (r Rate) Hz() float64 {
	return rateHz[r]
}

// Valid reports whether r is a known rate code
func (r Rate) Valid() bool {
	_, ok := rateHz[r]
	return ok || r == RateSingle || r == RateNone
}

// String returns a human readable rate
func (r Rate) String() string {
	switch r {
	case RateSingle:
		return "single"
	case RateNone:
		return "none"
	}
	if hz, ok := rateHz[r]; ok {
		return strconv.FormatFloat(hz, 'f', -1, 64) + "Hz"
	}
	return fmt.Sprintf("Rate(0x%02X)", uint8(r))
}

// ParseRate accepts "10", "10hz", "0.5Hz", "single" or "none"
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "hz")
	switch s {
	case "single", "once":
		return RateSingle, nil
	case "none", "off":
		return RateNone, nil
	}
	hz, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q", s)
	}
	for r, v := range rateHz {
		if v == hz {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unsupported rate %gHz", hz)
}

var baudBPS = map[Baud]int{
	Baud2400:   2400,
	Baud4800:   4800,
	Baud9600:   9600,
	Baud19200:  19200,
	Baud38400:  38400,
	Baud57600:  57600,
	Baud115200: 115200,
	Baud230400: 230400,
	Baud460800: 460800,
	Baud921600: 921600,
}

// BitsPerSecond returns the line rate, or 0 for BaudNoDevice and unknown codes
func (b Baud) BitsPerSecond() int {
	return baudBPS[b]
}

// Valid reports whether b is a line rate or BaudNoDevice
func (b Baud) Valid() bool {
	_, ok := baudBPS[b]
	return ok || b == BaudNoDevice
}

// String returns the line rate as text
func (b Baud) String() string {
	if b == BaudNoDevice {
		return "no device"
	}
	if bps, ok := baudBPS[b]; ok {
		return strconv.Itoa(bps)
	}
	return fmt.Sprintf("Baud(0x%02X)", uint8(b))
}

// BaudFor returns the code for a line rate in bits per second
func BaudFor(bps int) (Baud, error) {
	for b, v := range baudBPS {
		if v == bps {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unsupported baud rate %d", bps)
}

// ParseBaud accepts a line rate or "none"
func ParseBaud(s string) (Baud, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "none" || s == "nodevice" || s == "no-device" {
		return BaudNoDevice, nil
	}
	bps, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid baud rate %q", s)
	}
	return BaudFor(bps)
}

// String returns the port function name
func (m PinMode) String() string {
	switch m {
	case PinAnalogIn:
		return "analog"
	case PinDigitalIn:
		return "input"
	case PinDigitalHigh:
		return "high"
	case PinDigitalLow:
		return "low"
	case PinPWMOut:
		return "pwm"
	default:
		return fmt.Sprintf("PinMode(0x%02X)", uint8(m))
	}
}

// Valid reports whether m is one of the five port functions
func (m PinMode) Valid() bool {
	return m <= PinPWMOut
}

// ParsePinMode accepts the names returned by PinMode.String
func ParsePinMode(s string) (PinMode, error) {
	for m := PinAnalogIn; m <= PinPWMOut; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid pin mode %q (analog, input, high, low, pwm)", s)
}

// String returns the calibration mode name
func (c CalibrationMode) String() string {
	switch c {
	case CalibrationNone:
		return "none"
	case CalibrationGyro:
		return "gyro"
	case CalibrationMag:
		return "mag"
	case CalibrationHeight:
		return "height"
	default:
		return fmt.Sprintf("CalibrationMode(%d)", uint8(c))
	}
}

// ParseCalibrationMode accepts gyro, mag, height or none
func ParseCalibrationMode(s string) (CalibrationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gyro", "gyroscope":
		return CalibrationGyro, nil
	case "mag", "magnetic", "magnetometer":
		return CalibrationMag, nil
	case "height", "altitude":
		return CalibrationHeight, nil
	case "none", "exit", "idle":
		return CalibrationNone, nil
	}
	return 0, fmt.Errorf("invalid calibration mode %q (gyro, mag, height)", s)
}
