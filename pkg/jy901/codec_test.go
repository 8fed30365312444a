// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// ============================================================
// Word Helpers
// ============================================================

func TestInt16_TwosComplement(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected int16
	}{
		{"zero", []byte{0x00, 0x00}, 0},
		{"one", []byte{0x01, 0x00}, 1},
		{"minus one", []byte{0xFF, 0xFF}, -1},
		{"max", []byte{0xFF, 0x7F}, 32767},
		{"min", []byte{0x00, 0x80}, -32768},
		{"high byte only", []byte{0x00, 0x40}, 16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Int16(tt.data); got != tt.expected {
				t.Errorf("Int16(% X) = %d, expected %d", tt.data, got, tt.expected)
			}
		})
	}
}

func TestInt32_LittleEndian(t *testing.T) {
	if got := Int32([]byte{0x78, 0x56, 0x34, 0x12}); got != 0x12345678 {
		t.Errorf("Expected 0x12345678, got 0x%08X", got)
	}
	if got := Int32([]byte{0xFE, 0xFF, 0xFF, 0xFF}); got != -2 {
		t.Errorf("Expected -2, got %d", got)
	}
}

// ============================================================
// Telemetry Decoders
// ============================================================

func TestDecodeOrientation_Midpoint(t *testing.T) {
	o, err := DecodeOrientation([]byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if o.Roll != 0 {
		t.Errorf("Expected roll 0, got %f", o.Roll)
	}
	if math.Abs(o.Pitch-math.Pi/2) > 1e-6 {
		t.Errorf("Expected pitch ≈ 1.5708, got %f", o.Pitch)
	}
	if o.Yaw != 0 {
		t.Errorf("Expected yaw 0, got %f", o.Yaw)
	}
}

func TestDecodeOrientation_Negative(t *testing.T) {
	o, err := DecodeOrientation([]byte{0x00, 0x80, 0x00, 0xC0, 0xFF, 0x7F})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approx(o.Roll, -math.Pi) {
		t.Errorf("Expected roll -π, got %f", o.Roll)
	}
	if !approx(o.Pitch, -math.Pi/2) {
		t.Errorf("Expected pitch -π/2, got %f", o.Pitch)
	}
	if !approx(o.Yaw, 32767*math.Pi/32768) {
		t.Errorf("Unexpected yaw %f", o.Yaw)
	}
}

func TestDecodeAcceleration_Scale(t *testing.T) {
	// 2048 counts = 1 g
	a, err := DecodeAcceleration([]byte{0x00, 0x08, 0x00, 0xF8, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approx(a.X, 9.8) {
		t.Errorf("Expected x=9.8, got %f", a.X)
	}
	if !approx(a.Y, -9.8) {
		t.Errorf("Expected y=-9.8, got %f", a.Y)
	}
	if a.Z != 0 {
		t.Errorf("Expected z=0, got %f", a.Z)
	}
}

func TestDecodeAngularVelocity_Scale(t *testing.T) {
	// 16384 counts = 1000 °/s
	g, err := DecodeAngularVelocity([]byte{0x00, 0x40, 0x00, 0x00, 0x00, 0xC0})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approx(g.X, 1000) || g.Y != 0 || !approx(g.Z, -1000) {
		t.Errorf("Unexpected angular velocity %+v", g)
	}
}

func TestDecodeMagneticField_Unscaled(t *testing.T) {
	m, err := DecodeMagneticField([]byte{0x10, 0x00, 0xF0, 0xFF, 0x00, 0x01})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if m.X != 16 || m.Y != -16 || m.Z != 256 {
		t.Errorf("Unexpected magnetic field %+v", m)
	}
}

func TestDecodeTemperature(t *testing.T) {
	temp, err := DecodeTemperature([]byte{0xD2, 0x09}) // 2514
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !approx(temp, 25.14) {
		t.Errorf("Expected 25.14, got %f", temp)
	}
}

func TestDecodePressureHeight(t *testing.T) {
	// 101325 Pa, -150 cm, trailing pad byte
	data := []byte{0xCD, 0x8B, 0x01, 0x00, 0x6A, 0xFF, 0xFF, 0xFF, 0x00}
	ph, err := DecodePressureHeight(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ph.Pressure != 101325 {
		t.Errorf("Expected pressure 101325, got %d", ph.Pressure)
	}
	if ph.Height != -150 {
		t.Errorf("Expected height -150, got %d", ph.Height)
	}
}

func TestDecodeTime(t *testing.T) {
	data := []byte{25, 3, 14, 15, 9, 26, 0xE7, 0x03, 0x00}
	tm, err := DecodeTime(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := Time{Year: 2025, Month: 3, Day: 14, Hour: 15, Minute: 9, Second: 26, Millisecond: 999}
	if tm != expected {
		t.Errorf("Expected %+v, got %+v", expected, tm)
	}
	if tm.String() != "2025-03-14 15:09:26.999" {
		t.Errorf("Unexpected string %q", tm.String())
	}
}

func TestDecodeQuaternion_Identity(t *testing.T) {
	q, err := DecodeQuaternion([]byte{0xFF, 0x7F, 0, 0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(q.Q0-1) > 1e-4 || q.Q1 != 0 || q.Q2 != 0 || q.Q3 != 0 {
		t.Errorf("Expected identity quaternion, got %+v", q)
	}
}

func TestDecodePinStatus(t *testing.T) {
	s, err := DecodePinStatus([]byte{0x01, 0x00, 0x00, 0x01, 0xFF, 0xFF, 0xE8, 0x03})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	expected := PinStatus{1, 256, 65535, 1000}
	if s != expected {
		t.Errorf("Expected %v, got %v", expected, s)
	}
}

func TestDecodePosition_Degrees(t *testing.T) {
	// 113°22.42512' E, 22°35.12345' N
	p := Position{Longitude: 1132242512, Latitude: 223512345}
	lon, lat := p.Degrees()
	if math.Abs(lon-(113+22.42512/60)) > 1e-9 {
		t.Errorf("Unexpected longitude %f", lon)
	}
	if math.Abs(lat-(22+35.12345/60)) > 1e-9 {
		t.Errorf("Unexpected latitude %f", lat)
	}
}

func TestDecoders_ShortBuffer(t *testing.T) {
	decoders := map[string]func([]byte) error{
		"orientation":  func(b []byte) error { _, err := DecodeOrientation(b); return err },
		"acceleration": func(b []byte) error { _, err := DecodeAcceleration(b); return err },
		"gyro":         func(b []byte) error { _, err := DecodeAngularVelocity(b); return err },
		"magnetic":     func(b []byte) error { _, err := DecodeMagneticField(b); return err },
		"temperature":  func(b []byte) error { _, err := DecodeTemperature(b); return err },
		"pressure":     func(b []byte) error { _, err := DecodePressureHeight(b); return err },
		"position":     func(b []byte) error { _, err := DecodePosition(b); return err },
		"time":         func(b []byte) error { _, err := DecodeTime(b); return err },
		"quaternion":   func(b []byte) error { _, err := DecodeQuaternion(b); return err },
		"pins":         func(b []byte) error { _, err := DecodePinStatus(b); return err },
	}

	for name, decode := range decoders {
		t.Run(name, func(t *testing.T) {
			if err := decode([]byte{0x01}); !errors.Is(err, ErrShortBuffer) {
				t.Errorf("Expected ErrShortBuffer, got %v", err)
			}
		})
	}
}

func TestDecoders_IgnoreTrailingBytes(t *testing.T) {
	layout := []byte{0x18, 0x06, 0x0F, 0x0C, 0x1E, 0x2D, 0xF4, 0x01}
	padded := append(append([]byte(nil), layout...), 0xEE)

	tm, err := DecodeTime(layout)
	if err != nil {
		t.Fatal(err)
	}
	tmPadded, err := DecodeTime(padded)
	if err != nil {
		t.Fatalf("9-byte time block: %v", err)
	}
	if tm != tmPadded {
		t.Errorf("Expected %v, got %v", tm, tmPadded)
	}

	ph, err := DecodePressureHeight(padded)
	if err != nil {
		t.Fatalf("9-byte pressure block: %v", err)
	}
	if want, _ := DecodePressureHeight(layout); ph != want {
		t.Errorf("Expected %+v, got %+v", want, ph)
	}

	pos, err := DecodePosition(padded)
	if err != nil {
		t.Fatalf("9-byte position block: %v", err)
	}
	if want, _ := DecodePosition(layout); pos != want {
		t.Errorf("Expected %+v, got %+v", want, pos)
	}
}

// ============================================================
// Encoders
// ============================================================

func TestEncodeUint16_PeriodRoundTrip(t *testing.T) {
	data := EncodeUint16(1000)
	if data[0] != 0xE8 || data[1] != 0x03 {
		t.Errorf("Expected E8 03, got % X", data)
	}
	v, err := DecodeUint16(data)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if v != 1000 {
		t.Errorf("Expected 1000, got %d", v)
	}
}

func TestEncodeDigital_LevelBit(t *testing.T) {
	tests := []struct {
		level    uint8
		expected byte
	}{
		{0, 0x10},
		{1, 0x11},
		{2, 0x10},
		{3, 0x11},
		{0xFF, 0x11},
	}

	for _, tt := range tests {
		if got := EncodeDigital(tt.level); got[0] != tt.expected {
			t.Errorf("EncodeDigital(%d) = 0x%02X, expected 0x%02X", tt.level, got[0], tt.expected)
		}
	}
}

func TestEncodeSettings(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected []byte
	}{
		{"save", EncodeSave(), []byte{0x00, 0x00}},
		{"defaults", EncodeDefaults(), []byte{0x01, 0x00}},
		{"calibrate gyro", EncodeCalibration(CalibrationGyro), []byte{0x01, 0x00}},
		{"calibrate height", EncodeCalibration(CalibrationHeight), []byte{0x03, 0x00}},
		{"exit calibration", EncodeCalibration(CalibrationNone), []byte{0x00, 0x00}},
		{"rate 200Hz", EncodeRate(Rate200Hz), []byte{0x0A, 0x00}},
		{"led on", EncodeLED(true), []byte{0x00}},
		{"led off", EncodeLED(false), []byte{0x01}},
		{"gps none", EncodeBaud(BaudNoDevice), []byte{0xFF}},
		{"int16", EncodeInt16(-2), []byte{0xFE, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.data) != string(tt.expected) {
				t.Errorf("Expected % X, got % X", tt.expected, tt.data)
			}
		})
	}
}

func TestPWMWidth_ClampsDuty(t *testing.T) {
	tests := []struct {
		duty     float64
		expected uint16
	}{
		{-1, 0},
		{0, 0},
		{0.5, 500},
		{1, 1000},
		{2, 1000},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		if got := PWMWidth(tt.duty, 1000); got != tt.expected {
			t.Errorf("PWMWidth(%v, 1000) = %d, expected %d", tt.duty, got, tt.expected)
		}
	}
}

// ============================================================
// Enumerations
// ============================================================

func TestParseRate(t *testing.T) {
	tests := []struct {
		input    string
		expected Rate
	}{
		{"0.1", Rate0_1Hz},
		{"10Hz", Rate10Hz},
		{"200hz", Rate200Hz},
		{"single", RateSingle},
		{"none", RateNone},
	}

	for _, tt := range tests {
		got, err := ParseRate(tt.input)
		if err != nil {
			t.Errorf("ParseRate(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("ParseRate(%q) = %s, expected %s", tt.input, got, tt.expected)
		}
	}

	if _, err := ParseRate("3"); err == nil {
		t.Error("Expected error for unsupported rate")
	}
}

func TestParseBaud(t *testing.T) {
	b, err := ParseBaud("115200")
	if err != nil || b != Baud115200 {
		t.Errorf("Expected Baud115200, got %v (%v)", b, err)
	}
	b, err = ParseBaud("none")
	if err != nil || b != BaudNoDevice {
		t.Errorf("Expected BaudNoDevice, got %v (%v)", b, err)
	}
	if _, err := ParseBaud("1234"); err == nil {
		t.Error("Expected error for unsupported baud")
	}
	if Baud9600.BitsPerSecond() != 9600 {
		t.Errorf("Expected 9600, got %d", Baud9600.BitsPerSecond())
	}
}

func TestParsePinMode(t *testing.T) {
	for m := PinAnalogIn; m <= PinPWMOut; m++ {
		got, err := ParsePinMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParsePinMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParsePinMode("gps"); err == nil {
		t.Error("Expected error for unknown pin mode")
	}
}

func TestParseCalibrationMode(t *testing.T) {
	tests := []struct {
		input   string
		want    CalibrationMode
		wantErr bool
	}{
		{"gyro", CalibrationGyro, false},
		{"Gyroscope", CalibrationGyro, false},
		{"mag", CalibrationMag, false},
		{"magnetic", CalibrationMag, false},
		{"magnetometer", CalibrationMag, false},
		{"height", CalibrationHeight, false},
		{" altitude ", CalibrationHeight, false},
		{"none", CalibrationNone, false},
		{"exit", CalibrationNone, false},
		{"idle", CalibrationNone, false},
		{"accel", 0, true},
		{"", 0, true},
		{"3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCalibrationMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCalibrationMode(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseCalibrationMode(%q) = %v, %v, want %v", tt.input, got, err, tt.want)
			}
		})
	}
}

// ============================================================
// Register Map
// ============================================================

func TestDefaultRegisterMap(t *testing.T) {
	m := DefaultRegisterMap
	if m.Orientation.Addr != 0x3D || m.Orientation.Width != 6 {
		t.Errorf("Unexpected orientation block %s", m.Orientation)
	}
	if m.Acceleration.Axis(2).Addr != 0x36 {
		t.Errorf("Expected acceleration z at 0x36, got 0x%02X", m.Acceleration.Axis(2).Addr)
	}
	if m.PinStatusOf(3).Addr != 0x44 {
		t.Errorf("Expected pin 3 status at 0x44, got 0x%02X", m.PinStatusOf(3).Addr)
	}
	if m.Time.Width != 9 || m.Pressure.Width != 9 || m.Quaternion.Width != 8 {
		t.Error("Unexpected block widths")
	}
	// Register addresses and UART frame types are separate numbering schemes
	if m.Pressure.Addr != RegPressure || RegPressure != 0x45 || FramePressure != 0x56 {
		t.Errorf("Unexpected pressure register 0x%02X", m.Pressure.Addr)
	}
	if m.Position.Addr != RegPosition || RegPosition != 0x49 || FramePosition != 0x57 {
		t.Errorf("Unexpected position register 0x%02X", m.Position.Addr)
	}
}

func TestFormatRegister(t *testing.T) {
	tests := map[byte]string{
		0x00: "SAVE",
		0x0F: "D1MODE",
		0x13: "D1PWMH",
		0x19: "D3PWMT",
		0x42: "D1STATUS",
		0x7F: "REG_0x7F",
	}
	for reg, expected := range tests {
		if got := FormatRegister(reg); got != expected {
			t.Errorf("FormatRegister(0x%02X) = %q, expected %q", reg, got, expected)
		}
	}
}
