// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"fmt"
	"time"
)

// Orientation holds the Euler angles reported by the device, in radians
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Degrees returns roll, pitch and yaw converted to degrees
func (o Orientation) Degrees() (roll, pitch, yaw float64) {
	return radToDeg(o.Roll), radToDeg(o.Pitch), radToDeg(o.Yaw)
}

// AngularVelocity is in degrees per second
type AngularVelocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Acceleration is in m/s²
type Acceleration struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// MagneticField carries the raw magnetometer counts
type MagneticField struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PressureHeight is the barometer reading: pressure in Pa, height in cm
type PressureHeight struct {
	Pressure int32 `json:"pressure"`
	Height   int32 `json:"height"`
}

// Position is the raw GPS longitude/latitude.
// The device reports ddmm.mmmmm scaled by 1e5, e.g. 11322.42512 E as 1132242512.
type Position struct {
	Longitude int32 `json:"longitude"`
	Latitude  int32 `json:"latitude"`
}

// Degrees converts the raw ddmm.mmmmm fields into decimal degrees
func (p Position) Degrees() (lon, lat float64) {
	return ddmmToDegrees(p.Longitude), ddmmToDegrees(p.Latitude)
}

func ddmmToDegrees(raw int32) float64 {
	deg := raw / 10000000
	minutes := float64(raw%10000000) / 100000.0
	return float64(deg) + minutes/60.0
}

// Time is the device clock. Without GPS it starts at 2015-01-01 00:00:00 on power up.
type Time struct {
	Year        uint16 `json:"year"`
	Month       uint8  `json:"month"`
	Day         uint8  `json:"day"`
	Hour        uint8  `json:"hour"`
	Minute      uint8  `json:"minute"`
	Second      uint8  `json:"second"`
	Millisecond uint16 `json:"millisecond"`
}

// Time converts the device clock to a time.Time in loc
func (t Time) Time(loc *time.Location) time.Time {
	return time.Date(int(t.Year), time.Month(t.Month), int(t.Day), int(t.Hour), int(t.Minute),
		int(t.Second), int(t.Millisecond)*int(time.Millisecond), loc)
}

// String formats the clock as an ISO-like timestamp
func (t Time) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d.%03d",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, t.Second, t.Millisecond)
}

// Quaternion is the unit-scaled attitude quaternion (Q0 is the scalar part)
type Quaternion struct {
	Q0 float64 `json:"q0"`
	Q1 float64 `json:"q1"`
	Q2 float64 `json:"q2"`
	Q3 float64 `json:"q3"`
}

// PinStatus holds the raw reading of each D0-D3 port
type PinStatus [PinCount]uint16
