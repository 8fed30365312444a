// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"fmt"
	"time"
)

// Sample aggregates the latest value of every telemetry block.
// Blocks that have not been seen are nil.
type Sample struct {
	Timestamp       time.Time        `json:"timestamp"`
	Time            *Time            `json:"time,omitempty"`
	Acceleration    *Acceleration    `json:"acceleration,omitempty"`
	AngularVelocity *AngularVelocity `json:"angular_velocity,omitempty"`
	Orientation     *Orientation     `json:"orientation,omitempty"`
	MagneticField   *MagneticField   `json:"magnetic_field,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	PinStatus       *PinStatus       `json:"pin_status,omitempty"`
	PressureHeight  *PressureHeight  `json:"pressure_height,omitempty"`
	Position        *Position        `json:"position,omitempty"`
	GPSMotion       *GPSMotion       `json:"gps_motion,omitempty"`
	Quaternion      *Quaternion      `json:"quaternion,omitempty"`
	GPSAccuracy     *GPSAccuracy     `json:"gps_accuracy,omitempty"`
	Version         uint16           `json:"version,omitempty"`
}

// Apply folds a UART frame into the sample.
// Register read replies carry no telemetry and are ignored.
func (s *Sample) Apply(f *Frame) error {
	d := f.Data[:]
	switch f.Type {
	case FrameTime:
		v, err := DecodeTime(d)
		if err != nil {
			return err
		}
		s.Time = &v
	case FrameAcceleration:
		v, err := DecodeAcceleration(d)
		if err != nil {
			return err
		}
		t, _ := DecodeTemperature(d[6:])
		s.Acceleration = &v
		s.Temperature = &t
	case FrameAngularVel:
		v, err := DecodeAngularVelocity(d)
		if err != nil {
			return err
		}
		s.AngularVelocity = &v
	case FrameOrientation:
		v, err := DecodeOrientation(d)
		if err != nil {
			return err
		}
		s.Orientation = &v
		s.Version = Uint16(d[6:])
	case FrameMagnetic:
		v, err := DecodeMagneticField(d)
		if err != nil {
			return err
		}
		s.MagneticField = &v
	case FramePinStatus:
		v, err := DecodePinStatus(d)
		if err != nil {
			return err
		}
		s.PinStatus = &v
	case FramePressure:
		v, err := DecodePressureHeight(d)
		if err != nil {
			return err
		}
		s.PressureHeight = &v
	case FramePosition:
		v, err := DecodePosition(d)
		if err != nil {
			return err
		}
		s.Position = &v
	case FrameGPSSpeed:
		v, err := DecodeGPSMotion(d)
		if err != nil {
			return err
		}
		s.GPSMotion = &v
	case FrameQuaternion:
		v, err := DecodeQuaternion(d)
		if err != nil {
			return err
		}
		s.Quaternion = &v
	case FrameGPSAccuracy:
		v, err := DecodeGPSAccuracy(d)
		if err != nil {
			return err
		}
		s.GPSAccuracy = &v
	case FrameRegisters:
		return nil
	default:
		return fmt.Errorf("%w: 0x%02X", ErrUnknownFrame, f.Type)
	}
	s.Timestamp = f.Timestamp
	return nil
}
