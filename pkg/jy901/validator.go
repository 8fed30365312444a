// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"fmt"
	"math"
)

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyInvalidTime AnomalyType = iota
	AnomalyOutOfRange
	AnomalyInvalidTemp
	AnomalyQuaternionNorm
	AnomalyChecksum
	AnomalyDecodeError
)

// Plausibility limits
const (
	MinTemperature      = -40.0
	MaxTemperature      = 85.0
	QuaternionTolerance = 0.05
	MaxPressure         = 120000
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks the decoded values of a frame for plausibility.
// Returns a slice of validation errors (empty if the frame is valid).
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}
	d := f.Data[:]

	switch f.Type {
	case FrameTime:
		t, _ := DecodeTime(d)
		errors = append(errors, validateTime(t)...)
	case FrameAcceleration:
		temp, _ := DecodeTemperature(d[6:])
		if temp < MinTemperature || temp > MaxTemperature {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidTemp,
				Message: fmt.Sprintf("Invalid temperature=%.2f°C (range %.0f..%.0f)", temp, MinTemperature, MaxTemperature),
				Details: map[string]interface{}{"temperature": temp},
			})
		}
	case FrameQuaternion:
		q, _ := DecodeQuaternion(d)
		if n := q.Norm(); math.Abs(n-1) > QuaternionTolerance {
			errors = append(errors, ValidationError{
				Type:    AnomalyQuaternionNorm,
				Message: fmt.Sprintf("Quaternion norm=%.4f (expected 1)", n),
				Details: map[string]interface{}{"norm": n},
			})
		}
	case FramePressure:
		p, _ := DecodePressureHeight(d)
		if p.Pressure < 0 || p.Pressure > MaxPressure {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Message: fmt.Sprintf("Invalid pressure=%d Pa (max %d)", p.Pressure, MaxPressure),
				Details: map[string]interface{}{"pressure": p.Pressure, "max": MaxPressure},
			})
		}
	case FramePosition:
		p, _ := DecodePosition(d)
		lon, lat := p.Degrees()
		if math.Abs(lon) > 180 || math.Abs(lat) > 90 {
			errors = append(errors, ValidationError{
				Type:    AnomalyOutOfRange,
				Message: fmt.Sprintf("Invalid position lon=%.5f lat=%.5f", lon, lat),
				Details: map[string]interface{}{"longitude": lon, "latitude": lat},
			})
		}
	}

	return errors
}

func validateTime(t Time) []ValidationError {
	errors := []ValidationError{}
	check := func(field string, v, lo, hi int) {
		if v < lo || v > hi {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidTime,
				Message: fmt.Sprintf("Invalid %s=%d (range %d..%d)", field, v, lo, hi),
				Details: map[string]interface{}{field: v, "min": lo, "max": hi},
			})
		}
	}
	check("month", int(t.Month), 1, 12)
	check("day", int(t.Day), 1, 31)
	check("hour", int(t.Hour), 0, 23)
	check("minute", int(t.Minute), 0, 59)
	check("second", int(t.Second), 0, 59)
	check("millisecond", int(t.Millisecond), 0, 999)
	return errors
}
