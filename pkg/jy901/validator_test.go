// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"strings"
	"testing"
)

// ============================================================
// Validator Tests
// ============================================================

func TestValidateFrame_ValidTime(t *testing.T) {
	f := NewFrame(FrameTime, []byte{25, 6, 30, 23, 59, 59, 0xE7, 0x03})
	if errs := ValidateFrame(f); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateFrame_InvalidTime(t *testing.T) {
	f := NewFrame(FrameTime, []byte{25, 13, 0, 24, 0, 0, 0, 0})
	errs := ValidateFrame(f)
	if len(errs) != 3 {
		t.Fatalf("Expected 3 errors (month, day, hour), got %d: %v", len(errs), errs)
	}
	for _, err := range errs {
		if err.Type != AnomalyInvalidTime {
			t.Errorf("Expected AnomalyInvalidTime, got %d", err.Type)
		}
	}
}

func TestValidateFrame_Temperature(t *testing.T) {
	hot := NewFrame(FrameAcceleration, []byte{0, 0, 0, 0, 0, 0, 0x10, 0x27}) // 100.00°C
	errs := ValidateFrame(hot)
	if len(errs) != 1 || errs[0].Type != AnomalyInvalidTemp {
		t.Fatalf("Expected one AnomalyInvalidTemp, got %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "100.00") {
		t.Errorf("Expected message to mention the temperature, got %q", errs[0].Error())
	}

	normal := NewFrame(FrameAcceleration, []byte{0, 0, 0, 0, 0, 0, 0xD2, 0x09})
	if errs := ValidateFrame(normal); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateFrame_QuaternionNorm(t *testing.T) {
	zero := NewFrame(FrameQuaternion, make([]byte, 8))
	if errs := ValidateFrame(zero); len(errs) != 1 || errs[0].Type != AnomalyQuaternionNorm {
		t.Errorf("Expected AnomalyQuaternionNorm, got %v", errs)
	}

	identity := NewFrame(FrameQuaternion, []byte{0xFF, 0x7F, 0, 0, 0, 0, 0, 0})
	if errs := ValidateFrame(identity); len(errs) != 0 {
		t.Errorf("Expected no errors, got %v", errs)
	}
}

func TestValidateFrame_UncheckedTypes(t *testing.T) {
	f := NewFrame(FrameMagnetic, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if errs := ValidateFrame(f); len(errs) != 0 {
		t.Errorf("Expected no errors for magnetic frame, got %v", errs)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()
	valid := NewFrame(FrameOrientation, nil)

	s.Update(valid, nil, nil)
	s.Update(nil, ErrChecksum, nil)
	s.Update(nil, ErrUnknownFrame, nil)
	s.Update(valid, nil, []ValidationError{{Type: AnomalyInvalidTemp}, {Type: AnomalyOutOfRange}})

	if s.TotalFrames != 4 {
		t.Errorf("Expected 4 frames, got %d", s.TotalFrames)
	}
	if s.ValidFrames != 1 {
		t.Errorf("Expected 1 valid frame, got %d", s.ValidFrames)
	}
	if s.ChecksumErrors != 1 || s.DecodeErrors != 1 {
		t.Errorf("Expected 1 checksum and 1 decode error, got %d and %d", s.ChecksumErrors, s.DecodeErrors)
	}
	if s.AnomalousValues != 1 || s.InvalidTemps != 1 || s.OutOfRange != 1 {
		t.Errorf("Unexpected anomaly counters %+v", s)
	}
	if s.FramesByType[FrameOrientation] != 2 {
		t.Errorf("Expected 2 orientation frames, got %d", s.FramesByType[FrameOrientation])
	}
	if s.TotalErrors() != 3 {
		t.Errorf("Expected 3 errors, got %d", s.TotalErrors())
	}
}

func TestStatistics_StringAndReset(t *testing.T) {
	s := NewStatistics()
	s.Update(nil, ErrChecksum, nil)

	out := s.String()
	if !strings.Contains(out, "Checksum Errors") {
		t.Errorf("Expected checksum line in summary:\n%s", out)
	}

	s.Reset()
	if s.TotalFrames != 0 || s.ChecksumErrors != 0 || len(s.FramesByType) != 0 {
		t.Error("Expected counters to be cleared")
	}
	if s.FramesByType == nil {
		t.Error("Expected type map to be reallocated")
	}
}
