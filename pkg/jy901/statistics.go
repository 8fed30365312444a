// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	ChecksumErrors  uint64
	DecodeErrors    uint64
	AnomalousValues uint64
	InvalidTimes    uint64
	InvalidTemps    uint64
	BadQuaternions  uint64
	OutOfRange      uint64
	FramesByType    map[uint8]uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		FramesByType:   make(map[uint8]uint64),
	}
}

// Update updates statistics based on a frame and its errors
func (s *Statistics) Update(frame *Frame, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		if errors.Is(decodeErr, ErrChecksum) {
			s.ChecksumErrors++
		} else {
			s.DecodeErrors++
		}
		return
	}

	if frame != nil {
		s.FramesByType[frame.Type]++
	}

	if len(validationErrors) == 0 {
		s.ValidFrames++
		return
	}

	s.AnomalousValues++
	for _, err := range validationErrors {
		switch err.Type {
		case AnomalyInvalidTime:
			s.InvalidTimes++
		case AnomalyInvalidTemp:
			s.InvalidTemps++
		case AnomalyQuaternionNorm:
			s.BadQuaternions++
		case AnomalyOutOfRange:
			s.OutOfRange++
		}
	}
}

// TotalErrors returns every frame counted as bad
func (s *Statistics) TotalErrors() uint64 {
	return s.ChecksumErrors + s.DecodeErrors + s.AnomalousValues
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.TotalErrors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.TotalFrames == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, percent(s.ValidFrames))

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d (%.1f%%)\n", s.ChecksumErrors, percent(s.ChecksumErrors))
	}
	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, percent(s.DecodeErrors))
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d (%.1f%%)\n", s.AnomalousValues, percent(s.AnomalousValues))
		if s.InvalidTimes > 0 {
			result += fmt.Sprintf("  Invalid Time:     %5d\n", s.InvalidTimes)
		}
		if s.InvalidTemps > 0 {
			result += fmt.Sprintf("  Invalid Temp:     %5d\n", s.InvalidTemps)
		}
		if s.BadQuaternions > 0 {
			result += fmt.Sprintf("  Quaternion Norm:  %5d\n", s.BadQuaternions)
		}
		if s.OutOfRange > 0 {
			result += fmt.Sprintf("  Out of Range:     %5d\n", s.OutOfRange)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
