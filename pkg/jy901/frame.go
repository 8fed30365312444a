// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import (
	"errors"
	"time"
)

// UART framing
const (
	FrameHeader    = 0x55
	FrameSize      = 11
	FramePayload   = 8
	CommandHeader1 = 0xFF
	CommandHeader2 = 0xAA
	CommandSize    = 5
	ReadReplyWords = 4 // registers returned by one read request
)

// Frame types streamed by the device on its UART
const (
	FrameTime         = 0x50
	FrameAcceleration = 0x51
	FrameAngularVel   = 0x52
	FrameOrientation  = 0x53
	FrameMagnetic     = 0x54
	FramePinStatus    = 0x55
	FramePressure     = 0x56
	FramePosition     = 0x57
	FrameGPSSpeed     = 0x58
	FrameQuaternion   = 0x59
	FrameGPSAccuracy  = 0x5A
	FrameRegisters    = 0x5F // reply to a register read request
)

var (
	// ErrChecksum is returned when a frame's sum byte does not match its contents
	ErrChecksum = errors.New("frame checksum mismatch")
	// ErrUnknownFrame is returned for a type byte outside 0x50-0x5F
	ErrUnknownFrame = errors.New("unknown frame type")
)

// Frame is one decoded UART frame
type Frame struct {
	Type      uint8
	Data      [FramePayload]byte
	Sum       uint8
	Timestamp time.Time
}

// NewFrame builds a frame with a valid checksum
func NewFrame(frameType uint8, data []byte) *Frame {
	f := &Frame{Type: frameType, Timestamp: time.Now()}
	copy(f.Data[:], data)
	f.Sum = Checksum(f.header())
	return f
}

func (f *Frame) header() []byte {
	b := make([]byte, 0, FrameSize-1)
	b = append(b, FrameHeader, f.Type)
	return append(b, f.Data[:]...)
}

// Bytes returns the 11-byte wire form
func (f *Frame) Bytes() []byte {
	return append(f.header(), f.Sum)
}

// Checksum is the low byte of the sum of b
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum
}

// ValidFrameType reports whether t is a frame type this package understands
func ValidFrameType(t uint8) bool {
	return (t >= FrameTime && t <= FrameGPSAccuracy) || t == FrameRegisters
}

// CommandFrame builds a register write command: FF AA reg lo hi.
// Payloads shorter than a register are zero padded.
func CommandFrame(reg byte, data []byte) []byte {
	var lo, hi byte
	if len(data) > 0 {
		lo = data[0]
	}
	if len(data) > 1 {
		hi = data[1]
	}
	return []byte{CommandHeader1, CommandHeader2, reg, lo, hi}
}

// ReadFrame builds the request for four registers starting at reg.
// The device answers with a FrameRegisters frame.
func ReadFrame(reg byte) []byte {
	return CommandFrame(RegReadAddr, []byte{reg, 0x00})
}

// UnlockFrame enables configuration writes on firmware that requires it
func UnlockFrame() []byte {
	return CommandFrame(RegKey, []byte{0x88, 0xB5})
}

// Decoder states
const (
	stateHeader = iota
	stateType
	statePayload
	stateSum
)

// Decoder implements the UART frame decoder state machine
type Decoder struct {
	state int
	frame Frame
	index int
}

// NewDecoder creates a decoder waiting for a frame header
func NewDecoder() *Decoder {
	return &Decoder{state: stateHeader}
}

// Reset drops any partial frame
func (d *Decoder) Reset() {
	d.state = stateHeader
	d.index = 0
	d.frame = Frame{}
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if the frame is incomplete.
// Returns an error for an unknown type or a checksum mismatch.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	switch d.state {
	case stateHeader:
		if b == FrameHeader {
			d.state = stateType
		}
		return nil, nil

	case stateType:
		if !ValidFrameType(b) {
			d.Reset()
			return nil, ErrUnknownFrame
		}
		d.frame.Type = b
		d.index = 0
		d.state = statePayload
		return nil, nil

	case statePayload:
		d.frame.Data[d.index] = b
		d.index++
		if d.index >= FramePayload {
			d.state = stateSum
		}
		return nil, nil

	case stateSum:
		frame := d.frame
		frame.Sum = b
		d.Reset()
		if Checksum(frame.header()) != b {
			return nil, ErrChecksum
		}
		frame.Timestamp = time.Now()
		return &frame, nil

	default:
		d.Reset()
		return nil, nil
	}
}

// Decode feeds buf through the decoder and returns every completed frame.
// Decode errors are collected rather than aborting the scan.
func (d *Decoder) Decode(buf []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range buf {
		f, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if f != nil {
			frames = append(frames, f)
		}
	}
	return frames, errs
}
