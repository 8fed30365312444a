// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

// ============================================================
// Simulated UART
// ============================================================

// simUART answers read requests from a register image and records commands
type simUART struct {
	image    [512]byte
	written  bytes.Buffer
	rx       []byte
	noise    []byte // streamed before every reply
	silent   bool
	readErr  error
	commands [][]byte
	hold     int    // replies to withhold until release
	held     []byte // withheld replies
	resets   int
}

func (s *simUART) Write(p []byte) (int, error) {
	s.written.Write(p)
	s.commands = append(s.commands, append([]byte(nil), p...))
	if !s.silent && len(p) == jy901.CommandSize && p[2] == jy901.RegReadAddr {
		reg := int(p[3])
		reply := jy901.NewFrame(jy901.FrameRegisters, s.image[reg*2:reg*2+jy901.FramePayload]).Bytes()
		if s.hold > 0 {
			s.hold--
			s.held = append(s.held, reply...)
			return len(p), nil
		}
		s.rx = append(s.rx, s.noise...)
		s.rx = append(s.rx, reply...)
	}
	return len(p), nil
}

func (s *simUART) Read(p []byte) (int, error) {
	if len(s.rx) == 0 {
		if s.readErr != nil {
			return 0, s.readErr
		}
		// Serial read timeout
		time.Sleep(time.Millisecond)
		return 0, nil
	}
	// Dribble a few bytes at a time
	n := copy(p, s.rx[:min(3, len(s.rx))])
	s.rx = s.rx[n:]
	return n, nil
}

// ResetInputBuffer drops everything not yet read, like a serial port purge
func (s *simUART) ResetInputBuffer() error {
	s.resets++
	s.rx = nil
	return nil
}

// release delivers withheld replies as if they arrived late
func (s *simUART) release() {
	s.rx = append(s.rx, s.held...)
	s.held = nil
}

func (s *simUART) load(reg byte, data ...byte) {
	copy(s.image[int(reg)*2:], data)
}

var _ device.Transport = (*UART)(nil)

// ============================================================
// UART Tests
// ============================================================

func TestUART_TransmitCommandFrames(t *testing.T) {
	sim := &simUART{}
	u := NewUART(sim)

	if err := u.Transmit(jy901.RegLED, []byte{jy901.LEDOff}); err != nil {
		t.Fatal(err)
	}
	if err := u.Transmit(jy901.RegPWMPeriod, []byte{0xE8, 0x03}); err != nil {
		t.Fatal(err)
	}

	want := []byte{
		0xFF, 0xAA, 0x1B, 0x01, 0x00,
		0xFF, 0xAA, 0x16, 0xE8, 0x03,
	}
	if !bytes.Equal(sim.written.Bytes(), want) {
		t.Errorf("Expected % X, got % X", want, sim.written.Bytes())
	}
}

func TestUART_TransmitSplitsRegisters(t *testing.T) {
	sim := &simUART{}
	u := NewUART(sim)

	if err := u.Transmit(jy901.RegAccelBiasX, []byte{1, 0, 2, 0, 3}); err != nil {
		t.Fatal(err)
	}
	if len(sim.commands) != 3 {
		t.Fatalf("Expected 3 commands, got %d", len(sim.commands))
	}
	if last := sim.commands[2]; !bytes.Equal(last, []byte{0xFF, 0xAA, jy901.RegAccelBiasX + 2, 3, 0}) {
		t.Errorf("Unexpected last command % X", last)
	}
}

func TestUART_Unlock(t *testing.T) {
	sim := &simUART{}
	u := NewUART(sim, WithUnlock(true))

	if err := u.Transmit(jy901.RegSave, jy901.EncodeSave()); err != nil {
		t.Fatal(err)
	}
	want := append(jy901.UnlockFrame(), 0xFF, 0xAA, 0x00, 0x00, 0x00)
	if !bytes.Equal(sim.written.Bytes(), want) {
		t.Errorf("Expected % X, got % X", want, sim.written.Bytes())
	}
}

func TestUART_Receive(t *testing.T) {
	sim := &simUART{}
	sim.load(jy901.RegOrientation, 0x00, 0x00, 0x00, 0x40, 0x00, 0xC0, 0x11, 0x22)
	u := NewUART(sim)

	b, err := u.Receive(jy901.RegOrientation, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0xC0}) {
		t.Errorf("Unexpected bytes % X", b)
	}
	if !bytes.Equal(sim.commands[0], []byte{0xFF, 0xAA, 0x27, jy901.RegOrientation, 0x00}) {
		t.Errorf("Unexpected read request % X", sim.commands[0])
	}
}

func TestUART_ReceiveMultipleRequests(t *testing.T) {
	sim := &simUART{}
	sim.load(jy901.RegTime, 24, 6, 15, 12, 30, 45, 0xF4, 0x01, 0x99, 0x00)
	u := NewUART(sim)

	b, err := u.Receive(jy901.RegTime, 9)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 9 || b[8] != 0x99 {
		t.Errorf("Unexpected bytes % X", b)
	}
	if len(sim.commands) != 2 {
		t.Fatalf("Expected 2 read requests, got %d", len(sim.commands))
	}
	if sim.commands[1][3] != jy901.RegTime+jy901.ReadReplyWords {
		t.Errorf("Second request at 0x%02X", sim.commands[1][3])
	}

	tm, err := jy901.DecodeTime(b)
	if err != nil {
		t.Fatal(err)
	}
	if tm.Year != 2024 || tm.Millisecond != 500 {
		t.Errorf("Unexpected time %v", tm)
	}
}

func TestUART_SkipsTelemetryAndGarbage(t *testing.T) {
	sim := &simUART{}
	sim.noise = append([]byte{0x00, 0x13, 0x55, 0x99}, jy901.NewFrame(jy901.FrameAcceleration, []byte{1, 2, 3, 4, 5, 6, 7, 8}).Bytes()...)
	sim.load(jy901.RegTemperature, 0xC4, 0x09)
	u := NewUART(sim)

	b, err := u.Receive(jy901.RegTemperature, 2)
	if err != nil {
		t.Fatal(err)
	}
	temp, err := jy901.DecodeTemperature(b)
	if err != nil {
		t.Fatal(err)
	}
	if temp != 25.0 {
		t.Errorf("Expected 25.0, got %v", temp)
	}
}

func TestUART_Timeout(t *testing.T) {
	sim := &simUART{silent: true}
	u := NewUART(sim, WithReplyTimeout(20*time.Millisecond))

	if _, err := u.Receive(jy901.RegTemperature, 2); !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestUART_LateReplyNotTakenForNextRead(t *testing.T) {
	sim := &simUART{hold: 1}
	sim.load(jy901.RegOrientation, 0x11, 0x11, 0x22, 0x22, 0x33, 0x33)
	sim.load(jy901.RegTemperature, 0xC4, 0x09)
	u := NewUART(sim, WithReplyTimeout(20*time.Millisecond))

	if _, err := u.Receive(jy901.RegOrientation, 6); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}

	// The orientation reply shows up after the deadline
	sim.release()

	b, err := u.Receive(jy901.RegTemperature, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0xC4, 0x09}) {
		t.Errorf("Expected C4 09, got % X", b)
	}
	if sim.resets < 2 {
		t.Errorf("Expected input reset before each request, got %d resets", sim.resets)
	}
}

func TestUART_PartialFrameDroppedAfterTimeout(t *testing.T) {
	sim := &simUART{}
	sim.load(jy901.RegTemperature, 0xC4, 0x09)
	// Stream without input reset support
	u := NewUART(struct{ io.ReadWriter }{sim}, WithReplyTimeout(20*time.Millisecond))

	// Half a reply frame, then silence
	sim.rx = append(sim.rx, 0x55, jy901.FrameRegisters, 0x11, 0x11)
	sim.silent = true
	if _, err := u.Receive(jy901.RegOrientation, 6); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}

	sim.silent = false
	b, err := u.Receive(jy901.RegTemperature, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte{0xC4, 0x09}) {
		t.Errorf("Expected C4 09, got % X", b)
	}
}

func TestUART_ReadError(t *testing.T) {
	sim := &simUART{silent: true, readErr: io.EOF}
	u := NewUART(sim)

	if _, err := u.Receive(jy901.RegTemperature, 2); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestUART_DeviceEndToEnd(t *testing.T) {
	sim := &simUART{}
	sim.load(jy901.RegPinStatus, 0xE8, 0x03, 0x00, 0x00, 0x01, 0x00, 0xFF, 0x0F)
	d := device.New(NewUART(sim), device.GpsCapable)

	status, err := d.PinStatus()
	if err != nil {
		t.Fatal(err)
	}
	if status != (jy901.PinStatus{1000, 0, 1, 4095}) {
		t.Errorf("Unexpected status %v", status)
	}

	if err := d.SetLED(true); err != nil {
		t.Fatal(err)
	}
	n := len(sim.commands)
	if !bytes.Equal(sim.commands[n-1], []byte{0xFF, 0xAA, 0x00, 0x00, 0x00}) {
		t.Errorf("Expected save command, got % X", sim.commands[n-1])
	}
}
