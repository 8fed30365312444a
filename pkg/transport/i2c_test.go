// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

var (
	_ device.Transport = (*I2C)(nil)
	_ device.Transport = (*Embd)(nil)
	_ device.Transport = (*TinyGo)(nil)
)

// ============================================================
// periph I2C Tests
// ============================================================

func TestI2C_Playback(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddress, W: []byte{jy901.RegOrientation}, R: []byte{0x00, 0x00, 0x00, 0x40, 0x00, 0x00}},
			{Addr: DefaultAddress, W: []byte{jy901.RegPWMPeriod + 2, 0xE8, 0x03}},
			{Addr: DefaultAddress, W: []byte{jy901.RegPWMWidth + 2, 0xF4, 0x01}},
		},
		DontPanic: true,
	}
	d := device.New(NewI2C(bus, DefaultAddress), device.Base)

	o, err := d.Orientation()
	if err != nil {
		t.Fatalf("Orientation: %v", err)
	}
	if math.Abs(o.Pitch-math.Pi/2) > 1e-9 {
		t.Errorf("Expected pitch π/2, got %v", o.Pitch)
	}

	if err := d.Pins().SetPWMPeriod(2, 1000); err != nil {
		t.Fatalf("SetPWMPeriod: %v", err)
	}
	if err := d.Pins().SetPWMPower(2, 0.5); err != nil {
		t.Fatalf("SetPWMPower: %v", err)
	}

	if err := bus.Close(); err != nil {
		t.Errorf("Playback not fully consumed: %v", err)
	}
}

func TestI2C_SetAddress(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddress, W: []byte{jy901.RegAddress, 0x51}},
			{Addr: DefaultAddress, W: []byte{jy901.RegSave, 0x00, 0x00}},
			{Addr: 0x51, W: []byte{jy901.RegTemperature}, R: []byte{0xC4, 0x09}},
		},
		DontPanic: true,
	}
	tr := NewI2C(bus, DefaultAddress)
	d := device.New(tr, device.Base)

	if err := d.SetBusAddress(0x51); err != nil {
		t.Fatalf("SetBusAddress: %v", err)
	}
	tr.SetAddress(0x51)

	temp, err := d.Temperature()
	if err != nil {
		t.Fatalf("Temperature: %v", err)
	}
	if temp != 25.0 {
		t.Errorf("Expected 25.0, got %v", temp)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("Playback not fully consumed: %v", err)
	}
}

func TestI2C_BusErrorWrapped(t *testing.T) {
	// Unexpected transaction: playback returns an error instead of panicking
	bus := &i2ctest.Playback{DontPanic: true}
	d := device.New(NewI2C(bus, DefaultAddress), device.Base)

	if _, err := d.Temperature(); err == nil {
		t.Error("Expected bus error")
	}
}

// ============================================================
// embd Tests
// ============================================================

type regWrite struct {
	addr, reg byte
	value     []byte
}

// fakeRegisterBus serves reads from a register image
type fakeRegisterBus struct {
	image  [256]byte
	writes []regWrite
	err    error
}

func (f *fakeRegisterBus) WriteToReg(addr, reg byte, value []byte) error {
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, regWrite{addr, reg, append([]byte(nil), value...)})
	return nil
}

func (f *fakeRegisterBus) ReadFromReg(addr, reg byte, value []byte) error {
	if f.err != nil {
		return f.err
	}
	copy(value, f.image[int(reg)*2%len(f.image):])
	return nil
}

func TestEmbd_ReadWrite(t *testing.T) {
	bus := &fakeRegisterBus{}
	copy(bus.image[int(jy901.RegPressure)*2:], []byte{0xA0, 0x86, 0x01, 0x00, 0x64, 0x00, 0x00, 0x00})
	d := device.New(NewEmbd(bus, 0x50), device.Base)

	ph, err := d.PressureHeight()
	if err != nil {
		t.Fatalf("PressureHeight: %v", err)
	}
	if ph.Pressure != 100000 || ph.Height != 100 {
		t.Errorf("Unexpected %+v", ph)
	}

	if err := d.Calibration().EnterHeight(0); err != nil {
		t.Fatalf("EnterHeight: %v", err)
	}
	if len(bus.writes) != 1 {
		t.Fatalf("Expected 1 write, got %d", len(bus.writes))
	}
	w := bus.writes[0]
	if w.addr != 0x50 || w.reg != jy901.RegCalibrate || !bytes.Equal(w.value, []byte{0x03, 0x00}) {
		t.Errorf("Unexpected write %+v", w)
	}
}

func TestEmbd_ErrorWrapped(t *testing.T) {
	busErr := errors.New("remote I/O error")
	d := device.New(NewEmbd(&fakeRegisterBus{err: busErr}, 0x50), device.Base)

	if err := d.Save(); !errors.Is(err, busErr) {
		t.Errorf("Expected wrapped bus error, got %v", err)
	}
}

// ============================================================
// TinyGo Tests
// ============================================================

type tx struct {
	addr uint16
	w    []byte
}

// fakeTinyGoBus records transactions and answers reads with a fixed pattern
type fakeTinyGoBus struct {
	txs  []tx
	read []byte
}

func (f *fakeTinyGoBus) Tx(addr uint16, w, r []byte) error {
	f.txs = append(f.txs, tx{addr, append([]byte(nil), w...)})
	copy(r, f.read)
	return nil
}

func (f *fakeTinyGoBus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return f.Tx(uint16(addr), []byte{reg}, buf)
}

func (f *fakeTinyGoBus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	return f.Tx(uint16(addr), append([]byte{reg}, buf...), nil)
}

func TestTinyGo_ReadWrite(t *testing.T) {
	bus := &fakeTinyGoBus{read: []byte{0xFF, 0x7F, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}}
	d := device.New(NewTinyGo(bus, DefaultAddress), device.Base)

	q, err := d.Quaternion()
	if err != nil {
		t.Fatalf("Quaternion: %v", err)
	}
	if math.Abs(q.Q0-32767.0/32768.0) > 1e-9 {
		t.Errorf("Unexpected q0 %v", q.Q0)
	}

	if err := d.SetReturnRate(jy901.Rate50Hz); err != nil {
		t.Fatalf("SetReturnRate: %v", err)
	}

	if len(bus.txs) != 2 {
		t.Fatalf("Expected 2 transactions, got %d", len(bus.txs))
	}
	if !bytes.Equal(bus.txs[0].w, []byte{jy901.RegQuaternion}) {
		t.Errorf("Unexpected read address % X", bus.txs[0].w)
	}
	if !bytes.Equal(bus.txs[1].w, []byte{jy901.RegRate, byte(jy901.Rate50Hz), 0x00}) {
		t.Errorf("Unexpected rate write % X", bus.txs[1].w)
	}
}
