// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"sync"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultAddress is the factory I2C address of the JY901
const DefaultAddress uint16 = jy901.DefaultDeviceAddr

// I2C talks to the register file over a periph I2C bus.
// A write is reg followed by the payload; a read writes reg and reads n bytes.
type I2C struct {
	mu  sync.Mutex
	dev i2c.Dev
	bus i2c.BusCloser
}

// NewI2C binds addr on an already opened bus
func NewI2C(bus i2c.Bus, addr uint16) *I2C {
	return &I2C{dev: i2c.Dev{Bus: bus, Addr: addr}}
}

// OpenI2C initializes the host drivers and opens the named bus ("" for the first one)
func OpenI2C(busName string, addr uint16) (*I2C, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %q: %w", busName, err)
	}
	t := NewI2C(bus, addr)
	t.bus = bus
	return t, nil
}

// Transmit writes data starting at reg
func (t *I2C) Transmit(reg byte, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := append([]byte{reg}, data...)
	if err := t.dev.Tx(w, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X@0x%02X: %w", reg, t.dev.Addr, err)
	}
	return nil
}

// Receive reads n bytes starting at reg
func (t *I2C) Receive(reg byte, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := make([]byte, n)
	if err := t.dev.Tx([]byte{reg}, r); err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X@0x%02X: %w", reg, t.dev.Addr, err)
	}
	return r, nil
}

// SetAddress moves the transport to a new device address
func (t *I2C) SetAddress(addr uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev.Addr = addr
}

// String returns the bus and address
func (t *I2C) String() string {
	return fmt.Sprintf("%s@0x%02X", t.dev.Bus, t.dev.Addr)
}

// Close closes the bus if OpenI2C opened it
func (t *I2C) Close() error {
	if t.bus == nil {
		return nil
	}
	return t.bus.Close()
}
