// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"sync"

	"tinygo.org/x/drivers"
)

// TinyGo talks to the register file over a TinyGo drivers.I2C bus,
// so the device package runs on microcontrollers as well
type TinyGo struct {
	mu   sync.Mutex
	bus  drivers.I2C
	addr uint16
}

// NewTinyGo binds addr on a configured bus
func NewTinyGo(bus drivers.I2C, addr uint16) *TinyGo {
	return &TinyGo{bus: bus, addr: addr}
}

// Transmit writes data starting at reg
func (t *TinyGo) Transmit(reg byte, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := append([]byte{reg}, data...)
	if err := t.bus.Tx(t.addr, w, nil); err != nil {
		return fmt.Errorf("i2c write 0x%02X@0x%02X: %w", reg, t.addr, err)
	}
	return nil
}

// Receive reads n bytes starting at reg
func (t *TinyGo) Receive(reg byte, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := make([]byte, n)
	if err := t.bus.Tx(t.addr, []byte{reg}, r); err != nil {
		return nil, fmt.Errorf("i2c read 0x%02X@0x%02X: %w", reg, t.addr, err)
	}
	return r, nil
}
