// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"sync"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
)

// RegisterBus is the register access subset of embd.I2CBus
type RegisterBus interface {
	WriteToReg(addr, reg byte, value []byte) error
	ReadFromReg(addr, reg byte, value []byte) error
}

// Embd talks to the register file through an embd I2C bus
type Embd struct {
	mu     sync.Mutex
	bus    RegisterBus
	addr   byte
	closer func() error
}

// NewEmbd binds addr on bus
func NewEmbd(bus RegisterBus, addr byte) *Embd {
	return &Embd{bus: bus, addr: addr}
}

// OpenEmbd initializes embd's I2C driver and binds addr on bus number l
func OpenEmbd(l byte, addr byte) (*Embd, error) {
	if err := embd.InitI2C(); err != nil {
		return nil, fmt.Errorf("failed to initialize I2C: %w", err)
	}
	t := NewEmbd(embd.NewI2CBus(l), addr)
	t.closer = embd.CloseI2C
	return t, nil
}

// Transmit writes data starting at reg
func (t *Embd) Transmit(reg byte, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.bus.WriteToReg(t.addr, reg, data); err != nil {
		return fmt.Errorf("embd write 0x%02X@0x%02X: %w", reg, t.addr, err)
	}
	return nil
}

// Receive reads n bytes starting at reg
func (t *Embd) Receive(reg byte, n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := make([]byte, n)
	if err := t.bus.ReadFromReg(t.addr, reg, r); err != nil {
		return nil, fmt.Errorf("embd read 0x%02X@0x%02X: %w", reg, t.addr, err)
	}
	return r, nil
}

// Close releases the embd I2C driver if OpenEmbd initialized it
func (t *Embd) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer()
}
