// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package jy901

import "fmt"

// Block is a contiguous run of registers read in one transaction.
// Width is the number of bytes requested from the bus.
type Block struct {
	Addr  byte
	Width int
}

// Axis returns the single-register block for axis i (0=x, 1=y, 2=z) of a vector block
func (b Block) Axis(i int) Block {
	return Block{Addr: b.Addr + byte(i), Width: RegisterWidth}
}

// String returns the block as "0xNN[width]"
func (b Block) String() string {
	return fmt.Sprintf("0x%02X[%d]", b.Addr, b.Width)
}

// RegisterMap fixes the register addresses a device profile talks to.
type RegisterMap struct {
	Time            Block
	Acceleration    Block
	AngularVelocity Block
	Magnetic        Block
	Orientation     Block
	Temperature     Block
	PinStatus       Block
	Pressure        Block
	Position        Block
	Quaternion      Block

	PinModeBase byte
	PWMWidth    byte
	PWMPeriod   byte
}

// DefaultRegisterMap is the register layout of the JY901 family
var DefaultRegisterMap = RegisterMap{
	Time:            Block{RegTime, 9},
	Acceleration:    Block{RegAcceleration, 6},
	AngularVelocity: Block{RegAngularVel, 6},
	Magnetic:        Block{RegMagnetic, 6},
	Orientation:     Block{RegOrientation, 6},
	Temperature:     Block{RegTemperature, 2},
	PinStatus:       Block{RegPinStatus, 8},
	Pressure:        Block{RegPressure, 9},
	Position:        Block{RegPosition, 9},
	Quaternion:      Block{RegQuaternion, 8},

	PinModeBase: RegPinModeBase,
	PWMWidth:    RegPWMWidth,
	PWMPeriod:   RegPWMPeriod,
}

// PinStatusOf returns the single-register block holding the reading of pin
func (m RegisterMap) PinStatusOf(pin uint8) Block {
	return Block{Addr: m.PinStatus.Addr + pin, Width: RegisterWidth}
}
