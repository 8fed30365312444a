// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device models a JY901 module bound to a register transport.
//
// A Device composes a Profile (base or GPS-capable variant), a PinController and a
// CalibrationController over a single Transport, and exposes typed queries and
// configuration commands. All register encoding lives in package jy901.
package device

import (
	"errors"
	"fmt"
)

// Transport performs register-addressed writes and reads on the bus.
// Implementations serialize transactions: one write or write-then-read at a time.
type Transport interface {
	// Transmit writes data starting at register reg
	Transmit(reg byte, data []byte) error
	// Receive reads n bytes starting at register reg
	Receive(reg byte, n int) ([]byte, error)
}

var (
	// ErrInvalidParameter is the base error for rejected arguments. The device is not touched.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidPin is returned for pin identifiers outside 0-3
	ErrInvalidPin = fmt.Errorf("%w: pin out of range", ErrInvalidParameter)
	// ErrPinReserved is returned for pin 1 while the GPS receiver owns it
	ErrPinReserved = fmt.Errorf("%w: pin reserved for GPS", ErrInvalidParameter)
	// ErrPeriodNotConfigured is returned by SetPWMPower before a period was written
	ErrPeriodNotConfigured = errors.New("PWM period not configured")
)
