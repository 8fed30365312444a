// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

// Variant selects the device configuration
type Variant string

const (
	Base       Variant = "base"
	GpsCapable Variant = "gps"
)

// GPSPin is the port wired to the GPS receiver on GPS-capable modules
const GPSPin = 1

// ParseVariant accepts "base" or "gps"
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case Base, "":
		return Base, nil
	case GpsCapable, "gps-capable":
		return GpsCapable, nil
	}
	return "", fmt.Errorf("%w: unknown variant %q (base, gps)", ErrInvalidParameter, s)
}

// Profile fixes the register table and pin reservation policy of a device.
// It is immutable except that GPS can be switched off once.
type Profile struct {
	variant Variant
	regs    jy901.RegisterMap
	gps     atomic.Bool
}

// NewProfile creates a profile for variant using the default register map
func NewProfile(variant Variant) *Profile {
	return NewProfileWithRegisters(variant, jy901.DefaultRegisterMap)
}

// NewProfileWithRegisters creates a profile with an explicit register table
func NewProfileWithRegisters(variant Variant, regs jy901.RegisterMap) *Profile {
	p := &Profile{variant: variant, regs: regs}
	p.gps.Store(variant == GpsCapable)
	return p
}

// Variant returns the variant the profile was created for
func (p *Profile) Variant() Variant {
	return p.variant
}

// HasGPS reports whether the GPS receiver is in use
func (p *Profile) HasGPS() bool {
	return p.gps.Load()
}

// IsPinReserved is true only for the GPS pin while GPS is enabled
func (p *Profile) IsPinReserved(pin uint8) bool {
	return pin == GPSPin && p.HasGPS()
}

// Registers returns the register table
func (p *Profile) Registers() jy901.RegisterMap {
	return p.regs
}

func (p *Profile) disableGPS() {
	p.gps.Store(false)
}

// String returns the variant name
func (p *Profile) String() string {
	if p.variant == GpsCapable && !p.HasGPS() {
		return string(p.variant) + " (gps disabled)"
	}
	return string(p.variant)
}
