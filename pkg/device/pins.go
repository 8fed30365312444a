// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"sync"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"github.com/sirupsen/logrus"
)

// DefaultSupplyVoltage is the supply voltage assumed by ConvertStatusToVoltage
const DefaultSupplyVoltage = 3.5

// PinController drives the four D0-D3 ports and remembers the PWM period of each
type PinController struct {
	mu         sync.Mutex
	t          Transport
	profile    *Profile
	periods    [jy901.PinCount]uint16
	configured [jy901.PinCount]bool
	log        *logrus.Entry
}

// NewPinController creates a controller for the ports of profile
func NewPinController(t Transport, profile *Profile, log *logrus.Entry) *PinController {
	return &PinController{t: t, profile: profile, log: orDefault(log)}
}

func (p *PinController) check(pin uint8) error {
	if pin >= jy901.PinCount {
		return fmt.Errorf("pin %d: %w", pin, ErrInvalidPin)
	}
	if p.profile.IsPinReserved(pin) {
		return fmt.Errorf("pin %d: %w", pin, ErrPinReserved)
	}
	return nil
}

func (p *PinController) write(reg byte, data []byte) error {
	p.log.WithField("register", jy901.FormatRegister(reg)).Debugf("write % X", data)
	if err := p.t.Transmit(reg, data); err != nil {
		return fmt.Errorf("write %s: %w", jy901.FormatRegister(reg), err)
	}
	return nil
}

// SetMode selects the function of pin
func (p *PinController) SetMode(pin uint8, mode jy901.PinMode) error {
	if err := p.check(pin); err != nil {
		return err
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: pin mode 0x%02X", ErrInvalidParameter, uint8(mode))
	}
	return p.write(p.profile.Registers().PinModeBase+pin, jy901.EncodePinMode(mode))
}

// SetDigital drives pin to level (bit 0) through the digital write form of the mode register
func (p *PinController) SetDigital(pin uint8, level uint8) error {
	if err := p.check(pin); err != nil {
		return err
	}
	return p.write(p.profile.Registers().PinModeBase+pin, jy901.EncodeDigital(level))
}

// SetPWMWidth sets the high time of pin in microseconds
func (p *PinController) SetPWMWidth(pin uint8, width uint16) error {
	if err := p.check(pin); err != nil {
		return err
	}
	return p.write(p.profile.Registers().PWMWidth+pin, jy901.EncodeUint16(width))
}

// SetPWMPeriod sets the period of pin in microseconds and remembers it for SetPWMPower
func (p *PinController) SetPWMPeriod(pin uint8, period uint16) error {
	if err := p.check(pin); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(p.profile.Registers().PWMPeriod+pin, jy901.EncodeUint16(period)); err != nil {
		return err
	}
	p.periods[pin] = period
	p.configured[pin] = true
	return nil
}

// SetPWMPower sets the width of pin to duty × the last period written.
// duty is clamped to [0,1]. Returns ErrPeriodNotConfigured if no period was written.
func (p *PinController) SetPWMPower(pin uint8, duty float64) error {
	if err := p.check(pin); err != nil {
		return err
	}
	period, ok := p.Period(pin)
	if !ok {
		return fmt.Errorf("pin %d: %w", pin, ErrPeriodNotConfigured)
	}
	return p.SetPWMWidth(pin, jy901.PWMWidth(duty, period))
}

// Period returns the last period written to pin and whether one was written
func (p *PinController) Period(pin uint8) (uint16, bool) {
	if pin >= jy901.PinCount {
		return 0, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.periods[pin], p.configured[pin]
}

// Status reads all four port readings
func (p *PinController) Status() (jy901.PinStatus, error) {
	block := p.profile.Registers().PinStatus
	b, err := p.t.Receive(block.Addr, block.Width)
	if err != nil {
		return jy901.PinStatus{}, fmt.Errorf("read pin status: %w", err)
	}
	return jy901.DecodePinStatus(b)
}

// StatusOf reads the reading of a single port
func (p *PinController) StatusOf(pin uint8) (uint16, error) {
	if pin >= jy901.PinCount {
		return 0, fmt.Errorf("pin %d: %w", pin, ErrInvalidPin)
	}
	block := p.profile.Registers().PinStatusOf(pin)
	b, err := p.t.Receive(block.Addr, block.Width)
	if err != nil {
		return 0, fmt.Errorf("read pin %d status: %w", pin, err)
	}
	return jy901.DecodeUint16(b)
}

// ConvertStatusToVoltage converts an analog port reading with the device's formula.
// supply is clamped to at most DefaultSupplyVoltage.
func ConvertStatusToVoltage(status uint16, supply float64) float64 {
	if supply > DefaultSupplyVoltage {
		supply = DefaultSupplyVoltage
	}
	return float64(status) / (supply - 0.2)
}

func orDefault(log *logrus.Entry) *logrus.Entry {
	if log == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return log
}
