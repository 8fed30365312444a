// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"github.com/sirupsen/logrus"
)

// CalibrationState is the calibration routine currently selected on the device
type CalibrationState int

const (
	Idle CalibrationState = iota
	CalibratingGyro
	CalibratingMag
	CalibratingHeight
)

// String returns the state name
func (s CalibrationState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case CalibratingGyro:
		return "CALIBRATING_GYRO"
	case CalibratingMag:
		return "CALIBRATING_MAG"
	case CalibratingHeight:
		return "CALIBRATING_HEIGHT"
	default:
		return "UNKNOWN"
	}
}

func stateFor(mode jy901.CalibrationMode) (CalibrationState, bool) {
	switch mode {
	case jy901.CalibrationNone:
		return Idle, true
	case jy901.CalibrationGyro:
		return CalibratingGyro, true
	case jy901.CalibrationMag:
		return CalibratingMag, true
	case jy901.CalibrationHeight:
		return CalibratingHeight, true
	}
	return Idle, false
}

// CalibrationController switches the device between calibration modes.
// State changes only after the mode write succeeds.
type CalibrationController struct {
	mu    sync.Mutex
	t     Transport
	state CalibrationState
	log   *logrus.Entry
}

// NewCalibrationController creates a controller in the Idle state
func NewCalibrationController(t Transport, log *logrus.Entry) *CalibrationController {
	return &CalibrationController{t: t, log: orDefault(log)}
}

// State returns the current calibration state
func (c *CalibrationController) State() CalibrationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *CalibrationController) set(mode jy901.CalibrationMode) error {
	state, ok := stateFor(mode)
	if !ok {
		return fmt.Errorf("%w: calibration mode %d", ErrInvalidParameter, mode)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.t.Transmit(jy901.RegCalibrate, jy901.EncodeCalibration(mode)); err != nil {
		return fmt.Errorf("write calibration mode %s: %w", mode, err)
	}
	c.log.WithField("from", c.state).Debugf("calibration %s", state)
	c.state = state
	return nil
}

// Enter selects a calibration mode. With a positive interval it blocks for the
// interval and then exits calibration.
func (c *CalibrationController) Enter(mode jy901.CalibrationMode, interval time.Duration) error {
	return c.EnterContext(context.Background(), mode, interval)
}

// EnterContext behaves like Enter, but the auto-exit wait ends early when ctx is
// done. Exit is still written and ctx.Err() is returned.
func (c *CalibrationController) EnterContext(ctx context.Context, mode jy901.CalibrationMode, interval time.Duration) error {
	if err := c.set(mode); err != nil {
		return err
	}
	if interval <= 0 || mode == jy901.CalibrationNone {
		return nil
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-timer.C:
		return c.Exit()
	case <-ctx.Done():
		if err := c.Exit(); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// EnterGyro starts accelerometer and gyroscope calibration
func (c *CalibrationController) EnterGyro(interval time.Duration) error {
	return c.Enter(jy901.CalibrationGyro, interval)
}

// EnterMag starts magnetometer calibration
func (c *CalibrationController) EnterMag(interval time.Duration) error {
	return c.Enter(jy901.CalibrationMag, interval)
}

// EnterHeight zeroes the barometric height
func (c *CalibrationController) EnterHeight(interval time.Duration) error {
	return c.Enter(jy901.CalibrationHeight, interval)
}

// Exit returns the device to normal operation
func (c *CalibrationController) Exit() error {
	return c.set(jy901.CalibrationNone)
}
