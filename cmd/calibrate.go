// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var calibrateDuration time.Duration

var calibrateCmd = &cobra.Command{
	Use:   "calibrate <gyro|mag|height|exit>",
	Short: "Enter or exit a calibration mode",
	Long: `Switch the device into a calibration mode.

  gyro    accelerometer and gyroscope calibration (keep the device still)
  mag     magnetometer calibration (rotate the device through every axis)
  height  zero the barometric height
  exit    return to normal operation

With --duration the command waits and then exits calibration. Ctrl+C ends the
wait early and still exits calibration. With --duration 0 the device stays in
the calibration mode until 'astrolabe calibrate exit'.`,
	Example: `  astrolabe calibrate gyro --duration 5s
  astrolabe calibrate mag --duration 0
  astrolabe calibrate exit`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	calibrateCmd.Flags().DurationVarP(&calibrateDuration, "duration", "d", 5*time.Second, "Time to stay in calibration (0 = until exit)")
	rootCmd.AddCommand(calibrateCmd)
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	mode, err := jy901.ParseCalibrationMode(args[0])
	if err != nil {
		return err
	}

	d, info, err := OpenDevice()
	if err != nil {
		return err
	}
	defer d.Close()
	fmt.Printf("Connection: %s\n", info)

	if mode == jy901.CalibrationNone {
		if err := d.Calibration().Exit(); err != nil {
			return err
		}
		fmt.Println("Calibration exited")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.WithField("mode", mode).Debug("entering calibration")
	if calibrateDuration > 0 {
		fmt.Printf("Calibrating %s for %s (Ctrl+C to stop early)...\n", mode, calibrateDuration)
	}

	err = d.Calibration().EnterContext(ctx, mode, calibrateDuration)
	if errors.Is(err, context.Canceled) {
		fmt.Println("Interrupted, calibration exited")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Calibration state: %s\n", d.Calibration().State())
	return nil
}
