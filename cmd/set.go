// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change device settings",
	Long: `Change device settings.

Bus address, LED, serial baud and GPS baud changes are saved to the device
immediately. Rate and content changes take effect at once but are only kept
across power cycles after 'astrolabe set save'.`,
}

// withDevice opens the configured device, runs fn and reports success
func withDevice(fn func(d *device.Device) error, done string) error {
	d, info, err := OpenDevice()
	if err != nil {
		return err
	}
	defer d.Close()
	fmt.Printf("Connection: %s\n", info)

	if err := fn(d); err != nil {
		return err
	}
	fmt.Println(done)
	return nil
}

var setRateCmd = &cobra.Command{
	Use:     "rate <hz|single|none>",
	Short:   "Set the UART output rate",
	Example: "  astrolabe set rate 50",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := jy901.ParseRate(args[0])
		if err != nil {
			return err
		}
		return withDevice(func(d *device.Device) error { return d.SetReturnRate(r) },
			fmt.Sprintf("Output rate set to %s", r))
	},
}

// contentBits names the return content mask bits
var contentBits = map[string]uint16{
	"time":         jy901.ContentTime,
	"acceleration": jy901.ContentAcceleration,
	"gyro":         jy901.ContentAngularVel,
	"orientation":  jy901.ContentOrientation,
	"magnetic":     jy901.ContentMagnetic,
	"pins":         jy901.ContentPinStatus,
	"pressure":     jy901.ContentPressure,
	"position":     jy901.ContentPosition,
	"gps-speed":    jy901.ContentGPSSpeed,
	"quaternion":   jy901.ContentQuaternion,
	"gps-accuracy": jy901.ContentGPSAccuracy,
}

// parseContent accepts "default", a number, or a comma separated list of block names
func parseContent(s string) (uint16, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "default" {
		return jy901.ContentDefault, nil
	}
	if v, err := strconv.ParseUint(s, 0, 16); err == nil {
		return uint16(v), nil
	}
	var mask uint16
	for _, name := range strings.Split(s, ",") {
		bit, ok := contentBits[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("unknown content block %q", name)
		}
		mask |= bit
	}
	return mask, nil
}

var setContentCmd = &cobra.Command{
	Use:   "content <default|mask|block,...>",
	Short: "Select which blocks the UART streams",
	Long: `Select which blocks the UART streams.

Blocks: time, acceleration, gyro, orientation, magnetic, pins, pressure,
position, gps-speed, quaternion, gps-accuracy`,
	Example: `  astrolabe set content acceleration,gyro,orientation
  astrolabe set content 0x1E`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mask, err := parseContent(args[0])
		if err != nil {
			return err
		}
		return withDevice(func(d *device.Device) error { return d.SetReturnContent(mask) },
			fmt.Sprintf("Output content set to 0x%04X", mask))
	},
}

var setBaudCmd = &cobra.Command{
	Use:   "baud <bps>",
	Short: "Set the device UART baud rate (saved)",
	Long: `Set the device UART baud rate. The setting is saved; reconnect with the new
--baud afterwards.`,
	Example: "  astrolabe set baud 115200",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := jy901.ParseBaud(args[0])
		if err != nil {
			return err
		}
		return withDevice(func(d *device.Device) error { return d.SetSerialBaud(b) },
			fmt.Sprintf("Serial baud set to %s", b))
	},
}

var setGPSBaudCmd = &cobra.Command{
	Use:   "gps-baud <bps|none>",
	Short: "Set the GPS receiver baud rate (saved)",
	Long: `Set the baud rate of the attached GPS receiver. 'none' tells the device that
no receiver is attached and frees pin D1.`,
	Example: "  astrolabe set gps-baud 9600 --variant gps",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := jy901.ParseBaud(args[0])
		if err != nil {
			return err
		}
		return withDevice(func(d *device.Device) error { return d.SetGPSBaud(b) },
			fmt.Sprintf("GPS baud set to %s", b))
	},
}

var setLEDCmd = &cobra.Command{
	Use:       "led <on|off>",
	Short:     "Switch the status LED (saved)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return withDevice(func(d *device.Device) error { return d.SetLED(on) },
			fmt.Sprintf("LED %s", args[0]))
	},
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

var setAddressCmd = &cobra.Command{
	Use:     "address <addr>",
	Short:   "Set the I2C bus address (saved)",
	Example: "  astrolabe set address 0x51",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := strconv.ParseUint(args[0], 0, 8)
		if err != nil {
			return fmt.Errorf("invalid address %q: %w", args[0], err)
		}
		return withDevice(func(d *device.Device) error { return d.SetBusAddress(uint8(addr)) },
			fmt.Sprintf("Bus address set to 0x%02X", addr))
	},
}

var setBiasCmd = &cobra.Command{
	Use:     "bias <accel|gyro|mag> <x> <y> <z>",
	Short:   "Write raw sensor offsets",
	Example: "  astrolabe set bias gyro 0 -12 4",
	Args:    cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sensor device.BiasSensor
		switch strings.ToLower(args[0]) {
		case "accel":
			sensor = device.AccelBias
		case "gyro":
			sensor = device.GyroBias
		case "mag":
			sensor = device.MagBias
		default:
			return fmt.Errorf("unknown sensor %q (accel, gyro, mag)", args[0])
		}
		var offsets [3]int16
		for i, s := range args[1:] {
			v, err := strconv.ParseInt(s, 0, 16)
			if err != nil {
				return fmt.Errorf("invalid offset %q: %w", s, err)
			}
			offsets[i] = int16(v)
		}
		return withDevice(func(d *device.Device) error { return d.SetBias(sensor, offsets) },
			fmt.Sprintf("%s bias set to %v", args[0], offsets))
	},
}

var setSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice((*device.Device).Save, "Configuration saved")
	},
}

var setDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Restore the factory configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice((*device.Device).RestoreDefaults, "Factory configuration restored")
	},
}

func init() {
	setCmd.AddCommand(setRateCmd, setContentCmd, setBaudCmd, setGPSBaudCmd, setLEDCmd,
		setAddressCmd, setBiasCmd, setSaveCmd, setDefaultsCmd)
	rootCmd.AddCommand(setCmd)
}
