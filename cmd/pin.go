// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var (
	pwmPeriod  uint16
	pwmWidth   uint16
	pwmDuty    float64
	pinVoltage bool
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Control the D0-D3 ports",
	Long: `Control the four D0-D3 ports.

On the GPS variant D1 carries the GPS receiver and cannot be changed.`,
}

func parsePin(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid pin %q", s)
	}
	return uint8(v), nil
}

var pinModeCmd = &cobra.Command{
	Use:     "mode <pin> <analog|input|high|low|pwm>",
	Short:   "Select the function of a port",
	Example: "  astrolabe pin mode 2 pwm",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := parsePin(args[0])
		if err != nil {
			return err
		}
		mode, err := jy901.ParsePinMode(args[1])
		if err != nil {
			return err
		}
		return withDevice(func(d *device.Device) error { return d.Pins().SetMode(pin, mode) },
			fmt.Sprintf("D%d mode set to %s", pin, mode))
	},
}

var pinDigitalCmd = &cobra.Command{
	Use:     "digital <pin> <0|1>",
	Short:   "Drive a port low or high",
	Example: "  astrolabe pin digital 0 1",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := parsePin(args[0])
		if err != nil {
			return err
		}
		level, err := strconv.ParseUint(args[1], 10, 1)
		if err != nil {
			return fmt.Errorf("invalid level %q (0 or 1)", args[1])
		}
		return withDevice(func(d *device.Device) error { return d.Pins().SetDigital(pin, uint8(level)) },
			fmt.Sprintf("D%d driven %d", pin, level))
	},
}

var pinPWMCmd = &cobra.Command{
	Use:   "pwm <pin>",
	Short: "Configure PWM output on a port",
	Long: `Configure PWM output on a port.

--period writes the period in microseconds. Then either --width writes the high
time in microseconds, or --duty (0-1) sets the high time as a fraction of the
period written in the same invocation.`,
	Example: `  astrolabe pin pwm 2 --period 20000 --width 1500
  astrolabe pin pwm 3 --period 1000 --duty 0.25`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pin, err := parsePin(args[0])
		if err != nil {
			return err
		}
		periodSet := cmd.Flags().Changed("period")
		widthSet := cmd.Flags().Changed("width")
		dutySet := cmd.Flags().Changed("duty")
		if widthSet && dutySet {
			return fmt.Errorf("--width and --duty are mutually exclusive")
		}
		if dutySet && !periodSet {
			return fmt.Errorf("--duty requires --period")
		}
		if !periodSet && !widthSet {
			return fmt.Errorf("nothing to do: give --period, --width or --duty")
		}

		return withDevice(func(d *device.Device) error {
			if periodSet {
				if err := d.Pins().SetPWMPeriod(pin, pwmPeriod); err != nil {
					return err
				}
			}
			if widthSet {
				return d.Pins().SetPWMWidth(pin, pwmWidth)
			}
			if dutySet {
				return d.Pins().SetPWMPower(pin, pwmDuty)
			}
			return nil
		}, fmt.Sprintf("D%d PWM configured", pin))
	},
}

var pinStatusCmd = &cobra.Command{
	Use:     "status [pin]",
	Short:   "Read port readings",
	Example: "  astrolabe pin status 0 --voltage",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, info, err := OpenDevice()
		if err != nil {
			return err
		}
		defer d.Close()
		fmt.Printf("Connection: %s\n", info)

		var readings []uint16
		first := uint8(0)
		if len(args) == 1 {
			pin, err := parsePin(args[0])
			if err != nil {
				return err
			}
			v, err := d.Pins().StatusOf(pin)
			if err != nil {
				return err
			}
			readings = []uint16{v}
			first = pin
		} else {
			status, err := d.PinStatus()
			if err != nil {
				return err
			}
			readings = status[:]
		}

		for i, v := range readings {
			if pinVoltage {
				fmt.Printf("  D%d: %d (%.3f V)\n", int(first)+i, v, device.ConvertStatusToVoltage(v, opt.Device.SupplyVoltage))
			} else {
				fmt.Printf("  D%d: %d\n", int(first)+i, v)
			}
		}
		return nil
	},
}

func init() {
	pinPWMCmd.Flags().Uint16Var(&pwmPeriod, "period", 0, "PWM period in microseconds")
	pinPWMCmd.Flags().Uint16Var(&pwmWidth, "width", 0, "PWM high time in microseconds")
	pinPWMCmd.Flags().Float64Var(&pwmDuty, "duty", 0, "PWM duty rate (0-1)")
	pinStatusCmd.Flags().BoolVar(&pinVoltage, "voltage", false, "Also print the converted voltage")

	pinCmd.AddCommand(pinModeCmd, pinDigitalCmd, pinPWMCmd, pinStatusCmd)
	rootCmd.AddCommand(pinCmd)
}
