// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/astrolabe/internal/config"
	"github.com/spf13/cobra"
)

// opt holds the merged configuration once PersistentPreRunE has run
var opt = config.NewAstrolabeOpt()

var rootCmd = &cobra.Command{
	Use:   "astrolabe",
	Short: "JY901 IMU/GPS/Barometer Tool",
	Long: `Astrolabe - A CLI tool for reading, configuring and monitoring JY901 9-axis
attitude sensors, including the GPS-capable variant.

Provides one-shot register queries, calibration, pin and PWM control, UART frame
logging and error detection, interactive dashboards, and an HTTP control surface.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --transport websocket --url ws://host/path [--username user]
  I2C:       --transport i2c [--bus 1] [--address 0x50]
  embd I2C:  --transport embd [--bus 1] [--address 0x50]

Settings are read from (in order of precedence) flags, ASTROLABE_* environment
variables, and the config file ($HOME/.config/astrolabe/config.yaml,
/etc/astrolabe/config.yaml, ./config.yaml, or --config / ASTROLABE_CONFIG).

For WebSocket authentication, the password is read from the ASTROLABE_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.String("config", "", "Configuration file path")
	pf.Bool("debug", false, "Enable debug logging")
	pf.StringP("transport", "t", config.DefaultTransport, "Transport: serial, websocket, i2c or embd")
	pf.String("variant", config.DefaultVariant, "Device variant: base or gps")

	// Serial connection flags
	pf.StringP("port", "p", "", "Serial port device")
	pf.IntP("baud", "b", config.DefaultBaud, "Baud rate (serial only)")
	pf.Bool("unlock", false, "Send the unlock command before register writes (serial only)")

	// WebSocket connection flags
	pf.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	pf.String("username", "", "Username for HTTP Basic auth")
	pf.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// I2C connection flags
	pf.String("bus", "", "I2C bus name or number")
	pf.Int("address", config.DefaultI2CAddress, "I2C device address")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	desc := config.NewAstrolabeDesc()
	if err := desc.Parse(cmd); err != nil {
		return err
	}
	desc.PostParse()
	opt = desc.Opt
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
