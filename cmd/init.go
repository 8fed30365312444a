// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/internal/config"
)

var initCmd = &cobra.Command{
	Use:        "init",
	SuggestFor: []string{"ini", "in"},
	Short:      "Create a configuration template",
	Long: `Create a configuration template.
The template holds the current settings: defaults merged with any config file,
environment variables and flags given to this command.
If --print is present, the configuration is printed to stdout.
If --output / -o is present, the configuration is saved to that path,
otherwise to $HOME/.config/astrolabe/config.yaml.
If --yes / -y is present, an existing file is overwritten without confirmation.`,
	Example: `  astrolabe init --print
  astrolabe init --port /dev/ttyUSB0 --baud 9600 -y
  astrolabe init -o ./config.yaml`,
	RunE: config.InitCfg,
}

func init() {
	initCmd.Flags().Bool("print", false, "Print config to stdout")
	initCmd.Flags().BoolP("yes", "y", false, "Overwrite without confirmation")
	initCmd.Flags().StringP("output", "o", config.DefaultConfig, "Output path")
	rootCmd.AddCommand(initCmd)
}
