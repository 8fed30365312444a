// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display the UART frame stream in human-readable format",
	Long: `Continuously decode and display JY901 UART frames as they arrive.

Each frame is shown with timestamp, frame type and decoded payload. The device
must be streaming (see 'astrolabe set rate' and 'astrolabe set content').

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Astrolabe - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := jy901.NewDecoder()
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if connClosed(err) {
				log.Info("Connection closed")
				return nil
			}
			log.Warnf("Read error: %v", err)
			continue
		}

		for i := 0; i < n; i++ {
			frame, err := decoder.DecodeByte(buf[i])
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			if frame != nil {
				fmt.Print(jy901.FormatFrame(frame))
			}
		}
	}
}
