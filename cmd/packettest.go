// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"github.com/Thermoquad/astrolabe/pkg/transport"
)

var (
	packetTestTimeout int
	packetTestProbe   bool
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid JY901 frame",
	Long: `Wait for a valid JY901 frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any valid
frame. It ignores invalid bytes and waits for a complete frame passing the
checksum. With --probe a register read request for the temperature is sent
first, so a device that is not streaming still answers.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for finding the baud rate of a device or testing a WebSocket bridge.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
	packetTestCmd.Flags().BoolVar(&packetTestProbe, "probe", true, "Send a register read request before waiting")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Astrolabe - Frame Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)

	if packetTestProbe {
		if _, err := conn.Write(jy901.ReadFrame(jy901.RegTemperature)); err != nil {
			fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
			os.Exit(2)
		}
	}
	fmt.Printf("Waiting for valid JY901 frame...\n\n")

	frameChan := make(chan *jy901.Frame, 1)
	errChan := make(chan error, 1)
	go waitForFrame(conn, frameChan, errChan)

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Type: %s (0x%02X)\n", jy901.FormatFrameType(frame.Type), frame.Type)
		fmt.Printf("  Data: % X\n", frame.Data)
		fmt.Printf("  Checksum: 0x%02X\n", frame.Sum)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(packetTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}

// waitForFrame reads until the first valid frame and sends it on frames
func waitForFrame(conn transport.Conn, frames chan<- *jy901.Frame, errs chan<- error) {
	decoder := jy901.NewDecoder()
	buf := make([]byte, 128)
	invalidFrames := 0
	for {
		n, err := conn.Read(buf)
		if err != nil {
			errs <- err
			return
		}

		for i := 0; i < n; i++ {
			frame, decodeErr := decoder.DecodeByte(buf[i])
			if decodeErr != nil {
				invalidFrames++
				continue
			}
			if frame != nil {
				if invalidFrames > 0 {
					fmt.Printf("(skipped %d invalid frames before sync)\n", invalidFrames)
				}
				frames <- frame
				return
			}
		}
	}
}
