// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var linkCheckDuration int

var linkCheckCmd = &cobra.Command{
	Use:   "link_check",
	Short: "Test connection stability without sending anything",
	Long: `Listen on the UART stream for a fixed time and report what arrives.

Nothing is written to the device. Useful for debugging WebSocket bridge
stability or a flaky serial cable while the module is streaming.

Exit codes:
  0 - Test completed normally
  1 - Connection failed during the test
  2 - Connection error`,
	RunE: runLinkCheck,
}

func init() {
	rootCmd.AddCommand(linkCheckCmd)
	linkCheckCmd.Flags().IntVar(&linkCheckDuration, "duration", 30, "Test duration in seconds")
}

func runLinkCheck(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Astrolabe - Link Stability Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Duration: %d seconds\n\n", linkCheckDuration)

	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				readChan <- data
			}
		}
	}()

	start := time.Now()
	endTime := start.Add(time.Duration(linkCheckDuration) * time.Second)
	decoder := jy901.NewDecoder()
	bytesReceived := 0
	framesReceived := 0
	badFrames := 0

	results := func(result string) {
		fmt.Printf("\n--- Test Results ---\n")
		fmt.Printf("Duration: %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("Bytes received: %d\n", bytesReceived)
		fmt.Printf("Valid frames: %d\n", framesReceived)
		fmt.Printf("Bad frames: %d\n", badFrames)
		fmt.Printf("Result: %s\n", result)
	}

	fmt.Printf("Listening for data...\n\n")

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			bytesReceived += len(data)
			for _, b := range data {
				frame, err := decoder.DecodeByte(b)
				if err != nil {
					badFrames++
				} else if frame != nil {
					framesReceived++
				}
			}

		case err := <-errChan:
			fmt.Printf("\n[%s] Connection error: %v\n", time.Now().Format("15:04:05.000"), err)
			results("FAILED (connection error)")
			os.Exit(1)

		case <-heartbeat.C:
			fmt.Printf("[%s] Still connected... %d bytes, %d frames (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), bytesReceived, framesReceived, time.Until(endTime).Seconds())
		}
	}

	results("PASSED (connection stable)")
	return nil
}
