// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/device"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure register read round trips",
	Long: `Read the temperature register repeatedly and report the round trip time.

Works over every transport. Over a WebSocket bridge this tests the whole chain:
authentication, the bridge and the module's UART.

Exit codes:
  0 - All reads answered
  1 - One or more reads failed or timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 3, "Number of reads")
	pingCmd.Flags().DurationVar(&pingInterval, "interval", 100*time.Millisecond, "Delay between reads")
}

// pingResult summarizes a ping run
type pingResult struct {
	sent     int
	received int
	min      time.Duration
	max      time.Duration
	total    time.Duration
}

func (r pingResult) loss() float64 {
	if r.sent == 0 {
		return 0
	}
	return float64(r.sent-r.received) / float64(r.sent) * 100
}

func (r pingResult) avg() time.Duration {
	if r.received == 0 {
		return 0
	}
	return r.total / time.Duration(r.received)
}

// pingDevice reads the temperature count times, printing one line per read
func pingDevice(d *device.Device, count int, interval time.Duration) pingResult {
	var r pingResult
	for i := 1; i <= count; i++ {
		fmt.Printf("Read %d/%d: ", i, count)
		r.sent++

		start := time.Now()
		temp, err := d.Temperature()
		rtt := time.Since(start)
		if err != nil {
			fmt.Printf("FAILED: %v\n", err)
		} else {
			fmt.Printf("%.2f°C, rtt=%v\n", temp, rtt.Round(time.Microsecond))
			r.received++
			r.total += rtt
			if r.min == 0 || rtt < r.min {
				r.min = rtt
			}
			if rtt > r.max {
				r.max = rtt
			}
		}

		if i < count {
			time.Sleep(interval)
		}
	}
	return r
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}

	d, connInfo, err := OpenDevice()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer d.Close()

	fmt.Printf("Astrolabe - Register Ping\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Count: %d reads\n\n", pingCount)

	r := pingDevice(d, pingCount, pingInterval)

	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d reads sent, %d answered, %.0f%% loss\n", r.sent, r.received, r.loss())
	if r.received > 0 {
		fmt.Printf("rtt min/avg/max = %v/%v/%v\n",
			r.min.Round(time.Microsecond), r.avg().Round(time.Microsecond), r.max.Round(time.Microsecond))
	}

	if r.received < r.sent {
		os.Exit(1)
	}
	return nil
}
