// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/transport"
)

var (
	discoveryTimeout time.Duration
	discoveryAllBaud bool
)

// discoveryBauds are tried in order; the factory rates come first
var discoveryBauds = []int{9600, 115200, 230400, 460800, 921600, 57600, 38400, 19200, 4800, 2400}

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find JY901 modules on serial ports or an I2C bus",
	Long: `Probe for JY901 modules by reading the temperature register.

Modes:
  Serial (default): every serial port (or only --port) is opened at each
                    candidate baud rate (or only --baud unless --all-baud) and
                    sent a register read request.

  I2C (--transport i2c): every 7-bit address on --bus is asked for the
                    temperature register; modules acknowledge and answer.

Exit codes:
  0 - Discovery successful (at least one module found)
  1 - No module found
  2 - Bus or port enumeration error`,
	SuggestFor: []string{"probe", "scan"},
	RunE:       runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().DurationVar(&discoveryTimeout, "timeout", 300*time.Millisecond, "Reply timeout per port, baud rate or address")
	discoveryCmd.Flags().BoolVar(&discoveryAllBaud, "all-baud", false, "Try every baud rate even when --baud is given")
}

// discoveryResult describes one module that answered
type discoveryResult struct {
	location    string
	temperature float64
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	fmt.Printf("Astrolabe - Module Discovery\n")
	fmt.Printf("Timeout: %s per probe\n\n", discoveryTimeout)

	var (
		found []discoveryResult
		err   error
	)
	if opt.Transport == "i2c" {
		found, err = discoverI2C()
	} else {
		found, err = discoverSerial(cmd.Flags().Changed("baud") && !discoveryAllBaud)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Modules found: %d\n", len(found))
	for _, r := range found {
		fmt.Printf("  %s (%.2f°C)\n", r.location, r.temperature)
	}
	if len(found) == 0 {
		fmt.Printf("No modules discovered. Check wiring and device power.\n")
		os.Exit(1)
	}
	return nil
}

// probeStream reports whether a JY901 answers a register read on rw
func probeStream(rw io.ReadWriter, timeout time.Duration) (float64, bool) {
	u := transport.NewUART(rw, transport.WithReplyTimeout(timeout))
	d := device.New(u, device.Base)
	temp, err := d.Temperature()
	if err != nil {
		log.Debugf("probe: %v", err)
		return 0, false
	}
	return temp, true
}

func discoverSerial(onlyConfiguredBaud bool) ([]discoveryResult, error) {
	ports := []string{opt.Serial.Port}
	if opt.Serial.Port == "" {
		var err error
		if ports, err = transport.ListSerialPorts(); err != nil {
			return nil, err
		}
	}
	bauds := discoveryBauds
	if onlyConfiguredBaud {
		bauds = []int{opt.Serial.Baud}
	}

	var found []discoveryResult
	for _, port := range ports {
		for _, baud := range bauds {
			fmt.Printf("Probing %s @ %d baud...\n", port, baud)
			conn, err := transport.OpenSerial(port, baud)
			if err != nil {
				log.Debugf("skip %s: %v", port, err)
				break
			}
			temp, ok := probeStream(conn, discoveryTimeout)
			conn.Close()
			if ok {
				loc := fmt.Sprintf("Serial: %s @ %d baud", port, baud)
				fmt.Printf("Module found: %s\n", loc)
				found = append(found, discoveryResult{location: loc, temperature: temp})
				break
			}
		}
	}
	return found, nil
}

// addressable is a register transport that can be moved between bus addresses
type addressable interface {
	device.Transport
	SetAddress(addr uint16)
}

// scanAddresses reads the temperature register at every address and returns those that answer
func scanAddresses(t addressable, addrs []uint16) []discoveryResult {
	d := device.New(t, device.Base)
	var found []discoveryResult
	for _, addr := range addrs {
		t.SetAddress(addr)
		temp, err := d.Temperature()
		if err != nil {
			continue
		}
		found = append(found, discoveryResult{
			location:    fmt.Sprintf("I2C address 0x%02X", addr),
			temperature: temp,
		})
	}
	return found
}

func discoverI2C() ([]discoveryResult, error) {
	t, err := transport.OpenI2C(opt.I2C.Bus, transport.DefaultAddress)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	fmt.Printf("Scanning %s...\n", t)

	// Addresses 0x00-0x07 and 0x78-0x7F are reserved by the I2C specification
	addrs := make([]uint16, 0, 0x70)
	for a := uint16(0x08); a < 0x78; a++ {
		addrs = append(addrs, a)
	}
	found := scanAddresses(t, addrs)
	for _, r := range found {
		fmt.Printf("Module found: %s\n", r.location)
	}
	return found, nil
}
