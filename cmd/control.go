// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var (
	controlPollInterval time.Duration
	controlMaxFailures  int
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for configuring a JY901",
	Long: `Monitor and configure a JY901 via an interactive terminal UI.

The device is polled through its register map, so streaming does not need to be
enabled. Works over every transport (serial, websocket, i2c, embd).

Features:
  - Live orientation, motion and environment readings
  - Output rate, LED and calibration commands
  - D0-D3 port mode and PWM control
  - Poll statistics and event logging
  - Automatic reconnection on connection loss

Tab switches between the action list and the argument input. Enter runs the
selected action.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().DurationVar(&controlPollInterval, "poll", 250*time.Millisecond, "Interval between register polls")
	controlCmd.Flags().IntVar(&controlMaxFailures, "max-failures", 3, "Consecutive poll failures before reconnecting")
}

// connectionManager owns the device handle and reconnects it when polling fails
type connectionManager struct {
	dev      *device.Device
	connInfo string
	mu       sync.Mutex
	p        *tea.Program
	done     chan struct{}
	open     func() (*device.Device, string, error)
}

var errNotConnected = errors.New("not connected")

// do runs fn with exclusive access to the device
func (cm *connectionManager) do(fn func(d *device.Device) error) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.dev == nil {
		return errNotConnected
	}
	return fn(cm.dev)
}

func (cm *connectionManager) setDevice(d *device.Device, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.dev = d
	cm.connInfo = connInfo
}

func (cm *connectionManager) close() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.dev != nil {
		cm.dev.Close()
		cm.dev = nil
	}
}

func runControl(cmd *cobra.Command, args []string) error {
	if controlPollInterval <= 0 {
		return fmt.Errorf("--poll must be positive")
	}

	d, connInfo, err := OpenDevice()
	if err != nil {
		return err
	}

	cm := &connectionManager{
		dev:      d,
		connInfo: connInfo,
		done:     make(chan struct{}),
		open:     OpenDevice,
	}

	m := initialControlModel(cm, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	cm.p = p

	go cm.pollLoop()

	_, err = p.Run()
	close(cm.done)
	cm.close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// pollLoop reads a sample every poll interval and reconnects after repeated failures
func (cm *connectionManager) pollLoop() {
	ticker := time.NewTicker(controlPollInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-cm.done:
			return
		case <-ticker.C:
		}

		var sample *jy901.Sample
		err := cm.do(func(d *device.Device) error {
			var err error
			sample, err = d.Sample()
			return err
		})
		if err == nil {
			failures = 0
			cm.p.Send(pollMsg{sample: sample})
			continue
		}

		failures++
		cm.p.Send(pollMsg{err: err})
		if failures < controlMaxFailures {
			continue
		}

		cm.p.Send(connectionLostMsg{})
		if !cm.reconnect() {
			return
		}
		failures = 0
	}
}

// reconnect attempts to reopen the device with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (cm *connectionManager) reconnect() bool {
	cm.close()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		d, connInfo, err := cm.open()
		if err == nil {
			cm.setDevice(d, connInfo)
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			return true
		}
		log.Debugf("Reconnect failed: %v", err)

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
