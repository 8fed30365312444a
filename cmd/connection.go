// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/transport"
)

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("ASTROLABE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens the UART byte stream: a serial port or a WebSocket bridge
func OpenConnection() (transport.Conn, string, error) {
	if opt.Transport == "websocket" || (opt.WebSocket.URL != "" && opt.Serial.Port == "") {
		if opt.WebSocket.URL == "" {
			return nil, "", fmt.Errorf("--url must be specified for the websocket transport")
		}
		password := ""
		if opt.WebSocket.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := transport.DialWebSocket(opt.WebSocket.URL, opt.WebSocket.Username, password, opt.WebSocket.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", opt.WebSocket.URL), nil
	}

	if opt.Serial.Port != "" {
		conn, err := transport.OpenSerial(opt.Serial.Port, opt.Serial.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", opt.Serial.Port, opt.Serial.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}

// registerTransport is a device.Transport that owns its bus
type registerTransport interface {
	device.Transport
	Close() error
}

// OpenTransport opens the register transport selected by the configuration
func OpenTransport() (registerTransport, string, error) {
	switch opt.Transport {
	case "i2c":
		t, err := transport.OpenI2C(opt.I2C.Bus, uint16(opt.I2C.Address))
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("I2C: %s", t), nil

	case "embd":
		bus := 1
		if opt.I2C.Bus != "" {
			n, err := strconv.Atoi(opt.I2C.Bus)
			if err != nil || n < 0 || n > 255 {
				return nil, "", fmt.Errorf("embd bus must be a number, got %q", opt.I2C.Bus)
			}
			bus = n
		}
		t, err := transport.OpenEmbd(byte(bus), byte(opt.I2C.Address))
		if err != nil {
			return nil, "", err
		}
		return t, fmt.Sprintf("embd I2C: bus %d @ 0x%02X", bus, opt.I2C.Address), nil
	}

	conn, info, err := OpenConnection()
	if err != nil {
		return nil, "", err
	}
	u := transport.NewUART(conn,
		transport.WithReplyTimeout(time.Duration(opt.Serial.ReplyTimeoutMs)*time.Millisecond),
		transport.WithUnlock(opt.Serial.Unlock),
		transport.WithLogger(log.WithField("transport", "uart")),
	)
	return u, info, nil
}

// OpenDevice opens the configured transport and binds a device of the configured variant
func OpenDevice() (*device.Device, string, error) {
	variant, err := device.ParseVariant(opt.Device.Variant)
	if err != nil {
		return nil, "", err
	}
	t, info, err := OpenTransport()
	if err != nil {
		return nil, "", err
	}
	d := device.New(t, variant, device.WithLogger(log.WithField("device", info)))
	return d, fmt.Sprintf("%s (%s)", info, d.Profile()), nil
}
