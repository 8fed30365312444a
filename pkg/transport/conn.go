// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport provides device.Transport implementations for the JY901.
//
// UART talks the register command protocol over any byte stream: a serial port
// or a WebSocket bridge. I2C, Embd and TinyGo talk to the register file directly
// over an I2C bus.
package transport

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
)

// Conn is a byte stream to a JY901 UART, either a serial port or a WebSocket bridge
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// DefaultReadTimeout bounds a single serial read so reply waits can observe their deadline
const DefaultReadTimeout = 100 * time.Millisecond

// SerialConn wraps a serial port
type SerialConn struct {
	port serial.Port
}

func (s *SerialConn) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConn) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// ResetInputBuffer discards bytes received by the port but not yet read
func (s *SerialConn) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

func (s *SerialConn) Close() error {
	return s.port.Close()
}

// OpenSerial opens a serial port at baudRate, 8N1
func OpenSerial(portName string, baudRate int) (*SerialConn, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(DefaultReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &SerialConn{port: port}, nil
}

// ListSerialPorts returns the serial ports present on the host
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketConn wraps a WebSocket bridge that forwards UART bytes as binary messages.
// Messages are received on a background goroutine so a read deadline can expire
// without breaking the connection.
type WebSocketConn struct {
	conn     *websocket.Conn
	messages chan []byte
	closing  chan struct{}
	done     chan struct{}
	err      error // valid once done is closed
	buf      []byte

	mu       sync.Mutex
	deadline time.Time

	closeOnce sync.Once
}

func newWebSocketConn(conn *websocket.Conn) *WebSocketConn {
	w := &WebSocketConn{
		conn:     conn,
		messages: make(chan []byte, 64),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.readLoop()
	return w
}

func (w *WebSocketConn) readLoop() {
	defer close(w.done)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.err = err
			return
		}

		// UART bytes only travel in binary messages
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.messages <- data:
		case <-w.closing:
			w.err = ErrConnectionClosed
			return
		}
	}
}

func (w *WebSocketConn) take(p []byte, data []byte) int {
	n := copy(p, data)
	w.buf = data[n:]
	return n
}

// Read returns buffered bytes, or waits for the next message until the read deadline
func (w *WebSocketConn) Read(p []byte) (int, error) {
	if len(w.buf) > 0 {
		return w.take(p, w.buf), nil
	}

	var expired <-chan time.Time
	if deadline := w.readDeadline(); !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case data := <-w.messages:
		return w.take(p, data), nil
	case <-w.done:
		// Messages queued before the connection went away are still delivered
		select {
		case data := <-w.messages:
			return w.take(p, data), nil
		default:
		}
		return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, w.err)
	case <-expired:
		return 0, os.ErrDeadlineExceeded
	}
}

// SetReadDeadline bounds the wait of future Read calls. A zero value disables it.
func (w *WebSocketConn) SetReadDeadline(t time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deadline = t
	return nil
}

func (w *WebSocketConn) readDeadline() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deadline
}

// ResetInputBuffer discards bytes received but not yet read
func (w *WebSocketConn) ResetInputBuffer() error {
	w.buf = nil
	for {
		select {
		case <-w.messages:
		default:
			return nil
		}
	}
}

func (w *WebSocketConn) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConn) Close() error {
	w.closeOnce.Do(func() { close(w.closing) })
	return w.conn.Close()
}

// DialWebSocket connects to a WebSocket bridge with optional HTTP Basic auth
func DialWebSocket(wsURL, username, password string, skipSSLVerify bool) (*WebSocketConn, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocketConn(conn), nil
}
