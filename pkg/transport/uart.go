// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"github.com/sirupsen/logrus"
)

// DefaultReplyTimeout is how long UART waits for a register read reply
const DefaultReplyTimeout = time.Second

// ErrTimeout is returned when no register reply arrives before the deadline
var ErrTimeout = errors.New("timed out waiting for register reply")

// deadliner is a stream whose blocking reads can be bounded, like WebSocketConn
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// inputResetter is a stream that can drop bytes it has already received
type inputResetter interface {
	ResetInputBuffer() error
}

// UART drives the register command protocol over a byte stream.
// Writes are sent as FF AA reg lo hi commands, one per register. Reads send a
// read request per four registers and wait for the 0x5F reply frame, skipping
// any telemetry frames streamed in between.
type UART struct {
	mu      sync.Mutex
	rw      io.ReadWriter
	dec     *jy901.Decoder
	timeout time.Duration
	unlock  bool
	log     *logrus.Entry
	buf     []byte
	pending []byte
}

// UARTOption configures a UART transport
type UARTOption func(*UART)

// WithReplyTimeout sets the register read deadline
func WithReplyTimeout(d time.Duration) UARTOption {
	return func(u *UART) {
		u.timeout = d
	}
}

// WithUnlock sends the unlock command before every write, as newer firmware requires
func WithUnlock(unlock bool) UARTOption {
	return func(u *UART) {
		u.unlock = unlock
	}
}

// WithLogger sets the logger for protocol traffic
func WithLogger(log *logrus.Entry) UARTOption {
	return func(u *UART) {
		u.log = log
	}
}

// NewUART creates a UART transport over rw
func NewUART(rw io.ReadWriter, opts ...UARTOption) *UART {
	u := &UART{
		rw:      rw,
		dec:     jy901.NewDecoder(),
		timeout: DefaultReplyTimeout,
		buf:     make([]byte, 64),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.log == nil {
		u.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return u
}

func (u *UART) send(cmd []byte) error {
	u.log.Tracef("tx % X", cmd)
	if _, err := u.rw.Write(cmd); err != nil {
		return fmt.Errorf("uart write: %w", err)
	}
	return nil
}

// Transmit writes data starting at reg, one command per register
func (u *UART) Transmit(reg byte, data []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.unlock {
		if err := u.send(jy901.UnlockFrame()); err != nil {
			return err
		}
	}
	if len(data) == 0 {
		return u.send(jy901.CommandFrame(reg, nil))
	}
	for i := 0; i < len(data); i += jy901.RegisterWidth {
		end := min(i+jy901.RegisterWidth, len(data))
		if err := u.send(jy901.CommandFrame(reg+byte(i/jy901.RegisterWidth), data[i:end])); err != nil {
			return err
		}
	}
	return nil
}

// Receive reads n bytes starting at reg
func (u *UART) Receive(reg byte, n int) ([]byte, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make([]byte, 0, n+jy901.FramePayload)
	words := (n + jy901.RegisterWidth - 1) / jy901.RegisterWidth
	for w := 0; w < words; w += jy901.ReadReplyWords {
		// A 0x5F reply does not name its register, so nothing older may be taken for it
		u.discardInput()
		if err := u.send(jy901.ReadFrame(reg + byte(w))); err != nil {
			return nil, err
		}
		f, err := u.awaitReply()
		if err != nil {
			return nil, fmt.Errorf("read 0x%02X: %w", reg+byte(w), err)
		}
		out = append(out, f.Data[:]...)
	}
	return out[:n], nil
}

// discardInput drops undecoded bytes and any partial frame
func (u *UART) discardInput() {
	u.pending = nil
	u.dec.Reset()
	if r, ok := u.rw.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			u.log.Debugf("uart input reset: %v", err)
		}
	}
}

// awaitReply reads until a register reply frame arrives or the deadline passes.
// Bytes following the reply stay pending until the next request discards them.
func (u *UART) awaitReply() (*jy901.Frame, error) {
	deadline := time.Now().Add(u.timeout)
	if d, ok := u.rw.(deadliner); ok {
		if err := d.SetReadDeadline(deadline); err == nil {
			defer d.SetReadDeadline(time.Time{})
		}
	}

	for {
		for len(u.pending) > 0 {
			b := u.pending[0]
			u.pending = u.pending[1:]
			f, err := u.dec.DecodeByte(b)
			if err != nil {
				u.log.Debugf("uart decode: %v", err)
				continue
			}
			if f != nil && f.Type == jy901.FrameRegisters {
				return f, nil
			}
		}
		if !time.Now().Before(deadline) {
			u.discardInput()
			return nil, ErrTimeout
		}

		n, err := u.rw.Read(u.buf)
		u.pending = u.buf[:n]
		if err != nil && n == 0 {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				u.discardInput()
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("uart read: %w", err)
		}
	}
}

// Close closes the underlying stream if it is closable
func (u *UART) Close() error {
	if c, ok := u.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
