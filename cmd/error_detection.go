// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/jy901"
	"github.com/Thermoquad/astrolabe/pkg/transport"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze malformed frames and implausible readings",
	Long: `Track frame errors and anomalous values with statistics.

This command validates each UART frame and detects:
  - Checksum errors and unknown frame types
  - Invalid clock fields (month 13, minute 61, ...)
  - Temperatures outside the sensor range
  - Quaternions that are not unit length
  - Out-of-range pressure and GPS position
  - Statistics and trends (frame rate, error rate, success rate)

By default, only errors are displayed. Use --show-all to display valid frames too.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 {
		return fmt.Errorf("--stats-interval must be positive")
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if useTUI {
		return runTUIMode(conn, connInfo)
	}
	return runTextMode(conn, connInfo)
}

// connClosed reports whether a read error ends the stream
func connClosed(err error) bool {
	return errors.Is(err, transport.ErrConnectionClosed) || errors.Is(err, io.EOF)
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> FRAME DROPPED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(frame *jy901.Frame, errs []jy901.ValidationError) {
	timestamp := frame.Timestamp.Format("15:04:05.000")
	frameType := jy901.FormatFrameType(frame.Type)

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X)\n", timestamp, frameType, frame.Type)
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errs {
		switch err.Type {
		case jy901.AnomalyInvalidTime:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case jy901.AnomalyInvalidTemp:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if temp, ok := err.Details["temperature"].(float64); ok {
				fmt.Printf("    Temperature=%.2f°C (valid: %.0f to %.0f°C)\n", temp, jy901.MinTemperature, jy901.MaxTemperature)
			}

		case jy901.AnomalyQuaternionNorm:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if norm, ok := err.Details["norm"].(float64); ok {
				fmt.Printf("    |q|=%.4f (tolerance %.2f)\n", norm, jy901.QuaternionTolerance)
			}

		case jy901.AnomalyOutOfRange:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if lon, ok := err.Details["longitude"].(float64); ok {
				if lat, ok := err.Details["latitude"].(float64); ok {
					fmt.Printf("    Position: lon=%.5f, lat=%.5f\n", lon, lat)
				}
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  Raw: % X\n", frame.Data)
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(conn transport.Conn, connInfo string) error {
	decoder := jy901.NewDecoder()
	synchronized := false
	invalidFramesBeforeSync := 0

	m := initialModel(connInfo, statsInterval, showAll)
	p := tea.NewProgram(m)

	go func() {
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if connClosed(err) {
					p.Quit()
					return
				}
				log.Debugf("Read error: %v", err)
				continue
			}

			for i := 0; i < n; i++ {
				frame, decodeErr := decoder.DecodeByte(buf[i])

				if decodeErr != nil {
					if synchronized {
						p.Send(frameMsg{decodeErr: decodeErr})
					} else {
						invalidFramesBeforeSync++
					}
				} else if frame != nil {
					if !synchronized {
						synchronized = true
						p.Send(syncMsg{invalidFrames: invalidFramesBeforeSync})
					}

					p.Send(frameMsg{
						frame:            frame,
						validationErrors: jy901.ValidateFrame(frame),
					})
				}
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// runTextMode runs error detection with plain line output
func runTextMode(conn transport.Conn, connInfo string) error {
	fmt.Printf("Astrolabe - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := jy901.NewDecoder()
	stats := jy901.NewStatistics()

	// Decode errors are ignored until the first valid frame
	synchronized := false
	invalidFramesBeforeSync := 0

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	readBuf := make(chan []byte, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 128)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if connClosed(err) {
					return
				}
				log.Debugf("Read error: %v", err)
				continue
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			readBuf <- data
		}
	}()

	for {
		select {
		case data := <-readBuf:
			for _, b := range data {
				frame, decodeErr := decoder.DecodeByte(b)

				if decodeErr != nil {
					if synchronized {
						stats.Update(nil, decodeErr, nil)
						printDecodeError(decodeErr)
					} else {
						invalidFramesBeforeSync++
					}
				} else if frame != nil {
					if !synchronized {
						synchronized = true
						if invalidFramesBeforeSync > 0 {
							fmt.Printf("[SYNC] Synchronized after skipping %d invalid frames\n\n", invalidFramesBeforeSync)
						} else {
							fmt.Printf("[SYNC] Synchronized\n\n")
						}
					}

					validationErrors := jy901.ValidateFrame(frame)
					stats.Update(frame, nil, validationErrors)

					if len(validationErrors) > 0 {
						printValidationErrors(frame, validationErrors)
					} else if showAll {
						fmt.Print(jy901.FormatFrame(frame))
					}
				}
			}

		case <-statsTicker.C:
			stats.CalculateRates()
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case <-done:
			log.Info("Connection closed")
			fmt.Print(stats.String())
			return nil
		}
	}
}
