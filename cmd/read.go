// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/astrolabe/pkg/device"
	"github.com/Thermoquad/astrolabe/pkg/jy901"
)

var (
	readJSON     bool
	readInterval time.Duration
)

var readCmd = &cobra.Command{
	Use:   "read [quantity...]",
	Short: "Read telemetry registers",
	Long: `Read one or more telemetry blocks from the device register file.

Quantities: ` + strings.Join(quantityNames(), ", ") + `
Without arguments every block is read. Position is only read on the GPS variant.

With --watch the read is repeated at the given interval until Ctrl+C.`,
	Example: `  astrolabe read -p /dev/ttyUSB0
  astrolabe read orientation temperature --json
  astrolabe read pins --watch 500ms -t i2c --bus 1`,
	RunE: runRead,
}

func init() {
	readCmd.Flags().BoolVar(&readJSON, "json", false, "Print JSON instead of text")
	readCmd.Flags().DurationVarP(&readInterval, "watch", "w", 0, "Repeat the read at this interval")
	rootCmd.AddCommand(readCmd)
}

// quantityReaders fill one block of a sample from the device
var quantityReaders = map[string]func(*device.Device, *jy901.Sample) error{
	"time": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.Time()
		s.Time = &v
		return err
	},
	"acceleration": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.Acceleration()
		s.Acceleration = &v
		return err
	},
	"angular-velocity": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.AngularVelocity()
		s.AngularVelocity = &v
		return err
	},
	"orientation": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.Orientation()
		s.Orientation = &v
		return err
	},
	"magnetic-field": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.MagneticField()
		s.MagneticField = &v
		return err
	},
	"temperature": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.Temperature()
		s.Temperature = &v
		return err
	},
	"pins": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.PinStatus()
		s.PinStatus = &v
		return err
	},
	"pressure": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.PressureHeight()
		s.PressureHeight = &v
		return err
	},
	"position": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.Position()
		s.Position = &v
		return err
	},
	"quaternion": func(d *device.Device, s *jy901.Sample) error {
		v, err := d.Quaternion()
		s.Quaternion = &v
		return err
	},
}

func quantityNames() []string {
	names := make([]string, 0, len(quantityReaders))
	for name := range quantityReaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// readSample reads the named quantities, or every block when names is empty
func readSample(d *device.Device, names []string) (*jy901.Sample, error) {
	if len(names) == 0 {
		return d.Sample()
	}
	s := &jy901.Sample{Timestamp: time.Now()}
	for _, name := range names {
		read, ok := quantityReaders[name]
		if !ok {
			return nil, fmt.Errorf("unknown quantity %q (%s)", name, strings.Join(quantityNames(), ", "))
		}
		if err := read(d, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func printSample(s *jy901.Sample) error {
	if readJSON {
		b, err := json.Marshal(s)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	fmt.Printf("[%s]\n%s", s.Timestamp.Format("15:04:05.000"), jy901.FormatSample(s))
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	for _, name := range args {
		if _, ok := quantityReaders[name]; !ok {
			return fmt.Errorf("unknown quantity %q (%s)", name, strings.Join(quantityNames(), ", "))
		}
	}

	d, info, err := OpenDevice()
	if err != nil {
		return err
	}
	defer d.Close()

	if !readJSON {
		fmt.Printf("Connection: %s\n\n", info)
	}

	if readInterval <= 0 {
		s, err := readSample(d, args)
		if err != nil {
			return err
		}
		return printSample(s)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	ticker := time.NewTicker(readInterval)
	defer ticker.Stop()

	for {
		s, err := readSample(d, args)
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
		} else if err := printSample(s); err != nil {
			return err
		}

		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
		}
	}
}
