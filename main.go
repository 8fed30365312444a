// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Astrolabe - JY901 IMU/GPS/Barometer Tool
//
// A CLI tool for reading, configuring and monitoring JY901 attitude
// sensors over serial, WebSocket bridges and I2C.

package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/astrolabe/cmd"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
