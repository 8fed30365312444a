// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Stdin is where confirmations are read from
var Stdin io.Reader = os.Stdin

func AskForConfirmationDefaultYes(s string) bool {
	reader := bufio.NewReader(Stdin)

	fmt.Printf("%s [Y/n]: ", s)

	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes" || response == ""
}

// DumpOption writes opt as yaml to outputPath, asking before overwriting unless overwrite is set
func DumpOption(opt interface{}, outputPath string, overwrite bool) error {
	buffer, err := yaml.Marshal(opt)
	if err != nil {
		return fmt.Errorf("cannot marshal configuration: %w", err)
	}

	parentPath := path.Dir(outputPath)
	if _, err := os.Stat(parentPath); os.IsNotExist(err) {
		if err := os.MkdirAll(parentPath, 0700); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", parentPath, err)
		}
	}

	if !overwrite {
		if _, err := os.Stat(outputPath); !os.IsNotExist(err) {
			if !AskForConfirmationDefaultYes("configuration " + outputPath + " already exist, overwrite?") {
				log.Infoln("abort")
				return nil
			}
		}
	}

	log.Infoln("writing default configuration to", outputPath)
	if err := os.WriteFile(outputPath, buffer, 0600); err != nil {
		return fmt.Errorf("cannot write configuration %s: %w", outputPath, err)
	}
	return nil
}
