// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/astrolabe/internal/utils"
)

// ============================================================
// Helpers
// ============================================================

func newCmd(t *testing.T, configPath string, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", configPath, "")
	cmd.Flags().StringP("port", "p", "", "")
	cmd.Flags().IntP("baud", "b", DefaultBaud, "")
	cmd.Flags().String("variant", DefaultVariant, "")
	cmd.Flags().String("transport", DefaultTransport, "")
	cmd.Flags().Bool("debug", false, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

// ============================================================
// Parse Tests
// ============================================================

func TestParse_Defaults(t *testing.T) {
	p := writeConfig(t, "{}\n")
	desc := NewAstrolabeDesc()
	if err := desc.Parse(newCmd(t, p)); err != nil {
		t.Fatal(err)
	}

	want := NewAstrolabeOpt()
	if desc.Opt != want {
		t.Errorf("Expected defaults %+v, got %+v", want, desc.Opt)
	}
}

func TestParse_File(t *testing.T) {
	p := writeConfig(t, `
transport: i2c
i2c:
  bus: "1"
  address: 81
device:
  variant: gps
serial:
  reply_timeout_ms: 250
debug: true
`)
	desc := NewAstrolabeDesc()
	if err := desc.Parse(newCmd(t, p)); err != nil {
		t.Fatal(err)
	}

	o := desc.Opt
	if o.Transport != "i2c" || o.I2C.Bus != "1" || o.I2C.Address != 0x51 {
		t.Errorf("Unexpected transport options %+v", o)
	}
	if o.Device.Variant != "gps" || !o.Debug || o.Serial.ReplyTimeoutMs != 250 {
		t.Errorf("Unexpected options %+v", o)
	}
	// Untouched keys keep their defaults
	if o.Serial.Baud != DefaultBaud || o.API.Port != DefaultAPIPort {
		t.Errorf("Defaults lost: %+v", o)
	}
}

func TestParse_FlagsOverrideFile(t *testing.T) {
	p := writeConfig(t, "serial:\n  port: /dev/ttyS0\n  baud: 9600\n")
	desc := NewAstrolabeDesc()
	if err := desc.Parse(newCmd(t, p, "--port", "/dev/ttyUSB0")); err != nil {
		t.Fatal(err)
	}

	if desc.Opt.Serial.Port != "/dev/ttyUSB0" {
		t.Errorf("Expected flag to win, got %q", desc.Opt.Serial.Port)
	}
	if desc.Opt.Serial.Baud != 9600 {
		t.Errorf("Expected file baud 9600, got %d", desc.Opt.Serial.Baud)
	}
}

func TestParse_Env(t *testing.T) {
	p := writeConfig(t, "{}\n")
	t.Setenv("ASTROLABE_DEVICE_VARIANT", "gps")
	t.Setenv("ASTROLABE_API_PORT", "9000")

	desc := NewAstrolabeDesc()
	if err := desc.Parse(newCmd(t, p)); err != nil {
		t.Fatal(err)
	}
	if desc.Opt.Device.Variant != "gps" || desc.Opt.API.Port != 9000 {
		t.Errorf("Environment not applied: %+v", desc.Opt)
	}
}

func TestParse_MissingExplicitFile(t *testing.T) {
	desc := NewAstrolabeDesc()
	err := desc.Parse(newCmd(t, filepath.Join(t.TempDir(), "missing.yaml")))
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestParse_InvalidTransport(t *testing.T) {
	p := writeConfig(t, "transport: carrier-pigeon\n")
	desc := NewAstrolabeDesc()
	err := desc.Parse(newCmd(t, p))
	if err == nil || !strings.Contains(err.Error(), "unknown transport") {
		t.Errorf("Expected unknown transport error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AstrolabeOpt)
		wantErr bool
	}{
		{"defaults", func(*AstrolabeOpt) {}, false},
		{"websocket", func(o *AstrolabeOpt) { o.Transport = "websocket" }, false},
		{"address zero", func(o *AstrolabeOpt) { o.I2C.Address = 0 }, true},
		{"address 8 bit", func(o *AstrolabeOpt) { o.I2C.Address = 0x80 }, true},
		{"timeout", func(o *AstrolabeOpt) { o.Serial.ReplyTimeoutMs = 0 }, true},
		{"interval", func(o *AstrolabeOpt) { o.API.SampleIntervalMs = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewAstrolabeOpt()
			tt.mutate(&o)
			if err := o.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostParse(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)

	desc := NewAstrolabeDesc()
	desc.Opt.Debug = true
	desc.PostParse()
	if log.GetLevel() != log.DebugLevel {
		t.Errorf("Expected debug level, got %s", log.GetLevel())
	}

	desc.Opt.Debug = false
	desc.PostParse()
	if log.GetLevel() != log.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

// ============================================================
// Template Tests
// ============================================================

func TestDumpOption_RoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := utils.DumpOption(NewAstrolabeOpt(), out, true); err != nil {
		t.Fatal(err)
	}

	desc := NewAstrolabeDesc()
	if err := desc.Parse(newCmd(t, out)); err != nil {
		t.Fatal(err)
	}
	if desc.Opt != NewAstrolabeOpt() {
		t.Errorf("Template does not parse back to defaults: %+v", desc.Opt)
	}
}

func TestDumpOption_DeclineOverwrite(t *testing.T) {
	out := writeConfig(t, "debug: true\n")

	old := utils.Stdin
	utils.Stdin = strings.NewReader("n\n")
	defer func() { utils.Stdin = old }()

	if err := utils.DumpOption(NewAstrolabeOpt(), out, false); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "debug: true\n" {
		t.Errorf("File overwritten after declining: %q", b)
	}
}

func TestTemplateKeys(t *testing.T) {
	b, err := yaml.Marshal(NewAstrolabeOpt())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"transport:", "reply_timeout_ms:", "no_ssl_verify:", "supply_voltage:", "sample_interval_ms:"} {
		if !strings.Contains(string(b), key) {
			t.Errorf("Template missing %s", key)
		}
	}
}
