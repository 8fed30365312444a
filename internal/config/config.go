// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads astrolabe settings from flags, environment and a yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/astrolabe/internal/utils"
)

const DefaultAppName = "astrolabe"
const DefaultConfigName = "config"
const DefaultTransport = "serial"
const DefaultBaud = 115200
const DefaultReplyTimeoutMs = 1000
const DefaultVariant = "base"
const DefaultI2CAddress = 0x50
const DefaultAPIInterface = "0.0.0.0"
const DefaultAPIPort = 18900
const DefaultSampleIntervalMs = 100

var userHomeDir, _ = os.UserHomeDir()
var DefaultConfig = path.Join(userHomeDir, ".config", DefaultAppName, DefaultConfigName+".yaml")
var DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)

const DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
const DefaultConfigSearchPath2 = "./"

// Transports accepted by the transport key
var Transports = []string{"serial", "websocket", "i2c", "embd"}

type SerialOpt struct {
	Port           string `yaml:"port" mapstructure:"port"`
	Baud           int    `yaml:"baud" mapstructure:"baud"`
	Unlock         bool   `yaml:"unlock" mapstructure:"unlock"`
	ReplyTimeoutMs int    `yaml:"reply_timeout_ms" mapstructure:"reply_timeout_ms"`
}

type WebSocketOpt struct {
	URL         string `yaml:"url" mapstructure:"url"`
	Username    string `yaml:"username" mapstructure:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify" mapstructure:"no_ssl_verify"`
}

type I2COpt struct {
	Bus     string `yaml:"bus" mapstructure:"bus"`
	Address int    `yaml:"address" mapstructure:"address"`
}

type DeviceOpt struct {
	Variant       string  `yaml:"variant" mapstructure:"variant"`
	SupplyVoltage float64 `yaml:"supply_voltage" mapstructure:"supply_voltage"`
}

type APIOpt struct {
	Port             int    `yaml:"port" mapstructure:"port"`
	Interface        string `yaml:"interface" mapstructure:"interface"`
	SampleIntervalMs int    `yaml:"sample_interval_ms" mapstructure:"sample_interval_ms"`
}

type AstrolabeOpt struct {
	Transport string       `yaml:"transport" mapstructure:"transport"`
	Serial    SerialOpt    `yaml:"serial" mapstructure:"serial"`
	WebSocket WebSocketOpt `yaml:"websocket" mapstructure:"websocket"`
	I2C       I2COpt       `yaml:"i2c" mapstructure:"i2c"`
	Device    DeviceOpt    `yaml:"device" mapstructure:"device"`
	API       APIOpt       `yaml:"api" mapstructure:"api"`
	Debug     bool         `yaml:"debug" mapstructure:"debug"`
}

type AstrolabeDesc struct {
	Opt   AstrolabeOpt
	Viper *viper.Viper
}

func NewAstrolabeDesc() AstrolabeDesc {
	return AstrolabeDesc{
		Opt:   NewAstrolabeOpt(),
		Viper: nil,
	}
}

func NewAstrolabeOpt() AstrolabeOpt {
	return AstrolabeOpt{
		Transport: DefaultTransport,
		Serial: SerialOpt{
			Baud:           DefaultBaud,
			ReplyTimeoutMs: DefaultReplyTimeoutMs,
		},
		I2C: I2COpt{
			Address: DefaultI2CAddress,
		},
		Device: DeviceOpt{
			Variant:       DefaultVariant,
			SupplyVoltage: 3.5,
		},
		API: APIOpt{
			Port:             DefaultAPIPort,
			Interface:        DefaultAPIInterface,
			SampleIntervalMs: DefaultSampleIntervalMs,
		},
		Debug: false,
	}
}

// flagBindings maps config keys to the cobra flags that override them
var flagBindings = map[string]string{
	"transport":               "transport",
	"serial.port":             "port",
	"serial.baud":             "baud",
	"serial.unlock":           "unlock",
	"websocket.url":           "url",
	"websocket.username":      "username",
	"websocket.no_ssl_verify": "no-ssl-verify",
	"i2c.bus":                 "bus",
	"i2c.address":             "address",
	"device.variant":          "variant",
	"api.port":                "listen-port",
	"api.interface":           "interface",
	"debug":                   "debug",
}

func (o *AstrolabeDesc) Parse(cmd *cobra.Command) error {
	def := NewAstrolabeOpt()
	vipCfg := viper.New()
	vipCfg.SetDefault("transport", def.Transport)
	vipCfg.SetDefault("serial.port", def.Serial.Port)
	vipCfg.SetDefault("serial.baud", def.Serial.Baud)
	vipCfg.SetDefault("serial.unlock", def.Serial.Unlock)
	vipCfg.SetDefault("serial.reply_timeout_ms", def.Serial.ReplyTimeoutMs)
	vipCfg.SetDefault("websocket.url", def.WebSocket.URL)
	vipCfg.SetDefault("websocket.username", def.WebSocket.Username)
	vipCfg.SetDefault("websocket.no_ssl_verify", def.WebSocket.NoSSLVerify)
	vipCfg.SetDefault("i2c.bus", def.I2C.Bus)
	vipCfg.SetDefault("i2c.address", def.I2C.Address)
	vipCfg.SetDefault("device.variant", def.Device.Variant)
	vipCfg.SetDefault("device.supply_voltage", def.Device.SupplyVoltage)
	vipCfg.SetDefault("api.port", def.API.Port)
	vipCfg.SetDefault("api.interface", def.API.Interface)
	vipCfg.SetDefault("api.sample_interval_ms", def.API.SampleIntervalMs)
	vipCfg.SetDefault("debug", def.Debug)

	configFileCmd := ""
	if f := cmd.Flags().Lookup("config"); f != nil {
		configFileCmd = f.Value.String()
	}
	explicit := true
	if configFileCmd != "" {
		vipCfg.SetConfigFile(configFileCmd)
	} else if configFileEnv := os.Getenv("ASTROLABE_CONFIG"); configFileEnv != "" {
		vipCfg.SetConfigFile(configFileEnv)
	} else {
		explicit = false
		vipCfg.SetConfigName(DefaultConfigName)
		vipCfg.SetConfigType("yaml")
		vipCfg.AddConfigPath(DefaultConfigSearchPath0)
		vipCfg.AddConfigPath(DefaultConfigSearchPath1)
		vipCfg.AddConfigPath(DefaultConfigSearchPath2)
	}

	vipCfg.SetEnvPrefix(DefaultAppName)
	vipCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vipCfg.AutomaticEnv()

	for key, name := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = vipCfg.BindPFlag(key, f)
		}
	}

	if err := vipCfg.ReadInConfig(); err == nil {
		log.Debugln("using config file:", vipCfg.ConfigFileUsed())
	} else {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		log.Debugln("no config file found, using defaults")
	}

	if err := vipCfg.Unmarshal(&o.Opt); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	o.Viper = vipCfg
	return o.Opt.Validate()
}

// Validate checks the values that cannot be checked by their type
func (o *AstrolabeOpt) Validate() error {
	valid := false
	for _, t := range Transports {
		if o.Transport == t {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("unknown transport %q (%s)", o.Transport, strings.Join(Transports, ", "))
	}
	if o.I2C.Address <= 0 || o.I2C.Address > 0x7F {
		return fmt.Errorf("i2c address 0x%02X out of range", o.I2C.Address)
	}
	if o.Serial.ReplyTimeoutMs <= 0 {
		return fmt.Errorf("serial reply timeout must be positive, got %d ms", o.Serial.ReplyTimeoutMs)
	}
	if o.API.SampleIntervalMs <= 0 {
		return fmt.Errorf("api sample interval must be positive, got %d ms", o.API.SampleIntervalMs)
	}
	return nil
}

func (o *AstrolabeDesc) PostParse() {
	if o.Opt.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// InitCfg writes a configuration template
func InitCfg(cmd *cobra.Command, _ []string) error {
	printFlag, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	overwriteFlag, _ := cmd.Flags().GetBool("yes")

	desc := NewAstrolabeDesc()
	if err := desc.Parse(cmd); err != nil {
		log.Errorln(err)
		return err
	}

	if printFlag {
		configBuffer, err := yaml.Marshal(desc.Opt)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(configBuffer))
		return nil
	}
	return utils.DumpOption(desc.Opt, outputPath, overwriteFlag)
}
