// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the tripwire YAML configuration file.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/Thermoquad/tripwire/pkg/device"
	"github.com/Thermoquad/tripwire/pkg/node"
	"github.com/Thermoquad/tripwire/pkg/radio"
	"github.com/Thermoquad/tripwire/pkg/trigger"
)

// Config is the whole configuration file
type Config struct {
	Serial  Serial  `yaml:"serial"`
	Radio   Radio   `yaml:"radio"`
	Trigger Trigger `yaml:"trigger"`
	Node    Node    `yaml:"node"`
	Devices Devices `yaml:"devices"`
	Gateway Gateway `yaml:"gateway"`
}

// Serial selects the radio's serial port
type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Radio configures the LoRa module
type Radio struct {
	NetworkID   int           `yaml:"network_id"`
	Address     int           `yaml:"address"`
	Destination int           `yaml:"destination"`
	Band        uint32        `yaml:"band"`
	Password    string        `yaml:"password"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
	ResetHold   time.Duration `yaml:"reset_hold"`
	Cooldown    time.Duration `yaml:"cooldown"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Trigger calibrates the distance sensor
type Trigger struct {
	Threshold float64 `yaml:"threshold"`
	Divisor   float64 `yaml:"divisor"`
	HoldTicks int     `yaml:"hold_ticks"`
}

// Node sets the control loop cadence
type Node struct {
	Tick           time.Duration `yaml:"tick"`
	TelemetryEvery int           `yaml:"telemetry_every"`
}

// Devices names the sysfs files backing each capability. An empty path
// leaves the capability unconfigured.
type Devices struct {
	ResetGPIO          string `yaml:"reset_gpio"`
	Battery            string `yaml:"battery"`
	Sonar              string `yaml:"sonar"`
	ThermalZone        string `yaml:"thermal_zone"`
	ClimateTemperature string `yaml:"climate_temperature"`
	ClimateHumidity    string `yaml:"climate_humidity"`
	ClimateAttempts    int    `yaml:"climate_attempts"`
	LEDRed             string `yaml:"led_red"`
	LEDGreen           string `yaml:"led_green"`
	LEDBlue            string `yaml:"led_blue"`
}

// Gateway configures the receiving side
type Gateway struct {
	Address int    `yaml:"address"`
	Webhook string `yaml:"webhook"`
}

// Defaults returns the configuration used when no file is given
func Defaults() *Config {
	ro := radio.DefaultOptions()
	tc := trigger.DefaultConfig()
	no := node.DefaultOptions()
	return &Config{
		Serial: Serial{Baud: 115200},
		Radio: Radio{
			NetworkID:   ro.NetworkID,
			Address:     ro.Address,
			Destination: ro.Destination,
			ReadTimeout: ro.ReadTimeout,
			ResetHold:   ro.ResetHold,
			Cooldown:    ro.Cooldown,
			MaxAttempts: ro.MaxAttempts,
		},
		Trigger: Trigger{
			Threshold: tc.Threshold,
			Divisor:   tc.Divisor,
			HoldTicks: tc.HoldTicks,
		},
		Node: Node{
			Tick:           no.Tick,
			TelemetryEvery: no.TelemetryEvery,
		},
		Devices: Devices{
			ThermalZone:     "/sys/class/thermal/thermal_zone0/temp",
			ClimateAttempts: device.DefaultClimateAttempts,
		},
	}
}

// Load reads path over the defaults. Unknown keys are an error.
func Load(path string) (*Config, error) {
	log.Printf("loading config file: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults
func Parse(data []byte) (*Config, error) {
	c := Defaults()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects settings the radio or loop cannot use
func (c *Config) Validate() error {
	switch {
	case c.Radio.NetworkID < 0 || c.Radio.NetworkID > 16:
		return fmt.Errorf("radio.network_id %d out of range 0-16", c.Radio.NetworkID)
	case c.Radio.Address < 0 || c.Radio.Address > 65535:
		return fmt.Errorf("radio.address %d out of range 0-65535", c.Radio.Address)
	case c.Radio.Destination < 0 || c.Radio.Destination > 65535:
		return fmt.Errorf("radio.destination %d out of range 0-65535", c.Radio.Destination)
	case c.Radio.Password != "" && len(c.Radio.Password) != 8:
		return fmt.Errorf("radio.password must be 8 hex characters")
	case c.Trigger.Divisor <= 0:
		return fmt.Errorf("trigger.divisor must be positive")
	case c.Trigger.HoldTicks < 0:
		return fmt.Errorf("trigger.hold_ticks must not be negative")
	case c.Devices.ClimateAttempts < 1:
		return fmt.Errorf("devices.climate_attempts must be at least 1")
	case c.Node.TelemetryEvery < 1:
		return fmt.Errorf("node.telemetry_every must be at least 1")
	}
	return nil
}

// RadioOptions returns the engine options
func (c *Config) RadioOptions() radio.Options {
	return radio.Options{
		NetworkID:   c.Radio.NetworkID,
		Address:     c.Radio.Address,
		Destination: c.Radio.Destination,
		Band:        c.Radio.Band,
		Password:    c.Radio.Password,
		ReadTimeout: c.Radio.ReadTimeout,
		ResetHold:   c.Radio.ResetHold,
		Cooldown:    c.Radio.Cooldown,
		MaxAttempts: c.Radio.MaxAttempts,
	}
}

// TriggerConfig returns the detector calibration
func (c *Config) TriggerConfig() trigger.Config {
	return trigger.Config{
		Threshold: c.Trigger.Threshold,
		Divisor:   c.Trigger.Divisor,
		HoldTicks: c.Trigger.HoldTicks,
	}
}

// NodeOptions returns the loop cadence
func (c *Config) NodeOptions() node.Options {
	return node.Options{
		Tick:           c.Node.Tick,
		TelemetryEvery: c.Node.TelemetryEvery,
	}
}
