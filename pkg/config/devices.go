// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"log"

	"github.com/Thermoquad/tripwire/pkg/device"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

// ResetLine returns the GPIO reset line, or nil for the AT+RESET fallback
func (d Devices) ResetLine() radio.ResetLine {
	if d.ResetGPIO == "" {
		return nil
	}
	return device.SysfsPin{Path: d.ResetGPIO}
}

// Board assembles the sensor set
func (d Devices) Board(logger *log.Logger) *device.Board {
	b := &device.Board{Logger: logger}
	if d.Battery != "" {
		b.Battery = device.SysfsAnalog{Path: d.Battery}
	}
	if d.Sonar != "" {
		b.Sonar = device.SysfsAnalog{Path: d.Sonar}
	}
	if d.ThermalZone != "" {
		b.Core = device.ThermalZone{Path: d.ThermalZone}
	}
	if d.ClimateTemperature != "" || d.ClimateHumidity != "" {
		climate := device.NewRetryClimate(device.HwmonClimate{
			TemperaturePath: d.ClimateTemperature,
			HumidityPath:    d.ClimateHumidity,
		})
		climate.Attempts = d.ClimateAttempts
		if logger != nil {
			climate.Logger = logger
		}
		b.Climate = climate
	}
	return b
}

// Indicator returns the RGB LED, or a logging stand-in when none is wired
func (d Devices) Indicator(logger *log.Logger) device.Indicator {
	if d.LEDRed == "" && d.LEDGreen == "" && d.LEDBlue == "" {
		return &device.LogIndicator{Logger: logger}
	}
	return device.NewSysfsRGB(d.LEDRed, d.LEDGreen, d.LEDBlue)
}
