// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readInt reads a sysfs attribute holding one integer
func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func writeString(path, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}

// SysfsAnalog reads an IIO raw channel, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw
type SysfsAnalog struct {
	Path string
}

// Value implements Analog
func (a SysfsAnalog) Value() (int, error) {
	return readInt(a.Path)
}

// SysfsPin drives a GPIO value file, e.g. /sys/class/gpio/gpio10/value.
// The pin must already be exported and configured as an output.
type SysfsPin struct {
	Path string
}

// SetLow implements Pin
func (p SysfsPin) SetLow() error {
	return writeString(p.Path, "0")
}

// SetHigh implements Pin
func (p SysfsPin) SetHigh() error {
	return writeString(p.Path, "1")
}

// ThermalZone reads a thermal zone in millidegrees, e.g.
// /sys/class/thermal/thermal_zone0/temp
type ThermalZone struct {
	Path string
}

// Temperature implements Thermometer
func (z ThermalZone) Temperature() (float64, error) {
	v, err := readInt(z.Path)
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000.0, nil
}

// HwmonClimate reads a hwmon temperature/humidity pair (SHT3x, HTU21D and
// friends), both reported in thousandths.
type HwmonClimate struct {
	TemperaturePath string // temp1_input
	HumidityPath    string // humidity1_input
}

// Temperature implements Climate
func (h HwmonClimate) Temperature() (float64, error) {
	v, err := readInt(h.TemperaturePath)
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000.0, nil
}

// Humidity implements Climate
func (h HwmonClimate) Humidity() (float64, error) {
	v, err := readInt(h.HumidityPath)
	if err != nil {
		return 0, err
	}
	return float64(v) / 1000.0, nil
}
