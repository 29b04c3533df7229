// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device provides the hardware capabilities a tripwire node reads
// and drives, with implementations backed by Linux sysfs.
package device

// Analog is a raw analog input
type Analog interface {
	Value() (int, error)
}

// Thermometer reads a temperature in °C
type Thermometer interface {
	Temperature() (float64, error)
}

// Climate is an enclosure temperature/humidity sensor whose reads may fail
// transiently
type Climate interface {
	Temperature() (float64, error)
	Humidity() (float64, error)
}

// Pin is a digital output
type Pin interface {
	SetLow() error
	SetHigh() error
}

// Fixed is an Analog that always reads the same value
type Fixed int

// Value implements Analog
func (f Fixed) Value() (int, error) {
	return int(f), nil
}
