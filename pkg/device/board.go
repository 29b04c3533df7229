// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"log"
)

// Board is the sensor set of one node. Nil components read as zero and
// failed reads are logged and read as zero, so telemetry always has a value
// for every field.
type Board struct {
	Battery Analog
	Sonar   Analog
	Core    Thermometer
	Climate *RetryClimate

	Logger *log.Logger
}

// BatteryLevel returns the raw battery divider reading
func (b *Board) BatteryLevel() int {
	return b.analog("battery", b.Battery)
}

// DistanceLevel returns the raw sonar reading
func (b *Board) DistanceLevel() int {
	return b.analog("sonar", b.Sonar)
}

// CoreTemperature returns the processor temperature in °C
func (b *Board) CoreTemperature() float64 {
	if b.Core == nil {
		return 0
	}
	v, err := b.Core.Temperature()
	if err != nil {
		b.logger().Printf("core temperature: %v", err)
		return 0
	}
	return v
}

// EnclosureTemperature returns the case temperature in °C
func (b *Board) EnclosureTemperature() float64 {
	if b.Climate == nil {
		return 0
	}
	return b.Climate.Temperature()
}

// EnclosureHumidity returns the case relative humidity in %
func (b *Board) EnclosureHumidity() float64 {
	if b.Climate == nil {
		return 0
	}
	return b.Climate.Humidity()
}

func (b *Board) analog(name string, a Analog) int {
	if a == nil {
		return 0
	}
	v, err := a.Value()
	if err != nil {
		b.logger().Printf("%s: %v", name, err)
		return 0
	}
	return v
}

func (b *Board) logger() *log.Logger {
	if b.Logger == nil {
		return log.Default()
	}
	return b.Logger
}
