// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry assembles the periodic telemetry report from the node's
// sensors.
package telemetry

import (
	"math"
	"time"

	"github.com/Thermoquad/tripwire/pkg/radio"
)

// Sensors is the set of readings a report carries. Implementations never
// fail; an unreadable sensor reports zero.
type Sensors interface {
	BatteryLevel() int
	DistanceLevel() int
	CoreTemperature() float64
	EnclosureTemperature() float64
	EnclosureHumidity() float64
}

// Clock provides the report timestamp
type Clock interface {
	Now() time.Time
}

// Sender transmits a finished report
type Sender interface {
	SendTelemetry(t radio.Telemetry) error
}

// Composer builds telemetry reports. It holds no state between reports.
type Composer struct {
	sensors Sensors
	clock   Clock
	sender  Sender
}

// NewComposer creates a composer
func NewComposer(sensors Sensors, clock Clock, sender Sender) *Composer {
	return &Composer{sensors: sensors, clock: clock, sender: sender}
}

// Compose reads every sensor once and returns the report
func (c *Composer) Compose() radio.Telemetry {
	return radio.Telemetry{
		Timestamp:       c.clock.Now().Unix(),
		BatteryVoltage:  c.sensors.BatteryLevel(),
		SonarVoltage:    c.sensors.DistanceLevel(),
		CPUTemperature:  roundTenth(c.sensors.CoreTemperature()),
		CaseTemperature: c.sensors.EnclosureTemperature(),
		CaseHumidity:    c.sensors.EnclosureHumidity(),
	}
}

// Send composes a report and transmits it
func (c *Composer) Send() (radio.Telemetry, error) {
	t := c.Compose()
	return t, c.sender.SendTelemetry(t)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
