// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import "github.com/Thermoquad/tripwire/pkg/frame"

// Event is a JSON object sent as one payload. It always carries an
// "event" name once it reaches the wire.
type Event map[string]interface{}

// NewEvent creates an event with the given name and extra fields.
// extra is copied, never modified.
func NewEvent(name string, extra Event) Event {
	e := make(Event, len(extra)+1)
	for k, v := range extra {
		e[k] = v
	}
	e[frame.KeyEvent] = name
	return e
}

// Name returns the event name, or "" if unset
func (e Event) Name() string {
	name, _ := e[frame.KeyEvent].(string)
	return name
}

// Telemetry is one periodic report
type Telemetry struct {
	Timestamp       int64
	BatteryVoltage  int
	SonarVoltage    int
	CPUTemperature  float64
	CaseTemperature float64
	CaseHumidity    float64
}

// Event builds the telemetry payload
func (t Telemetry) Event() Event {
	return Event{
		frame.KeyEvent:           frame.EventTelemetry,
		frame.KeyTimestamp:       t.Timestamp,
		frame.KeyBatteryVoltage:  t.BatteryVoltage,
		frame.KeySonarVoltage:    t.SonarVoltage,
		frame.KeyCPUTemperature:  t.CPUTemperature,
		frame.KeyCaseTemperature: t.CaseTemperature,
		frame.KeyCaseHumidity:    t.CaseHumidity,
	}
}
