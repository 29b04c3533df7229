// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package frame decodes the receive envelope emitted by RYLR896-class LoRa
// modules and the JSON payloads tripwire nodes carry inside it.
//
// A received frame arrives as a single line:
//
//	+RCV=<address>,<length>,<payload>,<rssi>,<snr>
//
// The payload may itself contain commas, so it is recovered by splitting two
// fields from the left and two from the right.
package frame

// Envelope framing
const (
	ReceivePrefix = "+RCV="
	FieldSep      = ","
)

// MaxPayloadSize is the longest payload the module accepts in one AT+SEND.
const MaxPayloadSize = 240

// Event names carried in the "event" field
const (
	EventTelemetry = "telemetry"
	EventTriggered = "triggered"
	EventStartup   = "startup"
	EventReset     = "reset"
)

// Payload keys
const (
	KeyEvent           = "event"
	KeyTimestamp       = "timestamp"
	KeyBatteryVoltage  = "battery_voltage"
	KeySonarVoltage    = "sonar_voltage"
	KeyCPUTemperature  = "cpu_temperature"
	KeyCaseTemperature = "case_temperature"
	KeyCaseHumidity    = "case_humidity"
	KeyResult          = "result"
	KeyMethod          = "method"
	KeyJSONRPC         = "jsonrpc"
)

// Time request
const (
	JSONRPCVersion = "2.0"
	MethodGetTime  = "get_time"
)

// TelemetryKeys lists the numeric fields every telemetry event carries.
var TelemetryKeys = []string{
	KeyTimestamp,
	KeyBatteryVoltage,
	KeySonarVoltage,
	KeyCPUTemperature,
	KeyCaseTemperature,
	KeyCaseHumidity,
}

// RSSI bounds reported by the module (dBm)
const (
	minRSSI = -164
	maxRSSI = 0
)
