// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyLengthMismatch AnomalyType = iota
	AnomalyMissingEvent
	AnomalyMissingField
	AnomalyInvalidValue
	AnomalyInvalidRSSI
	AnomalyDecodeError
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// Validate checks a frame's envelope and payload for anomalies.
// Returns a slice of validation errors (empty if the frame is valid).
func Validate(f *Frame) []ValidationError {
	errors := []ValidationError{}

	if f.Length != len(f.Payload) {
		errors = append(errors, ValidationError{
			Type:    AnomalyLengthMismatch,
			Message: fmt.Sprintf("declared length %d, payload is %d bytes", f.Length, len(f.Payload)),
			Details: map[string]interface{}{"received": len(f.Payload), "expected": f.Length},
		})
	}

	if f.RSSI < minRSSI || f.RSSI > maxRSSI {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidRSSI,
			Message: fmt.Sprintf("rssi %d dBm out of range", f.RSSI),
			Details: map[string]interface{}{"rssi": f.RSSI},
		})
	}

	data, err := f.Decode()
	if err != nil {
		return append(errors, ValidationError{
			Type:    AnomalyDecodeError,
			Message: err.Error(),
		})
	}

	// RPC frames carry no event field
	if _, ok := data[KeyMethod]; ok {
		return errors
	}
	if _, ok := data[KeyResult]; ok {
		return errors
	}

	name, ok := data[KeyEvent].(string)
	if !ok || name == "" {
		return append(errors, ValidationError{
			Type:    AnomalyMissingEvent,
			Message: "payload has no event name",
		})
	}

	switch name {
	case EventTelemetry:
		errors = append(errors, validateTelemetry(data)...)
	case EventTriggered:
		errors = append(errors, validateNumeric(data, KeySonarVoltage)...)
	}

	return errors
}

// validateTelemetry validates the telemetry field set
func validateTelemetry(data map[string]interface{}) []ValidationError {
	return validateNumeric(data, TelemetryKeys...)
}

func validateNumeric(data map[string]interface{}, keys ...string) []ValidationError {
	errors := []ValidationError{}
	for _, key := range keys {
		v, ok := data[key]
		if !ok {
			errors = append(errors, ValidationError{
				Type:    AnomalyMissingField,
				Message: fmt.Sprintf("missing field %s", key),
				Details: map[string]interface{}{"field": key},
			})
			continue
		}
		if _, ok := v.(float64); !ok {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("field %s is %T, want number", key, v),
				Details: map[string]interface{}{"field": key, "value": v},
			})
		}
	}
	return errors
}
