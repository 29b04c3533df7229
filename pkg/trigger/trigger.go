// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package trigger turns a noisy distance reading into a one-shot event per
// detection episode, followed by a fixed refractory hold.
package trigger

import (
	"log"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

// Calibration defaults for the deployed ultrasonic sensor
const (
	DefaultThreshold = 3.0  // volts equivalent
	DefaultDivisor   = 1962 // raw counts per volt
	DefaultHoldTicks = 60
)

// State is the detector state
type State int

const (
	StateClear State = iota
	StateTriggered
)

func (s State) String() string {
	switch s {
	case StateClear:
		return "clear"
	case StateTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

// EventSender receives the triggered event
type EventSender interface {
	SendEvent(name string, extra radio.Event) error
}

// Config holds the calibration constants
type Config struct {
	Threshold float64
	Divisor   float64
	HoldTicks int
}

// DefaultConfig returns the deployed calibration
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Divisor:   DefaultDivisor,
		HoldTicks: DefaultHoldTicks,
	}
}

// Detector fires once when the reading drops below threshold, then ignores
// the sensor until the hold counter passes HoldTicks.
type Detector struct {
	cfg    Config
	sender EventSender
	logger *log.Logger

	state State
	hold  int
	fired uint64
}

// NewDetector creates a detector in the Clear state
func NewDetector(cfg Config, sender EventSender) *Detector {
	if cfg.Divisor == 0 {
		cfg.Divisor = DefaultDivisor
	}
	return &Detector{
		cfg:    cfg,
		sender: sender,
		logger: log.Default(),
	}
}

// SetLogger replaces the diagnostic logger
func (d *Detector) SetLogger(l *log.Logger) {
	d.logger = l
}

// Tick advances the state machine by one reading. It returns true on the
// tick the triggered event fires.
func (d *Detector) Tick(reading int) bool {
	switch d.state {
	case StateTriggered:
		d.hold++
		if d.hold > d.cfg.HoldTicks {
			d.state = StateClear
			d.hold = 0
		}
		return false

	default:
		if !d.Below(reading) {
			return false
		}
		d.state = StateTriggered
		d.hold = 0
		d.fired++
		d.logger.Printf("triggered: reading=%d (%.2f V)", reading, d.Volts(reading))
		if err := d.sender.SendEvent(frame.EventTriggered, radio.Event{frame.KeySonarVoltage: reading}); err != nil {
			d.logger.Printf("[ERROR] triggered event: %v", err)
		}
		return true
	}
}

// Volts converts a raw reading to the calibrated voltage
func (d *Detector) Volts(reading int) float64 {
	return float64(reading) / d.cfg.Divisor
}

// Below reports whether reading is under the decision threshold, meaning
// an object is closer than the configured range
func (d *Detector) Below(reading int) bool {
	return d.Volts(reading) < d.cfg.Threshold
}

// State returns the current state
func (d *Detector) State() State {
	return d.state
}

// Triggered reports whether the detector is holding after an event
func (d *Detector) Triggered() bool {
	return d.state == StateTriggered
}

// HoldCount returns the ticks elapsed in the current hold
func (d *Detector) HoldCount() int {
	return d.hold
}

// Fired returns how many events the detector has emitted
func (d *Detector) Fired() uint64 {
	return d.fired
}
