// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package node runs the sensor node control loop: bring-up, trigger
// evaluation every tick and telemetry on a slower cadence.
package node

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Thermoquad/tripwire/pkg/device"
	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/telemetry"
	"github.com/Thermoquad/tripwire/pkg/trigger"
)

const (
	DefaultTick           = time.Second
	DefaultTelemetryEvery = 300
)

// Radio is the part of the radio engine the loop drives directly
type Radio interface {
	Startup() error
	GetTime(ctx context.Context) (frame.TimeSync, error)
	Sleep()
}

// Clock is seeded once from the peer's time
type Clock interface {
	Set(ts frame.TimeSync)
}

// Options configures the loop cadence
type Options struct {
	Tick           time.Duration
	TelemetryEvery int // ticks between telemetry reports
}

// DefaultOptions returns the deployed cadence
func DefaultOptions() Options {
	return Options{Tick: DefaultTick, TelemetryEvery: DefaultTelemetryEvery}
}

// Components are the collaborators a Node ties together
type Components struct {
	Radio     Radio
	Detector  *trigger.Detector
	Composer  *telemetry.Composer
	Sensors   telemetry.Sensors
	Indicator device.Indicator
	Clock     Clock
}

// Stats counts loop activity
type Stats struct {
	Ticks          uint64
	Reports        uint64
	ReportFailures uint64
	Triggers       uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("ticks=%d reports=%d report_failures=%d triggers=%d",
		s.Ticks, s.Reports, s.ReportFailures, s.Triggers)
}

// Node is the control loop. It is single-threaded: Start and Run must be
// called from one goroutine.
type Node struct {
	c     Components
	opts  Options
	stats Stats

	logger *log.Logger
	wait   func(ctx context.Context, d time.Duration) bool
}

// New creates a node
func New(c Components, opts Options) *Node {
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.TelemetryEvery < 1 {
		opts.TelemetryEvery = DefaultTelemetryEvery
	}
	return &Node{
		c:      c,
		opts:   opts,
		logger: log.Default(),
		wait:   wait,
	}
}

// SetLogger replaces the diagnostic logger
func (n *Node) SetLogger(l *log.Logger) {
	n.logger = l
}

// Stats returns a snapshot of the loop counters
func (n *Node) Stats() Stats {
	return n.stats
}

// Start brings the radio up, sets the clock from the peer and puts the
// radio to sleep. A failed bring-up is logged; the clock is required, so a
// failed time request is returned.
func (n *Node) Start(ctx context.Context) error {
	if err := n.c.Radio.Startup(); err != nil {
		n.logger.Printf("[ERROR] startup: %v", err)
	}

	ts, err := n.c.Radio.GetTime(ctx)
	if err != nil {
		return fmt.Errorf("set clock: %w", err)
	}
	n.c.Clock.Set(ts)
	n.logger.Printf("clock set to %s", ts.Time().Format(time.RFC3339))

	n.c.Radio.Sleep()
	return nil
}

// Run ticks until ctx is cancelled
func (n *Node) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		n.Step()
		if !n.wait(ctx, n.opts.Tick) {
			return nil
		}
	}
}

// Step runs one tick: indicator reset, trigger evaluation, then telemetry
// when the interval is due.
func (n *Node) Step() {
	tick := n.stats.Ticks
	n.stats.Ticks++

	n.setIndicator(device.ColorOff)

	if n.c.Detector.Tick(n.c.Sensors.DistanceLevel()) {
		n.stats.Triggers++
	}
	if n.c.Detector.Triggered() {
		n.setIndicator(device.ColorTriggered)
	}

	if tick%uint64(n.opts.TelemetryEvery) == 0 {
		n.report()
	}
}

func (n *Node) report() {
	n.setIndicator(device.ColorTelemetry)
	defer n.restoreIndicator()

	t, err := n.c.Composer.Send()
	if err != nil {
		n.stats.ReportFailures++
		n.logger.Printf("[ERROR] telemetry: %v", err)
		return
	}
	n.stats.Reports++
	n.logger.Printf("telemetry sent: battery=%d sonar=%d cpu=%.1f case=%.1f humidity=%.1f",
		t.BatteryVoltage, t.SonarVoltage, t.CPUTemperature, t.CaseTemperature, t.CaseHumidity)
}

func (n *Node) restoreIndicator() {
	if n.c.Detector.Triggered() {
		n.setIndicator(device.ColorTriggered)
	} else {
		n.setIndicator(device.ColorOff)
	}
}

func (n *Node) setIndicator(c device.Color) {
	if n.c.Indicator == nil {
		return
	}
	if err := n.c.Indicator.SetColor(c); err != nil {
		n.logger.Printf("indicator: %v", err)
	}
}

// wait sleeps for d, returning false if ctx ends first
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
