// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"testing"
	"time"

	"github.com/Thermoquad/tripwire/pkg/device"
	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
	"github.com/Thermoquad/tripwire/pkg/telemetry"
	"github.com/Thermoquad/tripwire/pkg/trigger"
)

const (
	near = 4000 // below the default threshold
	far  = 8000
)

// journal records calls from every fake in order
type journal struct {
	entries []string
}

func (j *journal) add(format string, args ...interface{}) {
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

type fakeRadio struct {
	j          *journal
	startupErr error
	timeErr    error
	sendErr    error
	sleeping   bool
}

func (r *fakeRadio) Startup() error {
	r.j.add("startup")
	return r.startupErr
}

func (r *fakeRadio) GetTime(ctx context.Context) (frame.TimeSync, error) {
	r.j.add("get_time")
	if r.timeErr != nil {
		return frame.TimeSync{}, r.timeErr
	}
	return frame.ParseTimeSync("24-01-15-10-30-00-1")
}

func (r *fakeRadio) Sleep() {
	r.j.add("sleep")
	r.sleeping = true
}

func (r *fakeRadio) SendEvent(name string, extra radio.Event) error {
	r.j.add("event %s", name)
	return r.sendErr
}

func (r *fakeRadio) SendTelemetry(t radio.Telemetry) error {
	r.j.add("telemetry")
	return r.sendErr
}

type fakeClock struct {
	j   *journal
	set frame.TimeSync
}

func (c *fakeClock) Set(ts frame.TimeSync) {
	c.j.add("clock")
	c.set = ts
}

func (c *fakeClock) Now() time.Time {
	return c.set.Time()
}

type fakeIndicator struct {
	j *journal
}

func (i *fakeIndicator) SetColor(c device.Color) error {
	i.j.add("led %s", c)
	return nil
}

func (i *fakeIndicator) Off() error {
	return i.SetColor(device.ColorOff)
}

// scriptedSensors returns distance readings in order, repeating the last
type scriptedSensors struct {
	distance []int
	i        int
}

func (s *scriptedSensors) DistanceLevel() int {
	v := s.distance[s.i]
	if s.i < len(s.distance)-1 {
		s.i++
	}
	return v
}

func (s *scriptedSensors) BatteryLevel() int             { return 512 }
func (s *scriptedSensors) CoreTemperature() float64      { return 23.4 }
func (s *scriptedSensors) EnclosureTemperature() float64 { return 21.0 }
func (s *scriptedSensors) EnclosureHumidity() float64    { return 40.0 }

type rig struct {
	j     *journal
	radio *fakeRadio
	clock *fakeClock
	node  *Node
}

func newRig(opts Options, distance ...int) *rig {
	j := &journal{}
	r := &fakeRadio{j: j}
	clock := &fakeClock{j: j}
	sensors := &scriptedSensors{distance: distance}

	detector := trigger.NewDetector(trigger.DefaultConfig(), r)
	detector.SetLogger(log.New(io.Discard, "", 0))

	n := New(Components{
		Radio:     r,
		Detector:  detector,
		Composer:  telemetry.NewComposer(sensors, clock, r),
		Sensors:   sensors,
		Indicator: &fakeIndicator{j: j},
		Clock:     clock,
	}, opts)
	n.SetLogger(log.New(io.Discard, "", 0))
	return &rig{j: j, radio: r, clock: clock, node: n}
}

func TestStartSequence(t *testing.T) {
	r := newRig(DefaultOptions(), far)

	if err := r.node.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := []string{"startup", "get_time", "clock", "sleep"}
	if !reflect.DeepEqual(r.j.entries, want) {
		t.Errorf("calls = %q, want %q", r.j.entries, want)
	}
	if r.clock.set.Year != 2024 || r.clock.set.Day != 15 {
		t.Errorf("clock set to %+v", r.clock.set)
	}
}

func TestStartContinuesAfterStartupFailure(t *testing.T) {
	r := newRig(DefaultOptions(), far)
	r.radio.startupErr = radio.ErrCommandFailed

	if err := r.node.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v, want nil", err)
	}
	if !r.radio.sleeping {
		t.Error("radio should be sleeping after Start")
	}
}

func TestStartFailsWithoutClock(t *testing.T) {
	r := newRig(DefaultOptions(), far)
	r.radio.timeErr = frame.ErrMalformedPayload

	err := r.node.Start(context.Background())
	if !errors.Is(err, frame.ErrMalformedPayload) {
		t.Fatalf("Start() = %v, want ErrMalformedPayload", err)
	}
	if r.radio.sleeping {
		t.Error("radio should not sleep after a failed start")
	}
}

func TestStepOrder(t *testing.T) {
	// first tick triggers and reports
	r := newRig(DefaultOptions(), near)
	r.node.Step()

	want := []string{
		"led off",
		"event triggered",
		"led red",
		"led blue",
		"telemetry",
		"led red",
	}
	if !reflect.DeepEqual(r.j.entries, want) {
		t.Errorf("tick 0 calls = %q\nwant %q", r.j.entries, want)
	}
}

func TestTelemetryCadence(t *testing.T) {
	r := newRig(Options{Tick: time.Second, TelemetryEvery: 5}, far)

	for i := 0; i < 11; i++ {
		r.node.Step()
	}

	reports := 0
	for _, e := range r.j.entries {
		if e == "telemetry" {
			reports++
		}
	}
	// ticks 0, 5 and 10
	if reports != 3 {
		t.Errorf("reports = %d, want 3", reports)
	}
	if s := r.node.Stats(); s.Ticks != 11 || s.Reports != 3 {
		t.Errorf("stats = %v", s)
	}
}

func TestTriggerHoldAcrossTicks(t *testing.T) {
	r := newRig(Options{Tick: time.Second, TelemetryEvery: 1000}, near)

	for i := 0; i < 63; i++ {
		r.node.Step()
	}

	// fires on tick 0, holds for 60 ticks, clears on 61, fires again on 62
	if got := r.node.Stats().Triggers; got != 2 {
		t.Errorf("triggers = %d, want 2", got)
	}
}

func TestReportFailureDoesNotStopLoop(t *testing.T) {
	r := newRig(Options{Tick: time.Second, TelemetryEvery: 1}, far)
	r.radio.sendErr = radio.ErrCommandFailed

	r.node.Step()
	r.node.Step()

	s := r.node.Stats()
	if s.Ticks != 2 || s.ReportFailures != 2 || s.Reports != 0 {
		t.Errorf("stats = %v", s)
	}
	if last := r.j.entries[len(r.j.entries)-1]; last != "led off" {
		t.Errorf("indicator after failed report = %q, want led off", last)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r := newRig(DefaultOptions(), far)

	ctx, cancel := context.WithCancel(context.Background())
	var waits []time.Duration
	r.node.wait = func(ctx context.Context, d time.Duration) bool {
		waits = append(waits, d)
		if len(waits) == 3 {
			cancel()
			return false
		}
		return true
	}

	if err := r.node.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if got := r.node.Stats().Ticks; got != 3 {
		t.Errorf("ticks = %d, want 3", got)
	}
	for _, d := range waits {
		if d != DefaultTick {
			t.Errorf("waited %v, want %v", d, DefaultTick)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	n := New(Components{}, Options{})
	if n.opts != DefaultOptions() {
		t.Errorf("opts = %+v, want defaults", n.opts)
	}
}
