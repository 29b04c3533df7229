// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

type recordingResponder struct {
	sent []radio.Event
	err  error
}

func (r *recordingResponder) SendData(event radio.Event) error {
	r.sent = append(r.sent, event)
	return r.err
}

type recordingRecorder struct {
	frames []*frame.Frame
}

func (r *recordingRecorder) Write(f *frame.Frame) error {
	r.frames = append(r.frames, f)
	return nil
}

type recordingNotifier struct {
	events []string
}

func (n *recordingNotifier) Notify(ctx context.Context, f *frame.Frame) error {
	n.events = append(n.events, f.EventName())
	return nil
}

var testNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

type rig struct {
	responder *recordingResponder
	recorder  *recordingRecorder
	notifier  *recordingNotifier
	gw        *Gateway
}

func newRig() *rig {
	r := &rig{
		responder: &recordingResponder{},
		recorder:  &recordingRecorder{},
		notifier:  &recordingNotifier{},
	}
	r.gw = New(Options{Responder: r.responder, Recorder: r.recorder, Notifier: r.notifier})
	r.gw.SetLogger(log.New(io.Discard, "", 0))
	r.gw.now = func() time.Time { return testNow }
	return r
}

const (
	telemetryLine = `+RCV=1,154,{"battery_voltage":512,"case_humidity":40.0,"case_temperature":21.0,"cpu_temperature":23.4,"event":"telemetry","sonar_voltage":256,"timestamp":1705314600},-60,9`
	triggeredLine = `+RCV=1,42,{"event":"triggered","sonar_voltage":4000},-61,8`
	timeLine      = `+RCV=1,37,{"jsonrpc":"2.0","method":"get_time"},-55,10`
)

func TestHandleTelemetry(t *testing.T) {
	r := newRig()
	res := r.gw.Handle(context.Background(), telemetryLine)

	if res.Frame == nil || res.ParseErr != nil {
		t.Fatalf("Handle() = %+v", res)
	}
	if len(res.Issues) != 0 {
		t.Errorf("issues = %v", res.Issues)
	}
	if !res.Frame.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v", res.Frame.Timestamp)
	}
	if len(r.recorder.frames) != 1 {
		t.Errorf("recorded %d frames, want 1", len(r.recorder.frames))
	}
	if len(r.notifier.events) != 0 {
		t.Errorf("telemetry should not be forwarded, got %v", r.notifier.events)
	}
	if s := r.gw.Statistics(); s.Telemetry != 1 || s.ValidFrames != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestHandleEventForwarded(t *testing.T) {
	r := newRig()
	r.gw.Handle(context.Background(), triggeredLine)

	if len(r.notifier.events) != 1 || r.notifier.events[0] != frame.EventTriggered {
		t.Errorf("forwarded %v, want [triggered]", r.notifier.events)
	}
	if len(r.responder.sent) != 0 {
		t.Error("events should not be answered")
	}
}

func TestHandleTimeRequest(t *testing.T) {
	r := newRig()
	res := r.gw.Handle(context.Background(), timeLine)

	if !res.Replied {
		t.Fatal("time request was not answered")
	}
	if len(r.responder.sent) != 1 {
		t.Fatalf("sent %d replies", len(r.responder.sent))
	}
	got := r.responder.sent[0][frame.KeyResult]
	if got != "24-01-15-10-30-00-1" {
		t.Errorf("reply result = %v", got)
	}
	if len(r.notifier.events) != 0 {
		t.Error("time requests should not be forwarded")
	}
}

func TestHandleTimeRequestWithoutResponder(t *testing.T) {
	gw := New(Options{})
	gw.SetLogger(log.New(io.Discard, "", 0))

	if res := gw.Handle(context.Background(), timeLine); res.Replied {
		t.Error("Replied without a responder")
	}
}

func TestHandleReplyFailure(t *testing.T) {
	r := newRig()
	r.responder.err = radio.ErrCommandFailed

	if res := r.gw.Handle(context.Background(), timeLine); res.Replied {
		t.Error("failed reply reported as sent")
	}
}

func TestHandleNonReceive(t *testing.T) {
	r := newRig()
	res := r.gw.Handle(context.Background(), "+OK")

	if res.Received() {
		t.Errorf("command response treated as a frame: %+v", res)
	}
	if r.gw.Statistics().TotalFrames != 0 {
		t.Error("command responses should not be counted")
	}
}

func TestHandleMalformed(t *testing.T) {
	r := newRig()
	res := r.gw.Handle(context.Background(), "+RCV=garbage")

	if !errors.Is(res.ParseErr, frame.ErrMalformedEnvelope) {
		t.Errorf("ParseErr = %v", res.ParseErr)
	}
	if !res.Received() {
		t.Error("malformed frame should still count as received")
	}
	if s := r.gw.Statistics(); s.EnvelopeErrors != 1 {
		t.Errorf("envelope errors = %d", s.EnvelopeErrors)
	}
	if len(r.recorder.frames) != 0 {
		t.Error("malformed frames should not be recorded")
	}
}

func TestWebhook(t *testing.T) {
	var body map[string]interface{}
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&body)
	}))
	defer srv.Close()

	f, err := frame.Parse(triggeredLine)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewWebhook(srv.URL).Notify(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if body["event"] != "triggered" || body["sonar_voltage"] != 4000.0 {
		t.Errorf("posted %v", body)
	}
}

func TestWebhookHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	f, _ := frame.Parse(triggeredLine)
	if err := NewWebhook(srv.URL).Notify(context.Background(), f); err == nil {
		t.Error("HTTP 401 should be an error")
	}
}
