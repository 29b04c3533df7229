// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/tripwire/pkg/frame"
)

// ============================================================
// Test Helpers
// ============================================================

// noData scripts a read that times out
const noData = ""

// fakeTransport replays scripted response lines and records writes
type fakeTransport struct {
	responses []string
	writes    []string
	reads     int
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.writes = append(f.writes, strings.TrimSuffix(string(p), CRLF))
	return len(p), nil
}

func (f *fakeTransport) ReadLine(timeout time.Duration) (string, error) {
	f.reads++
	if len(f.responses) == 0 {
		return "", ErrNoData
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	if r == noData {
		return "", ErrNoData
	}
	return r, nil
}

type fakeResetLine struct {
	lows  int
	highs int
}

func (f *fakeResetLine) SetLow() error {
	f.lows++
	return nil
}

func (f *fakeResetLine) SetHigh() error {
	f.highs++
	return nil
}

type testRig struct {
	engine    *Engine
	transport *fakeTransport
	resetLine *fakeResetLine
	sleeps    []time.Duration
}

func newTestRig(opts Options, responses ...string) *testRig {
	rig := &testRig{
		transport: &fakeTransport{responses: responses},
		resetLine: &fakeResetLine{},
	}
	rig.engine = NewEngine(rig.transport, rig.resetLine, opts)
	rig.engine.SetLogger(log.New(io.Discard, "", 0))
	rig.engine.sleep = func(d time.Duration) {
		rig.sleeps = append(rig.sleeps, d)
	}
	return rig
}

// resetScript is the traffic of a quiet reset: two empty reads, then the
// reset announcement is acknowledged
var resetScript = []string{noData, noData, "+OK"}

const resetAnnouncement = `AT+SEND=0,17,{"event":"reset"}`

func script(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// sendPayload extracts the JSON payload from an AT+SEND command line
func sendPayload(t *testing.T, command string) (int, string) {
	t.Helper()
	if !strings.HasPrefix(command, "AT+SEND=") {
		t.Fatalf("not a send command: %q", command)
	}
	fields := strings.SplitN(strings.TrimPrefix(command, "AT+SEND="), ",", 3)
	if len(fields) != 3 {
		t.Fatalf("malformed send command: %q", command)
	}
	var length int
	if err := json.Unmarshal([]byte(fields[1]), &length); err != nil {
		t.Fatalf("bad length in %q: %v", command, err)
	}
	return length, fields[2]
}

// ============================================================
// SendCommand Tests
// ============================================================

func TestSendCommand_AcceptedWithoutReset(t *testing.T) {
	tests := []struct {
		name     string
		response string
		accepted []string
	}{
		{"default ok", "+OK", nil},
		{"substring in longer line", "+NETWORKID=3 OK\r", nil},
		{"factory", "+FACTORY", AcceptFactory},
		{"wake ready", "+READY", AcceptWake},
		{"any of several", "+SEND", AcceptSend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(DefaultOptions(), tt.response)

			got, err := rig.engine.SendCommand("AT+TEST", tt.accepted...)
			if err != nil {
				t.Fatalf("SendCommand failed: %v", err)
			}
			if got != tt.response {
				t.Errorf("response = %q, want %q", got, tt.response)
			}
			if rig.resetLine.lows != 0 {
				t.Errorf("reset line pulsed %d times, want 0", rig.resetLine.lows)
			}
			if !reflect.DeepEqual(rig.transport.writes, []string{"AT+TEST"}) {
				t.Errorf("writes = %q, want [AT+TEST]", rig.transport.writes)
			}
		})
	}
}

func TestSendCommand_RecoversWithOneResetAndRetry(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
	}{
		{
			name:      "timeout",
			responses: script([]string{noData}, resetScript, []string{"+OK"}),
		},
		{
			name:      "mismatch",
			responses: script([]string{"+ERR=4"}, resetScript, []string{"+OK"}),
		},
		{
			name:      "boot chatter during reset",
			responses: script([]string{"+ERR=1"}, []string{noData, "+READY", noData, noData, "+OK"}, []string{"+OK"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(DefaultOptions(), tt.responses...)

			if _, err := rig.engine.SendCommand("AT+ADDRESS=1"); err != nil {
				t.Fatalf("SendCommand failed: %v", err)
			}

			want := []string{"AT+ADDRESS=1", resetAnnouncement, "AT+ADDRESS=1"}
			if !reflect.DeepEqual(rig.transport.writes, want) {
				t.Errorf("writes = %q, want %q", rig.transport.writes, want)
			}
			if rig.resetLine.lows != 1 || rig.resetLine.highs != 1 {
				t.Errorf("reset line low/high = %d/%d, want 1/1", rig.resetLine.lows, rig.resetLine.highs)
			}

			wantSleeps := []time.Duration{DefaultResetHold, DefaultCooldown}
			if !reflect.DeepEqual(rig.sleeps, wantSleeps) {
				t.Errorf("sleeps = %v, want %v", rig.sleeps, wantSleeps)
			}

			stats := rig.engine.Stats()
			if stats.Resets != 1 || stats.Retries != 1 || stats.Failures != 0 {
				t.Errorf("stats = %s", stats)
			}
			if len(rig.transport.responses) != 0 {
				t.Errorf("%d scripted responses left unread", len(rig.transport.responses))
			}
		})
	}
}

func TestSendCommand_SecondFailurePropagates(t *testing.T) {
	rig := newTestRig(DefaultOptions(), script([]string{noData}, resetScript, []string{"+ERR=4"})...)

	_, err := rig.engine.SendCommand("AT+ADDRESS=1")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("error = %v, want ErrCommandFailed", err)
	}
	var unexpected *UnexpectedResponseError
	if !errors.As(err, &unexpected) {
		t.Fatalf("error = %v, want wrapped UnexpectedResponseError", err)
	}
	if unexpected.Response != "+ERR=4" {
		t.Errorf("unexpected response = %q, want +ERR=4", unexpected.Response)
	}

	if rig.engine.Stats().Resets != 1 {
		t.Errorf("Resets = %d, want 1 (no reset after the final attempt)", rig.engine.Stats().Resets)
	}
	if rig.engine.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", rig.engine.Stats().Failures)
	}
	if len(rig.transport.writes) != 3 {
		t.Errorf("writes = %q, want command, reset announcement, command", rig.transport.writes)
	}
}

func TestSendCommand_MaxAttempts(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAttempts = 3

	rig := newTestRig(opts)
	_, err := rig.engine.SendCommand("AT")
	if !errors.Is(err, ErrNoResponse) {
		t.Fatalf("error = %v, want wrapped ErrNoResponse", err)
	}
	if rig.engine.Stats().Resets != 2 {
		t.Errorf("Resets = %d, want 2", rig.engine.Stats().Resets)
	}
	if rig.engine.Stats().Retries != 2 {
		t.Errorf("Retries = %d, want 2", rig.engine.Stats().Retries)
	}
}

func TestSendCommand_EmptyAcceptedSubstringNeverMatches(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAttempts = 1

	rig := newTestRig(opts, "+OK")
	if _, err := rig.engine.SendCommand("AT", ""); err == nil {
		t.Error("empty accepted substring should not match")
	}
}

// ============================================================
// Reset Tests
// ============================================================

func TestReset_DrainsUntilTwoQuietReads(t *testing.T) {
	rig := newTestRig(DefaultOptions(), "+READY", "junk", noData, "+X", noData, noData, "+OK")

	rig.engine.Reset()

	if len(rig.transport.responses) != 0 {
		t.Errorf("%d responses left, want 0", len(rig.transport.responses))
	}
	if rig.transport.reads != 7 {
		t.Errorf("reads = %d, want 7 (6 drain + announcement)", rig.transport.reads)
	}
	if !reflect.DeepEqual(rig.transport.writes, []string{resetAnnouncement}) {
		t.Errorf("writes = %q, want reset announcement only", rig.transport.writes)
	}
}

func TestReset_AnnouncementFailureDoesNotRecurse(t *testing.T) {
	rig := newTestRig(DefaultOptions())

	rig.engine.Reset()

	if rig.engine.Stats().Resets != 1 {
		t.Errorf("Resets = %d, want 1", rig.engine.Stats().Resets)
	}
	if len(rig.transport.writes) != 1 {
		t.Errorf("writes = %q, want only the announcement", rig.transport.writes)
	}
}

func TestReset_SoftwareFallback(t *testing.T) {
	transport := &fakeTransport{responses: resetScript}
	engine := NewEngine(transport, nil, DefaultOptions())
	engine.SetLogger(log.New(io.Discard, "", 0))
	engine.sleep = func(time.Duration) {}

	engine.Reset()

	want := []string{CmdReset, resetAnnouncement}
	if !reflect.DeepEqual(transport.writes, want) {
		t.Errorf("writes = %q, want %q", transport.writes, want)
	}
}

func TestNewEngine_ClampsResetHold(t *testing.T) {
	opts := DefaultOptions()
	opts.ResetHold = time.Millisecond
	opts.MaxAttempts = 0

	e := NewEngine(&fakeTransport{}, nil, opts)
	if e.Options().ResetHold != MinResetHold {
		t.Errorf("ResetHold = %v, want %v", e.Options().ResetHold, MinResetHold)
	}
	if e.Options().MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", e.Options().MaxAttempts)
	}
}

// ============================================================
// Startup Tests
// ============================================================

func TestStartup_Sequence(t *testing.T) {
	opts := DefaultOptions()
	opts.Band = 915000000

	rig := newTestRig(opts, script(resetScript, []string{"+FACTORY", "+OK", "+OK", "+OK", "+OK"})...)

	if err := rig.engine.Startup(); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}

	want := []string{
		resetAnnouncement,
		"AT+FACTORY",
		"AT+NETWORKID=3",
		"AT+ADDRESS=1",
		"AT+BAND=915000000",
		`AT+SEND=0,19,{"event":"startup"}`,
	}
	if !reflect.DeepEqual(rig.transport.writes, want) {
		t.Errorf("writes = %q\nwant %q", rig.transport.writes, want)
	}
}

func TestStartup_FactoryFailure(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAttempts = 1

	rig := newTestRig(opts, script(resetScript, []string{"+OK"})...)

	err := rig.engine.Startup()
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Startup error = %v, want ErrCommandFailed", err)
	}
	if !strings.Contains(err.Error(), "factory reset") {
		t.Errorf("error %q should name the factory reset step", err)
	}
}

func TestConfigure_NoResetNoAnnouncement(t *testing.T) {
	opts := DefaultOptions()
	opts.Address = 2
	opts.Password = "FABC0002"

	rig := newTestRig(opts, "+FACTORY", "+OK", "+OK", "+OK")

	if err := rig.engine.Configure(); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	want := []string{"AT+FACTORY", "AT+NETWORKID=3", "AT+ADDRESS=2", "AT+CPIN=FABC0002"}
	if !reflect.DeepEqual(rig.transport.writes, want) {
		t.Errorf("writes = %q\nwant %q", rig.transport.writes, want)
	}
	if rig.resetLine.lows != 0 {
		t.Error("Configure must not pulse the reset line")
	}
}

// ============================================================
// Mode Bracketing Tests
// ============================================================

func TestSendData_ModeBracketing(t *testing.T) {
	tests := []struct {
		name      string
		sleeping  bool
		responses []string
		want      []string
	}{
		{
			name:      "active sends once",
			sleeping:  false,
			responses: []string{"+OK"},
			want:      []string{`AT+SEND=0,16,{"event":"ping"}`},
		},
		{
			name:      "sleeping brackets wake, send, sleep",
			sleeping:  true,
			responses: []string{"+OK", "+READY", "+OK", "+OK"},
			want:      []string{CmdModeTRX, `AT+SEND=0,16,{"event":"ping"}`, CmdModeSleep},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(DefaultOptions(), tt.responses...)
			if tt.sleeping {
				rig.engine.Sleep()
			}

			if err := rig.engine.SendEvent("ping", nil); err != nil {
				t.Fatalf("SendEvent failed: %v", err)
			}
			if !reflect.DeepEqual(rig.transport.writes, tt.want) {
				t.Errorf("writes = %q, want %q", rig.transport.writes, tt.want)
			}
			if len(rig.transport.responses) != 0 {
				t.Errorf("%d responses left unread", len(rig.transport.responses))
			}

			wantMode := ModeActive
			if tt.sleeping {
				wantMode = ModeSleeping
			}
			if rig.engine.Mode() != wantMode {
				t.Errorf("Mode() = %s, want %s", rig.engine.Mode(), wantMode)
			}
		})
	}
}

func TestSendData_RestoresSleepAfterFailedSend(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxAttempts = 1

	rig := newTestRig(opts, "+OK", "+READY", "+ERR=10", "+OK")
	rig.engine.Sleep()

	err := rig.engine.SendEvent("ping", nil)
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("error = %v, want ErrCommandFailed", err)
	}

	want := []string{CmdModeTRX, `AT+SEND=0,16,{"event":"ping"}`, CmdModeSleep}
	if !reflect.DeepEqual(rig.transport.writes, want) {
		t.Errorf("writes = %q, want %q", rig.transport.writes, want)
	}
	if rig.engine.Stats().Sent != 0 {
		t.Errorf("Sent = %d, want 0", rig.engine.Stats().Sent)
	}
}

func TestSleepWake_NoIO(t *testing.T) {
	rig := newTestRig(DefaultOptions())

	rig.engine.Sleep()
	if rig.engine.Mode() != ModeSleeping {
		t.Errorf("Mode() = %s, want sleeping", rig.engine.Mode())
	}
	rig.engine.Wake()
	if rig.engine.Mode() != ModeActive {
		t.Errorf("Mode() = %s, want active", rig.engine.Mode())
	}
	if len(rig.transport.writes) != 0 || rig.transport.reads != 0 {
		t.Error("Sleep/Wake must not touch the transport")
	}
}

func TestSendData_PayloadTooLarge(t *testing.T) {
	rig := newTestRig(DefaultOptions())

	err := rig.engine.SendEvent("big", Event{"blob": strings.Repeat("x", frame.MaxPayloadSize)})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("error = %v, want ErrPayloadTooLarge", err)
	}
	if len(rig.transport.writes) != 0 {
		t.Errorf("writes = %q, want none", rig.transport.writes)
	}
}

func TestSendEvent_MergesWithoutMutating(t *testing.T) {
	rig := newTestRig(DefaultOptions(), "+OK")
	extra := Event{"sonar_voltage": 4000}

	if err := rig.engine.SendEvent("triggered", extra); err != nil {
		t.Fatalf("SendEvent failed: %v", err)
	}
	if _, ok := extra["event"]; ok {
		t.Error("SendEvent modified the caller's map")
	}

	length, payload := sendPayload(t, rig.transport.writes[0])
	if length != len(payload) {
		t.Errorf("declared length %d, payload %d bytes", length, len(payload))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded["event"] != "triggered" || decoded["sonar_voltage"] != float64(4000) {
		t.Errorf("decoded = %v", decoded)
	}
}

// ============================================================
// Telemetry Tests
// ============================================================

func TestSendTelemetry_RoundTrip(t *testing.T) {
	rig := newTestRig(DefaultOptions(), "+OK")

	reading := Telemetry{
		Timestamp:       1705314600,
		BatteryVoltage:  512,
		SonarVoltage:    256,
		CPUTemperature:  23.4,
		CaseTemperature: 21.0,
		CaseHumidity:    40.0,
	}
	if err := rig.engine.SendTelemetry(reading); err != nil {
		t.Fatalf("SendTelemetry failed: %v", err)
	}

	_, payload := sendPayload(t, rig.transport.writes[0])

	var decoded struct {
		Event           string  `json:"event"`
		Timestamp       int64   `json:"timestamp"`
		BatteryVoltage  int     `json:"battery_voltage"`
		SonarVoltage    int     `json:"sonar_voltage"`
		CPUTemperature  float64 `json:"cpu_temperature"`
		CaseTemperature float64 `json:"case_temperature"`
		CaseHumidity    float64 `json:"case_humidity"`
	}
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}

	if decoded.Event != "telemetry" {
		t.Errorf("event = %q, want telemetry", decoded.Event)
	}
	got := Telemetry{
		Timestamp:       decoded.Timestamp,
		BatteryVoltage:  decoded.BatteryVoltage,
		SonarVoltage:    decoded.SonarVoltage,
		CPUTemperature:  decoded.CPUTemperature,
		CaseTemperature: decoded.CaseTemperature,
		CaseHumidity:    decoded.CaseHumidity,
	}
	if got != reading {
		t.Errorf("decoded telemetry = %+v, want %+v", got, reading)
	}

	if rig.engine.Stats().BytesSent != uint64(len(payload)) {
		t.Errorf("BytesSent = %d, want %d", rig.engine.Stats().BytesSent, len(payload))
	}
}

// ============================================================
// GetTime Tests
// ============================================================

const timeReplyLine = `+RCV=0,32,{"result":"24-01-15-10-30-00-1"},-50,10`

func TestGetTime(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
		requests  int
	}{
		{
			name:      "first request answered",
			responses: []string{"+OK", timeReplyLine},
			requests:  1,
		},
		{
			name:      "retries until a reply arrives",
			responses: []string{"+OK", noData, "+OK", noData, "+OK", timeReplyLine},
			requests:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(DefaultOptions(), tt.responses...)

			ts, err := rig.engine.GetTime(context.Background())
			if err != nil {
				t.Fatalf("GetTime failed: %v", err)
			}
			want := frame.TimeSync{Year: 2024, Month: 1, Day: 15, Hour: 10, Minute: 30, Second: 0, Weekday: 1}
			if ts != want {
				t.Errorf("GetTime = %+v, want %+v", ts, want)
			}
			if len(rig.transport.writes) != tt.requests {
				t.Errorf("requests = %d, want %d", len(rig.transport.writes), tt.requests)
			}
			_, payload := sendPayload(t, rig.transport.writes[0])
			if payload != `{"jsonrpc":"2.0","method":"get_time"}` {
				t.Errorf("request payload = %s", payload)
			}
		})
	}
}

func TestGetTime_MalformedReplyIsFatal(t *testing.T) {
	rig := newTestRig(DefaultOptions(), "+OK", "+READY")

	_, err := rig.engine.GetTime(context.Background())
	if !errors.Is(err, frame.ErrMalformedEnvelope) {
		t.Fatalf("error = %v, want ErrMalformedEnvelope", err)
	}
}

func TestGetTime_RequiresActiveMode(t *testing.T) {
	rig := newTestRig(DefaultOptions())
	rig.engine.Sleep()

	if _, err := rig.engine.GetTime(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Errorf("error = %v, want ErrNotActive", err)
	}
}

func TestGetTime_Cancelled(t *testing.T) {
	rig := newTestRig(DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rig.engine.GetTime(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestExchange_NoAcceptance(t *testing.T) {
	rig := newTestRig(DefaultOptions(), "+ERR=2")

	got, err := rig.engine.Exchange("AT+VER?")
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if got != "+ERR=2" {
		t.Errorf("Exchange = %q, want +ERR=2", got)
	}
	if rig.engine.Stats().Resets != 0 {
		t.Error("Exchange must not reset")
	}
}
