// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// ============================================================
// Envelope Tests
// ============================================================

func TestParse_TimeReply(t *testing.T) {
	f, err := Parse(`0,19,{"result":"24-01-15-10-30-00-1"},-50,10`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if f.Payload != `{"result":"24-01-15-10-30-00-1"}` {
		t.Errorf("Payload = %q", f.Payload)
	}
	if f.Address != 0 {
		t.Errorf("Address = %d, want 0", f.Address)
	}
	if f.Length != 19 {
		t.Errorf("Length = %d, want 19", f.Length)
	}
	if f.RSSI != -50 {
		t.Errorf("RSSI = %d, want -50", f.RSSI)
	}
	if f.SNR != 10 {
		t.Errorf("SNR = %d, want 10", f.SNR)
	}

	ts, err := DecodeTimeSync(f)
	if err != nil {
		t.Fatalf("DecodeTimeSync failed: %v", err)
	}
	want := TimeSync{Year: 2024, Month: 1, Day: 15, Hour: 10, Minute: 30, Second: 0, Weekday: 1}
	if ts != want {
		t.Errorf("TimeSync = %+v, want %+v", ts, want)
	}
}

func TestParse_ReceivePrefixAndCommas(t *testing.T) {
	line := "+RCV=1,58,{\"event\":\"triggered\",\"sonar_voltage\":4000},-97,8\r\n"
	f, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.Address != 1 {
		t.Errorf("Address = %d, want 1", f.Address)
	}
	if f.Payload != `{"event":"triggered","sonar_voltage":4000}` {
		t.Errorf("Payload = %q", f.Payload)
	}
	if f.RSSI != -97 || f.SNR != 8 {
		t.Errorf("RSSI/SNR = %d/%d, want -97/8", f.RSSI, f.SNR)
	}
	if f.EventName() != EventTriggered {
		t.Errorf("EventName() = %q, want %q", f.EventName(), EventTriggered)
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"status line", "+OK"},
		{"two fields", "1,2"},
		{"no trailing fields", "1,5,hello"},
		{"only rssi", "1,5,hello,-40"},
		{"bad address", "x,5,hello,-40,9"},
		{"bad length", "1,y,hello,-40,9"},
		{"bad rssi", "1,5,hello,z,9"},
		{"bad snr", "1,5,hello,-40,z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			if !errors.Is(err, ErrMalformedEnvelope) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedEnvelope", tt.line, err)
			}
		})
	}
}

func TestFrame_Decode(t *testing.T) {
	f := &Frame{Payload: "not json"}
	if _, err := f.Decode(); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("Decode() error = %v, want ErrMalformedPayload", err)
	}

	f = &Frame{Payload: `{"jsonrpc":"2.0","method":"get_time"}`}
	if !f.IsTimeRequest() {
		t.Error("IsTimeRequest() = false, want true")
	}
}

func TestFrame_StringRoundTrip(t *testing.T) {
	line := `+RCV=3,15,{"event":"x"},-40,11`
	f, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.String() != line {
		t.Errorf("String() = %q, want %q", f.String(), line)
	}
}

func TestIsReceive(t *testing.T) {
	if !IsReceive("+RCV=1,2,ab,-1,1\r\n") {
		t.Error("IsReceive should accept +RCV lines")
	}
	if IsReceive("+OK") {
		t.Error("IsReceive should reject status lines")
	}
}

// ============================================================
// TimeSync Tests
// ============================================================

func TestParseTimeSync(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    TimeSync
		wantErr bool
	}{
		{
			name:  "two digit year",
			input: "24-01-15-10-30-00-1",
			want:  TimeSync{2024, 1, 15, 10, 30, 0, 1},
		},
		{
			name:  "four digit year",
			input: "2025-12-31-23-59-59-3",
			want:  TimeSync{2025, 12, 31, 23, 59, 59, 3},
		},
		{name: "too few fields", input: "24-01-15", wantErr: true},
		{name: "not a number", input: "24-01-15-10-xx-00-1", wantErr: true},
		{name: "month out of range", input: "24-13-15-10-30-00-1", wantErr: true},
		{name: "weekday out of range", input: "24-01-15-10-30-00-7", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeSync(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseTimeSync(%q) = %+v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeSync(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTimeSync(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimeSync_Encode(t *testing.T) {
	at := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	ts := NewTimeSync(at)
	if ts.String() != "24-01-15-10-30-00-1" {
		t.Errorf("String() = %q, want 24-01-15-10-30-00-1", ts.String())
	}
	if !ts.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", ts.Time(), at)
	}

	reply := TimeReply(at)
	if reply[KeyResult] != "24-01-15-10-30-00-1" {
		t.Errorf("TimeReply result = %v", reply[KeyResult])
	}
}

func TestDecodeTimeSync_MissingResult(t *testing.T) {
	f := &Frame{Payload: `{"error":"no clock"}`}
	if _, err := DecodeTimeSync(f); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("DecodeTimeSync error = %v, want ErrMalformedPayload", err)
	}
}

// ============================================================
// Validator Tests
// ============================================================

func telemetryFrame(payload string) *Frame {
	return &Frame{Address: 1, Length: len(payload), Payload: payload, RSSI: -60, SNR: 9}
}

func TestValidate_Telemetry(t *testing.T) {
	valid := `{"event":"telemetry","timestamp":1705314600,"battery_voltage":512,"sonar_voltage":256,"cpu_temperature":23.4,"case_temperature":21.0,"case_humidity":40.0}`
	if errs := Validate(telemetryFrame(valid)); len(errs) != 0 {
		t.Errorf("Validate(valid) = %v, want none", errs)
	}

	missing := `{"event":"telemetry","timestamp":1705314600,"battery_voltage":512}`
	errs := Validate(telemetryFrame(missing))
	if len(errs) != 4 {
		t.Fatalf("Validate(missing) returned %d errors, want 4", len(errs))
	}
	for _, err := range errs {
		if err.Type != AnomalyMissingField {
			t.Errorf("anomaly type = %d, want AnomalyMissingField", err.Type)
		}
	}

	wrongType := strings.Replace(valid, `"case_humidity":40.0`, `"case_humidity":"wet"`, 1)
	errs = Validate(telemetryFrame(wrongType))
	if len(errs) != 1 || errs[0].Type != AnomalyInvalidValue {
		t.Errorf("Validate(wrongType) = %v, want one AnomalyInvalidValue", errs)
	}
}

func TestValidate_Envelope(t *testing.T) {
	f := &Frame{Length: 2, Payload: `{"event":"startup"}`, RSSI: 12}
	errs := Validate(f)

	var sawLength, sawRSSI bool
	for _, err := range errs {
		switch err.Type {
		case AnomalyLengthMismatch:
			sawLength = true
		case AnomalyInvalidRSSI:
			sawRSSI = true
		}
	}
	if !sawLength {
		t.Error("expected AnomalyLengthMismatch")
	}
	if !sawRSSI {
		t.Error("expected AnomalyInvalidRSSI")
	}
}

func TestValidate_MissingEvent(t *testing.T) {
	errs := Validate(telemetryFrame(`{"battery_voltage":1}`))
	if len(errs) != 1 || errs[0].Type != AnomalyMissingEvent {
		t.Errorf("Validate = %v, want one AnomalyMissingEvent", errs)
	}

	if errs := Validate(telemetryFrame(`{"jsonrpc":"2.0","method":"get_time"}`)); len(errs) != 0 {
		t.Errorf("Validate(time request) = %v, want none", errs)
	}
}

// ============================================================
// Statistics Tests
// ============================================================

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()

	_, parseErr := Parse("garbage")
	s.Update(nil, parseErr, nil)

	good := telemetryFrame(`{"event":"telemetry","timestamp":1,"battery_voltage":1,"sonar_voltage":1,"cpu_temperature":1,"case_temperature":1,"case_humidity":1}`)
	s.Update(good, nil, Validate(good))

	event := telemetryFrame(`{"event":"triggered","sonar_voltage":100}`)
	s.Update(event, nil, Validate(event))

	request := telemetryFrame(`{"jsonrpc":"2.0","method":"get_time"}`)
	s.Update(request, nil, Validate(request))

	if s.TotalFrames != 4 {
		t.Errorf("TotalFrames = %d, want 4", s.TotalFrames)
	}
	if s.EnvelopeErrors != 1 {
		t.Errorf("EnvelopeErrors = %d, want 1", s.EnvelopeErrors)
	}
	if s.ValidFrames != 3 {
		t.Errorf("ValidFrames = %d, want 3", s.ValidFrames)
	}
	if s.Telemetry != 1 || s.Events != 1 || s.TimeRequests != 1 {
		t.Errorf("Telemetry/Events/TimeRequests = %d/%d/%d, want 1/1/1", s.Telemetry, s.Events, s.TimeRequests)
	}
	if s.LastRSSI != -60 {
		t.Errorf("LastRSSI = %d, want -60", s.LastRSSI)
	}
	if !strings.Contains(s.String(), "Total Frames:") {
		t.Error("String() missing summary header")
	}

	s.Reset()
	if s.TotalFrames != 0 {
		t.Errorf("TotalFrames after Reset = %d, want 0", s.TotalFrames)
	}
}

func TestFormatFrame(t *testing.T) {
	f := telemetryFrame(`{"event":"telemetry","timestamp":1705314600,"battery_voltage":512,"cpu_temperature":23.4}`)
	f.Timestamp = time.Now()
	out := FormatFrame(f)

	for _, want := range []string{"TELEMETRY", "from=1", "battery_voltage: 512", "cpu_temperature: 23.4°C", "2024-01-15T10:30:00Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatFrame output missing %q:\n%s", want, out)
		}
	}

	bad := &Frame{Payload: "{", Timestamp: time.Now()}
	if !strings.Contains(FormatFrame(bad), "INVALID") {
		t.Error("FormatFrame should mark undecodable payloads INVALID")
	}
}
