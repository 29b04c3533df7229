// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedEnvelope is returned when a line cannot be split into the
// five receive envelope fields.
var ErrMalformedEnvelope = errors.New("malformed receive envelope")

// ErrMalformedPayload is returned when the envelope is intact but the
// payload is not a JSON object.
var ErrMalformedPayload = errors.New("malformed frame payload")

// Frame is one decoded receive envelope
type Frame struct {
	Address   int
	Length    int
	Payload   string
	RSSI      int
	SNR       int
	Timestamp time.Time
}

// IsReceive reports whether a module line carries a receive envelope
func IsReceive(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ReceivePrefix)
}

// Parse decodes a receive envelope. The "+RCV=" prefix is optional.
func Parse(line string) (*Frame, error) {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, ReceivePrefix)

	front := strings.SplitN(s, FieldSep, 3)
	if len(front) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedEnvelope, line)
	}

	rest := front[2]
	snrIdx := strings.LastIndex(rest, FieldSep)
	if snrIdx < 0 {
		return nil, fmt.Errorf("%w: missing snr in %q", ErrMalformedEnvelope, line)
	}
	snrField := rest[snrIdx+1:]
	rest = rest[:snrIdx]

	rssiIdx := strings.LastIndex(rest, FieldSep)
	if rssiIdx < 0 {
		return nil, fmt.Errorf("%w: missing rssi in %q", ErrMalformedEnvelope, line)
	}
	rssiField := rest[rssiIdx+1:]
	payload := rest[:rssiIdx]

	address, err := strconv.Atoi(front[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad address %q", ErrMalformedEnvelope, front[0])
	}
	length, err := strconv.Atoi(front[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad length %q", ErrMalformedEnvelope, front[1])
	}
	rssi, err := strconv.Atoi(rssiField)
	if err != nil {
		return nil, fmt.Errorf("%w: bad rssi %q", ErrMalformedEnvelope, rssiField)
	}
	snr, err := strconv.Atoi(snrField)
	if err != nil {
		return nil, fmt.Errorf("%w: bad snr %q", ErrMalformedEnvelope, snrField)
	}

	return &Frame{
		Address:   address,
		Length:    length,
		Payload:   payload,
		RSSI:      rssi,
		SNR:       snr,
		Timestamp: time.Now(),
	}, nil
}

// Decode unmarshals the payload as a JSON object
func (f *Frame) Decode() (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(f.Payload), &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: null payload", ErrMalformedPayload)
	}
	return data, nil
}

// EventName returns the payload's event field, or "" if absent
func (f *Frame) EventName() string {
	data, err := f.Decode()
	if err != nil {
		return ""
	}
	name, _ := data[KeyEvent].(string)
	return name
}

// IsTimeRequest reports whether the payload is a get_time request
func (f *Frame) IsTimeRequest() bool {
	data, err := f.Decode()
	if err != nil {
		return false
	}
	method, _ := data[KeyMethod].(string)
	return method == MethodGetTime
}

// String renders the frame back into envelope form
func (f *Frame) String() string {
	return fmt.Sprintf("%s%d,%d,%s,%d,%d", ReceivePrefix, f.Address, f.Length, f.Payload, f.RSSI, f.SNR)
}
