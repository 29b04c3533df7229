// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSync is the wall-clock time a peer returns for a get_time request.
// Weekday follows time.Weekday numbering (Sunday = 0).
type TimeSync struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Minute  int
	Second  int
	Weekday int
}

// NewTimeSync captures t in TimeSync form
func NewTimeSync(t time.Time) TimeSync {
	return TimeSync{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		Weekday: int(t.Weekday()),
	}
}

// ParseTimeSync parses a "YY-MM-DD-hh-mm-ss-wd" result string.
// Two-digit years are taken to be in the 2000s.
func ParseTimeSync(s string) (TimeSync, error) {
	fields := strings.Split(strings.TrimSpace(s), "-")
	if len(fields) != 7 {
		return TimeSync{}, fmt.Errorf("time result %q: expected 7 fields, got %d", s, len(fields))
	}

	values := make([]int, len(fields))
	for i, field := range fields {
		v, err := strconv.Atoi(field)
		if err != nil {
			return TimeSync{}, fmt.Errorf("time result %q: field %d: %w", s, i, err)
		}
		values[i] = v
	}

	ts := TimeSync{
		Year:    values[0],
		Month:   values[1],
		Day:     values[2],
		Hour:    values[3],
		Minute:  values[4],
		Second:  values[5],
		Weekday: values[6],
	}
	if ts.Year < 100 {
		ts.Year += 2000
	}
	if err := ts.validate(); err != nil {
		return TimeSync{}, fmt.Errorf("time result %q: %w", s, err)
	}
	return ts, nil
}

func (t TimeSync) validate() error {
	switch {
	case t.Month < 1 || t.Month > 12:
		return fmt.Errorf("month %d out of range", t.Month)
	case t.Day < 1 || t.Day > 31:
		return fmt.Errorf("day %d out of range", t.Day)
	case t.Hour < 0 || t.Hour > 23:
		return fmt.Errorf("hour %d out of range", t.Hour)
	case t.Minute < 0 || t.Minute > 59:
		return fmt.Errorf("minute %d out of range", t.Minute)
	case t.Second < 0 || t.Second > 60:
		return fmt.Errorf("second %d out of range", t.Second)
	case t.Weekday < 0 || t.Weekday > 6:
		return fmt.Errorf("weekday %d out of range", t.Weekday)
	}
	return nil
}

// Time returns the instant in UTC
func (t TimeSync) Time() time.Time {
	return time.Date(t.Year, time.Month(t.Month), t.Day, t.Hour, t.Minute, t.Second, 0, time.UTC)
}

// String encodes the result field the way peers send it
func (t TimeSync) String() string {
	return fmt.Sprintf("%02d-%02d-%02d-%02d-%02d-%02d-%d",
		t.Year%100, t.Month, t.Day, t.Hour, t.Minute, t.Second, t.Weekday)
}

// DecodeTimeSync extracts the TimeSync carried in a reply frame
func DecodeTimeSync(f *Frame) (TimeSync, error) {
	data, err := f.Decode()
	if err != nil {
		return TimeSync{}, err
	}
	result, ok := data[KeyResult].(string)
	if !ok {
		return TimeSync{}, fmt.Errorf("%w: missing %q string", ErrMalformedPayload, KeyResult)
	}
	return ParseTimeSync(result)
}

// TimeRequest is the payload a node sends to ask a peer for the time
func TimeRequest() map[string]interface{} {
	return map[string]interface{}{
		KeyJSONRPC: JSONRPCVersion,
		KeyMethod:  MethodGetTime,
	}
}

// TimeReply is the payload a peer answers a time request with
func TimeReply(t time.Time) map[string]interface{} {
	return map[string]interface{}{
		KeyResult: NewTimeSync(t).String(),
	}
}
