// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")

	data, err := f.Decode()
	if err != nil {
		return fmt.Sprintf("[%s] INVALID from=%d rssi=%d snr=%d len=%d\n  %v\n  Payload: %s\n",
			timestamp, f.Address, f.RSSI, f.SNR, f.Length, err, f.Payload)
	}

	result := fmt.Sprintf("[%s] %s from=%d rssi=%d snr=%d len=%d\n",
		timestamp, FormatEventName(data), f.Address, f.RSSI, f.SNR, f.Length)
	result += FormatPayload(data)
	return result
}

// FormatEventName returns the upper-case label for a decoded payload
func FormatEventName(data map[string]interface{}) string {
	if name, ok := data[KeyEvent].(string); ok && name != "" {
		return strings.ToUpper(name)
	}
	if method, ok := data[KeyMethod].(string); ok {
		return "RPC " + strings.ToUpper(method)
	}
	if _, ok := data[KeyResult]; ok {
		return "RPC RESULT"
	}
	return "UNKNOWN"
}

// FormatPayload formats the fields of a decoded payload, one per line
func FormatPayload(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == KeyEvent {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %s: %s\n", k, formatValue(k, data[k])))
	}
	return b.String()
}

func formatValue(key string, v interface{}) string {
	switch val := v.(type) {
	case float64:
		switch key {
		case KeyTimestamp:
			return fmt.Sprintf("%d (%s)", int64(val), time.Unix(int64(val), 0).UTC().Format(time.RFC3339))
		case KeyCPUTemperature, KeyCaseTemperature:
			return fmt.Sprintf("%.1f°C", val)
		case KeyCaseHumidity:
			return fmt.Sprintf("%.1f%%", val)
		}
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case string:
		return val
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}
