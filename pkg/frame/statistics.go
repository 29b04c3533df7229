// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"errors"
	"fmt"
	"time"
)

// Statistics tracks received frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames      uint64
	ValidFrames      uint64
	EnvelopeErrors   uint64
	PayloadErrors    uint64
	MalformedFrames  uint64
	LengthMismatches uint64
	MissingFields    uint64
	InvalidValues    uint64
	Telemetry        uint64
	Events           uint64
	TimeRequests     uint64

	// Link quality of the most recent frame
	LastRSSI int
	LastSNR  int

	// Rates (calculated)
	FrameRate float64 // frames/min
	ErrorRate float64 // errors/min
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a frame and its errors
func (s *Statistics) Update(f *Frame, parseErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if parseErr != nil {
		if errors.Is(parseErr, ErrMalformedEnvelope) {
			s.EnvelopeErrors++
		} else {
			s.PayloadErrors++
		}
		return
	}

	s.LastRSSI = f.RSSI
	s.LastSNR = f.SNR

	if len(validationErrors) > 0 {
		for _, err := range validationErrors {
			switch err.Type {
			case AnomalyLengthMismatch:
				s.LengthMismatches++
			case AnomalyMissingEvent, AnomalyMissingField:
				s.MissingFields++
				s.MalformedFrames++
			case AnomalyInvalidValue:
				s.InvalidValues++
				s.MalformedFrames++
			case AnomalyDecodeError:
				s.PayloadErrors++
			}
		}
	} else {
		s.ValidFrames++
	}

	switch {
	case f.IsTimeRequest():
		s.TimeRequests++
	case f.EventName() == EventTelemetry:
		s.Telemetry++
	case f.EventName() != "":
		s.Events++
	}
}

// ErrorCount returns the number of frames counted as errors
func (s *Statistics) ErrorCount() uint64 {
	return s.EnvelopeErrors + s.PayloadErrors + s.MalformedFrames
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Minutes()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ErrorCount()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.ValidFrames) * 100.0 / float64(s.TotalFrames)
		errorPercent = float64(s.ErrorCount()) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Valid Frames:    %8d (%.1f%%)\n", s.ValidFrames, validPercent)
	result += fmt.Sprintf("Errors:          %8d (%.1f%%)\n", s.ErrorCount(), errorPercent)

	if s.EnvelopeErrors > 0 {
		result += fmt.Sprintf("  Envelope:         %5d\n", s.EnvelopeErrors)
	}
	if s.PayloadErrors > 0 {
		result += fmt.Sprintf("  Payload:          %5d\n", s.PayloadErrors)
	}
	if s.MissingFields > 0 {
		result += fmt.Sprintf("  Missing Fields:   %5d\n", s.MissingFields)
	}
	if s.InvalidValues > 0 {
		result += fmt.Sprintf("  Invalid Values:   %5d\n", s.InvalidValues)
	}
	if s.LengthMismatches > 0 {
		result += fmt.Sprintf("Length Mismatch: %8d\n", s.LengthMismatches)
	}

	result += fmt.Sprintf("Telemetry:       %8d\n", s.Telemetry)
	result += fmt.Sprintf("Events:          %8d\n", s.Events)
	result += fmt.Sprintf("Time Requests:   %8d\n", s.TimeRequests)
	if s.TotalFrames > 0 {
		result += fmt.Sprintf("Last Link:       rssi=%d dBm snr=%d\n", s.LastRSSI, s.LastSNR)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/min\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/min\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
