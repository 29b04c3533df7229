// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"log"
	"time"
)

// DefaultClimateAttempts is how often a climate read is tried before the
// zero fallback
const DefaultClimateAttempts = 3

// RetryClimate retries failed reads of a Climate sensor a bounded number of
// times and reports 0.0 when every attempt fails.
type RetryClimate struct {
	Sensor   Climate
	Attempts int
	Delay    time.Duration
	Logger   *log.Logger

	sleep func(time.Duration)
}

// NewRetryClimate wraps sensor with the default attempt count
func NewRetryClimate(sensor Climate) *RetryClimate {
	return &RetryClimate{
		Sensor:   sensor,
		Attempts: DefaultClimateAttempts,
		Delay:    100 * time.Millisecond,
		Logger:   log.Default(),
		sleep:    time.Sleep,
	}
}

// Temperature returns the enclosure temperature or 0.0
func (r *RetryClimate) Temperature() float64 {
	return r.read("temperature", r.Sensor.Temperature)
}

// Humidity returns the enclosure humidity or 0.0
func (r *RetryClimate) Humidity() float64 {
	return r.read("humidity", r.Sensor.Humidity)
}

func (r *RetryClimate) read(what string, fn func() (float64, error)) float64 {
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v
		}
		r.Logger.Printf("%s read failed (attempt %d/%d): %v", what, attempt, r.Attempts, err)
		if attempt < r.Attempts && r.sleep != nil {
			r.sleep(r.Delay)
		}
	}
	return 0.0
}
