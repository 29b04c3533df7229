// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"time"

	"github.com/Thermoquad/tripwire/pkg/frame"
)

// OffsetClock is a wall clock set from a peer. It keeps the difference to
// the host clock rather than touching the system time.
type OffsetClock struct {
	offset time.Duration
	synced bool

	now func() time.Time
}

// NewOffsetClock returns an unsynchronised clock reading host time
func NewOffsetClock() *OffsetClock {
	return &OffsetClock{now: time.Now}
}

// Set synchronises the clock to ts
func (c *OffsetClock) Set(ts frame.TimeSync) {
	c.offset = ts.Time().Sub(c.now())
	c.synced = true
}

// Now returns the synchronised time
func (c *OffsetClock) Now() time.Time {
	return c.now().Add(c.offset)
}

// Synced reports whether Set has been called
func (c *OffsetClock) Synced() bool {
	return c.synced
}
