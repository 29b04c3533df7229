// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import "fmt"

// Stats counts engine activity since construction
type Stats struct {
	Commands  uint64 // command lines written, retries included
	Retries   uint64
	Failures  uint64 // commands that exhausted every attempt
	Resets    uint64
	Sent      uint64 // payloads accepted by the module
	BytesSent uint64
}

// String returns a one-line summary
func (s Stats) String() string {
	return fmt.Sprintf("commands=%d retries=%d failures=%d resets=%d sent=%d bytes=%d",
		s.Commands, s.Retries, s.Failures, s.Resets, s.Sent, s.BytesSent)
}
