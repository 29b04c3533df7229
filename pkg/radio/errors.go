// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned by a Transport when no line arrives in time
	ErrNoData = errors.New("no data")

	// ErrClosed is returned by a Transport whose reader has stopped
	ErrClosed = errors.New("transport closed")

	// ErrNoResponse means a command got no response line in time
	ErrNoResponse = errors.New("no response")

	// ErrCommandFailed means a command was not accepted on any attempt
	ErrCommandFailed = errors.New("command failed")

	// ErrPayloadTooLarge means the encoded event exceeds the send limit
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrNotActive means an operation needs the module awake
	ErrNotActive = errors.New("radio is sleeping")
)

// UnexpectedResponseError reports a response that matched none of the
// accepted substrings
type UnexpectedResponseError struct {
	Command  string
	Response string
	Accepted []string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response to %q: %q (want one of %s)",
		e.Command, e.Response, strings.Join(e.Accepted, ", "))
}
