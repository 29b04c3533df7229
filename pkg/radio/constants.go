// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package radio drives an RYLR896-class LoRa module through its AT-command
// dialect over a half-duplex serial line.
//
// Every command is a single CRLF-terminated line answered by a single
// response line. A response is accepted when it contains one of the
// substrings the caller names. Any other outcome, including silence, is
// recovered with a hardware reset of the module followed by one re-issue of
// the command.
package radio

import "time"

// Line terminator for commands
const CRLF = "\r\n"

// AT commands
const (
	CmdTest      = "AT"
	CmdReset     = "AT+RESET"
	CmdFactory   = "AT+FACTORY"
	CmdNetworkID = "AT+NETWORKID=%d"
	CmdAddress   = "AT+ADDRESS=%d"
	CmdBand      = "AT+BAND=%d"
	CmdPassword  = "AT+CPIN=%s"
	CmdSend      = "AT+SEND=%d,%d,%s"
	CmdModeTRX   = "AT+MODE=0" // transmit and receive
	CmdModeSleep = "AT+MODE=1"
)

// Accepted response substrings
var (
	AcceptOK      = []string{"OK"}
	AcceptFactory = []string{"FACTORY"}
	AcceptWake    = []string{"OK", "MODE=0", "READY"}
	AcceptSleep   = []string{"OK", "MODE=1"}
	AcceptSend    = []string{"OK", "SEND"}
)

// Defaults
const (
	DefaultNetworkID   = 3
	DefaultAddress     = 1
	DefaultDestination = 0 // broadcast
	DefaultReadTimeout = 2 * time.Second
	DefaultResetHold   = time.Second
	DefaultCooldown    = 10 * time.Second
	DefaultMaxAttempts = 2

	// MinResetHold is the shortest low pulse the module honours
	MinResetHold = 100 * time.Millisecond
)
