// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Thermoquad/tripwire/pkg/frame"
)

// Mode is the module's power mode as last commanded by the engine
type Mode int

const (
	ModeActive Mode = iota
	ModeSleeping
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "active"
	case ModeSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// Options configures an Engine
type Options struct {
	NetworkID   int
	Address     int
	Destination int    // AT+SEND target address, 0 broadcasts
	Band        uint32 // Hz, 0 keeps the module default
	Password    string // AES password, "" keeps the module default

	ReadTimeout time.Duration
	ResetHold   time.Duration
	Cooldown    time.Duration
	MaxAttempts int // total attempts per command, including the first
}

// DefaultOptions returns the settings the deployed nodes use
func DefaultOptions() Options {
	return Options{
		NetworkID:   DefaultNetworkID,
		Address:     DefaultAddress,
		Destination: DefaultDestination,
		ReadTimeout: DefaultReadTimeout,
		ResetHold:   DefaultResetHold,
		Cooldown:    DefaultCooldown,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Engine issues commands to the module one at a time and recovers from
// failures by resetting it. An Engine owns its Transport exclusively and is
// not safe for concurrent use.
type Engine struct {
	transport Transport
	resetLine ResetLine
	opts      Options
	mode      Mode
	stats     Stats

	logger *log.Logger
	sleep  func(time.Duration)
}

// NewEngine creates an engine. resetLine may be nil, in which case Reset
// falls back to the AT+RESET software reset.
func NewEngine(transport Transport, resetLine ResetLine, opts Options) *Engine {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.ResetHold < MinResetHold {
		opts.ResetHold = MinResetHold
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	return &Engine{
		transport: transport,
		resetLine: resetLine,
		opts:      opts,
		mode:      ModeActive,
		logger:    log.Default(),
		sleep:     time.Sleep,
	}
}

// SetLogger replaces the diagnostic logger
func (e *Engine) SetLogger(l *log.Logger) {
	e.logger = l
}

// Options returns the engine configuration
func (e *Engine) Options() Options {
	return e.opts
}

// Mode returns the current power mode
func (e *Engine) Mode() Mode {
	return e.mode
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	return e.stats
}

// Sleep marks the module as sleeping. Subsequent sends are bracketed by
// wake and sleep commands.
func (e *Engine) Sleep() {
	e.mode = ModeSleeping
}

// Wake marks the module as active
func (e *Engine) Wake() {
	e.mode = ModeActive
}

// Reset pulses the reset line, drains boot chatter until two consecutive
// reads return nothing, then announces the reset. It always returns.
func (e *Engine) Reset() {
	e.stats.Resets++
	e.logger.Printf("Resetting LoRa module...")

	if e.resetLine != nil {
		if err := e.resetLine.SetLow(); err != nil {
			e.logger.Printf("reset line low: %v", err)
		}
		e.sleep(e.opts.ResetHold)
		if err := e.resetLine.SetHigh(); err != nil {
			e.logger.Printf("reset line high: %v", err)
		}
	} else if _, err := e.transport.Write([]byte(CmdReset + CRLF)); err != nil {
		e.logger.Printf("software reset: %v", err)
	}

	quiet := 0
	for quiet < 2 {
		line, err := e.transport.ReadLine(e.opts.ReadTimeout)
		if err != nil {
			quiet++
			continue
		}
		quiet = 0
		e.logger.Printf("reset response: %q", line)
	}
	e.logger.Printf("reset successful")

	// The module powers up active, so the announcement is never bracketed
	// and never re-enters recovery.
	command, _, err := e.encodeSend(NewEvent(frame.EventReset, nil))
	if err == nil {
		_, err = e.exchange(command, AcceptSend)
	}
	if err != nil {
		e.logger.Printf("[ERROR] reset notification: %v", err)
	}
}

// SendCommand writes command and waits for a response containing one of
// accepted (default "OK"). On timeout or mismatch the module is reset,
// the engine waits out the cooldown and re-issues the command, up to
// MaxAttempts in total. No reset follows the final failed attempt.
func (e *Engine) SendCommand(command string, accepted ...string) (string, error) {
	if len(accepted) == 0 {
		accepted = AcceptOK
	}

	var lastErr error
	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			e.stats.Retries++
			e.logger.Printf("retrying %q (attempt %d/%d)", command, attempt, e.opts.MaxAttempts)
		}

		response, err := e.exchange(command, accepted)
		if err == nil {
			return response, nil
		}
		lastErr = err
		e.logger.Printf("[ERROR] %v", err)

		if attempt < e.opts.MaxAttempts {
			e.Reset()
			e.sleep(e.opts.Cooldown)
		}
	}

	e.stats.Failures++
	return "", fmt.Errorf("%w: %q: %w", ErrCommandFailed, command, lastErr)
}

// Exchange writes command and returns whatever single line comes back,
// without acceptance checks or recovery.
func (e *Engine) Exchange(command string) (string, error) {
	if err := e.write(command); err != nil {
		return "", err
	}
	return e.transport.ReadLine(e.opts.ReadTimeout)
}

func (e *Engine) exchange(command string, accepted []string) (string, error) {
	if err := e.write(command); err != nil {
		return "", err
	}

	response, err := e.transport.ReadLine(e.opts.ReadTimeout)
	if err != nil {
		if errors.Is(err, ErrNoData) {
			return "", fmt.Errorf("%w to %q", ErrNoResponse, command)
		}
		return "", fmt.Errorf("read response to %q: %w", command, err)
	}
	e.logger.Printf("< %s", response)

	if !matches(response, accepted) {
		return "", &UnexpectedResponseError{Command: command, Response: response, Accepted: accepted}
	}
	return response, nil
}

func (e *Engine) write(command string) error {
	e.stats.Commands++
	e.logger.Printf("> %s", command)
	if _, err := e.transport.Write([]byte(command + CRLF)); err != nil {
		return fmt.Errorf("write %q: %w", command, err)
	}
	return nil
}

func matches(response string, accepted []string) bool {
	for _, want := range accepted {
		if want != "" && strings.Contains(response, want) {
			return true
		}
	}
	return false
}

// Startup resets the module and programs the network settings, then
// announces the node.
func (e *Engine) Startup() error {
	e.Reset()
	if err := e.Configure(); err != nil {
		return err
	}
	return e.SendEvent(frame.EventStartup, nil)
}

// Configure restores factory settings and programs the network id, address
// and the optional band and password. It neither resets the module nor
// announces anything.
func (e *Engine) Configure() error {
	if _, err := e.SendCommand(CmdFactory, AcceptFactory...); err != nil {
		return fmt.Errorf("factory reset: %w", err)
	}
	if _, err := e.SendCommand(fmt.Sprintf(CmdNetworkID, e.opts.NetworkID)); err != nil {
		return fmt.Errorf("set network id: %w", err)
	}
	if _, err := e.SendCommand(fmt.Sprintf(CmdAddress, e.opts.Address)); err != nil {
		return fmt.Errorf("set address: %w", err)
	}
	if e.opts.Band != 0 {
		if _, err := e.SendCommand(fmt.Sprintf(CmdBand, e.opts.Band)); err != nil {
			return fmt.Errorf("set band: %w", err)
		}
	}
	if e.opts.Password != "" {
		if _, err := e.SendCommand(fmt.Sprintf(CmdPassword, e.opts.Password)); err != nil {
			return fmt.Errorf("set password: %w", err)
		}
	}
	return nil
}

// encodeSend builds the AT+SEND command line for an event and returns it
// with the payload size
func (e *Engine) encodeSend(event Event) (string, int, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", 0, fmt.Errorf("encode payload: %w", err)
	}
	if len(payload) > frame.MaxPayloadSize {
		return "", 0, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), frame.MaxPayloadSize)
	}
	return fmt.Sprintf(CmdSend, e.opts.Destination, len(payload), payload), len(payload), nil
}

// SendData transmits event as one JSON payload. While sleeping, the send is
// bracketed by a wake and a sleep command so the module always ends in the
// mode it started in.
func (e *Engine) SendData(event Event) error {
	command, size, err := e.encodeSend(event)
	if err != nil {
		return err
	}

	sleeping := e.mode == ModeSleeping
	if sleeping {
		if _, err := e.SendCommand(CmdModeTRX, AcceptWake...); err != nil {
			e.restoreSleep()
			return fmt.Errorf("wake for send: %w", err)
		}
		// the module follows the mode switch with an unsolicited ready notice
		e.transport.ReadLine(e.opts.ReadTimeout)
	}

	_, sendErr := e.SendCommand(command, AcceptSend...)
	if sendErr == nil {
		e.stats.Sent++
		e.stats.BytesSent += uint64(size)
	}

	if sleeping {
		if err := e.restoreSleep(); err != nil && sendErr == nil {
			sendErr = err
		}
	}
	return sendErr
}

func (e *Engine) restoreSleep() error {
	if _, err := e.SendCommand(CmdModeSleep, AcceptSleep...); err != nil {
		return fmt.Errorf("restore sleep mode: %w", err)
	}
	return nil
}

// SendEvent sends {event: name} merged with extra
func (e *Engine) SendEvent(name string, extra Event) error {
	return e.SendData(NewEvent(name, extra))
}

// SendTelemetry sends one telemetry report
func (e *Engine) SendTelemetry(t Telemetry) error {
	return e.SendData(t.Event())
}

// GetTime asks the peer for the time, repeating the request until a reply
// line arrives. A reply that is not a well-formed time frame is an error.
// The module must be active to hear the reply.
func (e *Engine) GetTime(ctx context.Context) (frame.TimeSync, error) {
	if e.mode != ModeActive {
		return frame.TimeSync{}, ErrNotActive
	}

	var line string
	for {
		if err := ctx.Err(); err != nil {
			return frame.TimeSync{}, err
		}

		if err := e.SendData(Event(frame.TimeRequest())); err != nil {
			e.logger.Printf("[ERROR] time request: %v", err)
			continue
		}

		response, err := e.transport.ReadLine(e.opts.ReadTimeout)
		if err == nil && strings.TrimSpace(response) != "" {
			line = response
			break
		}
	}
	e.logger.Printf("< %s", line)

	f, err := frame.Parse(line)
	if err != nil {
		return frame.TimeSync{}, fmt.Errorf("time reply: %w", err)
	}
	ts, err := frame.DecodeTimeSync(f)
	if err != nil {
		return frame.TimeSync{}, fmt.Errorf("time reply: %w", err)
	}
	return ts, nil
}
