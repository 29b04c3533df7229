// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package radio

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Transport is the line-delimited serial channel to the module
type Transport interface {
	Write(p []byte) (int, error)

	// ReadLine blocks for at most timeout and returns one line without its
	// terminator, or ErrNoData if none arrived.
	ReadLine(timeout time.Duration) (string, error)
}

// ResetLine is the module's active-low reset pin
type ResetLine interface {
	SetLow() error
	SetHigh() error
}

// LineTransport splits any byte stream (serial port, websocket bridge) into
// lines. A reader goroutine feeds complete, non-blank lines to a channel so
// that ReadLine can honour its timeout even when the underlying Read blocks.
type LineTransport struct {
	w     io.Writer
	lines chan string
	done  chan struct{}

	mu      sync.Mutex
	readErr error
}

// NewLineTransport starts reading lines from rw
func NewLineTransport(rw io.ReadWriter) *LineTransport {
	t := &LineTransport{
		w:     rw,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	go t.readLoop(rw)
	return t
}

func (t *LineTransport) readLoop(r io.Reader) {
	defer close(t.done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.lines <- line
	}

	t.mu.Lock()
	t.readErr = scanner.Err()
	t.mu.Unlock()
}

// Write sends raw bytes to the module
func (t *LineTransport) Write(p []byte) (int, error) {
	return t.w.Write(p)
}

// ReadLine returns the next line, ErrNoData on timeout, or ErrClosed once
// the stream has ended and every buffered line has been consumed.
func (t *LineTransport) ReadLine(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-t.lines:
		return line, nil
	case <-t.done:
		select {
		case line := <-t.lines:
			return line, nil
		default:
		}
		return "", t.closedErr()
	case <-timer.C:
		return "", ErrNoData
	}
}

// Flush discards buffered lines and returns how many were dropped
func (t *LineTransport) Flush() int {
	n := 0
	for {
		select {
		case <-t.lines:
			n++
		default:
			return n
		}
	}
}

func (t *LineTransport) closedErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.readErr != nil {
		return fmt.Errorf("%w: %v", ErrClosed, t.readErr)
	}
	return ErrClosed
}
