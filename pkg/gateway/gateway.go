// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gateway handles frames arriving at the receiving radio: parsing,
// validation, statistics, time service, capture and event forwarding.
package gateway

import (
	"context"
	"log"
	"time"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

// Responder sends replies back over the radio
type Responder interface {
	SendData(event radio.Event) error
}

// Recorder stores received frames
type Recorder interface {
	Write(f *frame.Frame) error
}

// Notifier forwards a node event
type Notifier interface {
	Notify(ctx context.Context, f *frame.Frame) error
}

// Options selects the optional gateway duties. Nil members are skipped.
type Options struct {
	Responder Responder // answers get_time requests
	Recorder  Recorder
	Notifier  Notifier // receives every named event except telemetry
}

// Result describes how one line was handled
type Result struct {
	Line     string
	Frame    *frame.Frame            // nil when the line is not a receive frame
	ParseErr error                   // envelope errors
	Issues   []frame.ValidationError // payload problems
	Replied  bool                    // a time reply was sent
}

// Received reports whether the line was a receive frame, valid or not
func (r Result) Received() bool {
	return r.Frame != nil || r.ParseErr != nil
}

// Gateway processes lines from the receiving radio. It is not safe for
// concurrent use.
type Gateway struct {
	opts   Options
	stats  *frame.Statistics
	logger *log.Logger
	now    func() time.Time
}

// New creates a gateway
func New(opts Options) *Gateway {
	return &Gateway{
		opts:   opts,
		stats:  frame.NewStatistics(),
		logger: log.Default(),
		now:    time.Now,
	}
}

// SetLogger replaces the diagnostic logger
func (g *Gateway) SetLogger(l *log.Logger) {
	g.logger = l
}

// Statistics returns the live frame statistics
func (g *Gateway) Statistics() *frame.Statistics {
	return g.stats
}

// Handle processes one line. Lines that are not receive frames, such as
// command responses, are returned untouched.
func (g *Gateway) Handle(ctx context.Context, line string) Result {
	res := Result{Line: line}
	if !frame.IsReceive(line) {
		return res
	}

	f, err := frame.Parse(line)
	if err != nil {
		res.ParseErr = err
		g.stats.Update(nil, err, nil)
		return res
	}
	f.Timestamp = g.now()
	res.Frame = f

	res.Issues = frame.Validate(f)
	g.stats.Update(f, nil, res.Issues)

	if g.opts.Recorder != nil {
		if err := g.opts.Recorder.Write(f); err != nil {
			g.logger.Printf("[ERROR] record: %v", err)
		}
	}

	if f.IsTimeRequest() {
		res.Replied = g.replyTime()
		return res
	}

	if name := f.EventName(); g.opts.Notifier != nil && name != "" && name != frame.EventTelemetry {
		if err := g.opts.Notifier.Notify(ctx, f); err != nil {
			g.logger.Printf("[ERROR] notify: %v", err)
		}
	}
	return res
}

func (g *Gateway) replyTime() bool {
	if g.opts.Responder == nil {
		return false
	}
	if err := g.opts.Responder.SendData(radio.Event(frame.TimeReply(g.now()))); err != nil {
		g.logger.Printf("[ERROR] time reply: %v", err)
		return false
	}
	return true
}
