// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"log"

	"github.com/Thermoquad/tripwire/pkg/config"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

// radioLink is an open connection with the line transport and command
// engine layered on it
type radioLink struct {
	conn      Connection
	transport *radio.LineTransport
	engine    *radio.Engine
	info      string
}

// openLink connects to the radio. resetLine may be nil.
func openLink(cfg *config.Config, resetLine radio.ResetLine, opts radio.Options) (*radioLink, error) {
	conn, info, err := OpenConnection(cfg)
	if err != nil {
		return nil, err
	}

	transport := radio.NewLineTransport(conn)
	engine := radio.NewEngine(transport, resetLine, opts)
	engine.SetLogger(log.Default())

	return &radioLink{conn: conn, transport: transport, engine: engine, info: info}, nil
}

func (l *radioLink) Close() error {
	return l.conn.Close()
}

// gatewayOptions are the engine options for the receiving radio: its own
// address, replying to the configured node
func gatewayOptions(cfg *config.Config) radio.Options {
	opts := cfg.RadioOptions()
	opts.Address = cfg.Gateway.Address
	opts.Destination = cfg.Radio.Address
	return opts
}

func printBanner(title, info string) {
	fmt.Printf("Tripwire - %s\n", title)
	fmt.Printf("Connection: %s\n", info)
}
