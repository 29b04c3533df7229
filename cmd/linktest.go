// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

var linkTestTimeout int

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test the link by waiting for a valid receive frame",
	Long: `Wait for a valid +RCV frame on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
from a tripwire node whose envelope parses and whose payload is a JSON
object. Command responses and boot chatter are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking that a node is in range and on the same network id.`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestTimeout, "timeout", 600, "Timeout in seconds to wait for a frame")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	printBanner("Link Test", connInfo)
	fmt.Printf("Timeout: %d seconds\n", linkTestTimeout)
	fmt.Printf("Waiting for a valid frame...\n\n")

	transport := radio.NewLineTransport(conn)
	deadline := time.Now().Add(time.Duration(linkTestTimeout) * time.Second)
	skipped := 0

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", linkTestTimeout)
			os.Exit(1)
		}

		line, err := transport.ReadLine(remaining)
		if errors.Is(err, radio.ErrNoData) {
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)
		}

		if !frame.IsReceive(line) {
			skipped++
			continue
		}
		f, err := frame.Parse(line)
		if err != nil {
			skipped++
			continue
		}
		if _, err := f.Decode(); err != nil {
			skipped++
			continue
		}

		if skipped > 0 {
			fmt.Printf("(skipped %d other lines)\n", skipped)
		}
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Event: %s\n", f.EventName())
		fmt.Printf("  Address: %d\n", f.Address)
		fmt.Printf("  Length: %d bytes\n", f.Length)
		fmt.Printf("  RSSI: %d dBm\n", f.RSSI)
		fmt.Printf("  SNR: %d dB\n", f.SNR)
		os.Exit(0)
	}
}
