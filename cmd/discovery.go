// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

var discoveryTimeout int

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List the nodes heard on the network",
	Long: `Listen for frames and list every node address heard.

Nodes sleep between transmissions and never answer requests, so discovery
is passive: it collects +RCV frames until the timeout and then summarises
each sender with its frame count, last event and signal quality.

Examples:
  # Listen for ten minutes on a local receiver
  tripwire discovery --port /dev/ttyUSB0 --timeout 600

Exit codes:
  0 - Discovery successful (at least one node heard)
  1 - Discovery failed (no nodes heard before the timeout)
  2 - Connection error`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().IntVar(&discoveryTimeout, "timeout", 600, "Listening time in seconds")
}

type discoveredNode struct {
	address   int
	frames    int
	lastEvent string
	lastSeen  time.Time
	bestRSSI  int
	lastRSSI  int
	lastSNR   int
}

func runDiscovery(cmd *cobra.Command, args []string) error {
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

	printBanner("Node Discovery", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", discoveryTimeout)

	transport := radio.NewLineTransport(conn)
	nodes := make(map[int]*discoveredNode)
	deadline := time.Now().Add(time.Duration(discoveryTimeout) * time.Second)

	for time.Now().Before(deadline) {
		line, err := transport.ReadLine(time.Until(deadline))
		if errors.Is(err, radio.ErrNoData) {
			continue
		}
		if err != nil {
			fmt.Printf("READ FAILED: %v\n", err)
			os.Exit(2)
		}
		if !frame.IsReceive(line) {
			continue
		}
		f, err := frame.Parse(line)
		if err != nil {
			continue
		}

		n, ok := nodes[f.Address]
		if !ok {
			n = &discoveredNode{address: f.Address, bestRSSI: f.RSSI}
			nodes[f.Address] = n
			fmt.Printf("Node found: address %d (RSSI %d dBm, SNR %d dB)\n", f.Address, f.RSSI, f.SNR)
		}
		n.frames++
		n.lastEvent = f.EventName()
		n.lastSeen = f.Timestamp
		n.lastRSSI = f.RSSI
		n.lastSNR = f.SNR
		if f.RSSI > n.bestRSSI {
			n.bestRSSI = f.RSSI
		}
	}

	fmt.Printf("\n--- Discovery summary ---\n")
	fmt.Printf("Nodes found: %d\n", len(nodes))

	if len(nodes) == 0 {
		fmt.Printf("No nodes heard. Check network id, band and node power.\n")
		os.Exit(1)
	}

	addresses := make([]int, 0, len(nodes))
	for addr := range nodes {
		addresses = append(addresses, addr)
	}
	sort.Ints(addresses)

	for _, addr := range addresses {
		n := nodes[addr]
		event := n.lastEvent
		if event == "" {
			event = "(none)"
		}
		fmt.Printf("\nNode %d:\n", n.address)
		fmt.Printf("  Frames: %d\n", n.frames)
		fmt.Printf("  Last event: %s at %s\n", event, n.lastSeen.Format("15:04:05"))
		fmt.Printf("  RSSI: %d dBm (best %d dBm)\n", n.lastRSSI, n.bestRSSI)
		fmt.Printf("  SNR: %d dB\n", n.lastSNR)
	}
	return nil
}
