// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/radio"
)

var (
	pingTimeout int
	pingCount   int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test the radio by sending AT and waiting for +OK",
	Long: `Send the AT test command to the radio module and wait for +OK.

This command checks the local half of the link: the serial port or WebSocket
bridge, the baud rate and the module itself. Nothing is transmitted over the
air and the module is never reset.

Exit codes:
  0 - All pings successful
  1 - One or more pings failed/timed out
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingTimeout, "timeout", 2, "Timeout in seconds for each ping")
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}

	opts := cfg.RadioOptions()
	opts.ReadTimeout = time.Duration(pingTimeout) * time.Second
	if pingCount < 1 {
		pingCount = 1
	}

	link, err := openLink(cfg, nil, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()
	link.engine.SetLogger(log.New(io.Discard, "", 0))

	printBanner("Ping", link.info)
	fmt.Printf("Timeout: %d seconds per ping\n", pingTimeout)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	// drop anything the module said before we started
	link.transport.Flush()

	successCount := 0
	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		start := time.Now()
		response, err := link.engine.Exchange(radio.CmdTest)
		rtt := time.Since(start)

		switch {
		case err != nil:
			fmt.Printf("TIMEOUT (%v)\n", err)
		case !strings.Contains(response, "OK"):
			fmt.Printf("UNEXPECTED %q\n", response)
		default:
			fmt.Printf("%s rtt=%v\n", response, rtt.Round(time.Millisecond))
			successCount++
		}

		if i < pingCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	failCount := pingCount - successCount
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
