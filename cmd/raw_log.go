// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

var rawLogDecode bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display every line from the radio with timestamps",
	Long: `Continuously display lines from the radio module as they arrive.

Nothing is sent to the module, so this shows exactly what it reports: command
responses, boot chatter and +RCV frames. With --decode, receive frames are
additionally shown in human-readable form.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogDecode, "decode", false, "Decode +RCV frames")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	printBanner("Raw Line Log", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	transport := radio.NewLineTransport(conn)
	for {
		line, err := transport.ReadLine(time.Second)
		if errors.Is(err, radio.ErrNoData) {
			continue
		}
		if err != nil {
			if isClosed(err) {
				log.Printf("Connection closed")
				return nil
			}
			return err
		}

		fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), line)
		if rawLogDecode && frame.IsReceive(line) {
			f, err := frame.Parse(line)
			if err != nil {
				fmt.Printf("[ERROR] %v\n", err)
				continue
			}
			fmt.Print(frame.FormatFrame(f))
		}
	}
}
