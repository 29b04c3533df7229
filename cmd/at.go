// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	atExpect  []string
	atTimeout int
	atVerbose bool
)

var atCmd = &cobra.Command{
	Use:   "at COMMAND",
	Short: "Send one AT command to the radio module",
	Long: `Send one AT command to the radio module and print the response line.

Without --expect the first line the module returns is printed as-is. With
--expect the command goes through the engine's recovery path: a response that
contains none of the expected strings resets the module and the command is
re-issued before giving up.

Examples:
  tripwire at AT+VER?
  tripwire at AT+NETWORKID=3 --expect OK
  tripwire at AT+FACTORY --expect FACTORY`,
	Args: cobra.ExactArgs(1),
	RunE: runAT,
}

func init() {
	rootCmd.AddCommand(atCmd)
	atCmd.Flags().StringSliceVar(&atExpect, "expect", nil, "Accepted response substrings (enables recovery)")
	atCmd.Flags().IntVar(&atTimeout, "timeout", 2, "Response timeout in seconds")
	atCmd.Flags().BoolVarP(&atVerbose, "verbose", "v", false, "Log every line exchanged")
}

func runAT(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := cfg.RadioOptions()
	opts.ReadTimeout = time.Duration(atTimeout) * time.Second

	link, err := openLink(cfg, nil, opts)
	if err != nil {
		return err
	}
	defer link.Close()
	if !atVerbose {
		link.engine.SetLogger(log.New(io.Discard, "", 0))
	}

	command := strings.TrimSpace(args[0])
	link.transport.Flush()

	var response string
	if len(atExpect) > 0 {
		response, err = link.engine.SendCommand(command, atExpect...)
	} else {
		response, err = link.engine.Exchange(command)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}

	fmt.Println(response)
	return nil
}
