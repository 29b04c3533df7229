// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/record"
)

var (
	replayValidate   bool
	replayErrorsOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Print the frames stored in a capture file",
	Long: `Read a capture file written by 'monitor --record' and print every frame
in the same format the monitor uses.

Corrupt records are skipped and counted. With --validate each frame is also
checked the way the monitor checks live traffic, and statistics are printed
at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayValidate, "validate", false, "Validate frames and print statistics")
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only print frames that fail validation (implies --validate)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	if replayErrorsOnly {
		replayValidate = true
	}

	stats := frame.NewStatistics()
	reader := record.NewReader(f)
	count := 0

	for {
		entry, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read capture: %w", err)
		}
		count++

		fr := entry.Frame()
		if !replayValidate {
			fmt.Print(frame.FormatFrame(fr))
			continue
		}

		issues := frame.Validate(fr)
		stats.Update(fr, nil, issues)
		if len(issues) > 0 {
			printValidationErrors(fr, issues)
		} else if !replayErrorsOnly {
			fmt.Print(frame.FormatFrame(fr))
		}
	}

	fmt.Printf("\n%d frame(s) replayed", count)
	if n := reader.Corrupt(); n > 0 {
		fmt.Printf(", %d corrupt record(s) skipped", n)
	}
	fmt.Println()

	if replayValidate {
		fmt.Println(stats.String())
	}
	return nil
}
