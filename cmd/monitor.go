// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/gateway"
	"github.com/Thermoquad/tripwire/pkg/radio"
	"github.com/Thermoquad/tripwire/pkg/record"
)

var (
	errorsOnly    bool
	statsInterval int
	useTUI        bool
	serveTime     bool
	webhookURL    string
	recordPath    string
	skipConfigure bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Receive, validate and forward frames from tripwire nodes",
	Long: `Run the gateway side of the link on a receiving radio.

Every +RCV frame is parsed and validated:
  - Malformed envelopes (missing fields, non-numeric address/rssi/snr)
  - Payloads that are not JSON objects or carry no event
  - Telemetry with missing or non-numeric fields
  - Declared lengths that disagree with the payload

Optional duties:
  --serve-time   answer get_time requests so nodes can set their clock
  --webhook URL  POST every non-telemetry event as JSON
  --record FILE  append every frame to a capture file (see replay)

The receiving radio is programmed with the gateway address unless
--no-configure is given. Statistics are printed at a configurable interval.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&errorsOnly, "errors-only", false, "Show only frames with errors")
	monitorCmd.Flags().IntVar(&statsInterval, "stats-interval", 60, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&useTUI, "tui", false, "Use terminal UI")
	monitorCmd.Flags().BoolVar(&serveTime, "serve-time", true, "Answer get_time requests")
	monitorCmd.Flags().StringVar(&webhookURL, "webhook", "", "Webhook URL for events (default gateway.webhook)")
	monitorCmd.Flags().StringVar(&recordPath, "record", "", "Append frames to this capture file")
	monitorCmd.Flags().BoolVar(&skipConfigure, "no-configure", false, "Do not program the receiving radio")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	link, err := openLink(cfg, nil, gatewayOptions(cfg))
	if err != nil {
		return err
	}
	defer link.Close()

	if !skipConfigure {
		if err := link.engine.Configure(); err != nil {
			return fmt.Errorf("configure receiver: %w", err)
		}
	}

	opts := gateway.Options{}
	if serveTime {
		opts.Responder = link.engine
	}
	if webhookURL == "" {
		webhookURL = cfg.Gateway.Webhook
	}
	if webhookURL != "" {
		opts.Notifier = gateway.NewWebhook(webhookURL)
	}
	if recordPath != "" {
		f, err := os.OpenFile(recordPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open capture: %w", err)
		}
		defer f.Close()
		opts.Recorder = record.NewWriter(f)
	}

	gw := gateway.New(opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if useTUI {
		return runMonitorTUI(ctx, link, gw)
	}
	return runMonitorText(ctx, link, gw)
}

// pumpLines feeds every line from the radio through the gateway until the
// connection closes or ctx ends. Handling runs on this goroutine so time
// replies never race the reader for the module's responses.
func pumpLines(ctx context.Context, link *radioLink, gw *gateway.Gateway, handle func(gateway.Result)) error {
	for ctx.Err() == nil {
		line, err := link.transport.ReadLine(time.Second)
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
		handle(gw.Handle(ctx, line))
	}
	return nil
}

// runMonitorText prints frames and periodic statistics
func runMonitorText(ctx context.Context, link *radioLink, gw *gateway.Gateway) error {
	printBanner("Monitor", link.info)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if errorsOnly {
		fmt.Printf("Mode: Errors only\n")
	} else {
		fmt.Printf("Mode: All frames\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	lastStats := time.Now()
	interval := time.Duration(statsInterval) * time.Second

	err := pumpLines(ctx, link, gw, func(res gateway.Result) {
		printResult(res)
		if time.Since(lastStats) >= interval {
			lastStats = time.Now()
			fmt.Println()
			fmt.Print(gw.Statistics().String())
			fmt.Println()
		}
	})

	fmt.Println()
	fmt.Print(gw.Statistics().String())
	return err
}

func printResult(res gateway.Result) {
	switch {
	case !res.Received():
		if !errorsOnly {
			fmt.Printf("[%s] \033[2m%s\033[0m\n", time.Now().Format("15:04:05.000"), res.Line)
		}

	case res.ParseErr != nil:
		printDecodeError(res.ParseErr)

	case len(res.Issues) > 0:
		printValidationErrors(res.Frame, res.Issues)

	default:
		if !errorsOnly {
			fmt.Print(frame.FormatFrame(res.Frame))
		}
		if res.Replied {
			fmt.Printf("[%s] \033[1;32mTIME:\033[0m answered get_time\n\n", time.Now().Format("15:04:05.000"))
		}
	}
}

// printDecodeError prints an envelope error in highlighted format
func printDecodeError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(f *frame.Frame, issues []frame.ValidationError) {
	timestamp := f.Timestamp.Format("15:04:05.000")
	name := f.EventName()
	if name == "" {
		name = "UNKNOWN"
	}

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s from %d (RSSI %d dBm, SNR %d dB)\n",
		timestamp, name, f.Address, f.RSSI, f.SNR)

	for i, issue := range issues {
		switch issue.Type {
		case frame.AnomalyLengthMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, issue.Message)
			if received, ok := issue.Details["received"].(int); ok {
				if expected, ok := issue.Details["expected"].(int); ok {
					fmt.Printf("    Length: received=%d, declared=%d\n", received, expected)
				}
			}

		case frame.AnomalyMissingField, frame.AnomalyMissingEvent:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, issue.Message)

		case frame.AnomalyInvalidValue:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, issue.Message)
			if v, ok := issue.Details["value"]; ok {
				fmt.Printf("    value=%v\n", v)
			}

		case frame.AnomalyDecodeError:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, issue.Message)
			fmt.Printf("    payload=%q\n", f.Payload)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, issue.Message)
		}
	}
	fmt.Println()
}

// runMonitorTUI runs the monitor with the dashboard
func runMonitorTUI(ctx context.Context, link *radioLink, gw *gateway.Gateway) error {
	// the dashboard owns the terminal
	log.SetOutput(io.Discard)

	p := tea.NewProgram(initialMonitorModel(link.info, errorsOnly), tea.WithContext(ctx))

	go func() {
		err := pumpLines(ctx, link, gw, func(res gateway.Result) {
			p.Send(frameMsg{result: res, stats: *gw.Statistics()})
		})
		p.Send(linkClosedMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
