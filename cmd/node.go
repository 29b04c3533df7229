// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/device"
	"github.com/Thermoquad/tripwire/pkg/node"
	"github.com/Thermoquad/tripwire/pkg/telemetry"
	"github.com/Thermoquad/tripwire/pkg/trigger"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Run the sensor node",
	Long: `Run the tripwire sensor node.

The node resets and programs the radio, asks the gateway for the time, then
evaluates the distance sensor every tick and sends telemetry on a slower
cadence. A reading below the trigger threshold sends one "triggered" event,
after which the detector holds for hold_ticks before re-arming.

Sensors, the status LED and the radio reset line are read from the devices
section of the configuration file. Without a reset GPIO the radio is reset
with AT+RESET.`,
	RunE: runNode,
}

func init() {
	rootCmd.AddCommand(nodeCmd)
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	link, err := openLink(cfg, cfg.Devices.ResetLine(), cfg.RadioOptions())
	if err != nil {
		return err
	}
	defer link.Close()

	printBanner("Node", link.info)
	fmt.Printf("Network: %d  Address: %d  Destination: %d\n",
		cfg.Radio.NetworkID, cfg.Radio.Address, cfg.Radio.Destination)
	fmt.Printf("Telemetry every %d ticks of %v\n", cfg.Node.TelemetryEvery, cfg.Node.Tick)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	logger := log.Default()
	engine := link.engine
	board := cfg.Devices.Board(logger)
	clock := device.NewOffsetClock()

	detector := trigger.NewDetector(cfg.TriggerConfig(), engine)
	detector.SetLogger(logger)

	n := node.New(node.Components{
		Radio:     engine,
		Detector:  detector,
		Composer:  telemetry.NewComposer(board, clock, engine),
		Sensors:   board,
		Indicator: cfg.Devices.Indicator(logger),
		Clock:     clock,
	}, cfg.NodeOptions())
	n.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		return err
	}
	err = n.Run(ctx)

	log.Printf("node: %s", n.Stats())
	log.Printf("radio: %s", engine.Stats())
	return err
}
