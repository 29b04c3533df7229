// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Tripwire - LoRa sensor node and gateway tools
//
// Runs the distance trigger node on a single-board computer with an
// RYLR896-class radio, and provides the receiving side's monitor, capture
// and debugging commands.

package main

import (
	"os"

	"github.com/Thermoquad/tripwire/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
