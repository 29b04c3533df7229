// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"log"
	"path/filepath"
	"strconv"
)

// Color is an RGB indicator colour
type Color struct {
	R, G, B uint8
}

// Indicator colours
var (
	ColorOff       = Color{0, 0, 0}
	ColorTriggered = Color{255, 0, 0}
	ColorTelemetry = Color{0, 0, 255}
)

func (c Color) String() string {
	switch c {
	case ColorOff:
		return "off"
	case ColorTriggered:
		return "red"
	case ColorTelemetry:
		return "blue"
	default:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
}

// Indicator is a status light
type Indicator interface {
	SetColor(c Color) error
	Off() error
}

// SysfsRGB drives three LED class devices, e.g.
// /sys/class/leds/rgb:red, scaling each channel to max_brightness.
type SysfsRGB struct {
	Red, Green, Blue string // LED directories
	MaxBrightness    int

	current Color
}

// NewSysfsRGB returns an indicator for the given LED directories
func NewSysfsRGB(red, green, blue string) *SysfsRGB {
	return &SysfsRGB{Red: red, Green: green, Blue: blue, MaxBrightness: 255}
}

// SetColor implements Indicator. Repeated writes of the current colour are
// skipped.
func (s *SysfsRGB) SetColor(c Color) error {
	if c == s.current {
		return nil
	}
	for _, ch := range []struct {
		dir   string
		level uint8
	}{{s.Red, c.R}, {s.Green, c.G}, {s.Blue, c.B}} {
		if ch.dir == "" {
			continue
		}
		brightness := int(ch.level) * s.MaxBrightness / 255
		if err := writeString(filepath.Join(ch.dir, "brightness"), strconv.Itoa(brightness)); err != nil {
			return err
		}
	}
	s.current = c
	return nil
}

// Off implements Indicator
func (s *SysfsRGB) Off() error {
	return s.SetColor(ColorOff)
}

// LogIndicator reports colour changes to a logger, for hosts without an LED
type LogIndicator struct {
	Logger *log.Logger

	current Color
}

// SetColor implements Indicator
func (l *LogIndicator) SetColor(c Color) error {
	if c != l.current {
		l.logger().Printf("indicator: %s", c)
		l.current = c
	}
	return nil
}

// Off implements Indicator
func (l *LogIndicator) Off() error {
	return l.SetColor(ColorOff)
}

// Current returns the last colour set
func (l *LogIndicator) Current() Color {
	return l.current
}

func (l *LogIndicator) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}
