// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/gateway"
)

// eventEntry is one line of the event log
type eventEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

func (e eventEntry) Title() string {
	if e.isError {
		return "✗ " + e.message
	}
	return "ℹ " + e.message
}
func (e eventEntry) Description() string { return e.timestamp.Format("01/02/06 15:04:05.000") }
func (e eventEntry) FilterValue() string { return e.message }

// telemetryData is the latest telemetry report
type telemetryData struct {
	received        time.Time
	address         int
	timestamp       time.Time
	batteryVoltage  float64
	sonarVoltage    float64
	cpuTemperature  float64
	caseTemperature float64
	caseHumidity    float64
	rssi            int
	snr             int
}

// monitorModel is the Bubble Tea model for the monitor dashboard
type monitorModel struct {
	connInfo      string
	errorsOnly    bool
	started       time.Time
	stats         frame.Statistics
	events        list.Model
	maxLogEntries int
	lastTelemetry *telemetryData
	triggers      int
	lastTrigger   time.Time
	width         int
	height        int
	quitting      bool
	closed        bool
}

// Messages
type monitorTickMsg time.Time
type frameMsg struct {
	result gateway.Result
	stats  frame.Statistics
}
type linkClosedMsg struct {
	err error
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	if seconds <= 0 {
		return "0 seconds"
	}

	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	return strings.Join(parts[:len(parts)-1], ", ") + ", and " + last
}

func initialMonitorModel(connInfo string, errorsOnly bool) monitorModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	events := list.New([]list.Item{}, delegate, 80, 10)
	events.Title = "Recent Events"
	events.SetShowStatusBar(false)
	events.SetShowHelp(false)
	events.SetFilteringEnabled(false)

	return monitorModel{
		connInfo:      connInfo,
		errorsOnly:    errorsOnly,
		started:       time.Now(),
		events:        events,
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		monitorTickCmd(),
		tea.EnterAltScreen,
	)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeEvents()

	case monitorTickMsg:
		m.stats.CalculateRates()
		return m, monitorTickCmd()

	case frameMsg:
		m.stats = msg.stats
		cmd := m.handleResult(msg.result)
		return m, cmd

	case linkClosedMsg:
		m.closed = true
		text := "Connection closed"
		if msg.err != nil {
			text = fmt.Sprintf("Connection lost: %v", msg.err)
		}
		cmd := m.addLogEntry(text, true)
		return m, cmd
	}

	return m, nil
}

func (m *monitorModel) handleResult(res gateway.Result) tea.Cmd {
	switch {
	case !res.Received():
		return nil

	case res.ParseErr != nil:
		return m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", res.ParseErr), true)
	}

	f := res.Frame
	name := f.EventName()

	var cmds []tea.Cmd
	for _, issue := range res.Issues {
		cmds = append(cmds, m.addLogEntry(fmt.Sprintf("%s from %d: %s", name, f.Address, issue.Message), true))
	}

	switch {
	case res.Replied:
		cmds = append(cmds, m.addLogEntry(fmt.Sprintf("Answered get_time from %d", f.Address), false))
	case name == frame.EventTelemetry:
		m.parseTelemetry(f)
		if !m.errorsOnly && len(res.Issues) == 0 {
			cmds = append(cmds, m.addLogEntry(fmt.Sprintf("telemetry from %d", f.Address), false))
		}
	case name == frame.EventTriggered:
		m.triggers++
		m.lastTrigger = f.Timestamp
		cmds = append(cmds, m.addLogEntry(fmt.Sprintf("TRIGGERED at %d (RSSI %d dBm)", f.Address, f.RSSI), false))
	case name != "" && !m.errorsOnly:
		cmds = append(cmds, m.addLogEntry(fmt.Sprintf("%s from %d", name, f.Address), false))
	}
	return tea.Batch(cmds...)
}

func (m *monitorModel) addLogEntry(message string, isError bool) tea.Cmd {
	entry := eventEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	cmd := m.events.InsertItem(0, entry)

	// Keep only last N entries
	if n := len(m.events.Items()); n > m.maxLogEntries {
		m.events.RemoveItem(n - 1)
	}
	return cmd
}

// parseTelemetry keeps the numeric fields of a telemetry frame
func (m *monitorModel) parseTelemetry(f *frame.Frame) {
	data, err := f.Decode()
	if err != nil {
		return
	}
	number := func(key string) float64 {
		v, _ := data[key].(float64)
		return v
	}

	m.lastTelemetry = &telemetryData{
		received:        f.Timestamp,
		address:         f.Address,
		timestamp:       time.Unix(int64(number(frame.KeyTimestamp)), 0),
		batteryVoltage:  number(frame.KeyBatteryVoltage),
		sonarVoltage:    number(frame.KeySonarVoltage),
		cpuTemperature:  number(frame.KeyCPUTemperature),
		caseTemperature: number(frame.KeyCaseTemperature),
		caseHumidity:    number(frame.KeyCaseHumidity),
		rssi:            f.RSSI,
		snr:             f.SNR,
	}
}

func (m *monitorModel) resizeEvents() {
	// header, statistics and telemetry boxes take roughly 18 rows
	h := m.height - 18
	if h < 6 {
		h = 6
	}
	m.events.SetSize(m.width-4, h)
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("TRIPWIRE - MONITOR"))
	s.WriteString("\n")
	mode := "All frames"
	if m.errorsOnly {
		mode = "Errors only"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Mode: %s | Up %s | Press 'q' to quit",
		m.connInfo, mode, formatUptime(time.Since(m.started)))))
	s.WriteString("\n\n")

	if m.closed {
		s.WriteString(errorStyle.Render("✗ Connection closed"))
	} else {
		s.WriteString(valueStyle.Render("✓ Listening"))
	}
	s.WriteString("\n\n")

	// Statistics
	var validPercent, errorPercent float64
	if m.stats.TotalFrames > 0 {
		validPercent = float64(m.stats.ValidFrames) * 100.0 / float64(m.stats.TotalFrames)
		errorPercent = float64(m.stats.ErrorCount()) * 100.0 / float64(m.stats.TotalFrames)
	}

	stats := strings.Builder{}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		labelStyle.Render("Total:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalFrames)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ValidFrames, validPercent)),
		labelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.ErrorCount(), errorPercent)),
	))
	stats.WriteString(fmt.Sprintf("%s %d   %s %d   %s %d\n",
		labelStyle.Render("Telemetry:"), m.stats.Telemetry,
		labelStyle.Render("Events:"), m.stats.Events,
		labelStyle.Render("Time requests:"), m.stats.TimeRequests,
	))
	if m.stats.LengthMismatches > 0 || m.stats.MissingFields > 0 || m.stats.InvalidValues > 0 {
		stats.WriteString(fmt.Sprintf("%s (%s: %d, %s: %d, %s: %d)\n",
			labelStyle.Render("Anomalies:"),
			headerStyle.Render("length"), m.stats.LengthMismatches,
			headerStyle.Render("missing"), m.stats.MissingFields,
			headerStyle.Render("invalid"), m.stats.InvalidValues,
		))
	}
	errorRate := valueStyle.Render(fmt.Sprintf("%.2f err/min", m.stats.ErrorRate))
	if m.stats.ErrorRate > 0 {
		errorRate = errorStyle.Render(fmt.Sprintf("%.2f err/min", m.stats.ErrorRate))
	}
	stats.WriteString(fmt.Sprintf("%s %s   %s %s",
		labelStyle.Render("Frame Rate:"), valueStyle.Render(fmt.Sprintf("%.2f frames/min", m.stats.FrameRate)),
		labelStyle.Render("Error Rate:"), errorRate,
	))

	s.WriteString(boxStyle.Render(stats.String()))
	s.WriteString("\n\n")

	// Node section (only shown once telemetry arrived)
	if t := m.lastTelemetry; t != nil {
		s.WriteString(labelStyle.Render(fmt.Sprintf("Node %d:", t.address)))
		s.WriteString("\n")

		node := strings.Builder{}
		node.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Battery:"), valueStyle.Render(fmt.Sprintf("%.0f", t.batteryVoltage)),
			labelStyle.Render("Sonar:"), valueStyle.Render(fmt.Sprintf("%.0f", t.sonarVoltage)),
		))
		node.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("CPU:"), valueStyle.Render(fmt.Sprintf("%.1f°C", t.cpuTemperature)),
			labelStyle.Render("Case:"), valueStyle.Render(fmt.Sprintf("%.1f°C", t.caseTemperature)),
			labelStyle.Render("Humidity:"), valueStyle.Render(fmt.Sprintf("%.1f%%", t.caseHumidity)),
		))
		node.WriteString(fmt.Sprintf("%s %d dBm / %d dB   %s %s ago (node clock %s)",
			labelStyle.Render("Link:"), t.rssi, t.snr,
			labelStyle.Render("Last report:"), formatUptime(time.Since(t.received)),
			t.timestamp.Format("15:04:05"),
		))
		if m.triggers > 0 {
			node.WriteString("\n")
			node.WriteString(warningStyle.Render(fmt.Sprintf("Triggered %d times, last %s ago",
				m.triggers, formatUptime(time.Since(m.lastTrigger)))))
		}

		s.WriteString(boxStyle.Render(node.String()))
		s.WriteString("\n\n")
	}

	// Event log
	if len(m.events.Items()) == 0 {
		s.WriteString(labelStyle.Render("Recent Events:"))
		s.WriteString("\n")
		s.WriteString(boxStyle.Width(m.width - 4).Render(headerStyle.Render("  (no events yet)")))
	} else {
		s.WriteString(boxStyle.Width(m.width - 4).Render(m.events.View()))
	}

	return s.String()
}
