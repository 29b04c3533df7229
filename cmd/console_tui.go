// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxHistoryEntries = 200

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// historyEntry is one console exchange or unsolicited line
type historyEntry struct {
	sent      string // empty for unsolicited lines
	received  string
	failed    bool
	timestamp time.Time
}

func (h historyEntry) Title() string {
	if h.sent == "" {
		return "◂ " + h.received
	}
	return "> " + h.sent
}

func (h historyEntry) Description() string {
	ts := h.timestamp.Format("15:04:05.000")
	if h.sent == "" {
		return ts + "  unsolicited"
	}
	if h.failed {
		return ts + "  ✗ " + h.received
	}
	return ts + "  < " + h.received
}

func (h historyEntry) FilterValue() string { return h.sent + " " + h.received }

// consoleModel is the Bubble Tea model for the console TUI
type consoleModel struct {
	connInfo string
	requests chan<- string

	input   textinput.Model
	history list.Model
	busy    bool

	exchanges int
	failures  int

	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type consoleResultMsg struct {
	input    string
	response string
	err      error
	at       time.Time
}

type unsolicitedMsg struct {
	line string
	at   time.Time
}

type connectionLostMsg struct {
	err error
}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialConsoleModel(connInfo string, requests chan<- string) consoleModel {
	ti := textinput.New()
	ti.Placeholder = "AT+VER?"
	ti.CharLimit = 300
	ti.Width = 60
	ti.Prompt = "AT> "
	ti.Focus()

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	history := list.New([]list.Item{}, delegate, 76, 14)
	history.Title = "History"
	history.SetShowStatusBar(false)
	history.SetShowHelp(false)
	history.SetFilteringEnabled(false)

	return consoleModel{
		connInfo: connInfo,
		requests: requests,
		input:    ti,
		history:  history,
		width:    80,
		height:   24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m consoleModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.submit()

		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeHistory()

	case consoleResultMsg:
		m.busy = false
		m.exchanges++
		entry := historyEntry{sent: msg.input, received: msg.response, timestamp: msg.at}
		if msg.err != nil {
			m.failures++
			entry.failed = true
			entry.received = msg.err.Error()
		}
		return m, m.addHistory(entry)

	case unsolicitedMsg:
		return m, m.addHistory(historyEntry{received: msg.line, timestamp: msg.at})

	case connectionLostMsg:
		m.connectionLost = true
		m.busy = false
		return m, m.addHistory(historyEntry{
			sent:      "(link)",
			received:  fmt.Sprintf("connection lost: %v, reconnecting", msg.err),
			failed:    true,
			timestamp: time.Now(),
		})

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		return m, m.addHistory(historyEntry{sent: "(link)", received: "reconnected", timestamp: time.Now()})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m consoleModel) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" || m.busy {
		return m, nil
	}
	if m.connectionLost {
		cmd := m.addHistory(historyEntry{
			sent:      input,
			received:  "cannot send: connection lost",
			failed:    true,
			timestamp: time.Now(),
		})
		return m, cmd
	}

	m.busy = true
	m.input.Reset()
	requests := m.requests
	return m, func() tea.Msg {
		requests <- input
		return nil
	}
}

func (m *consoleModel) addHistory(entry historyEntry) tea.Cmd {
	cmd := m.history.InsertItem(0, entry)
	if n := len(m.history.Items()); n > maxHistoryEntries {
		m.history.RemoveItem(n - 1)
	}
	m.history.Select(0)
	return cmd
}

func (m *consoleModel) resizeHistory() {
	// header, input and statistics take roughly 10 rows
	h := m.height - 10
	if h < 4 {
		h = 4
	}
	m.history.SetSize(m.width-4, h)
	m.input.Width = m.width - 10
}

func (m consoleModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	var s strings.Builder
	s.WriteString(titleStyle.Render("TRIPWIRE - CONSOLE"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Enter=send ↑/↓=scroll Esc=quit", connStatus)))
	s.WriteString("\n\n")

	s.WriteString(focusedBoxStyle.Width(m.width - 4).Render(m.input.View()))
	s.WriteString("\n")

	status := valueStyle.Render("ready")
	if m.busy {
		status = warningStyle.Render("waiting for response...")
	}
	failures := valueStyle.Render("0")
	if m.failures > 0 {
		failures = errorStyle.Render(fmt.Sprintf("%d", m.failures))
	}
	s.WriteString(fmt.Sprintf(" %s %s   %s %s   %s %s\n",
		labelStyle.Render("Status:"), status,
		labelStyle.Render("Exchanges:"), valueStyle.Render(fmt.Sprintf("%d", m.exchanges)),
		labelStyle.Render("Failures:"), failures))

	s.WriteString(boxStyle.Width(m.width - 4).Render(m.history.View()))

	return s.String()
}
