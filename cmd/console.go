// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/tripwire/pkg/config"
	"github.com/Thermoquad/tripwire/pkg/frame"
	"github.com/Thermoquad/tripwire/pkg/radio"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive TUI for talking to the radio module",
	Long: `Issue AT commands to the radio module from an interactive terminal UI.

Lines typed into the prompt are sent as-is and the first response line is
shown next to them. Lines the module emits on its own, such as +RCV frames,
appear in the same history.

Console commands:
  /reset          pulse a software reset and drain boot chatter
  /configure      program factory settings, network id and address
  /event NAME     send {"event":"NAME"}
  /send JSON      send a JSON object as one payload
  /time           send a time reply with the local clock

The connection is re-established automatically if it drops.

Supports both serial and WebSocket connections.`,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// consoleSession owns the link. Console input and unsolicited lines are
// handled on one goroutine so the engine always sees its own responses.
type consoleSession struct {
	cfg      *config.Config
	opts     radio.Options
	link     *radioLink
	p        *tea.Program
	requests chan string
	done     chan struct{}
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s := &consoleSession{
		cfg:      cfg,
		opts:     gatewayOptions(cfg),
		requests: make(chan string),
		done:     make(chan struct{}),
	}
	s.link, err = openLink(cfg, nil, s.opts)
	if err != nil {
		return err
	}
	s.quietEngine()

	m := initialConsoleModel(s.link.info, s.requests)
	s.p = tea.NewProgram(m, tea.WithAltScreen())

	go s.run()

	_, err = s.p.Run()
	close(s.done)
	s.link.Close()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func (s *consoleSession) quietEngine() {
	s.link.engine.SetLogger(log.New(io.Discard, "", 0))
}

func (s *consoleSession) run() {
	for {
		select {
		case <-s.done:
			return
		case input := <-s.requests:
			s.p.Send(s.execute(input))
			continue
		default:
		}

		line, err := s.link.transport.ReadLine(200 * time.Millisecond)
		if errors.Is(err, radio.ErrNoData) {
			continue
		}
		if err != nil {
			s.p.Send(connectionLostMsg{err: err})
			if !s.reconnect() {
				return
			}
			s.p.Send(reconnectedMsg{connInfo: s.link.info})
			continue
		}
		s.p.Send(unsolicitedMsg{line: line, at: time.Now()})
	}
}

// execute runs one line of console input against the engine
func (s *consoleSession) execute(input string) consoleResultMsg {
	res := consoleResultMsg{input: input, at: time.Now()}
	engine := s.link.engine

	name, arg, _ := strings.Cut(input, " ")
	switch name {
	case "/reset":
		engine.Reset()
		res.response = "reset complete"

	case "/configure":
		res.err = engine.Configure()
		res.response = "configured"

	case "/event":
		if arg == "" {
			res.err = errors.New("usage: /event NAME")
			break
		}
		res.err = engine.SendEvent(arg, nil)
		res.response = "sent"

	case "/send":
		var event radio.Event
		if err := json.Unmarshal([]byte(arg), &event); err != nil {
			res.err = fmt.Errorf("payload: %w", err)
			break
		}
		res.err = engine.SendData(event)
		res.response = "sent"

	case "/time":
		reply := frame.TimeReply(time.Now())
		res.err = engine.SendData(radio.Event(reply))
		res.response = fmt.Sprintf("sent %s", reply[frame.KeyResult])

	default:
		res.response, res.err = engine.Exchange(input)
	}
	return res
}

// reconnect re-opens the link with exponential backoff. It returns false if
// the console closed meanwhile.
func (s *consoleSession) reconnect() bool {
	s.link.Close()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-s.done:
			return false
		case <-time.After(backoff):
		}

		link, err := openLink(s.cfg, nil, s.opts)
		if err == nil {
			s.link = link
			s.quietEngine()
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
