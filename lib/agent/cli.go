// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/parley-labs/parley/lib/clock"
)

// CLIRunner runs turns by spawning an agent CLI in stream-json print
// mode and parsing its stdout into events. Cancelling the turn's
// context kills the process.
type CLIRunner struct {
	profiles *ProfileSet
	clock    clock.Clock
	logger   *slog.Logger
}

// NewCLIRunner creates a runner over the given profile set.
func NewCLIRunner(profiles *ProfileSet, clk clock.Clock, logger *slog.Logger) *CLIRunner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CLIRunner{profiles: profiles, clock: clk, logger: logger}
}

// Run spawns the profile's binary for one turn. The returned feed
// yields events in stdout order and closes when the process's stdout
// reaches EOF.
func (r *CLIRunner) Run(ctx context.Context, request TurnRequest) (Turn, error) {
	profile, err := r.profiles.Lookup(request.AgentID)
	if err != nil {
		return nil, err
	}

	arguments := append([]string(nil), profile.Args...)
	arguments = append(arguments,
		"--print",
		"--verbose",
		"--output-format", "stream-json",
	)

	model := request.Model
	if model == "" {
		model = profile.Model
	}
	if model != "" {
		arguments = append(arguments, "--model", model)
	}
	if request.ExecutionID != "" {
		arguments = append(arguments, "--resume", request.ExecutionID)
	}

	// Prompt as positional argument.
	arguments = append(arguments, request.Prompt)

	command := exec.CommandContext(ctx, profile.Binary, arguments...)

	stdout, err := command.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", profile.Binary, err)
	}

	r.logger.Info("agent process started",
		"session_id", request.SessionID,
		"profile", profile.ID,
		"binary", profile.Binary,
		"resume", request.ExecutionID != "",
	)

	events := make(chan Event, 64)
	parseDone := make(chan error, 1)

	go func() {
		parseDone <- r.parseStream(ctx, stdout, events)
		close(events)
	}()

	return &cliTurn{
		events: events,
		wait: func() error {
			parseError := <-parseDone
			waitError := command.Wait()
			if parseError != nil {
				return fmt.Errorf("parsing agent output: %w", parseError)
			}
			if waitError != nil {
				return fmt.Errorf("agent process: %w", waitError)
			}
			return nil
		},
	}, nil
}

// cliTurn implements Turn for a spawned CLI process.
type cliTurn struct {
	events chan Event
	wait   func() error
}

func (t *cliTurn) Events() <-chan Event { return t.events }
func (t *cliTurn) Wait() error          { return t.wait() }

// parseStream reads stream-json stdout line by line and emits events.
// Malformed lines become raw events rather than failing the turn.
func (r *CLIRunner) parseStream(ctx context.Context, stdout io.Reader, events chan<- Event) error {
	scanner := bufio.NewScanner(stdout)
	// Agent CLIs can produce long lines (tool inputs with whole files).
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		events <- r.parseLine(line)
	}
	return scanner.Err()
}

// streamEnvelope is the common header of every stream-json line.
type streamEnvelope struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// parseLine maps one stream-json line to an Event.
//
// Recognized shapes:
//   - {"type":"system","subtype":"init","session_id":...,"model":...} → init
//   - {"type":"assistant","subtype":"text","text":...}                → delta
//   - {"type":"assistant","subtype":"tool_use","name":...,"input":..} → tool
//   - {"type":"result","cost_usd":...,"num_turns":...}                → result
//   - {"type":"error","message":...}                                  → error
//   - anything else                                                   → raw
func (r *CLIRunner) parseLine(line []byte) Event {
	now := r.clock.Now()

	var envelope streamEnvelope
	if err := json.Unmarshal(line, &envelope); err != nil {
		return rawEvent(now, line)
	}

	switch envelope.Type {
	case "system":
		if envelope.Subtype != "init" {
			return rawEvent(now, line)
		}
		var init struct {
			SessionID string `json:"session_id"`
			Model     string `json:"model"`
		}
		json.Unmarshal(line, &init)
		return Event{Timestamp: now, Kind: KindInit, Init: &InitEvent{
			ExecutionID: init.SessionID,
			Model:       init.Model,
		}}

	case "assistant":
		switch envelope.Subtype {
		case "text":
			var text struct {
				Text string `json:"text"`
			}
			json.Unmarshal(line, &text)
			return Event{Timestamp: now, Kind: KindDelta, Delta: &DeltaEvent{Text: text.Text}}
		case "tool_use":
			var toolUse struct {
				Name  string          `json:"name"`
				Input json.RawMessage `json:"input"`
			}
			json.Unmarshal(line, &toolUse)
			return Event{Timestamp: now, Kind: KindTool, Tool: &ToolEvent{
				Name:    toolUse.Name,
				Content: string(toolUse.Input),
			}}
		default:
			return rawEvent(now, line)
		}

	case "result":
		var result struct {
			CostUSD  float64 `json:"cost_usd"`
			TotalUSD float64 `json:"total_cost_usd"`
			NumTurns int64   `json:"num_turns"`
		}
		json.Unmarshal(line, &result)
		cost := result.CostUSD
		if cost == 0 {
			cost = result.TotalUSD
		}
		return Event{Timestamp: now, Kind: KindResult, Result: &ResultEvent{
			CostUSD: cost,
			Turns:   result.NumTurns,
		}}

	case "error":
		var failure struct {
			Message string `json:"message"`
		}
		json.Unmarshal(line, &failure)
		if failure.Message == "" {
			failure.Message = "agent reported an error"
		}
		return Event{Timestamp: now, Kind: KindError, Error: &ErrorEvent{Message: failure.Message}}

	default:
		return rawEvent(now, line)
	}
}

// rawEvent preserves an unrecognized or malformed line. The line is
// copied because bufio.Scanner reuses its buffer.
func rawEvent(timestamp time.Time, line []byte) Event {
	return Event{
		Timestamp: timestamp,
		Kind:      KindRaw,
		Raw:       &RawEvent{Data: json.RawMessage(append([]byte(nil), line...))},
	}
}
