// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/parley-labs/parley/lib/agent"
	"github.com/parley-labs/parley/lib/chat"
	"github.com/parley-labs/parley/lib/clock"
)

const (
	// DefaultHeartbeatPeriod keeps idle connections alive through
	// intermediaries with idle timeouts. Overridable per orchestrator.
	DefaultHeartbeatPeriod = 15 * time.Second

	// DefaultPrompt is stored as the user message when a turn arrives
	// with attachments but no text.
	DefaultPrompt = "Describe the attached files."

	// DefaultMaxAttachments bounds the attachment references accepted
	// on one turn.
	DefaultMaxAttachments = 8

	// frameBuffer absorbs bursts between the runtime feed and a slow
	// consumer without blocking the heartbeat.
	frameBuffer = 64
)

// TraceRecorder persists the full event feed of a completed turn.
// Optional; a nil recorder disables tracing.
type TraceRecorder interface {
	AppendTurnTrace(ctx context.Context, sessionID string, events []agent.Event) (string, error)
}

// Config assembles an orchestrator.
type Config struct {
	Sessions chat.SessionStore
	Messages chat.MessageLog
	Runner   agent.Runner

	// Traces records per-turn event feeds. May be nil.
	Traces TraceRecorder

	// Clock drives the heartbeat and event timestamps. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives operational messages. If nil, logs are dropped.
	Logger *slog.Logger

	// DefaultAgentID is assigned to auto-provisioned sessions.
	DefaultAgentID string

	// DefaultPrompt substitutes for empty text on attachment-only
	// turns. Defaults to DefaultPrompt.
	DefaultPrompt string

	// HeartbeatPeriod is the keep-alive interval. Defaults to
	// DefaultHeartbeatPeriod.
	HeartbeatPeriod time.Duration

	// MaxAttachments bounds attachment references per turn. Defaults
	// to DefaultMaxAttachments.
	MaxAttachments int
}

// Orchestrator drives agent turns. It holds no per-session state
// beyond the lifetime of one turn; the session store and message log
// are the only cross-turn shared state.
type Orchestrator struct {
	sessions chat.SessionStore
	messages chat.MessageLog
	runner   agent.Runner
	traces   TraceRecorder
	clock    clock.Clock
	logger   *slog.Logger

	defaultAgentID  string
	defaultPrompt   string
	heartbeatPeriod time.Duration
	maxAttachments  int

	// inFlight tracks sessions with a running turn. A second turn
	// against the same session is rejected with chat.ErrTurnActive
	// rather than racing the first.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New builds an orchestrator from cfg. Sessions, Messages, and Runner
// are required.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("stream: Sessions is required")
	}
	if cfg.Messages == nil {
		return nil, fmt.Errorf("stream: Messages is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("stream: Runner is required")
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	prompt := cfg.DefaultPrompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	period := cfg.HeartbeatPeriod
	if period <= 0 {
		period = DefaultHeartbeatPeriod
	}
	maxAttachments := cfg.MaxAttachments
	if maxAttachments <= 0 {
		maxAttachments = DefaultMaxAttachments
	}
	return &Orchestrator{
		sessions:        cfg.Sessions,
		messages:        cfg.Messages,
		runner:          cfg.Runner,
		traces:          cfg.Traces,
		clock:           clk,
		logger:          logger,
		defaultAgentID:  cfg.DefaultAgentID,
		defaultPrompt:   prompt,
		heartbeatPeriod: period,
		maxAttachments:  maxAttachments,
		inFlight:        make(map[string]struct{}),
	}, nil
}

// TurnInput is one turn request.
type TurnInput struct {
	SessionID string

	// Text is the user message. May be empty when AttachmentIDs is
	// non-empty; the default prompt is substituted.
	Text string

	// AttachmentIDs are previously registered attachments to link to
	// the user message.
	AttachmentIDs []string

	// Model overrides the agent profile's model for this turn.
	Model string
}

// RunTurn starts one turn and returns its frame feed. Validation
// failures and a turn already in flight for the session surface here,
// before any frame is produced and before any persistence happens.
//
// The returned channel yields frames in runtime event order,
// interleaved with heartbeat frames during idle gaps, and always ends
// with exactly one sentinel frame followed by channel close. Mid-turn
// faults arrive as an error event frame before the sentinel, never as
// a bare disconnect.
//
// Cancelling ctx releases the turn: the agent execution is aborted,
// both activities stop, and the channel is closed. The consumer must
// drain the channel.
func (o *Orchestrator) RunTurn(ctx context.Context, input TurnInput) (<-chan Frame, error) {
	if input.SessionID == "" {
		return nil, &chat.ValidationError{Reason: "session id is required"}
	}
	if strings.TrimSpace(input.Text) == "" && len(input.AttachmentIDs) == 0 {
		return nil, &chat.ValidationError{Reason: "message text or attachments required"}
	}
	if len(input.AttachmentIDs) > o.maxAttachments {
		return nil, &chat.ValidationError{
			Reason: fmt.Sprintf("at most %d attachments per message", o.maxAttachments),
		}
	}

	if !o.acquire(input.SessionID) {
		return nil, chat.ErrTurnActive
	}

	session, err := o.ensureSession(ctx, input.SessionID)
	if err != nil {
		o.release(input.SessionID)
		return nil, fmt.Errorf("preparing session %s: %w", input.SessionID, err)
	}

	prompt := input.Text
	if strings.TrimSpace(prompt) == "" {
		prompt = o.defaultPrompt
	}

	out := newSink(frameBuffer, ctx.Done())
	go o.runTurn(ctx, session, prompt, input, out)
	return out.frames, nil
}

// ensureSession returns the session, creating it with the default
// agent when the ID is unknown. The first message to an unknown ID
// implicitly provisions its session.
func (o *Orchestrator) ensureSession(ctx context.Context, id string) (*chat.Session, error) {
	session, err := o.sessions.GetSession(ctx, id)
	if errors.Is(err, chat.ErrSessionNotFound) {
		return o.sessions.CreateSession(ctx, id, "", o.defaultAgentID)
	}
	return session, err
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, active := o.inFlight[sessionID]; active {
		return false
	}
	o.inFlight[sessionID] = struct{}{}
	return true
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, sessionID)
}

// runTurn is the turn body. It owns the sink: whatever happens, it
// stops the heartbeat, writes the sentinel exactly once, closes the
// channel, and never leaves the session status at active.
func (o *Orchestrator) runTurn(ctx context.Context, session *chat.Session, prompt string, input TurnInput, out *sink) {
	logger := o.logger.With("session_id", session.ID)

	// Persistence outlives the request: a client disconnect must not
	// lose the conversation log or the usage totals.
	persistCtx := context.WithoutCancel(ctx)

	heartbeat := startHeartbeat(o.clock, o.heartbeatPeriod, out)

	var (
		finishOnce sync.Once
		observed   []agent.Event
		assistant  strings.Builder
		costDelta  float64
		turnsDelta int64
		failed     bool
	)

	// finish is the single exit point for the wire side of the turn.
	// Safe to reach from both the normal path and the recover path;
	// the second call is a no-op. The in-flight slot is released
	// before the channel closes, so a client that drains to close and
	// immediately retries never sees a spurious ErrTurnActive.
	finish := func() {
		finishOnce.Do(func() {
			heartbeat.halt()
			out.write(SentinelFrame())
			o.release(session.ID)
			out.close()
		})
	}

	// errorFrame pushes a synthetic terminal error event to the
	// client. Used for faults outside the runtime feed (persistence,
	// spawn, panic); structured error events arrive through the feed.
	errorFrame := func(message string) {
		frame, err := EventFrame(agent.Event{
			Timestamp: o.clock.Now().UTC(),
			Kind:      agent.KindError,
			Error:     &agent.ErrorEvent{Message: message},
		})
		if err == nil {
			out.write(frame)
		}
	}

	// fail marks the session, emits the error frame, and finishes the
	// wire. The session is final before the channel closes.
	fail := func(message string) {
		failed = true
		errorFrame(message)
		o.setStatus(session.ID, chat.StatusError, logger)
		finish()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("turn panicked", "panic", r)
			fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	userMessage, err := o.messages.AppendMessage(persistCtx, session.ID, chat.RoleUser, prompt, "")
	if err != nil {
		logger.Error("persisting user message failed", "error", err)
		fail("failed to record message")
		return
	}
	for _, attachmentID := range input.AttachmentIDs {
		if err := o.messages.LinkAttachment(persistCtx, attachmentID, userMessage.ID); err != nil {
			logger.Error("linking attachment failed",
				"attachment_id", attachmentID, "error", err)
			fail("failed to link attachment")
			return
		}
	}

	if _, err := o.sessions.UpdateSession(persistCtx, session.ID, chat.SessionUpdate{
		Status: chat.StatusPtr(chat.StatusActive),
	}); err != nil {
		logger.Error("activating session failed", "error", err)
		fail("failed to update session")
		return
	}

	agentID := session.AgentID
	if agentID == "" {
		agentID = o.defaultAgentID
	}
	turn, err := o.runner.Run(ctx, agent.TurnRequest{
		SessionID:   session.ID,
		Prompt:      prompt,
		AgentID:     agentID,
		ExecutionID: session.ExecutionID,
		Model:       input.Model,
	})
	if err != nil {
		logger.Error("starting agent execution failed", "error", err)
		fail(err.Error())
		return
	}

	for event := range turn.Events() {
		observed = append(observed, event)

		frame, err := EventFrame(event)
		if err != nil {
			logger.Error("encoding event failed", "kind", event.Kind, "error", err)
		} else {
			out.write(frame)
		}

		switch event.Kind {
		case agent.KindInit:
			// Persist the resume handle immediately so later turns
			// can resume even if this one fails downstream.
			if _, err := o.sessions.UpdateSession(persistCtx, session.ID, chat.SessionUpdate{
				ExecutionID: chat.StringPtr(event.Init.ExecutionID),
			}); err != nil {
				logger.Error("recording execution handle failed", "error", err)
			}
		case agent.KindDelta:
			assistant.WriteString(event.Delta.Text)
		case agent.KindTool:
			if _, err := o.messages.AppendMessage(persistCtx, session.ID, chat.RoleTool,
				event.Tool.Content, event.Tool.Name); err != nil {
				logger.Error("persisting tool message failed",
					"tool", event.Tool.Name, "error", err)
			}
		case agent.KindResult:
			// Usage totals only ever grow. A negative delta from a
			// misbehaving runtime is dropped rather than letting it
			// roll the session's totals backwards.
			if event.Result.CostUSD < 0 || event.Result.Turns < 0 {
				logger.Warn("ignoring negative usage delta",
					"cost_usd", event.Result.CostUSD, "turns", event.Result.Turns)
				break
			}
			costDelta += event.Result.CostUSD
			turnsDelta += event.Result.Turns
		case agent.KindError:
			// Terminal for the turn, but the feed is drained to the
			// end so trailing events still reach the client in order.
			failed = true
			o.setStatus(session.ID, chat.StatusError, logger)
		}
	}

	// Partial assistant content is flushed even when the turn failed:
	// the log must match what the client saw.
	if assistant.Len() > 0 {
		if _, err := o.messages.AppendMessage(persistCtx, session.ID, chat.RoleAssistant,
			assistant.String(), ""); err != nil {
			logger.Error("persisting assistant message failed", "error", err)
		}
	}

	if err := turn.Wait(); err != nil && !failed {
		logger.Error("agent execution failed", "error", err)
		failed = true
		errorFrame(err.Error())
	}

	// Usage totals accumulate no matter how the turn ended. Partial
	// usage from a failed turn is still billed.
	update := chat.SessionUpdate{
		CostUSD: chat.Float64Ptr(session.CostUSD + costDelta),
		Turns:   chat.Int64Ptr(session.Turns + turnsDelta),
	}
	if failed {
		update.Status = chat.StatusPtr(chat.StatusError)
	} else {
		update.Status = chat.StatusPtr(chat.StatusIdle)
	}
	if _, err := o.sessions.UpdateSession(persistCtx, session.ID, update); err != nil {
		logger.Error("finalizing session failed", "error", err)
	}

	if o.traces != nil && len(observed) > 0 {
		if _, err := o.traces.AppendTurnTrace(persistCtx, session.ID, observed); err != nil {
			logger.Error("recording turn trace failed", "error", err)
		}
	}

	finish()
}

// setStatus updates the session status, logging and swallowing
// persistence faults so a broken store cannot take down the stream.
func (o *Orchestrator) setStatus(sessionID string, status chat.SessionStatus, logger *slog.Logger) {
	// The turn context may already be canceled when this runs; the
	// status write must still go through.
	if _, err := o.sessions.UpdateSession(context.Background(), sessionID, chat.SessionUpdate{
		Status: chat.StatusPtr(status),
	}); err != nil {
		logger.Error("updating session status failed",
			"status", status, "error", err)
	}
}

// heartbeat writes keep-alive comment frames until halted. halt blocks
// until the goroutine has exited, so no heartbeat can follow the
// sentinel. Halting twice is a no-op.
type heartbeat struct {
	stop     chan struct{}
	done     chan struct{}
	haltOnce sync.Once
}

func startHeartbeat(clk clock.Clock, period time.Duration, out *sink) *heartbeat {
	h := &heartbeat{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		ticker := clk.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-h.stop:
				return
			case <-ticker.C:
				if !out.write(HeartbeatFrame()) {
					return
				}
			}
		}
	}()
	return h
}

func (h *heartbeat) halt() {
	h.haltOnce.Do(func() { close(h.stop) })
	<-h.done
}
