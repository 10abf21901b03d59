// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import "context"

// TurnRequest is the input to one agent execution turn.
type TurnRequest struct {
	// SessionID identifies the parley session, for log correlation.
	SessionID string

	// Prompt is the user message driving the turn.
	Prompt string

	// AgentID names the agent profile to run.
	AgentID string

	// ExecutionID resumes a prior execution context when non-empty.
	ExecutionID string

	// Model overrides the profile's default model when non-empty.
	Model string
}

// Runner produces the event feed for one turn. Run returns a channel
// that yields events in runtime order and is closed when the feed
// ends; a feed ending after a KindError event is a structured failure.
// Run itself returns an error only for failures before any event could
// be produced (bad profile, spawn failure).
//
// A runner fault after the feed starts (process crash, broken pipe) is
// reported through Wait: the channel closes, then Wait returns the
// fault. Callers must drain the channel before calling Wait.
type Runner interface {
	Run(ctx context.Context, request TurnRequest) (Turn, error)
}

// Turn is one in-flight execution. Events is the ordered feed; Wait
// blocks until the runtime has fully stopped and reports any fault
// that was not surfaced as a structured error event.
type Turn interface {
	Events() <-chan Event
	Wait() error
}
