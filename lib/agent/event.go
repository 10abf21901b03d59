// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"encoding/json"
	"time"
)

// EventKind classifies execution events.
type EventKind string

const (
	// KindInit is the runtime's first event. It carries the execution
	// handle used to resume conversational context on later turns.
	KindInit EventKind = "init"

	// KindDelta is a fragment of assistant text. A turn's assistant
	// reply is the concatenation of its deltas.
	KindDelta EventKind = "delta"

	// KindTool is a tool invocation by the agent.
	KindTool EventKind = "tool"

	// KindResult carries incremental cost and turn-count deltas.
	KindResult EventKind = "result"

	// KindError is a structured failure report. Terminal for the
	// turn; the runtime closes its feed after emitting one.
	KindError EventKind = "error"

	// KindRaw preserves runtime output that maps to no structured
	// kind. Consumers treat unknown kinds as forward-compatible
	// no-ops.
	KindRaw EventKind = "raw"
)

// Event is one entry in a turn's execution feed. Exactly one payload
// field is set, matching Kind.
type Event struct {
	// Timestamp is when the event was observed.
	Timestamp time.Time `json:"timestamp" cbor:"1,keyasint"`

	// Kind classifies the event.
	Kind EventKind `json:"kind" cbor:"2,keyasint"`

	Init   *InitEvent   `json:"init,omitempty" cbor:"3,keyasint,omitempty"`
	Delta  *DeltaEvent  `json:"delta,omitempty" cbor:"4,keyasint,omitempty"`
	Tool   *ToolEvent   `json:"tool,omitempty" cbor:"5,keyasint,omitempty"`
	Result *ResultEvent `json:"result,omitempty" cbor:"6,keyasint,omitempty"`
	Error  *ErrorEvent  `json:"error,omitempty" cbor:"7,keyasint,omitempty"`
	Raw    *RawEvent    `json:"raw,omitempty" cbor:"8,keyasint,omitempty"`
}

// InitEvent announces the execution context for the turn.
type InitEvent struct {
	// ExecutionID is the opaque resume handle issued by the runtime.
	ExecutionID string `json:"execution_id" cbor:"1,keyasint"`

	// Model is the model identifier the runtime resolved, when the
	// runtime reports one.
	Model string `json:"model,omitempty" cbor:"2,keyasint,omitempty"`
}

// DeltaEvent is a fragment of assistant text.
type DeltaEvent struct {
	Text string `json:"text" cbor:"1,keyasint"`
}

// ToolEvent records a tool invocation.
type ToolEvent struct {
	// Name is the tool name (e.g. "Read", "Bash").
	Name string `json:"name" cbor:"1,keyasint"`

	// Content is the tool's rendered input or output text, persisted
	// as the tool message body.
	Content string `json:"content,omitempty" cbor:"2,keyasint,omitempty"`
}

// ResultEvent carries usage deltas for the turn. Values are increments
// over the session's prior totals, not absolutes.
type ResultEvent struct {
	CostUSD float64 `json:"cost_usd,omitempty" cbor:"1,keyasint,omitempty"`
	Turns   int64   `json:"turns,omitempty" cbor:"2,keyasint,omitempty"`
}

// ErrorEvent is a structured failure report from the runtime.
type ErrorEvent struct {
	Message string `json:"message" cbor:"1,keyasint"`
}

// RawEvent preserves unrecognized runtime output as raw JSON.
type RawEvent struct {
	Data json.RawMessage `json:"data" cbor:"1,keyasint"`
}
