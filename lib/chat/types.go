// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "time"

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	// StatusIdle means no turn is currently running.
	StatusIdle SessionStatus = "idle"

	// StatusActive means a turn is in flight.
	StatusActive SessionStatus = "active"

	// StatusEnded means the session was closed deliberately and will
	// not accept further turns.
	StatusEnded SessionStatus = "ended"

	// StatusError means the most recent turn failed. The session can
	// still accept new turns; the status records the last outcome.
	StatusError SessionStatus = "error"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Session is one multi-turn conversation with an agent. Cost and turn
// totals are cumulative across the session's lifetime and never
// decrease within a turn.
type Session struct {
	// ID is the stable session identifier. Client-assigned on first
	// message, or server-assigned on explicit creation.
	ID string `json:"id"`

	// Name is the display name shown to users.
	Name string `json:"name"`

	// AgentID names the agent profile driving this session.
	AgentID string `json:"agent_id"`

	// ExecutionID is the opaque handle issued by the agent runtime on
	// first contact, used to resume conversational context on later
	// turns. Empty until the first turn's init event arrives.
	ExecutionID string `json:"execution_id,omitempty"`

	// Status is the current lifecycle state.
	Status SessionStatus `json:"status"`

	// CostUSD is the cumulative cost of all turns, in US dollars.
	CostUSD float64 `json:"cost_usd"`

	// Turns is the cumulative count of agent turns (API round-trips
	// reported by the runtime, not user messages).
	Turns int64 `json:"turns"`

	// CreatedAt is when the session record was created.
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single entry in a session's conversation log. Messages
// are append-only and never mutated after creation.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`

	// Content is the message text. May be empty for tool-only entries.
	Content string `json:"content"`

	// ToolName is set only when Role is RoleTool.
	ToolName string `json:"tool_name,omitempty"`

	// Attachments lists the IDs of attachments linked to this message.
	Attachments []string `json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Attachment is a registered binary blob referenced by messages. The
// upload validation pipeline (content sniffing, sanitization) runs
// upstream of this record; parley only stores and links bytes.
type Attachment struct {
	ID        string    `json:"id"`
	MediaType string    `json:"media_type"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionUpdate is a partial update to a session. Nil fields are left
// unchanged. The stream orchestrator issues these; it never rewrites
// whole session records.
type SessionUpdate struct {
	Name        *string
	ExecutionID *string
	Status      *SessionStatus
	CostUSD     *float64
	Turns       *int64
}

// String pointer helpers for building SessionUpdate values inline.

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// StatusPtr returns a pointer to status.
func StatusPtr(status SessionStatus) *SessionStatus { return &status }

// Float64Ptr returns a pointer to f.
func Float64Ptr(f float64) *float64 { return &f }

// Int64Ptr returns a pointer to n.
func Int64Ptr(n int64) *int64 { return &n }
