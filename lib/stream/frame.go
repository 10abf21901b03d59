// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parley-labs/parley/lib/agent"
)

// sentinelData is the payload of the terminal frame. Clients stop
// reading when they see it; nothing follows it on the wire.
const sentinelData = "[DONE]"

// Frame is one server-sent event ready for the wire. Exactly one of
// Comment or Data is meaningful: a frame with Comment set encodes as
// an SSE comment line (a keep-alive with no semantic payload), any
// other frame encodes as an event with one or more data lines.
type Frame struct {
	// Event is the SSE event type. Empty means the default type.
	Event string

	// Data is the payload. Embedded newlines are segmented into
	// multiple "data:" lines per the SSE framing rule.
	Data string

	// Comment, when non-empty, makes the frame a comment line.
	Comment string
}

// HeartbeatFrame returns the keep-alive comment frame.
func HeartbeatFrame() Frame {
	return Frame{Comment: "heartbeat"}
}

// SentinelFrame returns the terminal frame of a turn.
func SentinelFrame() Frame {
	return Frame{Data: sentinelData}
}

// EventFrame encodes one execution event as a wire frame. The SSE
// event type is the event kind, so clients can dispatch without
// parsing the payload, and unknown kinds pass through as
// forward-compatible no-ops.
func EventFrame(event agent.Event) (Frame, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Frame{}, fmt.Errorf("encoding %s event: %w", event.Kind, err)
	}
	return Frame{Event: string(event.Kind), Data: string(payload)}, nil
}

// IsHeartbeat reports whether the frame is a keep-alive comment.
func (f Frame) IsHeartbeat() bool {
	return f.Comment != ""
}

// IsSentinel reports whether the frame is the terminal sentinel.
func (f Frame) IsSentinel() bool {
	return f.Comment == "" && f.Event == "" && f.Data == sentinelData
}

// Encode renders the frame in SSE wire format, including the blank
// line that terminates it.
func (f Frame) Encode() string {
	var out strings.Builder
	if f.Comment != "" {
		out.WriteString(": ")
		out.WriteString(f.Comment)
		out.WriteString("\n\n")
		return out.String()
	}
	if f.Event != "" {
		out.WriteString("event: ")
		out.WriteString(f.Event)
		out.WriteString("\n")
	}
	for _, line := range strings.Split(f.Data, "\n") {
		out.WriteString("data: ")
		out.WriteString(line)
		out.WriteString("\n")
	}
	out.WriteString("\n")
	return out.String()
}
