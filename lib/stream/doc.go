// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream drives one agent turn and exposes it as an ordered
// feed of server-sent-event frames.
//
// The orchestrator owns the turn lifecycle: it provisions the session
// on first contact, persists the inbound user message, consumes the
// agent runtime's event feed, keeps the connection alive with
// heartbeat comment frames during idle gaps, and finalizes session
// state exactly once regardless of how the turn ends. All frames pass
// through a single serialized sink, so the consumer never sees
// interleaved or post-terminal output: every turn ends with exactly
// one sentinel frame, and nothing follows it.
package stream
