// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent defines the execution adapter boundary: the typed
// event feed one agent turn produces, the [Runner] contract the stream
// orchestrator consumes, and the concrete [CLIRunner] that spawns an
// agent CLI speaking the stream-json protocol.
//
// The agent's internal reasoning is opaque to parley. A Runner is just
// an ordered, finite, non-restartable event producer for one turn: it
// may yield a structured error event, or fail outright partway
// through; the orchestrator treats both identically.
package agent
