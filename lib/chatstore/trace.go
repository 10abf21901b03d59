// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parley-labs/parley/lib/agent"
	"github.com/parley-labs/parley/lib/codec"
)

// ErrTraceNotFound is returned when a turn trace does not exist.
var ErrTraceNotFound = errors.New("chatstore: turn trace not found")

// TurnTrace is the recorded execution feed of one turn, kept for
// debugging and replay. The event list is stored CBOR-encoded.
type TurnTrace struct {
	ID        string        `json:"id"`
	SessionID string        `json:"session_id"`
	Seq       int64         `json:"seq"`
	Events    []agent.Event `json:"events"`
	CreatedAt time.Time     `json:"created_at"`
}

// AppendTurnTrace records the event feed of a completed turn and
// returns the trace ID.
func (s *Store) AppendTurnTrace(ctx context.Context, sessionID string, events []agent.Event) (string, error) {
	encoded, err := codec.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("chatstore: encode turn trace: %w", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("chatstore: append turn trace: %w", err)
	}
	defer s.pool.Put(conn)

	traceID := uuid.New().String()
	err = sqlitex.Execute(conn, `
		INSERT INTO turn_traces (id, session_id, seq, trace, created_at)
		VALUES (?, ?, COALESCE((SELECT MAX(seq) FROM turn_traces WHERE session_id = ?), 0) + 1, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{traceID, sessionID, sessionID, encoded, s.clock.Now().UTC().UnixNano()},
		})
	if err != nil {
		return "", fmt.Errorf("chatstore: append turn trace for %s: %w", sessionID, err)
	}
	return traceID, nil
}

// GetTurnTrace loads and decodes one turn trace.
func (s *Store) GetTurnTrace(ctx context.Context, traceID string) (*TurnTrace, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: get turn trace: %w", err)
	}
	defer s.pool.Put(conn)

	var trace *TurnTrace
	var encoded []byte
	err = sqlitex.Execute(conn, `
		SELECT id, session_id, seq, trace, created_at FROM turn_traces WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{traceID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				trace = &TurnTrace{
					ID:        stmt.ColumnText(0),
					SessionID: stmt.ColumnText(1),
					Seq:       stmt.ColumnInt64(2),
					CreatedAt: time.Unix(0, stmt.ColumnInt64(4)).UTC(),
				}
				encoded = make([]byte, stmt.ColumnLen(3))
				stmt.ColumnBytes(3, encoded)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: get turn trace %s: %w", traceID, err)
	}
	if trace == nil {
		return nil, ErrTraceNotFound
	}

	if err := codec.Unmarshal(encoded, &trace.Events); err != nil {
		return nil, fmt.Errorf("chatstore: decode turn trace %s: %w", traceID, err)
	}
	return trace, nil
}

// ListTurnTraces returns trace metadata (no events) for a session in
// turn order.
func (s *Store) ListTurnTraces(ctx context.Context, sessionID string) ([]TurnTrace, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: list turn traces: %w", err)
	}
	defer s.pool.Put(conn)

	var traces []TurnTrace
	err = sqlitex.Execute(conn, `
		SELECT id, session_id, seq, created_at FROM turn_traces
		WHERE session_id = ? ORDER BY seq ASC`,
		&sqlitex.ExecOptions{
			Args: []any{sessionID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				traces = append(traces, TurnTrace{
					ID:        stmt.ColumnText(0),
					SessionID: stmt.ColumnText(1),
					Seq:       stmt.ColumnInt64(2),
					CreatedAt: time.Unix(0, stmt.ColumnInt64(3)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: list turn traces for %s: %w", sessionID, err)
	}
	return traces, nil
}
