// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parley-labs/parley/lib/chat"
)

// GetSession returns the session with the given ID.
func (s *Store) GetSession(ctx context.Context, id string) (*chat.Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: get session: %w", err)
	}
	defer s.pool.Put(conn)

	return getSession(conn, id)
}

func getSession(conn *sqlite.Conn, id string) (*chat.Session, error) {
	var session *chat.Session
	err := sqlitex.Execute(conn, `
		SELECT id, name, agent_id, execution_id, status, cost_usd, turns, created_at
		FROM sessions WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				session = &chat.Session{
					ID:          stmt.ColumnText(0),
					Name:        stmt.ColumnText(1),
					AgentID:     stmt.ColumnText(2),
					ExecutionID: stmt.ColumnText(3),
					Status:      chat.SessionStatus(stmt.ColumnText(4)),
					CostUSD:     stmt.ColumnFloat(5),
					Turns:       stmt.ColumnInt64(6),
					CreatedAt:   time.Unix(0, stmt.ColumnInt64(7)).UTC(),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: get session %s: %w", id, err)
	}
	if session == nil {
		return nil, chat.ErrSessionNotFound
	}
	return session, nil
}

// CreateSession creates a session with status idle. An empty id gets a
// fresh UUID; an empty name defaults to the id. A taken id returns
// chat.ErrSessionExists.
func (s *Store) CreateSession(ctx context.Context, id, name, agentID string) (*chat.Session, error) {
	if id == "" {
		id = uuid.New().String()
	}
	if name == "" {
		name = id
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: create session: %w", err)
	}
	defer s.pool.Put(conn)

	session := &chat.Session{
		ID:        id,
		Name:      name,
		AgentID:   agentID,
		Status:    chat.StatusIdle,
		CreatedAt: s.clock.Now().UTC(),
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO sessions (id, name, agent_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				session.ID, session.Name, session.AgentID,
				string(session.Status), session.CreatedAt.UnixNano(),
			},
		})
	if err != nil {
		if sqlite.ErrCode(err) == sqlite.ResultConstraintPrimaryKey {
			return nil, fmt.Errorf("chatstore: create session %s: %w", id, chat.ErrSessionExists)
		}
		return nil, fmt.Errorf("chatstore: create session %s: %w", id, err)
	}
	return session, nil
}

// UpdateSession applies a partial update and returns the new record.
func (s *Store) UpdateSession(ctx context.Context, id string, update chat.SessionUpdate) (*chat.Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: update session: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("chatstore: update session %s: %w", id, err)
	}
	defer endTransaction(&err)

	session, err := getSession(conn, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		session.Name = *update.Name
	}
	if update.ExecutionID != nil {
		session.ExecutionID = *update.ExecutionID
	}
	if update.Status != nil {
		session.Status = *update.Status
	}
	if update.CostUSD != nil {
		session.CostUSD = *update.CostUSD
	}
	if update.Turns != nil {
		session.Turns = *update.Turns
	}

	err = sqlitex.Execute(conn, `
		UPDATE sessions
		SET name = ?, execution_id = ?, status = ?, cost_usd = ?, turns = ?
		WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{
				session.Name, session.ExecutionID, string(session.Status),
				session.CostUSD, session.Turns, id,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: update session %s: %w", id, err)
	}
	return session, nil
}

// DeleteSession removes a session. Messages, attachment links, and
// turn traces go with it via foreign key cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("chatstore: delete session: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM sessions WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
	if err != nil {
		return false, fmt.Errorf("chatstore: delete session %s: %w", id, err)
	}
	return conn.Changes() > 0, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]chat.Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: list sessions: %w", err)
	}
	defer s.pool.Put(conn)

	var sessions []chat.Session
	err = sqlitex.Execute(conn, `
		SELECT id, name, agent_id, execution_id, status, cost_usd, turns, created_at
		FROM sessions ORDER BY created_at DESC, id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				sessions = append(sessions, chat.Session{
					ID:          stmt.ColumnText(0),
					Name:        stmt.ColumnText(1),
					AgentID:     stmt.ColumnText(2),
					ExecutionID: stmt.ColumnText(3),
					Status:      chat.SessionStatus(stmt.ColumnText(4)),
					CostUSD:     stmt.ColumnFloat(5),
					Turns:       stmt.ColumnInt64(6),
					CreatedAt:   time.Unix(0, stmt.ColumnInt64(7)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: list sessions: %w", err)
	}
	return sessions, nil
}

// Compile-time interface checks.
var (
	_ chat.SessionStore = (*Store)(nil)
	_ chat.MessageLog   = (*Store)(nil)
)
