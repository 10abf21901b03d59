// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parley-labs/parley/lib/clock"
	"github.com/parley-labs/parley/lib/sqlitepool"
)

// Store is the SQLite-backed implementation of chat.SessionStore and
// chat.MessageLog, plus the attachment registry and turn trace store.
// Safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the SQLite database file. ":memory:" with PoolSize 1
	// works for tests.
	Path string

	// PoolSize is the connection pool size. Defaults to 4.
	PoolSize int

	// Clock provides record timestamps. Required.
	Clock clock.Clock

	// Logger receives operational messages. If nil, logs are dropped.
	Logger *slog.Logger
}

// Open creates the store and its schema. The caller must Close it.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("chatstore: Clock is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chatstore: %w", err)
	}

	return &Store{pool: pool, clock: cfg.Clock, logger: logger}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		agent_id     TEXT NOT NULL DEFAULT '',
		execution_id TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		cost_usd     REAL NOT NULL DEFAULT 0,
		turns        INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		tool_name  TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);

	CREATE TABLE IF NOT EXISTS attachments (
		id         TEXT PRIMARY KEY,
		media_type TEXT NOT NULL,
		size       INTEGER NOT NULL,
		digest     TEXT NOT NULL,
		content    BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attachment_links (
		attachment_id TEXT NOT NULL REFERENCES attachments(id),
		message_id    TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
		PRIMARY KEY (attachment_id, message_id)
	);

	CREATE TABLE IF NOT EXISTS turn_traces (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq        INTEGER NOT NULL,
		trace      BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turn_traces_session ON turn_traces(session_id, seq);
`
