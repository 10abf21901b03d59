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

// AppendMessage appends a message with the next per-session sequence
// number. The session must exist (foreign key).
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role chat.Role, content, toolName string) (*chat.Message, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: append message: %w", err)
	}
	defer s.pool.Put(conn)

	message := &chat.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		ToolName:  toolName,
		CreatedAt: s.clock.Now().UTC(),
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO messages (id, session_id, seq, role, content, tool_name, created_at)
		VALUES (?, ?, COALESCE((SELECT MAX(seq) FROM messages WHERE session_id = ?), 0) + 1, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				message.ID, sessionID, sessionID,
				string(role), content, toolName, message.CreatedAt.UnixNano(),
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: append message to %s: %w", sessionID, err)
	}
	return message, nil
}

// ListMessages returns a session's messages in append order, with
// attachment IDs resolved.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: list messages: %w", err)
	}
	defer s.pool.Put(conn)

	var messages []chat.Message
	err = sqlitex.Execute(conn, `
		SELECT id, session_id, role, content, tool_name, created_at
		FROM messages WHERE session_id = ? ORDER BY seq ASC`,
		&sqlitex.ExecOptions{
			Args: []any{sessionID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				messages = append(messages, chat.Message{
					ID:        stmt.ColumnText(0),
					SessionID: stmt.ColumnText(1),
					Role:      chat.Role(stmt.ColumnText(2)),
					Content:   stmt.ColumnText(3),
					ToolName:  stmt.ColumnText(4),
					CreatedAt: time.Unix(0, stmt.ColumnInt64(5)).UTC(),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: list messages for %s: %w", sessionID, err)
	}

	for i := range messages {
		attachments, linkError := messageAttachments(conn, messages[i].ID)
		if linkError != nil {
			return nil, linkError
		}
		messages[i].Attachments = attachments
	}
	return messages, nil
}

func messageAttachments(conn *sqlite.Conn, messageID string) ([]string, error) {
	var ids []string
	err := sqlitex.Execute(conn, `
		SELECT attachment_id FROM attachment_links WHERE message_id = ? ORDER BY attachment_id`,
		&sqlitex.ExecOptions{
			Args: []any{messageID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ids = append(ids, stmt.ColumnText(0))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: attachments for message %s: %w", messageID, err)
	}
	return ids, nil
}

// LinkAttachment associates a registered attachment with a message.
func (s *Store) LinkAttachment(ctx context.Context, attachmentID, messageID string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("chatstore: link attachment: %w", err)
	}
	defer s.pool.Put(conn)

	exists, err := attachmentExists(conn, attachmentID)
	if err != nil {
		return err
	}
	if !exists {
		return chat.ErrAttachmentNotFound
	}

	err = sqlitex.Execute(conn, `
		INSERT OR IGNORE INTO attachment_links (attachment_id, message_id) VALUES (?, ?)`,
		&sqlitex.ExecOptions{Args: []any{attachmentID, messageID}})
	if err != nil {
		return fmt.Errorf("chatstore: link attachment %s to %s: %w", attachmentID, messageID, err)
	}
	return nil
}
