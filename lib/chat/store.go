// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "context"

// SessionStore is keyed CRUD over session records. Implementations
// must be safe for concurrent use; parley runs concurrent turns
// against different sessions with no shared locking above this layer.
type SessionStore interface {
	// GetSession returns the session with the given ID, or
	// ErrSessionNotFound.
	GetSession(ctx context.Context, id string) (*Session, error)

	// CreateSession creates a session with status idle. Name and
	// agentID may be empty; implementations apply their defaults.
	// If id is empty a fresh one is generated; a taken id returns
	// ErrSessionExists.
	CreateSession(ctx context.Context, id, name, agentID string) (*Session, error)

	// UpdateSession applies a partial update and returns the updated
	// record, or ErrSessionNotFound.
	UpdateSession(ctx context.Context, id string, update SessionUpdate) (*Session, error)

	// DeleteSession removes a session and its messages. Returns false
	// (and no error) when the session does not exist.
	DeleteSession(ctx context.Context, id string) (bool, error)

	// ListSessions returns all sessions, newest first.
	ListSessions(ctx context.Context) ([]Session, error)
}

// MessageLog is the append-only store of messages scoped to a session.
type MessageLog interface {
	// AppendMessage appends a message with a fresh ID and returns it.
	// toolName is recorded only for RoleTool messages.
	AppendMessage(ctx context.Context, sessionID string, role Role, content, toolName string) (*Message, error)

	// ListMessages returns a session's messages in append order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)

	// LinkAttachment associates a registered attachment with a
	// message. Returns ErrAttachmentNotFound if the attachment does
	// not exist.
	LinkAttachment(ctx context.Context, attachmentID, messageID string) error
}
