// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chatstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/parley-labs/parley/lib/chat"
)

// attachmentDomainKey is the BLAKE3 keyed-hashing domain for
// attachment digests. A fixed constant — changing it invalidates all
// stored digests. The bytes are the ASCII domain name, zero-padded to
// the 32 bytes keyed mode requires, so the key is readable in hex
// dumps without losing any cryptographic property.
var attachmentDomainKey = [32]byte{
	'p', 'a', 'r', 'l', 'e', 'y', '.', 'a', 't', 't', 'a', 'c', 'h', 'm', 'e', 'n',
	't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// AttachmentDigest computes the hex BLAKE3 keyed digest of attachment
// content.
func AttachmentDigest(content []byte) string {
	hasher, err := blake3.NewKeyed(attachmentDomainKey[:])
	if err != nil {
		// The key length is fixed at compile time — cannot fail.
		panic("chatstore: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write(content)
	return hex.EncodeToString(hasher.Sum(nil))
}

// RegisterAttachment stores attachment bytes and returns the record.
// Content validation (sniffing, sanitization) happens upstream; this
// only registers bytes and their digest.
func (s *Store) RegisterAttachment(ctx context.Context, mediaType string, content []byte) (*chat.Attachment, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: register attachment: %w", err)
	}
	defer s.pool.Put(conn)

	attachment := &chat.Attachment{
		ID:        uuid.New().String(),
		MediaType: mediaType,
		Size:      int64(len(content)),
		Digest:    AttachmentDigest(content),
		CreatedAt: s.clock.Now().UTC(),
	}

	err = sqlitex.Execute(conn, `
		INSERT INTO attachments (id, media_type, size, digest, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				attachment.ID, attachment.MediaType, attachment.Size,
				attachment.Digest, content, attachment.CreatedAt.UnixNano(),
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: register attachment: %w", err)
	}
	return attachment, nil
}

// GetAttachment returns an attachment record (without content).
func (s *Store) GetAttachment(ctx context.Context, id string) (*chat.Attachment, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatstore: get attachment: %w", err)
	}
	defer s.pool.Put(conn)

	var attachment *chat.Attachment
	err = sqlitex.Execute(conn, `
		SELECT id, media_type, size, digest, created_at FROM attachments WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				attachment = &chat.Attachment{
					ID:        stmt.ColumnText(0),
					MediaType: stmt.ColumnText(1),
					Size:      stmt.ColumnInt64(2),
					Digest:    stmt.ColumnText(3),
					CreatedAt: time.Unix(0, stmt.ColumnInt64(4)).UTC(),
				}
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("chatstore: get attachment %s: %w", id, err)
	}
	if attachment == nil {
		return nil, chat.ErrAttachmentNotFound
	}
	return attachment, nil
}

func attachmentExists(conn *sqlite.Conn, id string) (bool, error) {
	var exists bool
	err := sqlitex.Execute(conn, `SELECT 1 FROM attachments WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("chatstore: attachment %s: %w", id, err)
	}
	return exists, nil
}
