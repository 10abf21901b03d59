// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatstore implements the lib/chat storage contracts over
// SQLite. One Store owns the connection pool and serves the session
// store, the message log, the attachment registry, and turn traces.
//
// Schema notes: timestamps are Unix nanoseconds; message order within
// a session is a per-session sequence number assigned at append time;
// deleting a session cascades to its messages, their attachment links,
// and its turn traces (attachments themselves are global and survive).
package chatstore
