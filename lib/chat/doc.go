// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat defines the conversation data model and the storage
// contracts the rest of parley is written against: sessions, the
// append-only message log, attachments, and the error taxonomy.
//
// The types here are deliberately free of storage concerns. The SQLite
// implementation lives in lib/chatstore; the stream orchestrator in
// lib/stream consumes only the interfaces declared here.
package chat
