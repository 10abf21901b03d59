// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool wraps zombiezen.com/go/sqlite's connection pool
// with parley's standard pragmas (WAL journaling, foreign keys on, a
// busy timeout) and a per-connection setup hook used to create the
// chat schema.
package sqlitepool
