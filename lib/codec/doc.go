// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic CBOR encoding for turn traces.
// Consumers import only this package, not fxamacker/cbor directly, so
// encoder options stay consistent across the codebase.
package codec
