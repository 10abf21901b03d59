// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "errors"

var (
	// ErrSessionNotFound is returned for operations on an absent
	// session outside of turn start (turn start auto-provisions).
	ErrSessionNotFound = errors.New("chat: session not found")

	// ErrSessionExists is returned when creating a session whose ID
	// is already taken.
	ErrSessionExists = errors.New("chat: session already exists")

	// ErrAttachmentNotFound is returned when linking or reading an
	// attachment that was never registered.
	ErrAttachmentNotFound = errors.New("chat: attachment not found")

	// ErrTurnActive is returned when a turn is requested against a
	// session that already has a turn in flight.
	ErrTurnActive = errors.New("chat: a turn is already running for this session")
)

// ValidationError rejects malformed turn input before any persistence
// happens. It is distinguishable from a mid-stream error frame: the
// caller receives it synchronously, before streaming begins.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "chat: invalid input: " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}
