// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import "sync"

// sink serializes frame delivery from the consumption loop and the
// heartbeat onto one channel. Writes after Close are dropped, so a
// late heartbeat can never corrupt the stream or panic on a closed
// channel. Close is idempotent.
type sink struct {
	frames   chan Frame
	canceled <-chan struct{}

	mu     sync.Mutex
	closed bool
}

func newSink(buffer int, canceled <-chan struct{}) *sink {
	return &sink{
		frames:   make(chan Frame, buffer),
		canceled: canceled,
	}
}

// write delivers a frame to the consumer. It reports false when the
// sink is closed or the consumer is gone, in which case the frame is
// dropped.
func (s *sink) write(frame Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	case <-s.canceled:
		return false
	}
}

// close closes the frame channel. Safe to call more than once, and
// safe concurrently with write.
func (s *sink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.frames)
}
