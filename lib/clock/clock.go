// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations parley uses, so that tests can
// drive heartbeats and timeouts deterministically. Production code
// injects Real(); tests inject Fake() and call Advance.
//
// Any production code that would call time.Now, time.After, or
// time.NewTicker takes a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once
	// duration d has elapsed. If d <= 0, the channel receives
	// immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks on C every d.
	// Panics if d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers periodic ticks on C. Call Stop when done; after Stop
// returns, no further ticks are sent. Stop does not close C.
//
// C is buffered with capacity 1, like time.Ticker: if the consumer
// falls behind, ticks are dropped rather than queued.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. Safe to call more than once.
func (t *Ticker) Stop() { t.stopFunc() }
