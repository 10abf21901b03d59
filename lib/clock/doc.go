// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides a small time abstraction so that heartbeat
// and timeout behavior can be tested without real waiting. Production
// code takes a [Clock] and injects [Real]; tests inject [Fake] and
// drive time with Advance.
package clock
