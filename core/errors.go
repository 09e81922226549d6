// Copyright 2021 Golem Factory
// SPDX-License-Identifier: LGPL-3.0-only

package core

import "errors"

// The three failure classes of the supervisor. Callers discriminate with
// errors.Is; the wrapped message carries the operation detail.
var (
	// ErrEnvironment covers a missing or unexecutable node binary, a
	// subprocess step exiting non-zero, and a readiness deadline expiring.
	ErrEnvironment = errors.New("node environment error")

	// ErrConfiguration covers a node version outside the accepted range and
	// a running node whose chain identity is not the expected one.
	ErrConfiguration = errors.New("node configuration error")

	// ErrLifecycle covers invalid state transitions, e.g. starting a node
	// that is already running under this supervisor.
	ErrLifecycle = errors.New("node lifecycle error")
)
