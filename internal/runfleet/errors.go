// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import "errors"

var (
	// ErrSpawn is returned when the process or subshell could not be started.
	ErrSpawn = errors.New("could not start process")
	// ErrCommandFailed is returned when a command exits with a non-zero status.
	ErrCommandFailed = errors.New("command exited with non-zero status")
	// ErrForcedTermination is returned when a command had to be killed after the grace period expired.
	ErrForcedTermination = errors.New("process killed after grace period expired")
	// ErrSignalDelivery is returned when a signal could not be delivered to the process group.
	ErrSignalDelivery = errors.New("could not deliver signal to process group")
	// ErrInvalidTransition is returned when a process handle state would regress.
	ErrInvalidTransition = errors.New("invalid process state transition")
)
