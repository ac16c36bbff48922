// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"os"
	"syscall"
)

// SignalKind is the graceful termination request relayed to a command.
type SignalKind int

const (
	// SignalInterrupt corresponds to SIGINT.
	SignalInterrupt SignalKind = iota
	// SignalTerminate corresponds to SIGTERM.
	SignalTerminate
)

// String returns the string representation of the SignalKind.
func (k SignalKind) String() string {
	switch k {
	case SignalInterrupt:
		return "interrupt"
	case SignalTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Signal returns the OS signal delivered to the child for this kind.
func (k SignalKind) Signal() os.Signal {
	if k == SignalTerminate {
		return syscall.SIGTERM
	}

	return os.Interrupt
}

// KindOf maps an OS signal received by the orchestrator to the kind that is
// relayed to child processes. Anything that is not SIGTERM is treated as an
// interrupt.
func KindOf(sig os.Signal) SignalKind {
	if sig == syscall.SIGTERM {
		return SignalTerminate
	}

	return SignalInterrupt
}
