// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"sync"
	"time"

	"github.com/medley-run/medley/internal/cmdspec"
)

// ProcState is the lifecycle state of a supervised process.
// States only ever move forward: Pending, Running, Signaled, Exited.
type ProcState int

const (
	// StatePending means the process has not been spawned yet.
	StatePending ProcState = iota
	// StateRunning means the process has been spawned and not yet reaped.
	StateRunning
	// StateSignaled means a termination signal has been delivered and the
	// process has not yet exited.
	StateSignaled
	// StateExited means the process has been reaped.
	StateExited
)

// String returns the string representation of the ProcState.
func (s ProcState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSignaled:
		return "signaled"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// ProcessHandle represents one running or completed child process. It is
// owned exclusively by its Supervisor; other components only read snapshots.
type ProcessHandle struct {
	Spec cmdspec.CommandSpec

	mu        sync.Mutex
	state     ProcState
	pid       int
	groupID   int
	exitCode  int
	killed    bool
	startedAt time.Time
	endedAt   time.Time
}

func newProcessHandle(spec cmdspec.CommandSpec) *ProcessHandle {
	return &ProcessHandle{Spec: spec, state: StatePending}
}

// State returns the current lifecycle state.
func (h *ProcessHandle) State() ProcState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Pid returns the process id, or zero before spawn.
func (h *ProcessHandle) Pid() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.pid
}

// GroupID returns the process group id the child was spawned into, or zero
// before spawn.
func (h *ProcessHandle) GroupID() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.groupID
}

// ExitCode returns the recorded exit code. Only meaningful once the handle
// has reached StateExited.
func (h *ProcessHandle) ExitCode() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.exitCode
}

// Killed reports whether the process was forcefully terminated after the
// grace period expired.
func (h *ProcessHandle) Killed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.killed
}

// StartedAt returns when the process was spawned.
func (h *ProcessHandle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.startedAt
}

// EndedAt returns when the process was reaped.
func (h *ProcessHandle) EndedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.endedAt
}

func (h *ProcessHandle) markRunning(pid, groupID int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StatePending {
		return ErrInvalidTransition
	}

	h.state = StateRunning
	h.pid = pid
	h.groupID = groupID
	h.startedAt = time.Now()

	return nil
}

func (h *ProcessHandle) markSignaled() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateRunning:
		h.state = StateSignaled
		return nil
	case StateSignaled:
		return nil
	default:
		return ErrInvalidTransition
	}
}

func (h *ProcessHandle) markKilled() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == StateExited {
		return
	}

	h.killed = true
}

func (h *ProcessHandle) markExited(exitCode int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateRunning && h.state != StateSignaled {
		return ErrInvalidTransition
	}

	h.state = StateExited
	h.exitCode = exitCode
	h.endedAt = time.Now()

	return nil
}
