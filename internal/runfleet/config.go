// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import "time"

// DefaultKillTimeout is the grace period between a termination signal and a
// forced kill when none is configured.
const DefaultKillTimeout = 10 * time.Second

// Mode selects how the coordinator schedules commands.
type Mode int

const (
	// ModeSerial runs commands one at a time in spec order.
	ModeSerial Mode = iota
	// ModeConcurrent starts all commands together and fans in completions.
	ModeConcurrent
)

// String returns the string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case ModeSerial:
		return "serial"
	case ModeConcurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// RunConfig is the execution policy for one run. It is immutable for the
// duration of the run.
type RunConfig struct {
	Mode              Mode              // Serial or concurrent scheduling
	ContinueOnFailure bool              // Keep running remaining commands after a failure
	KillTimeout       time.Duration     // Grace period before escalation, DefaultKillTimeout if zero
	InheritEnv        bool              // Inherit the orchestrator's environment
	Env               map[string]string // Extra environment variables
	Subshell          bool              // Run commands under /bin/sh -c
	ShowLabels        bool              // Prefix output lines with the command label
	ShowPids          bool              // Include the child pid in the label
	AggregateOutput   bool              // Buffer output per command, flush on completion
	WorkingDir        string            // Working directory for all commands
}

// NewRunConfig returns a RunConfig for the given mode with the defaults
// applied: environment inheritance, subshell execution and visible labels.
func NewRunConfig(mode Mode) *RunConfig {
	return &RunConfig{
		Mode:        mode,
		KillTimeout: DefaultKillTimeout,
		InheritEnv:  true,
		Subshell:    true,
		ShowLabels:  true,
	}
}

func (c *RunConfig) killTimeout() time.Duration {
	if c.KillTimeout <= 0 {
		return DefaultKillTimeout
	}

	return c.KillTimeout
}
