// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdspec

import (
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrNoCommands is returned when there is nothing to run.
	ErrNoCommands = errors.New("no commands to run")
	// ErrEmptyCommand is returned when a command is empty or whitespace-only.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrLabelCountMismatch is returned when the number of explicit labels does not match the number of commands.
	ErrLabelCountMismatch = errors.New("number of labels must match number of commands")
	// ErrLabelModeConflict is returned when explicit labels are combined with command-as-label.
	ErrLabelModeConflict = errors.New("explicit labels cannot be combined with command-as-label")
)

// CommandSpec is one resolved command. It is immutable once resolved.
type CommandSpec struct {
	Label   string // Display label for multiplexed output
	Command string // The shell command text
	Index   int    // Position in the resolved sequence
}

// ResolveOptions controls how labels are derived for a command list.
type ResolveOptions struct {
	Labels         []string // Explicit labels, must match the command count if non-empty
	CommandAsLabel bool     // Use the command text as its own label
	NoLabels       bool     // Suppress labels entirely
}

// Resolve validates the command list and assigns a label to each command.
// Label precedence: none (if suppressed), the command text itself, an
// explicit label, then the index as a string.
func Resolve(commands []string, opts ResolveOptions) ([]CommandSpec, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}

	if len(opts.Labels) > 0 && opts.CommandAsLabel {
		return nil, ErrLabelModeConflict
	}

	if len(opts.Labels) > 0 && len(opts.Labels) != len(commands) {
		return nil, ErrLabelCountMismatch
	}

	specs := make([]CommandSpec, 0, len(commands))

	for i, command := range commands {
		if strings.TrimSpace(command) == "" {
			return nil, ErrEmptyCommand
		}

		specs = append(specs, CommandSpec{
			Label:   labelFor(i, command, opts),
			Command: command,
			Index:   i,
		})
	}

	return specs, nil
}

func labelFor(i int, command string, opts ResolveOptions) string {
	switch {
	case opts.NoLabels:
		return ""
	case opts.CommandAsLabel:
		return command
	case len(opts.Labels) > 0:
		return opts.Labels[i]
	default:
		return strconv.Itoa(i)
	}
}
