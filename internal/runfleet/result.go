// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hashicorp/go-multierror"
)

// CommandResult is the outcome of one command in a run.
type CommandResult struct {
	Label     string
	Index     int
	Command   string
	ExitCode  int
	Killed    bool // Forcefully terminated after the grace period
	Ran       bool // False for commands skipped by stop-on-failure or shutdown
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// Succeeded reports whether the command ran and exited zero.
func (r CommandResult) Succeeded() bool {
	return r.Ran && r.Err == nil && r.ExitCode == 0
}

// RunResult is the immutable outcome of a whole run, created once at the end.
type RunResult struct {
	Commands          []CommandResult // In spec order
	AggregateExitCode int             // 0 iff every run command exited 0
	Err               error           // Aggregated per-command errors
}

// Succeeded reports whether every run command exited zero.
func (r *RunResult) Succeeded() bool {
	return r.AggregateExitCode == 0
}

// newRunResult aggregates per-command results. The aggregate exit code is
// the exit code of the lowest-index failed command, substituting 1 when that
// code is not a usable process exit code (spawn failures and kills record a
// synthetic -1). Commands that never ran are not failures in themselves.
func newRunResult(commands []CommandResult) *RunResult {
	res := &RunResult{Commands: commands}

	var errs *multierror.Error

	for _, c := range commands {
		if !c.Ran || c.Succeeded() {
			continue
		}

		if c.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", c.Label, c.Err))
		}

		if res.AggregateExitCode == 0 {
			res.AggregateExitCode = c.ExitCode
			if res.AggregateExitCode <= 0 {
				res.AggregateExitCode = 1
			}
		}
	}

	res.Err = errs.ErrorOrNil()

	return res
}

var (
	summaryOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	summaryFail    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	summarySkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// WriteSummary writes a one-line-per-command summary of the run.
func (r *RunResult) WriteSummary(w io.Writer) {
	for _, c := range r.Commands {
		switch {
		case !c.Ran:
			fmt.Fprintf(w, "%s %s: not run\n", summarySkipped.Render("~"), c.Label) //nolint:errcheck
		case c.Succeeded():
			fmt.Fprintf(w, "%s %s: ok (%s)\n", //nolint:errcheck
				summaryOK.Render("✓"), c.Label, c.EndedAt.Sub(c.StartedAt).Round(time.Millisecond))
		case c.Killed:
			fmt.Fprintf(w, "%s %s: killed\n", summaryFail.Render("✗"), c.Label) //nolint:errcheck
		default:
			fmt.Fprintf(w, "%s %s: exit %d\n", summaryFail.Render("✗"), c.Label, c.ExitCode) //nolint:errcheck
		}
	}
}
