// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"context"
	"io"
	"sync"

	"github.com/medley-run/medley/internal/cmdspec"
	"github.com/medley-run/medley/internal/ctxlog"
)

// RunPhase is the state of a run.
type RunPhase int

const (
	// PhaseIdle means Run has not been called yet.
	PhaseIdle RunPhase = iota
	// PhaseRunning means commands are executing.
	PhaseRunning
	// PhaseInterrupting means cascading shutdown has begun.
	PhaseInterrupting
	// PhaseCompleted means every supervisor has reached a terminal state.
	PhaseCompleted
)

// String returns the string representation of the RunPhase.
func (p RunPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseInterrupting:
		return "interrupting"
	case PhaseCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Coordinator drives one run of a command list: it spawns supervisors per
// the configured mode, fans in their completions and aggregates the final
// result. A Coordinator handles exactly one run and is not reused.
type Coordinator struct {
	specs []cmdspec.CommandSpec
	cfg   *RunConfig
	mux   *Multiplexer

	mu     sync.Mutex
	phase  RunPhase
	active map[*Supervisor]struct{}

	shutdownOnce sync.Once
}

// NewCoordinator creates a Coordinator writing multiplexed output to w.
func NewCoordinator(specs []cmdspec.CommandSpec, cfg *RunConfig, w io.Writer) *Coordinator {
	return &Coordinator{
		specs:  specs,
		cfg:    cfg,
		mux:    NewMultiplexer(w, specs, cfg),
		active: make(map[*Supervisor]struct{}, len(specs)),
	}
}

// Phase returns the current run phase.
func (c *Coordinator) Phase() RunPhase {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.phase
}

// Run executes the command list and returns the aggregated result. It
// returns only after every spawned supervisor has reached a terminal state,
// so no children are left orphaned.
func (c *Coordinator) Run(ctx context.Context) *RunResult {
	logger := ctxlog.Logger(ctx)
	logger.Debug("run starting", "mode", c.cfg.Mode.String(), "commands", len(c.specs))

	c.setPhase(PhaseRunning)

	var commands []CommandResult

	switch c.cfg.Mode {
	case ModeConcurrent:
		commands = c.runConcurrent(ctx)
	default:
		commands = c.runSerial(ctx)
	}

	c.setPhase(PhaseCompleted)

	res := newRunResult(commands)
	logger.Debug("run completed", "aggregateExitCode", res.AggregateExitCode)

	return res
}

// Shutdown begins cascading shutdown: every active supervisor receives the
// signal kind, each with its own independent kill-timeout escalation.
// Repeated calls are no-ops; timers are never restarted and signals are
// never re-sent.
func (c *Coordinator) Shutdown(kind SignalKind) {
	c.shutdownOnce.Do(func() {
		c.mu.Lock()

		if c.phase == PhaseRunning {
			c.phase = PhaseInterrupting
		}

		sups := make([]*Supervisor, 0, len(c.active))
		for sup := range c.active {
			sups = append(sups, sup)
		}
		c.mu.Unlock()

		// Signal concurrently so a slow command cannot delay the others.
		for _, sup := range sups {
			go func(sup *Supervisor) {
				if err := sup.Signal(kind); err != nil {
					ctxlog.DefaultLogger.Warn("signal delivery",
						"label", sup.spec.Label, "error", err)
				}
			}(sup)
		}
	})
}

func (c *Coordinator) setPhase(p RunPhase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Interrupting is set by Shutdown; don't regress it to Running.
	if p == PhaseRunning && c.phase == PhaseInterrupting {
		return
	}

	c.phase = p
}

func (c *Coordinator) interrupted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.phase == PhaseInterrupting
}

func (c *Coordinator) addActive(sup *Supervisor) {
	c.mu.Lock()
	c.active[sup] = struct{}{}
	interrupting := c.phase == PhaseInterrupting
	c.mu.Unlock()

	// A supervisor that slips in after the shutdown snapshot still gets
	// signaled.
	if interrupting {
		go sup.Signal(SignalInterrupt) //nolint:errcheck
	}
}

func (c *Coordinator) removeActive(sup *Supervisor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.active, sup)
}

func notRunResult(spec cmdspec.CommandSpec) CommandResult {
	return CommandResult{
		Label:   spec.Label,
		Index:   spec.Index,
		Command: spec.Command,
		Ran:     false,
		Err:     nil,
	}
}

func spawnFailure(spec cmdspec.CommandSpec, err error) CommandResult {
	return CommandResult{
		Label:    spec.Label,
		Index:    spec.Index,
		Command:  spec.Command,
		ExitCode: -1,
		Ran:      true,
		Err:      err,
	}
}
