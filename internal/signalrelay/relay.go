// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalrelay listens for OS termination signals sent to the
// orchestrator itself and translates the first one into a cascading
// shutdown request, exactly once per run. Further signals while shutdown is
// in progress are ignored so escalation timers are never restarted.
package signalrelay

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/medley-run/medley/internal/ctxlog"
	"github.com/medley-run/medley/internal/runfleet"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// Shutdowner receives the one-shot shutdown request. It must itself be safe
// against repeated calls.
type Shutdowner interface {
	Shutdown(kind runfleet.SignalKind)
}

// New registers a channel for the signals that should terminate the run.
// With no explicit signals it listens for SIGINT and SIGTERM.
func New(ctx context.Context, sigs ...os.Signal) chan os.Signal {
	ch := make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "registering signal relay", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch
}

// Watch forwards the first received signal to the target as a shutdown
// request and drains any further signals until the context is done. It is
// intended to run on its own goroutine for the lifetime of the run.
func Watch(ctx context.Context, sigCh chan os.Signal, target Shutdowner) {
	latched := false

	for {
		select {
		case <-ctx.Done():
			signal.Stop(sigCh)
			return

		case sig := <-sigCh:
			if latched {
				ctxlog.Info(ctx, "shutdown already in progress, ignoring signal", "signal", sig.String())
				continue
			}

			latched = true

			ctxlog.Info(ctx, "received signal, beginning shutdown", "signal", sig.String())
			target.Shutdown(runfleet.KindOf(sig))
		}
	}
}
