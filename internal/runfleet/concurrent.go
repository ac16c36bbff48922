// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"context"

	"github.com/medley-run/medley/internal/ctxlog"
)

// runConcurrent starts every command together and consumes completion
// events as they arrive. On the first failure with continue-on-failure
// disabled, all still-running supervisors are interrupted; each runs its
// own kill-timeout escalation independently, and finalization happens as
// soon as the last child exits.
func (c *Coordinator) runConcurrent(ctx context.Context) []CommandResult {
	logger := ctxlog.Logger(ctx)

	results := make([]CommandResult, len(c.specs))
	for i, spec := range c.specs {
		results[i] = notRunResult(spec)
	}

	completions := make(chan CommandResult, len(c.specs))
	started := 0

	for _, spec := range c.specs {
		if c.interrupted() {
			break
		}

		sup := NewSupervisor(spec, c.cfg, c.mux)

		if err := sup.Start(ctx); err != nil {
			logger.Debug("spawn failed", "label", spec.Label, "error", err)
			results[spec.Index] = spawnFailure(spec, err)

			if !c.cfg.ContinueOnFailure {
				c.Shutdown(SignalInterrupt)
				break
			}

			continue
		}

		c.addActive(sup)
		started++

		go func(sup *Supervisor) {
			res := sup.Wait()
			c.removeActive(sup)
			completions <- res
		}(sup)
	}

	for range started {
		res := <-completions
		results[res.Index] = res

		if !res.Succeeded() && !c.cfg.ContinueOnFailure {
			c.Shutdown(SignalInterrupt)
		}
	}

	return results
}
