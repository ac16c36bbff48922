// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"context"

	"github.com/medley-run/medley/internal/ctxlog"
)

// runSerial executes commands one at a time in spec order. On a failure
// with continue-on-failure disabled, the remaining commands are reported as
// not run rather than as failures.
func (c *Coordinator) runSerial(ctx context.Context) []CommandResult {
	logger := ctxlog.Logger(ctx)
	results := make([]CommandResult, 0, len(c.specs))

	for i, spec := range c.specs {
		if c.interrupted() || ctx.Err() != nil {
			results = append(results, notRunResult(spec))
			continue
		}

		sup := NewSupervisor(spec, c.cfg, c.mux)

		if err := sup.Start(ctx); err != nil {
			logger.Debug("spawn failed", "label", spec.Label, "error", err)
			results = append(results, spawnFailure(spec, err))

			if !c.cfg.ContinueOnFailure {
				results = append(results, c.notRunFrom(i+1)...)
				break
			}

			continue
		}

		c.addActive(sup)
		res := sup.Wait()
		c.removeActive(sup)

		results = append(results, res)

		if !res.Succeeded() && !c.cfg.ContinueOnFailure {
			results = append(results, c.notRunFrom(i+1)...)
			break
		}
	}

	return results
}

func (c *Coordinator) notRunFrom(start int) []CommandResult {
	if start >= len(c.specs) {
		return nil
	}

	skipped := make([]CommandResult, 0, len(c.specs)-start)
	for _, spec := range c.specs[start:] {
		skipped = append(skipped, notRunResult(spec))
	}

	return skipped
}
