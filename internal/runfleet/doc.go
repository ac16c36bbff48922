// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runfleet executes a resolved list of commands either serially or
// concurrently. Each command is owned by a Supervisor that spawns it in its
// own process group, streams its output line-by-line to a shared
// Multiplexer, relays termination signals to the group and escalates to a
// forced kill after a grace period. The Coordinator drives the execution
// policy and aggregates per-command results into a RunResult.
package runfleet
