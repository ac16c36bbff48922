// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdspec turns user input (direct CLI arguments, a Procfile, a
// medley.yaml manifest, or package.json scripts) into an ordered list of
// labelled command specifications for the run coordinator. All validation
// that must fail before any process spawns lives here: empty commands,
// label count mismatches and conflicting label modes.
package cmdspec
