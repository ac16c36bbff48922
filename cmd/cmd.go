// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for the module.
package cmd

import (
	"os"

	"github.com/medley-run/medley"
	"github.com/medley-run/medley/cmd/run"
	"github.com/urfave/cli/v3"
)

// RootCmd is the root command for the CLI.
var RootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "medley",
	Version:   medley.Version,
	Description: `Medley runs a set of shell commands serially or concurrently,
multiplexes their output under per-command labels and relays termination
signals to the whole process group of each command, escalating to a forced
kill after a grace period. Commands can be given directly, read from a
Procfile or medley.yaml manifest, or resolved from package.json scripts.`,
	Usage:                 `medley run concurrently "npm start" "npm run worker"`,
	EnableShellCompletion: true,
}
