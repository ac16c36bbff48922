// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the "run" subcommand: it resolves the command
// list, builds the run configuration from flags and hands both to the run
// coordinator.
package run

import (
	"context"
	"errors"
	"fmt"

	"github.com/medley-run/medley/internal/cmdspec"
	"github.com/medley-run/medley/internal/color"
	"github.com/medley-run/medley/internal/runfleet"
	"github.com/medley-run/medley/internal/signalrelay"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	labelFlag          = "label"
	commandAsLabelFlag = "command-as-label"
	continueFlag       = "continue-on-failure"
	killTimeoutFlag    = "kill-timeout"
	noSubshellFlag     = "no-subshell"
	noLabelFlag        = "no-label"
	noColorFlag        = "no-color"
	showPidFlag        = "show-pid"
	workdirFlag        = "working-directory"
	envCleanFlag       = "env-clean"
	procfileFlag       = "procfile"
	manifestFlag       = "manifest"
	npmFlag            = "npm"
	bunFlag            = "bun"
	summaryFlag        = "summary"
	aggregateFlag      = "aggregate-output"
)

// ErrConflictingSources is returned when a Procfile or manifest is combined
// with positional commands or package.json scripts.
var ErrConflictingSources = errors.New("a Procfile or manifest cannot be combined with other command sources")

// RunCmd is the command that runs a list of commands serially or concurrently.
var RunCmd = &cli.Command{
	Name:        "run",
	Aliases:     []string{"r"},
	Usage:       "Run commands serially or concurrently",
	Description: "Run the given commands, a Procfile, a medley.yaml manifest or package.json scripts.",
	Commands: []*cli.Command{
		seriallyCmd,
		concurrentlyCmd,
	},
}

var runFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:    labelFlag,
		Aliases: []string{"l"},
		Usage:   "Label prefix for a command, repeat once per command",
	},
	&cli.BoolFlag{
		Name:    commandAsLabelFlag,
		Aliases: []string{"L"},
		Usage:   "Use each command as its own label",
	},
	&cli.BoolFlag{
		Name:    continueFlag,
		Aliases: []string{"c"},
		Usage:   "Continue running commands after a failure",
	},
	&cli.DurationFlag{
		Name:    killTimeoutFlag,
		Usage:   "Grace period between a termination signal and a forced kill",
		Value:   runfleet.DefaultKillTimeout,
		Aliases: []string{"t"},
	},
	&cli.BoolFlag{
		Name:    noSubshellFlag,
		Aliases: []string{"S"},
		Usage:   "Do not run commands in a subshell",
	},
	&cli.BoolFlag{
		Name:    noLabelFlag,
		Aliases: []string{"B"},
		Usage:   "Do not attach labels to output",
	},
	&cli.BoolFlag{
		Name:    noColorFlag,
		Aliases: []string{"C"},
		Usage:   "Do not colorize label output",
	},
	&cli.BoolFlag{
		Name:  showPidFlag,
		Usage: "Include the command pid in the label",
	},
	&cli.StringFlag{
		Name:    workdirFlag,
		Aliases: []string{"w"},
		Usage:   "Working directory for commands",
	},
	&cli.BoolFlag{
		Name:  envCleanFlag,
		Usage: "Do not inherit the orchestrator's environment",
	},
	&cli.StringFlag{
		Name:    procfileFlag,
		Aliases: []string{"f"},
		Usage:   "Read labelled commands from a Procfile",
	},
	&cli.StringFlag{
		Name:    manifestFlag,
		Aliases: []string{"m"},
		Usage:   "Read labelled commands from a medley.yaml manifest",
	},
	&cli.StringSliceFlag{
		Name:    npmFlag,
		Aliases: []string{"n"},
		Usage:   "Run a script from package.json, a trailing * expands by prefix",
	},
	&cli.BoolFlag{
		Name:  bunFlag,
		Usage: "Run package.json scripts with bun instead of npm",
	},
	&cli.BoolFlag{
		Name:  summaryFlag,
		Usage: "Print a per-command summary after the run",
	},
}

var seriallyCmd = &cli.Command{
	Name:      "serially",
	Aliases:   []string{"s"},
	Usage:     "Run commands one at a time in order (alias: s)",
	ArgsUsage: "COMMAND ...",
	Flags:     runFlags,
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runAction(ctx, cmd, runfleet.ModeSerial, false)
	},
}

var concurrentlyCmd = &cli.Command{
	Name:      "concurrently",
	Aliases:   []string{"c"},
	Usage:     "Run all commands together (alias: c)",
	ArgsUsage: "COMMAND ...",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{
			Name:    aggregateFlag,
			Aliases: []string{"g"},
			Usage:   "Buffer each command's output, flush it as one block on completion",
		},
	}, runFlags...),
	Action: func(ctx context.Context, cmd *cli.Command) error {
		return runAction(ctx, cmd, runfleet.ModeConcurrent, cmd.Bool(aggregateFlag))
	},
}

func runAction(ctx context.Context, cmd *cli.Command, mode runfleet.Mode, aggregate bool) error {
	if cmd.Bool(noColorFlag) {
		color.Disable()
	}

	commands, labels, err := gatherCommands(cmd, afero.NewOsFs())
	if err != nil {
		return cli.Exit(err, 1)
	}

	if len(cmd.StringSlice(labelFlag)) > 0 {
		labels = cmd.StringSlice(labelFlag)
	}

	specs, err := cmdspec.Resolve(commands, cmdspec.ResolveOptions{
		Labels:         labels,
		CommandAsLabel: cmd.Bool(commandAsLabelFlag),
		NoLabels:       cmd.Bool(noLabelFlag),
	})
	if err != nil {
		return cli.Exit(err, 1)
	}

	cfg := buildConfig(cmd, mode, aggregate)

	coord := runfleet.NewCoordinator(specs, cfg, cmd.Writer)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	go signalrelay.Watch(watchCtx, signalrelay.New(ctx), coord)

	res := coord.Run(ctx)

	if cmd.Bool(summaryFlag) {
		res.WriteSummary(cmd.Writer)
	}

	if !res.Succeeded() {
		return cli.Exit(fmt.Sprintf("%v", res.Err), res.AggregateExitCode)
	}

	return nil
}

func buildConfig(cmd *cli.Command, mode runfleet.Mode, aggregate bool) *runfleet.RunConfig {
	cfg := runfleet.NewRunConfig(mode)
	cfg.ContinueOnFailure = cmd.Bool(continueFlag)
	cfg.KillTimeout = cmd.Duration(killTimeoutFlag)
	cfg.InheritEnv = !cmd.Bool(envCleanFlag)
	cfg.Subshell = !cmd.Bool(noSubshellFlag)
	cfg.ShowLabels = !cmd.Bool(noLabelFlag)
	cfg.ShowPids = cmd.Bool(showPidFlag)
	cfg.AggregateOutput = aggregate
	cfg.WorkingDir = cmd.String(workdirFlag)

	return cfg
}

// gatherCommands collects the command list from the configured source.
// A Procfile or manifest is an exclusive source and contributes its own
// labels; positional commands may be combined with package.json scripts.
func gatherCommands(cmd *cli.Command, fs afero.Fs) (commands, labels []string, err error) {
	procfile := cmd.String(procfileFlag)
	manifest := cmd.String(manifestFlag)
	positional := cmd.Args().Slice()
	scripts := cmd.StringSlice(npmFlag)

	if procfile != "" || manifest != "" {
		if procfile != "" && manifest != "" {
			return nil, nil, ErrConflictingSources
		}

		if len(positional) > 0 || len(scripts) > 0 {
			return nil, nil, ErrConflictingSources
		}

		var entries []cmdspec.Entry
		if procfile != "" {
			entries, err = cmdspec.LoadProcfile(fs, procfile)
		} else {
			entries, err = cmdspec.LoadManifest(fs, manifest)
		}

		if err != nil {
			return nil, nil, err
		}

		for _, e := range entries {
			commands = append(commands, e.Command)
			labels = append(labels, e.Name)
		}

		return commands, labels, nil
	}

	commands = append(commands, positional...)

	scriptCommands, err := cmdspec.ScriptCommands(fs, ".", scripts, cmd.Bool(bunFlag))
	if err != nil {
		return nil, nil, err
	}

	commands = append(commands, scriptCommands...)

	return commands, nil, nil
}
