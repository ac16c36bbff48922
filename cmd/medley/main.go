// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main is the entry point for the medley command-line application.
package main

import (
	"context"
	"os"

	"github.com/medley-run/medley/cmd"
	"github.com/medley-run/medley/internal/ctxlog"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)

	defer cancel()

	if err := cmd.RootCmd.Run(ctx, os.Args); err != nil {
		ctxlog.Logger(ctx).Error("command failed", "error", err)
		os.Exit(1)
	}
}
