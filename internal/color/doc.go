// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color provides functions to determine if color output is enabled
// and to colorize strings with ANSI escape codes. It checks the environment
// variables NO_COLOR and FORCE_COLOR, and falls back to terminal detection
// using the golang.org/x/term package. It also assigns a stable palette
// color to each command label by index.
package color
