// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog provides a context-based logger built on the slog package.
// The log level is read from an environment variable derived from the
// executable name, e.g. MEDLEY_LOG_LEVEL for an executable named "medley".
// Valid levels are DEBUG, INFO, WARN and ERROR; anything else defaults to
// WARN. Diagnostic logging goes to stderr so it never mixes with the
// multiplexed command output on stdout.
package ctxlog
