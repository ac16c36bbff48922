// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdspec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrMalformedProcfileLine is returned when a Procfile line is not "name: command".
	ErrMalformedProcfileLine = errors.New("malformed Procfile line")
	// ErrDuplicateProcfileEntry is returned when a Procfile declares the same process name twice.
	ErrDuplicateProcfileEntry = errors.New("duplicate Procfile entry")
)

// Entry is a named command sourced from a Procfile or manifest.
type Entry struct {
	Name    string `yaml:"label"`
	Command string `yaml:"command"`
}

// LoadProcfile reads a Procfile from the given filesystem and returns its
// entries in declaration order. Blank lines and lines starting with # are
// ignored.
func LoadProcfile(fs afero.Fs, path string) ([]Entry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open Procfile: %w", err)
	}
	defer f.Close() //nolint:errcheck

	return parseProcfile(f)
}

func parseProcfile(r io.Reader) ([]Entry, error) {
	entries := make([]Entry, 0)
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, command, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		command = strings.TrimSpace(command)

		if !ok || name == "" || command == "" {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedProcfileLine, lineNo, line)
		}

		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProcfileEntry, name)
		}

		seen[name] = struct{}{}

		entries = append(entries, Entry{Name: name, Command: command})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read Procfile: %w", err)
	}

	return entries, nil
}
