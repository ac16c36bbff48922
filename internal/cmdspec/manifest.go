// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
)

// PackageJSON is the name of the node package manifest.
const PackageJSON = "package.json"

var (
	// ErrUnknownScript is returned when a requested script is not present in package.json.
	ErrUnknownScript = errors.New("script does not exist in package.json")
	// ErrManifestEntry is returned when a manifest entry is missing a label or command.
	ErrManifestEntry = errors.New("manifest entry must have a label and a command")
)

// LoadManifest reads a medley.yaml manifest: a YAML list of entries with
// "label" and "command" keys, run in declaration order.
func LoadManifest(fs afero.Fs, path string) ([]Entry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for _, e := range entries {
		if e.Name == "" || strings.TrimSpace(e.Command) == "" {
			return nil, fmt.Errorf("%w: %+v", ErrManifestEntry, e)
		}
	}

	return entries, nil
}

type packageManifest struct {
	Scripts map[string]string `json:"scripts"`
}

// ScriptCommands resolves package.json script names into runnable commands
// of the form "npm run <name>" (or "bun run <name>"). A trailing "*" on a
// name expands to every script sharing the prefix, in lexical order.
func ScriptCommands(fs afero.Fs, dir string, names []string, useBun bool) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, filepath.Join(dir, PackageJSON))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", PackageJSON, err)
	}

	var manifest packageManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PackageJSON, err)
	}

	runWith := "npm"
	if useBun {
		runWith = "bun"
	}

	scriptNames := slices.Sorted(maps.Keys(manifest.Scripts))
	commands := make([]string, 0, len(names))

	for _, name := range names {
		prefix, wildcard := strings.CutSuffix(name, "*")
		if wildcard {
			for _, s := range scriptNames {
				if strings.HasPrefix(s, prefix) {
					commands = append(commands, runWith+" run "+s)
				}
			}

			continue
		}

		if _, ok := manifest.Scripts[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownScript, name)
		}

		commands = append(commands, runWith+" run "+name)
	}

	return commands, nil
}
