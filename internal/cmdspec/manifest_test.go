// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package cmdspec

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "medley.yaml", `
- label: web
  command: npm start
- label: db
  command: docker compose up db
`)

	entries, err := LoadManifest(fs, "medley.yaml")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Name: "web", Command: "npm start"}, entries[0])
	assert.Equal(t, Entry{Name: "db", Command: "docker compose up db"}, entries[1])
}

func TestLoadManifest_MissingLabel(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "medley.yaml", "- command: npm start\n")

	_, err := LoadManifest(fs, "medley.yaml")
	require.ErrorIs(t, err, ErrManifestEntry)
}

const testPackageJSON = `{
  "scripts": {
    "build": "tsc",
    "test": "vitest",
    "test:unit": "vitest run unit",
    "test:e2e": "playwright test"
  }
}`

func TestScriptCommands(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "package.json", testPackageJSON)

	commands, err := ScriptCommands(fs, ".", []string{"build"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"npm run build"}, commands)
}

func TestScriptCommands_Bun(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "package.json", testPackageJSON)

	commands, err := ScriptCommands(fs, ".", []string{"build"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"bun run build"}, commands)
}

func TestScriptCommands_Wildcard(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "package.json", testPackageJSON)

	commands, err := ScriptCommands(fs, ".", []string{"test:*"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"npm run test:e2e", "npm run test:unit"}, commands)
}

func TestScriptCommands_Unknown(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestFile(t, fs, "package.json", testPackageJSON)

	_, err := ScriptCommands(fs, ".", []string{"deploy"}, false)
	require.ErrorIs(t, err, ErrUnknownScript)
}

func TestScriptCommands_NoNames(t *testing.T) {
	fs := afero.NewMemMapFs()

	commands, err := ScriptCommands(fs, ".", nil, false)
	require.NoError(t, err)
	assert.Empty(t, commands)
}
