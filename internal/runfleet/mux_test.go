// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/medley-run/medley/internal/cmdspec"
	"github.com/medley-run/medley/internal/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func muxSpecs(labels ...string) []cmdspec.CommandSpec {
	specs := make([]cmdspec.CommandSpec, 0, len(labels))
	for i, l := range labels {
		specs = append(specs, cmdspec.CommandSpec{Label: l, Command: "true", Index: i})
	}

	return specs
}

func TestMultiplexer_LabelPadding(t *testing.T) {
	color.Disable()

	buf := &bytes.Buffer{}
	specs := muxSpecs("a", "longer-label")
	m := NewMultiplexer(buf, specs, NewRunConfig(ModeConcurrent))

	m.Write(OutputChunk{Index: 0, Label: "a", Line: "one"})
	m.Write(OutputChunk{Index: 1, Label: "longer-label", Line: "two"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	// All label brackets have the width of the longest label.
	bracket := regexp.MustCompile(`^\[([^\]]*)\] `)
	for _, line := range lines {
		match := bracket.FindStringSubmatch(line)
		require.NotNil(t, match, "expected a label prefix in %q", line)
		assert.Len(t, match[1], len("longer-label"))
	}

	assert.Equal(t, "[a           ] one", lines[0])
	assert.Equal(t, "[longer-label] two", lines[1])
}

func TestMultiplexer_NoLabels(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := NewRunConfig(ModeSerial)
	cfg.ShowLabels = false

	m := NewMultiplexer(buf, muxSpecs("a"), cfg)
	m.Write(OutputChunk{Index: 0, Label: "a", Line: "bare"})

	assert.Equal(t, "bare\n", buf.String())
}

func TestMultiplexer_PidAnnotation(t *testing.T) {
	color.Disable()

	buf := &bytes.Buffer{}
	cfg := NewRunConfig(ModeSerial)
	cfg.ShowPids = true

	m := NewMultiplexer(buf, muxSpecs("web"), cfg)
	m.Write(OutputChunk{Index: 0, Label: "web", Line: "up", Pid: 123})

	assert.Equal(t, "[web(pid 123)] up\n", buf.String())
}

func TestMultiplexer_ExitStatusLine(t *testing.T) {
	color.Disable()

	buf := &bytes.Buffer{}
	m := NewMultiplexer(buf, muxSpecs("web"), NewRunConfig(ModeSerial))

	m.Completed(0, "web", 0, 0, false)
	m.Completed(0, "web", 0, -1, true)

	assert.Contains(t, buf.String(), "[web] exit status: 0\n")
	assert.Contains(t, buf.String(), "[web] exit status: -1 (killed)\n")
}

func TestMultiplexer_AggregatedBlocksAreContiguous(t *testing.T) {
	color.Disable()

	buf := &bytes.Buffer{}
	cfg := NewRunConfig(ModeConcurrent)
	cfg.AggregateOutput = true

	specs := muxSpecs("a", "b")
	m := NewMultiplexer(buf, specs, cfg)

	const lines = 100

	var wg sync.WaitGroup

	for idx, label := range []string{"a", "b"} {
		wg.Add(1)

		go func(idx int, label string) {
			defer wg.Done()

			for i := range lines {
				m.Write(OutputChunk{Index: idx, Label: label, Line: fmt.Sprintf("%s-%d", label, i)})
			}
		}(idx, label)
	}

	wg.Wait()

	m.Completed(0, "a", 0, 0, false)
	m.Completed(1, "b", 0, 0, false)

	out := buf.String()

	// Nothing is written until completion, then each command's output is one
	// contiguous block: no b-line may appear between two a-lines.
	aFirst := strings.Index(out, "[a] a-0\n")
	aLast := strings.Index(out, fmt.Sprintf("[a] a-%d\n", lines-1))
	bFirst := strings.Index(out, "[b] b-0\n")
	bLast := strings.Index(out, fmt.Sprintf("[b] b-%d\n", lines-1))

	require.NotEqual(t, -1, aFirst)
	require.NotEqual(t, -1, bFirst)

	if aFirst < bFirst {
		assert.Less(t, aLast, bFirst, "block a must end before block b starts")
	} else {
		assert.Less(t, bLast, aFirst, "block b must end before block a starts")
	}
}

func TestMultiplexer_AggregatedPerIndexBuffers(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := NewRunConfig(ModeConcurrent)
	cfg.AggregateOutput = true
	cfg.ShowLabels = false

	// Unlabelled commands still aggregate independently.
	m := NewMultiplexer(buf, muxSpecs("", ""), cfg)
	m.Write(OutputChunk{Index: 0, Line: "zero"})
	m.Write(OutputChunk{Index: 1, Line: "one"})
	m.Completed(1, "", 0, 0, false)

	assert.Equal(t, "one\nexit status: 0\n", buf.String(), "only the completed command's block is flushed")
}
