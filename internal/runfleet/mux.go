// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/medley-run/medley/internal/cmdspec"
	"github.com/medley-run/medley/internal/color"
)

// StreamKind identifies which stream of the child produced a chunk.
type StreamKind int

const (
	// StreamStdout is the child's standard output.
	StreamStdout StreamKind = iota
	// StreamStderr is the child's standard error.
	StreamStderr
)

// OutputChunk is one completed (or trailing partial) line from a child
// process. Chunks are transient; the multiplexer consumes them immediately
// unless aggregation buffers them until the command completes.
type OutputChunk struct {
	Index  int // Index of the owning command spec
	Label  string
	Stream StreamKind
	Line   string
	Pid    int
}

// Multiplexer serializes the output of concurrently running commands into a
// single coherent stream. In interleaved mode lines are written as they
// arrive, prefixed with a label padded to the longest label's width. In
// aggregated mode each command's output is buffered and flushed as one
// contiguous block when the command completes. Buffers are keyed by command
// index so that commands sharing a label (or running unlabelled) never share
// a buffer.
type Multiplexer struct {
	mu         sync.Mutex
	w          io.Writer
	labelWidth int
	showLabels bool
	showPids   bool
	aggregate  bool
	colors     map[int]color.Code
	buffers    map[int]*bytes.Buffer
}

// NewMultiplexer creates a Multiplexer for the given command list. The label
// column width and per-command palette colors are fixed up front so they do
// not shift as commands start and stop.
func NewMultiplexer(w io.Writer, specs []cmdspec.CommandSpec, cfg *RunConfig) *Multiplexer {
	m := &Multiplexer{
		w:          w,
		showLabels: cfg.ShowLabels,
		showPids:   cfg.ShowPids,
		aggregate:  cfg.AggregateOutput,
		colors:     make(map[int]color.Code, len(specs)),
		buffers:    make(map[int]*bytes.Buffer, len(specs)),
	}

	for _, spec := range specs {
		if len(spec.Label) > m.labelWidth {
			m.labelWidth = len(spec.Label)
		}

		m.colors[spec.Index] = color.ForLabel(spec.Index)

		if m.aggregate {
			m.buffers[spec.Index] = &bytes.Buffer{}
		}
	}

	return m
}

// Write emits one chunk. In aggregated mode the formatted line is appended
// to the command's buffer; otherwise it is written to the sink immediately.
// No two chunks ever interleave below line granularity.
func (m *Multiplexer) Write(chunk OutputChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	line := m.prefix(chunk.Index, chunk.Label, chunk.Pid) + chunk.Line + "\n"

	if buf, ok := m.buffers[chunk.Index]; ok {
		buf.WriteString(line)
		return
	}

	io.WriteString(m.w, line) //nolint:errcheck
}

// Completed flushes a command's aggregated buffer, if any, and writes its
// exit status line. The buffer flush and the status line form one atomic
// block with respect to other commands' output.
func (m *Multiplexer) Completed(index int, label string, pid, exitCode int, killed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if buf, ok := m.buffers[index]; ok {
		io.Copy(m.w, buf) //nolint:errcheck
		buf.Reset()
	}

	status := fmt.Sprintf("exit status: %d", exitCode)
	if killed {
		status += " (killed)"
	}

	io.WriteString(m.w, m.prefix(index, label, pid)+status+"\n") //nolint:errcheck
}

func (m *Multiplexer) prefix(index int, label string, pid int) string {
	if !m.showLabels || label == "" {
		return ""
	}

	pad := m.labelWidth - len(label)
	if pad < 0 {
		pad = 0
	}

	padded := label + strings.Repeat(" ", pad)
	if m.showPids && pid > 0 {
		padded = fmt.Sprintf("%s(pid %d)", padded, pid)
	}

	return color.Colorize("["+padded+"]", m.colors[index]) + " "
}
