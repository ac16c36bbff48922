// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/medley-run/medley/internal/cmdspec"
	"github.com/medley-run/medley/internal/ctxlog"
	"mvdan.cc/sh/v3/shell"
)

const shellPath = "/bin/sh"

// Supervisor owns one child process from spawn to reap. It streams the
// child's output to the multiplexer, relays termination signals to the
// child's process group and escalates to a forced kill when the grace
// period expires.
type Supervisor struct {
	spec   cmdspec.CommandSpec
	cfg    *RunConfig
	mux    *Multiplexer
	handle *ProcessHandle

	cmd   *exec.Cmd
	pumps sync.WaitGroup
	done  chan struct{}

	mu       sync.Mutex
	signaled bool
	escalate *time.Timer
}

// NewSupervisor creates a Supervisor for one command. The returned
// supervisor is single-use: Start then Wait, exactly once each.
func NewSupervisor(spec cmdspec.CommandSpec, cfg *RunConfig, mux *Multiplexer) *Supervisor {
	return &Supervisor{
		spec:   spec,
		cfg:    cfg,
		mux:    mux,
		handle: newProcessHandle(spec),
		done:   make(chan struct{}),
	}
}

// Handle returns a read-only view of the supervised process.
func (s *Supervisor) Handle() *ProcessHandle {
	return s.handle
}

// Start spawns the child process in its own process group and begins
// streaming its output. It returns ErrSpawn if the executable or shell
// cannot be started; the handle stays in StatePending in that case.
func (s *Supervisor) Start(ctx context.Context) error {
	logger := ctxlog.Logger(ctx).With("label", s.spec.Label)

	cmd, err := s.buildCmd()
	if err != nil {
		return err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Join(ErrSpawn, err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Join(ErrSpawn, err)
	}

	setProcGroup(cmd)

	if err := cmd.Start(); err != nil {
		return errors.Join(ErrSpawn, err)
	}

	s.cmd = cmd

	pid := cmd.Process.Pid
	if err := s.handle.markRunning(pid, procGroupID(pid)); err != nil {
		return err
	}

	logger.Debug("process started", "pid", pid, "command", s.spec.Command)

	s.pumps.Add(2)

	go s.pump(stdout, StreamStdout)
	go s.pump(stderr, StreamStderr)

	// Relay context cancellation as an interrupt so a cancelled run still
	// gives children the grace period before escalation.
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Signal(SignalInterrupt); err != nil {
				logger.Debug("signal on context cancel", "error", err)
			}
		case <-s.done:
		}
	}()

	return nil
}

// Signal delivers the given signal kind to the child's process group and
// arms the kill-timeout escalation timer. Calling Signal again while an
// escalation is already pending is a no-op; the timer is never restarted.
// Delivery failure to an already-reaped group is not an error.
func (s *Supervisor) Signal(kind SignalKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signaled || s.handle.State() == StateExited {
		return nil
	}

	if err := s.handle.markSignaled(); err != nil {
		return nil
	}

	s.signaled = true
	s.escalate = time.AfterFunc(s.cfg.killTimeout(), s.forceKill)

	if err := signalGroup(s.handle.GroupID(), kind.Signal()); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}

		return err
	}

	return nil
}

// forceKill is the unconditional safety net against children that ignore
// the graceful signal.
func (s *Supervisor) forceKill() {
	if s.handle.State() == StateExited {
		return
	}

	s.handle.markKilled()

	if err := killGroup(s.handle.GroupID()); err != nil && !errors.Is(err, os.ErrProcessDone) {
		ctxlog.DefaultLogger.Warn("force kill failed", "label", s.spec.Label, "error", err)
	}
}

// Wait blocks until the child has exited and both output streams are
// drained, reaps the child and reports the outcome. A process that had to
// be forcefully terminated is reported with a synthetic negative exit code
// and the Killed marker.
func (s *Supervisor) Wait() CommandResult {
	s.pumps.Wait()

	waitErr := s.cmd.Wait()

	s.mu.Lock()
	if s.escalate != nil {
		s.escalate.Stop()
	}
	s.mu.Unlock()

	close(s.done)

	exitCode := s.cmd.ProcessState.ExitCode()

	// A natural exit that races the escalation timer still carries a real
	// exit code; only a signal death (-1) counts as killed.
	killed := s.handle.Killed() && exitCode < 0

	if err := s.handle.markExited(exitCode); err != nil {
		ctxlog.DefaultLogger.Warn("handle transition", "label", s.spec.Label, "error", err)
	}

	s.mux.Completed(s.spec.Index, s.spec.Label, s.handle.Pid(), exitCode, killed)

	res := CommandResult{
		Label:     s.spec.Label,
		Index:     s.spec.Index,
		Command:   s.spec.Command,
		ExitCode:  exitCode,
		Killed:    killed,
		Ran:       true,
		StartedAt: s.handle.StartedAt(),
		EndedAt:   s.handle.EndedAt(),
	}

	switch {
	case killed:
		res.Err = ErrForcedTermination
	case exitCode != 0:
		res.Err = fmt.Errorf("%w: %d", ErrCommandFailed, exitCode)
	case waitErr != nil:
		res.Err = waitErr
		res.ExitCode = -1
	}

	return res
}

func (s *Supervisor) buildCmd() (*exec.Cmd, error) {
	var cmd *exec.Cmd

	if s.cfg.Subshell {
		cmd = exec.Command(shellPath, "-c", s.spec.Command)
	} else {
		fields, err := shell.Fields(s.spec.Command, nil)
		if err != nil {
			return nil, errors.Join(ErrSpawn, err)
		}

		if len(fields) == 0 {
			return nil, errors.Join(ErrSpawn, cmdspec.ErrEmptyCommand)
		}

		cmd = exec.Command(fields[0], fields[1:]...)
	}

	cmd.Dir = s.cfg.WorkingDir
	cmd.Env = s.environ()

	return cmd, nil
}

func (s *Supervisor) environ() []string {
	env := make([]string, 0, len(s.cfg.Env))

	if s.cfg.InheritEnv {
		env = os.Environ()
	}

	keys := make([]string, 0, len(s.cfg.Env))
	for k := range s.cfg.Env {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	for _, k := range keys {
		env = append(env, k+"="+s.cfg.Env[k])
	}

	return env
}

// pump reads one stream line-by-line and forwards each completed line to
// the multiplexer. A trailing partial line at EOF is forwarded as-is.
func (s *Supervisor) pump(r io.Reader, stream StreamKind) {
	defer s.pumps.Done()

	br := bufio.NewReader(r)

	for {
		line, err := br.ReadString('\n')

		if chunk := strings.TrimRight(line, "\r\n"); chunk != "" || (err == nil && line != "") {
			s.mux.Write(OutputChunk{
				Index:  s.spec.Index,
				Label:  s.spec.Label,
				Stream: stream,
				Line:   chunk,
				Pid:    s.handle.Pid(),
			})
		}

		if err != nil {
			return
		}
	}
}
