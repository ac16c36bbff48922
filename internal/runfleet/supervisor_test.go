// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runfleet

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/medley-run/medley/internal/cmdspec"
	"github.com/medley-run/medley/internal/color"
	"github.com/medley-run/medley/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("skipping unix shell test on windows")
	}
}

func newTestSupervisor(spec cmdspec.CommandSpec, cfg *RunConfig, buf *bytes.Buffer) *Supervisor {
	color.Disable()

	mux := NewMultiplexer(buf, []cmdspec.CommandSpec{spec}, cfg)

	return NewSupervisor(spec, cfg, mux)
}

func TestSupervisor_Success(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	buf := &bytes.Buffer{}
	spec := testSpec(0, "hello", "echo hello world")
	sup := newTestSupervisor(spec, NewRunConfig(ModeSerial), buf)

	ctx := ctxlog.New(context.Background(), ctxlog.DefaultLogger)
	require.NoError(t, sup.Start(ctx))
	assert.Equal(t, StateRunning, sup.Handle().State())
	assert.Positive(t, sup.Handle().Pid())

	res := sup.Wait()
	assert.True(t, res.Succeeded())
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Killed)
	assert.Equal(t, StateExited, sup.Handle().State())

	assert.Contains(t, buf.String(), "[hello] hello world\n")
	assert.Contains(t, buf.String(), "[hello] exit status: 0\n")
}

func TestSupervisor_NonZeroExit(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "fail", "exit 3"), NewRunConfig(ModeSerial), buf)

	require.NoError(t, sup.Start(context.Background()))

	res := sup.Wait()
	assert.False(t, res.Succeeded())
	assert.Equal(t, 3, res.ExitCode)
	require.ErrorIs(t, res.Err, ErrCommandFailed)
	assert.Contains(t, buf.String(), "exit status: 3")
}

func TestSupervisor_SpawnError(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	cfg := NewRunConfig(ModeSerial)
	cfg.Subshell = false

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "missing", "/not/a/real/command --flag"), cfg, buf)

	err := sup.Start(context.Background())
	require.ErrorIs(t, err, ErrSpawn)
	assert.Equal(t, StatePending, sup.Handle().State())
}

func TestSupervisor_NoSubshellArgv(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	cfg := NewRunConfig(ModeSerial)
	cfg.Subshell = false

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "argv", `echo "one two" three`), cfg, buf)

	require.NoError(t, sup.Start(context.Background()))

	res := sup.Wait()
	assert.True(t, res.Succeeded())
	assert.Contains(t, buf.String(), "[argv] one two three\n", "quoted field must stay one argument")
}

func TestSupervisor_EnvAndCwd(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	tempDir := t.TempDir()
	cfg := NewRunConfig(ModeSerial)
	cfg.Env = map[string]string{"MEDLEY_TEST_VALUE": "marker"}
	cfg.WorkingDir = tempDir

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "env", "echo $MEDLEY_TEST_VALUE; pwd"), cfg, buf)

	require.NoError(t, sup.Start(context.Background()))

	res := sup.Wait()
	assert.True(t, res.Succeeded())

	out := buf.String()
	assert.Contains(t, out, "marker")
	assert.Contains(t, out, tempDir)
}

func TestSupervisor_CleanEnv(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	t.Setenv("MEDLEY_LEAK_CHECK", "should-not-appear")

	cfg := NewRunConfig(ModeSerial)
	cfg.InheritEnv = false
	cfg.Env = map[string]string{"PATH": "/bin:/usr/bin"}

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "clean", "echo [$MEDLEY_LEAK_CHECK]"), cfg, buf)

	require.NoError(t, sup.Start(context.Background()))

	res := sup.Wait()
	assert.True(t, res.Succeeded())
	assert.Contains(t, buf.String(), "[clean] []\n", "inherited variable must not leak into a clean environment")
}

func TestSupervisor_PartialLineFlushedAtExit(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "partial", `printf 'no-newline'`), NewRunConfig(ModeSerial), buf)

	require.NoError(t, sup.Start(context.Background()))

	res := sup.Wait()
	assert.True(t, res.Succeeded())
	assert.Contains(t, buf.String(), "[partial] no-newline\n")
}

func TestSupervisor_InterruptStopsSleeper(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "sleeper", "sleep 30"), NewRunConfig(ModeSerial), buf)

	require.NoError(t, sup.Start(context.Background()))

	go func() {
		time.Sleep(100 * time.Millisecond)
		sup.Signal(SignalInterrupt) //nolint:errcheck
	}()

	start := time.Now()
	res := sup.Wait()

	assert.Less(t, time.Since(start), 5*time.Second, "interrupted sleeper must exit well before 30s")
	assert.False(t, res.Succeeded())
	assert.False(t, res.Killed, "a sleeper that honors the signal is not killed")
	assert.Equal(t, StateExited, sup.Handle().State())
}

func TestSupervisor_KillTimeoutEscalation(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	cfg := NewRunConfig(ModeSerial)
	cfg.KillTimeout = 500 * time.Millisecond

	// The shell ignores INT and keeps respawning sleeps, so only the
	// escalation to SIGKILL can end it.
	buf := &bytes.Buffer{}
	sup := newTestSupervisor(
		testSpec(0, "stubborn", `trap "" INT; while true; do sleep 0.1; done`), cfg, buf)

	require.NoError(t, sup.Start(context.Background()))

	time.Sleep(100 * time.Millisecond)

	signaledAt := time.Now()
	require.NoError(t, sup.Signal(SignalInterrupt))
	assert.Equal(t, StateSignaled, sup.Handle().State())

	res := sup.Wait()
	elapsed := time.Since(signaledAt)

	assert.GreaterOrEqual(t, elapsed, cfg.KillTimeout, "forced kill must not fire before the grace period")
	assert.Less(t, elapsed, cfg.KillTimeout+2*time.Second, "forced kill must fire soon after the grace period")

	assert.True(t, res.Killed)
	assert.Equal(t, -1, res.ExitCode)
	require.ErrorIs(t, res.Err, ErrForcedTermination)
	assert.Contains(t, buf.String(), "(killed)")
}

func TestSupervisor_ContextCancelInterrupts(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	buf := &bytes.Buffer{}
	sup := newTestSupervisor(testSpec(0, "ctx", "sleep 30"), NewRunConfig(ModeSerial), buf)

	require.NoError(t, sup.Start(ctx))

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := sup.Wait()

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.False(t, res.Succeeded())
}
