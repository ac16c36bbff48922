// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build unix

package runfleet

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcGroup arranges for the child to be spawned into its own process
// group so that signals reach subshell-spawned descendants too.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// procGroupID returns the process group id the child was spawned into.
// With Setpgid the group id equals the child's pid.
func procGroupID(pid int) int {
	return pid
}

// signalGroup delivers sig to the whole process group. A group that has
// already been reaped reports os.ErrProcessDone.
func signalGroup(groupID int, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return ErrSignalDelivery
	}

	if err := syscall.Kill(-groupID, s); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}

		return errors.Join(ErrSignalDelivery, err)
	}

	return nil
}

// killGroup forcefully terminates the whole process group with SIGKILL.
func killGroup(groupID int) error {
	return signalGroup(groupID, syscall.SIGKILL)
}
