// Copyright (c) medley-run 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package runfleet

import (
	"errors"
	"os"
	"os/exec"
)

// Windows has no process groups in the unix sense; signals go to the direct
// child only and escalation uses Process.Kill.

func setProcGroup(_ *exec.Cmd) {}

func procGroupID(pid int) int {
	return pid
}

func signalGroup(groupID int, sig os.Signal) error {
	p, err := os.FindProcess(groupID)
	if err != nil {
		return errors.Join(ErrSignalDelivery, err)
	}

	if err := p.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return os.ErrProcessDone
		}

		return errors.Join(ErrSignalDelivery, err)
	}

	return nil
}

func killGroup(groupID int) error {
	return signalGroup(groupID, os.Kill)
}
