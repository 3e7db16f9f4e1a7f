// SPDX-License-Identifier: MPL-2.0

//go:build windows

package executor

import (
	"os"
	"os/exec"
	"syscall"
)

func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// signalGroup kills p. Windows has no termination signal for console
// processes that a parent can send reliably, so both stages kill.
func signalGroup(p *os.Process, _ bool) error {
	return p.Kill()
}
