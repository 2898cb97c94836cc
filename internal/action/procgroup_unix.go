//go:build !windows

package action

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// setProcGroup runs cmd in its own process group so that killing it also
// kills grandchildren (sleep, curl, ...) that would otherwise keep the output
// pipes open. Context cancellation kills the whole group.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error { return killProcess(cmd) }
	cmd.WaitDelay = 3 * time.Second
}

// killProcess sends SIGKILL to the process group of cmd. A group that is
// already gone is not an error.
func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
