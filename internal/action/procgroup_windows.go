//go:build windows

package action

import (
	"errors"
	"os"
	"os/exec"
	"time"
)

// setProcGroup only sets a drain delay on Windows, which has no Unix-style
// process groups. exec.CommandContext kills the direct child on cancel.
func setProcGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 3 * time.Second
}

func killProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
