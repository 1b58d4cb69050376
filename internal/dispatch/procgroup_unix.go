//go:build unix

package dispatch

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts cmd in its own process group and kills the group
// on cancellation, so children forked by a submit tool die with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
