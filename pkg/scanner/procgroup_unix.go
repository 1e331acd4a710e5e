//go:build unix

package scanner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup makes the scanner lead its own process group so that
// cancellation also reaches the helpers it spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
