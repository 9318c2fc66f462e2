//go:build !windows

package osched

import (
	"os/exec"
	"syscall"
)

// Detach configures cmd to run in its own session so it outlives the
// parent process.
func Detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
