//go:build windows

package osched

import "os/exec"

func Detach(cmd *exec.Cmd) {}
