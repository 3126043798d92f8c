//go:build !windows

package native

import (
	"os/exec"
	"syscall"
)

// setDetached starts cmd in its own session so it survives the app exiting.
func setDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}
