//go:build windows

package sources

import (
	"os/exec"
	"syscall"
)

// hideToolWindow keeps vendor tools from flashing a console window when
// sysdash runs detached behind the tray icon.
func hideToolWindow(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	const createNoWindow = 0x08000000
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
		return
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= createNoWindow
}
