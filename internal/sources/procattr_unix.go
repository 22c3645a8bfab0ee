//go:build !windows

package sources

import (
	"os/exec"
	"syscall"
)

// hideToolWindow places vendor tools in their own process group so a Ctrl-C
// aimed at sysdash does not interrupt a query mid-cycle. Cancellation still
// reaches them through the command context.
func hideToolWindow(cmd *exec.Cmd) {
	if cmd == nil {
		return
	}
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		return
	}
	cmd.SysProcAttr.Setpgid = true
}
