// Package utils contains utility types for logging, process control, network
// address discovery and filesystem path management used throughout sysdash.
package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

// Paths resolves and manages filesystem locations used by sysdash.
type Paths struct {
	RootPath string `json:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// ExecutablePaths returns Paths rooted next to the running executable, or
// under the temp directory when the executable cannot be resolved.
func ExecutablePaths() *Paths {
	exe, err := os.Executable()
	if err != nil {
		return NewPaths(filepath.Join(os.TempDir(), "sysdash"))
	}
	if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil && resolved != "" {
		exe = resolved
	}
	return NewPaths(filepath.Dir(exe))
}

// LogsDir returns the global logs directory.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// LogFile returns the main sysdash log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "sysdash.log")
}

// HTTPLogFile returns the request log used when verbose HTTP logging is on.
func (p *Paths) HTTPLogFile() string {
	return filepath.Join(p.LogsDir(), "http.log")
}

// DeployRoot creates the root directory structure (idempotent).
func (p *Paths) DeployRoot(logger *Logger) {
	mkdirLog := func(path, label string) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		_ = os.MkdirAll(path, os.ModePerm)
		if logger != nil {
			logger.Write(fmt.Sprintf("Creating %s path: %s", label, path))
		}
	}

	mkdirLog(p.RootPath, "root")
	mkdirLog(p.LogsDir(), "logs")
}

// RestartProcess relaunches executable with args. Unix replaces the current
// process image; Windows starts a child and the caller must exit.
func RestartProcess(executable string, args []string) error {
	if runtime.GOOS != "windows" {
		return syscall.Exec(executable, append([]string{executable}, args...), os.Environ())
	}
	cmd := exec.Command(executable, args...)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", strings.Join(append([]string{executable}, args...), " "), err)
	}
	return nil
}
