//go:build windows

package main

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

const backgroundEnv = "SYSDASH_BACKGROUND"

var (
	modKernel32          = windows.NewLazySystemDLL("kernel32.dll")
	modUser32            = windows.NewLazySystemDLL("user32.dll")
	procGetConsoleWindow = modKernel32.NewProc("GetConsoleWindow")
	procShowWindow       = modUser32.NewProc("ShowWindow")
)

const swHide = 0

func consoleWindow() uintptr {
	hwnd, _, _ := procGetConsoleWindow.Call()
	return hwnd
}

// hideConsoleWindow hides the console we were started from, if any, so only
// the tray icon remains.
func hideConsoleWindow() {
	if hwnd := consoleWindow(); hwnd != 0 {
		procShowWindow.Call(hwnd, swHide)
	}
}

// spawnDetachedIfNeeded relaunches the executable detached from the console
// and reports whether the caller should exit. The child is marked through
// SYSDASH_BACKGROUND so it never spawns again.
func spawnDetachedIfNeeded(trayEnabled bool) bool {
	if !trayEnabled || os.Getenv(backgroundEnv) == "1" {
		return false
	}
	if consoleWindow() == 0 {
		return false
	}
	exe, err := os.Executable()
	if err != nil || exe == "" {
		return false
	}
	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), backgroundEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
	return cmd.Start() == nil
}
