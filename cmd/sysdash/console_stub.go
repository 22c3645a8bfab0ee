//go:build !windows

package main

func hideConsoleWindow() {}

func spawnDetachedIfNeeded(bool) bool { return false }
