//go:build !windows

package main

import "net/http"

// startTray has no notification area outside Windows.
func startTray(app *App, srv *http.Server, done chan struct{}) {
	close(done)
}

func trayQuit() {}
