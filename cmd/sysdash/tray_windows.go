//go:build windows

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/getlantern/systray"

	"sysdash/internal/version"
	"sysdash/ui"
)

const confirmWindow = 4 * time.Second

// startTray runs the notification area icon on the calling goroutine until
// the user quits. done is closed on exit.
func startTray(app *App, srv *http.Server, done chan struct{}) {
	onReady := func() {
		if icon, err := ui.IconICO(); err == nil {
			systray.SetIcon(icon)
		} else {
			app.manager.Log.Error("Tray icon unavailable", err)
		}
		systray.SetTitle("sysdash")
		systray.SetTooltip(fmt.Sprintf("sysdash %s on port %d", version.String(), app.manager.Config.Port))

		mOpen := systray.AddMenuItem("Open dashboard", "Open the dashboard in the browser")
		mLogs := systray.AddMenuItem("Open logs folder", "Open the logs directory")
		mRestart := systray.AddMenuItem("Restart", "Restart sysdash")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Stop sysdash")

		go func() {
			confirmRestart := false
			var resetRestart <-chan time.Time
			for {
				select {
				case <-mOpen.ClickedCh:
					app.manager.Log.Write("Tray: open dashboard")
					url := fmt.Sprintf("http://localhost:%d", app.manager.Config.Port)
					if err := launchBrowser(url); err != nil {
						app.manager.Log.Error("Tray: unable to launch browser", err)
					}
				case <-mLogs.ClickedCh:
					app.manager.Log.Write("Tray: open logs folder")
					if err := openPath(app.manager.Paths.LogsDir()); err != nil {
						app.manager.Log.Error("Tray: unable to open logs folder", err)
					}
				case <-resetRestart:
					confirmRestart = false
					resetRestart = nil
					mRestart.SetTitle("Restart")
				case <-mRestart.ClickedCh:
					if !confirmRestart {
						confirmRestart = true
						resetRestart = time.After(confirmWindow)
						mRestart.SetTitle("Confirm restart")
						app.manager.Log.Write("Tray: restart requested, awaiting confirmation")
						continue
					}
					app.manager.Log.Write("Tray: restarting")
					restartFromTray(app, srv)
				case <-mQuit.ClickedCh:
					app.manager.Log.Write("Tray: quit")
					systray.Quit()
					return
				}
			}
		}()
	}

	onExit := func() {
		close(done)
	}

	systray.Run(onReady, onExit)
}

// restartFromTray frees the listen port before relaunching so the new
// process can bind it.
func restartFromTray(app *App, srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if err := app.manager.Restart(); err != nil {
		app.manager.Log.Error("Tray: restart failed", err)
		systray.Quit()
		return
	}
	os.Exit(0)
}

// trayQuit ends systray.Run, which unblocks main.
func trayQuit() {
	systray.Quit()
}

func launchBrowser(url string) error {
	return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
}

func openPath(path string) error {
	return exec.Command("explorer", path).Start()
}
