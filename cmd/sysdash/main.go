package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"sysdash/internal/handlers"
	"sysdash/internal/manager"
	"sysdash/internal/middleware"
	"sysdash/internal/models"
	"sysdash/internal/utils"
	"sysdash/internal/version"
	"sysdash/ui"
)

type App struct {
	manager     *manager.Manager
	dashboard   *handlers.DashboardHandlers
	wsHub       *middleware.Hub
	rateLimiter *middleware.RateLimiter
	httpLog     *utils.Logger
}

var app *App

type options struct {
	configPath  string
	port        int
	bind        string
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	flags := pflag.NewFlagSet("sysdash", pflag.ContinueOnError)
	flags.StringVarP(&opts.configPath, "config", "c", manager.DefaultConfigFile, "path to the JSON config file (created with defaults when missing)")
	flags.IntVarP(&opts.port, "port", "p", 0, "listen port, overrides the config file")
	flags.StringVar(&opts.bind, "bind", "", "listen address, overrides the config file")
	flags.BoolVarP(&opts.showVersion, "version", "v", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

// applyOverrides folds command line overrides into the loaded config.
func applyOverrides(cfg *manager.Config, opts options) error {
	if opts.port != 0 {
		cfg.Port = opts.port
	}
	if opts.bind != "" {
		cfg.BindAddress = opts.bind
	}
	return cfg.Validate()
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid arguments: %v", err)
	}
	if opts.showVersion {
		fmt.Println(version.String())
		return
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	mgr, err := manager.NewManagerWithConfig(opts.configPath)
	if err != nil {
		log.Fatalf("Manager failed to initialize: %v", err)
	}
	if err := applyOverrides(mgr.Config, opts); err != nil {
		log.Fatalf("Invalid command line override: %v", err)
	}

	trayEnabled := mgr.Config.TrayEnabled && runtime.GOOS == "windows"
	if trayEnabled && spawnDetachedIfNeeded(trayEnabled) {
		// Parent exits; background child continues
		return
	}
	if trayEnabled {
		hideConsoleWindow()
	}

	app = newApp(mgr)

	hubCtx, stopHub := context.WithCancel(context.Background())
	go app.wsHub.Run(hubCtx)
	mgr.OnSnapshot(func(s *models.Snapshot) {
		if app.wsHub.GetClientCount() == 0 {
			return
		}
		if err := app.wsHub.BroadcastJSON(s); err != nil {
			mgr.Log.Error("Unable to broadcast snapshot", err)
		}
	})
	mgr.StartTelemetryMonitor()

	srv := &http.Server{
		Addr:              mgr.Config.Addr(),
		Handler:           setupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	startServer := func() {
		mgr.Log.Write(fmt.Sprintf("Starting HTTP server on %s (dashboard at http://%s:%d)", srv.Addr, utils.LocalIP(), mgr.Config.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mgr.Log.Error("Server failed to start", err)
			mgr.Close()
			os.Exit(1)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if trayEnabled {
		trayDone := make(chan struct{})
		go startServer()
		go func() {
			<-quit
			mgr.Log.Write("Shutdown signal received")
			trayQuit()
		}()
		// run tray on main thread (blocks until tray exit)
		startTray(app, srv, trayDone)
		<-trayDone
		mgr.Log.Write("Tray exit requested")
	} else {
		go startServer()
		<-quit
		mgr.Log.Write("Shutdown signal received")
	}

	shutdown(srv, stopHub)
}

// shutdown drains HTTP requests, stops the collector and closes websocket
// clients.
func shutdown(srv *http.Server, stopHub context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		app.manager.Log.Error("HTTP server shutdown error", err)
	}
	stopHub()
	if app.rateLimiter != nil {
		app.rateLimiter.Stop()
	}
	app.httpLog.Close()
	app.manager.Close()
}

func newApp(mgr *manager.Manager) *App {
	a := &App{
		manager:   mgr,
		dashboard: handlers.NewDashboardHandlers(mgr),
		wsHub:     middleware.NewHub(mgr.Log),
	}
	if mgr.Config.RateLimitPerMinute > 0 {
		a.rateLimiter = middleware.NewRateLimiterPerMinute(mgr.Config.RateLimitPerMinute)
	}
	if mgr.Config.VerboseHTTP && mgr.Paths != nil {
		a.httpLog = utils.NewLogger(mgr.Paths.HTTPLogFile())
	}
	return a
}

func setupRouter() *gin.Engine {
	r := gin.New()

	// Add recovery middleware
	r.Use(gin.Recovery())

	if app.httpLog != nil {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			Output: app.httpLog.File(),
			Formatter: func(param gin.LogFormatterParams) string {
				return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
					param.ClientIP,
					param.TimeStamp.Format(time.RFC1123),
					param.Method,
					param.Path,
					param.Request.Proto,
					param.StatusCode,
					param.Latency,
					param.Request.UserAgent(),
					param.ErrorMessage,
				)
			},
		}))
	}

	// Security middleware
	r.Use(middleware.ReadOnly())
	r.Use(middleware.SecurityHeaders(app.manager.Config.AllowIFrame))
	r.Use(middleware.CORS())
	if app.rateLimiter != nil {
		r.Use(app.rateLimiter.Middleware())
	}

	tmpl, err := ui.Templates(nil)
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(ui.Static()))
	r.GET("/favicon.ico", faviconHandler)

	r.GET("/", app.dashboard.Index)
	r.GET("/healthz", app.dashboard.Healthz)
	r.GET("/version", app.dashboard.Version)

	api := r.Group("/api")
	{
		api.GET("/detailed_stats", app.dashboard.DetailedStats)
	}

	// WebSocket endpoint
	r.GET("/ws", app.wsHub.HandleWebSocket(currentSnapshotJSON))

	return r
}

// currentSnapshotJSON primes new websocket clients with the cached snapshot.
func currentSnapshotJSON() ([]byte, bool) {
	s, ok := app.manager.Cache.Read()
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, false
	}
	return data, true
}

func faviconHandler(c *gin.Context) {
	data, err := ui.IconICO()
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "image/x-icon", data)
}
