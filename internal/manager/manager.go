// Package manager owns the telemetry pipeline of sysdash: configuration,
// the snapshot builder, the single-slot cache and the collector loop that
// ties them together.
package manager

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"sysdash/internal/models"
	"sysdash/internal/sources"
	"sysdash/internal/utils"
)

type Manager struct {
	Config     *Config
	ConfigFile string
	Paths      *utils.Paths
	Log        *utils.Logger
	Cache      *Cache

	builder   *SnapshotBuilder
	interval  time.Duration
	startedAt time.Time

	telemetryMu     sync.Mutex
	telemetryStop   chan struct{}
	telemetryWG     sync.WaitGroup
	firstSnapshotAt time.Time

	subscribersMu sync.RWMutex
	subscribers   []func(*models.Snapshot)
}

// NewManagerWithConfig loads (or bootstraps) the config at configPath, opens
// the log under the configured root and wires the platform sources. An empty
// path means ./sysdash.config.
func NewManagerWithConfig(configPath string) (*Manager, error) {
	if strings.TrimSpace(configPath) == "" {
		configPath = DefaultConfigFile
	}
	cfg, created, err := LoadConfig(configPath)
	if err != nil {
		// Log next to the executable so the failure is visible somewhere.
		log := utils.NewLogger("")
		log.Error("Unable to load configuration", err)
		log.Close()
		return nil, err
	}

	paths := utils.NewPaths(cfg.RootPath)
	log := utils.NewLogger(paths.LogFile())
	paths.DeployRoot(log)
	if created {
		log.Write(fmt.Sprintf("Created default configuration at %s", configPath))
	}

	m := New(cfg, log, DefaultSources(cfg))
	m.ConfigFile = configPath
	m.safeLog("Configuration loaded")
	return m, nil
}

// New builds a Manager over explicit sources without touching the
// filesystem.
func New(cfg *Config, log *utils.Logger, src Sources) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Manager{
		Config:    cfg,
		Paths:     utils.NewPaths(cfg.RootPath),
		Log:       log,
		Cache:     &Cache{},
		interval:  cfg.PollInterval(),
		startedAt: time.Now(),
	}
	m.builder = NewSnapshotBuilder(src, m.safeLog)
	return m
}

// DefaultSources wires the platform adapters for the running OS. The driver
// library is skipped when disabled in cfg.
func DefaultSources(cfg *Config) Sources {
	src := Sources{
		Platform:       sources.NewPlatform(),
		Usage:          sources.NewHost(),
		MonitoringTool: sources.NewNvidiaSMI(cfg.NvidiaSMIPath),
	}
	if cfg.NVMLEnabled {
		src.DriverLibrary = sources.NewNVML()
	}
	return src
}

// StartedAt is when the manager was created.
func (m *Manager) StartedAt() time.Time {
	return m.startedAt
}

func (m *Manager) safeLog(message string) {
	if m != nil && m.Log != nil {
		m.Log.Write(message)
	}
}

// Close stops the collector and flushes the log.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.StopTelemetryMonitor()
	m.safeLog("sysdash is shutting down.")
	m.Log.Close()
}

// restartProcess is swapped in tests.
var restartProcess = utils.RestartProcess

// Restart stops collection and relaunches the executable with the original
// arguments. On Unix the process image is replaced; on Windows a new process
// is spawned and the caller is expected to exit. The log stays open until the
// relaunch has succeeded, so a failure can still be reported.
func (m *Manager) Restart() error {
	m.safeLog("Restarting sysdash...")
	m.StopTelemetryMonitor()
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	m.Log.Sync()
	if err := restartProcess(executable, os.Args[1:]); err != nil {
		m.Log.Error("Restart failed", err)
		return fmt.Errorf("restart %s: %w", executable, err)
	}
	m.Log.Close()
	return nil
}
