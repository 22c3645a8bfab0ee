package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"sysdash/internal/manager"
	"sysdash/internal/models"
	"sysdash/internal/utils"
	"sysdash/internal/version"
)

const externalIPTimeout = 3 * time.Second

// detectLocalIP reads the routing table; handlers resolve it once at
// construction.
var detectLocalIP = utils.LocalIP

// SnapshotReader is the read side of the snapshot cache.
type SnapshotReader interface {
	Read() (*models.Snapshot, bool)
}

// DashboardHandlers serve the page and the JSON API. They only ever read the
// cache; collection happens elsewhere.
type DashboardHandlers struct {
	cache      SnapshotReader
	config     *manager.Config
	startedAt  time.Time
	localIP    string
	externalIP func(ctx context.Context) string
}

func NewDashboardHandlers(mgr *manager.Manager) *DashboardHandlers {
	h := &DashboardHandlers{
		cache:     mgr.Cache,
		config:    mgr.Config,
		startedAt: mgr.StartedAt(),
		localIP:   detectLocalIP(),
	}
	if mgr.Config.DiscoverExternalIP {
		resolver := utils.NewExternalIPResolver()
		h.externalIP = func(ctx context.Context) string {
			ctx, cancel := context.WithTimeout(ctx, externalIPTimeout)
			defer cancel()
			ip, err := resolver.Lookup(ctx)
			if err != nil || ip == nil {
				return ""
			}
			return ip.String()
		}
	}
	return h
}

// Index renders the dashboard page with the address other LAN hosts can use.
func (h *DashboardHandlers) Index(c *gin.Context) {
	hostName, _ := os.Hostname()
	payload := gin.H{
		"hostName":   models.OrNA(hostName),
		"localIP":    h.localIP,
		"port":       h.config.Port,
		"pollMillis": h.config.PollInterval().Milliseconds(),
		"version":    version.String(),
		"since":      humanize.Time(h.startedAt),
	}
	if h.externalIP != nil {
		if ip := h.externalIP(c.Request.Context()); ip != "" {
			payload["externalIP"] = ip
		}
	}
	c.HTML(http.StatusOK, "index.html", payload)
}

// DetailedStats returns the latest snapshot, or 503 until the first
// collection completes.
func (h *DashboardHandlers) DetailedStats(c *gin.Context) {
	snapshot, ok := h.cache.Read()
	if !ok {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data yet"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Healthz reports liveness plus whether a snapshot is available.
func (h *DashboardHandlers) Healthz(c *gin.Context) {
	_, ready := h.cache.Read()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": ready})
}

// Version reports build metadata.
func (h *DashboardHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": version.String(),
		"commit":  version.Commit,
		"date":    version.Date,
		"uptime":  humanize.RelTime(h.startedAt, time.Now(), "", ""),
	})
}
