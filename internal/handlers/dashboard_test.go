package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdash/internal/manager"
	"sysdash/internal/models"
	"sysdash/internal/utils"
	"sysdash/ui"
)

func newTestRouter(t *testing.T, cache *manager.Cache, external func(context.Context) string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := manager.DefaultConfig()
	h := &DashboardHandlers{
		cache:      cache,
		config:     cfg,
		startedAt:  time.Now().Add(-time.Hour),
		localIP:    "192.168.1.20",
		externalIP: external,
	}
	tmpl, err := ui.Templates(template.FuncMap{})
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.GET("/", h.Index)
	r.GET("/api/detailed_stats", h.DetailedStats)
	r.GET("/healthz", h.Healthz)
	r.GET("/version", h.Version)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestDetailedStatsBeforeFirstCycle(t *testing.T) {
	r := newTestRouter(t, &manager.Cache{}, nil)

	w := get(r, "/api/detailed_stats")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before first snapshot, got %d", w.Code)
	}
	assert.JSONEq(t, `{"error":"no data yet"}`, w.Body.String())
}

func TestDetailedStatsAfterFirstCycle(t *testing.T) {
	cache := &manager.Cache{}
	s := models.NewEmptySnapshot(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	s.CPU.Name = "AMD Ryzen 9 7950X"
	cache.Replace(s)
	r := newTestRouter(t, cache, nil)

	w := get(r, "/api/detailed_stats")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 after first snapshot, got %d", w.Code)
	}
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	for _, key := range []string{"timestamp", "os", "hw", "cpu", "ram", "battery", "gpus", "disks", "network", "agent"} {
		assert.Contains(t, body, key)
	}
	assert.JSONEq(t, `"2024-05-01T10:00:00Z"`, string(body["timestamp"]))
	assert.JSONEq(t, `[]`, string(body["gpus"]))

	var cpu map[string]any
	require.NoError(t, json.Unmarshal(body["cpu"], &cpu))
	assert.Equal(t, "AMD Ryzen 9 7950X", cpu["name"])
	assert.Nil(t, cpu["percent"])
}

func TestHealthzReportsReadiness(t *testing.T) {
	cache := &manager.Cache{}
	r := newTestRouter(t, cache, nil)

	w := get(r, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","ready":false}`, w.Body.String())

	cache.Replace(models.NewEmptySnapshot(time.Now()))
	w = get(r, "/healthz")
	assert.JSONEq(t, `{"status":"ok","ready":true}`, w.Body.String())
}

func TestIndexShowsLocalAddress(t *testing.T) {
	r := newTestRouter(t, &manager.Cache{}, nil)

	w := get(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http://192.168.1.20:5000")
	assert.Contains(t, w.Body.String(), `data-poll-ms="5000"`)
	assert.NotContains(t, w.Body.String(), "External address")
}

func TestIndexShowsExternalAddressWhenDiscovered(t *testing.T) {
	r := newTestRouter(t, &manager.Cache{}, func(context.Context) string { return "203.0.113.7" })

	w := get(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "External address: 203.0.113.7")
}

func TestVersionEndpoint(t *testing.T) {
	r := newTestRouter(t, &manager.Cache{}, nil)

	w := get(r, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "dev", body["version"])
	assert.Contains(t, body, "uptime")
}

func TestLocalAddressResolvedOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	calls := 0
	prev := detectLocalIP
	detectLocalIP = func() string {
		calls++
		return "10.0.0.5"
	}
	t.Cleanup(func() { detectLocalIP = prev })

	cfg := manager.DefaultConfig()
	cfg.RootPath = t.TempDir()
	h := NewDashboardHandlers(manager.New(cfg, utils.NewNopLogger(), manager.Sources{}))
	tmpl, err := ui.Templates(template.FuncMap{})
	require.NoError(t, err)
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.GET("/", h.Index)

	for i := 0; i < 3; i++ {
		w := get(r, "/")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "http://10.0.0.5:5000")
	}
	assert.Equal(t, 1, calls)
}
