package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysdash/internal/manager"
	"sysdash/internal/models"
	"sysdash/internal/utils"
)

// initMinimalApp installs a global app whose collector never runs.
func initMinimalApp(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := manager.DefaultConfig()
	cfg.RootPath = t.TempDir()
	cfg.RateLimitPerMinute = 0
	mgr := manager.New(cfg, utils.NewNopLogger(), manager.Sources{})
	app = newApp(mgr)
	t.Cleanup(func() { app = nil })
}

func serve(t *testing.T, r http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPublicEndpoints(t *testing.T) {
	initMinimalApp(t)
	r := setupRouter()

	w := serve(t, r, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, false, health["ready"])

	w = serve(t, r, http.MethodGet, "/version")
	require.Equal(t, http.StatusOK, w.Code)
	var ver map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ver))
	if _, ok := ver["version"]; !ok {
		t.Fatalf("/version missing 'version' field")
	}
}

func TestDetailedStatsBeforeAndAfterFirstSnapshot(t *testing.T) {
	initMinimalApp(t)
	r := setupRouter()

	w := serve(t, r, http.MethodGet, "/api/detailed_stats")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	app.manager.Cache.Replace(&models.Snapshot{
		OS:      models.OSInfo{Name: "TestOS", HostName: "bench"},
		GPUs:    []models.GPUInfo{},
		Network: []models.NetworkAdapter{},
	})
	w = serve(t, r, http.MethodGet, "/api/detailed_stats")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	osInfo, ok := body["os"].(map[string]any)
	require.True(t, ok, "os section missing: %s", w.Body.String())
	assert.Equal(t, "TestOS", osInfo["name"])
}

func TestMutatingMethodsRejected(t *testing.T) {
	initMinimalApp(t)
	r := setupRouter()

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		w := serve(t, r, method, "/api/detailed_stats")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Contains(t, w.Header().Get("Allow"), "GET", method)
	}
}

func TestIndexAndAssets(t *testing.T) {
	initMinimalApp(t)
	r := setupRouter()

	w := serve(t, r, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/static/dashboard.js")

	w = serve(t, r, http.MethodGet, "/static/dashboard.js")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, r, http.MethodGet, "/favicon.ico")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/x-icon", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, manager.DefaultConfigFile, opts.configPath)
	assert.Zero(t, opts.port)

	opts, err = parseFlags([]string{"-c", "/tmp/x.config", "--port", "8080", "--bind", "127.0.0.1", "-v"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.config", opts.configPath)
	assert.Equal(t, 8080, opts.port)
	assert.Equal(t, "127.0.0.1", opts.bind)
	assert.True(t, opts.showVersion)

	_, err = parseFlags([]string{"--nope"})
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := manager.DefaultConfig()
	require.NoError(t, applyOverrides(cfg, options{port: 9090, bind: "127.0.0.1"}))
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())

	cfg = manager.DefaultConfig()
	err := applyOverrides(cfg, options{bind: "not-an-ip"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "BindAddress"), err.Error())
}
