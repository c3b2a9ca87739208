package router

import (
	"bytes"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/tsinsight/internal/config"
	"github.com/soltixdb/tsinsight/internal/logging"
	"github.com/soltixdb/tsinsight/internal/profiles"
	"github.com/soltixdb/tsinsight/internal/services"
)

var testKey = strings.Repeat("k", 32)

func newTestApp(t *testing.T, authEnabled bool) *fiber.App {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Auth = config.AuthConfig{Enabled: authEnabled, APIKeys: []string{testKey}}
	cfg.Server.BodyLimit = 1024

	logger := logging.NewNop()
	store := profiles.NewMemoryStore()
	return New(logger, cfg,
		services.NewAnalyticsService(logger, cfg.Analytics, store, nil),
		services.NewProfileService(logger, store))
}

func TestRouter_PublicRoutes(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRouter_AuthGuardsV1(t *testing.T) {
	app := newTestApp(t, true)

	req := httptest.NewRequest("GET", "/v1/methods", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("GET", "/v1/methods", nil)
	req.Header.Set("X-API-Key", testKey)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRouter_RequestIDPropagated(t *testing.T) {
	app := newTestApp(t, false)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))
}

func TestRouter_NotFound(t *testing.T) {
	app := newTestApp(t, false)

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/nothing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRouter_BodyLimit(t *testing.T) {
	app := newTestApp(t, false)

	body := `{"values":[` + strings.Repeat("1,", 2000) + `1]}`
	req := httptest.NewRequest("POST", "/v1/stats", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRouter_DetectRoundTrip(t *testing.T) {
	app := newTestApp(t, false)

	req := httptest.NewRequest("POST", "/v1/anomalies/detect", bytes.NewBufferString(`{"values":[1,2,3,4,50],"series":"cpu"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
