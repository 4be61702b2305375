package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"skillswap/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOrigin = "http://localhost:3000"

func newLimitedApp(t *testing.T) *fiber.App {
	t.Helper()
	srv := &Server{config: &config.Config{AllowedOrigins: testOrigin}}
	app := fiber.New()
	srv.SetupMiddleware(app)
	app.All("/limited", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < globalRequestsPerMinute; i++ {
		resp := corsRequest(t, app, http.MethodPost)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i+1)
	}
	return app
}

func corsRequest(t *testing.T, app *fiber.App, method string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, "/limited", nil)
	req.Header.Set("Origin", testOrigin)
	if method == http.MethodOptions {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestGlobalLimiter_KeepsCORSHeaders(t *testing.T) {
	app := newLimitedApp(t)

	limited := corsRequest(t, app, http.MethodGet)
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, testOrigin, limited.Header.Get("Access-Control-Allow-Origin"))
	raw, err := io.ReadAll(limited.Body)
	require.NoError(t, err)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, raw))

	preflight := corsRequest(t, app, http.MethodOptions)
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode, "preflight bypasses the limiter")
	assert.Equal(t, testOrigin, preflight.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, preflight.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}
