package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/backoffice/internal/auth"
	"github.com/josh-kwaku/backoffice/internal/config"
	"github.com/josh-kwaku/backoffice/internal/logging"
)

const routesSecret = "routes-test-secret"

func testRouter() http.Handler {
	return newRouter(routerDeps{
		cfg: &config.Config{
			JWTSecret:          routesSecret,
			Timezone:           "UTC",
			CORSAllowedOrigins: []string{"*"},
		},
		logger: logging.Discard(),
	})
}

func TestRouter_OpenRoutes(t *testing.T) {
	router := testRouter()

	tests := []struct {
		path     string
		contains string
	}{
		{"/health", `"status":"ok"`},
		{"/docs", "swagger-ui"},
		{"/docs/openapi.yaml", "openapi: 3.0.3"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.contains)
		})
	}
}

func TestRouter_APIRequiresToken(t *testing.T) {
	router := testRouter()

	for _, path := range []string{"/api/v1/movements", "/api/v1/credential", "/api/v1/employees", "/api/v1/diagnostics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "MISSING_TOKEN", path)
	}
}

func TestRouter_UnknownAPIRouteWithToken(t *testing.T) {
	token, err := auth.GenerateToken("ana", "operator", routesSecret, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_RequestIDEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}
