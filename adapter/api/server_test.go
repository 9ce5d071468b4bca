package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldscale/takt/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Healthz(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "healthy", result["status"])
}

func TestServer_ReadyzWithoutChecks(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ReadyzReportsUnhealthyBackend(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	health := observability.NewHealthRegistry()
	health.Register("database", func(ctx context.Context) observability.HealthCheckResult {
		return observability.HealthCheckResult{
			Status:  observability.HealthStatusUnhealthy,
			Message: "connection refused",
		}
	})
	server.health = health

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var result observability.OverallHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, observability.HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks, "database")
}

func TestServer_ReadyzDegradedStaysReady(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	health := observability.NewHealthRegistry()
	health.Register("cache", func(ctx context.Context) observability.HealthCheckResult {
		return observability.HealthCheckResult{
			Status:  observability.HealthStatusDegraded,
			Message: "redis not configured",
		}
	})
	server.health = health

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Routes(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	// Resource paths use a malformed id so a routed request answers 400
	// without touching state.
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/healthz"},
		{http.MethodGet, "/readyz"},
		{http.MethodGet, "/api/v1/projects"},
		{http.MethodPost, "/api/v1/projects"},
		{http.MethodGet, "/api/v1/projects/not-a-uuid"},
		{http.MethodDelete, "/api/v1/projects/not-a-uuid"},
		{http.MethodPost, "/api/v1/projects/not-a-uuid/plans"},
		{http.MethodGet, "/api/v1/projects/not-a-uuid/plans/latest"},
		{http.MethodGet, "/api/v1/plans/not-a-uuid/critical-path"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			rec := httptest.NewRecorder()

			server.Handler().ServeHTTP(rec, req)

			assert.NotEqual(t, http.StatusNotFound, rec.Code, "route %s %s should be registered", route.method, route.path)
		})
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server, _, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/projects", nil)
	rec := httptest.NewRecorder()

	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
