package api

import (
	"net/http"
	"testing"

	"sewamonitor/internal/config"

	"github.com/stretchr/testify/assert"
)

func authConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "dashboard", Name: "Dashboard", Permissions: []string{permReadRentals, permReadUnits}},
				{Key: "ops", Name: "Ops"},
			},
		},
	}
}

func TestHTTPAuth(t *testing.T) {
	ts := newTestServer(t, authConfig(), newFakeMonitor(testView(), true), nil)

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"health is open", http.MethodGet, routeHealth, "", http.StatusOK},
		{"missing key", http.MethodGet, routeUnits, "", http.StatusUnauthorized},
		{"unknown key", http.MethodGet, routeUnits, "nope", http.StatusUnauthorized},
		{"permitted", http.MethodGet, routeUnits, "dashboard", http.StatusOK},
		{"not permitted", http.MethodPost, routeRefresh, "dashboard", http.StatusForbidden},
		{"allow all", http.MethodPost, routeRefresh, "ops", http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mustRequest(t, tt.method, ts.URL+tt.path)
			if tt.key != "" {
				req.Header.Set("X-Api-Key", tt.key)
			}
			resp := getJSON(t, req, nil)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHTTPRateLimit(t *testing.T) {
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 2}}
	ts := newTestServer(t, cfg, newFakeMonitor(testView(), false), nil)

	for i := 0; i < 2; i++ {
		resp := getJSON(t, mustRequest(t, http.MethodGet, ts.URL+routeUnits), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := getJSON(t, mustRequest(t, http.MethodGet, ts.URL+routeUnits), nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// a different key gets its own bucket
	req := mustRequest(t, http.MethodGet, ts.URL+routeUnits)
	req.Header.Set("x-api-key", "other")
	resp = getJSON(t, req, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = getJSON(t, mustRequest(t, http.MethodGet, ts.URL+routeHealth), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health is never limited")
}

func TestCheckPermissions(t *testing.T) {
	client := config.APIClientKey{Permissions: []string{" export "}}
	assert.NoError(t, checkPermissions(client, permExport))
	assert.ErrorIs(t, checkPermissions(client, permRefresh), errPermissionDenied)
	assert.NoError(t, checkPermissions(client, ""))
	assert.NoError(t, checkPermissions(config.APIClientKey{}, permRefresh))
}

func TestRateLimiterDisabled(t *testing.T) {
	l := newRateLimiter(config.APIRateLimitConfig{})
	for i := 0; i < 100; i++ {
		assert.True(t, l.allow("k"))
	}
}
