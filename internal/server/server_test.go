package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transitadmin/internal/config"
	"transitadmin/internal/handlers"
	"transitadmin/internal/metrics"
	"transitadmin/internal/store"
)

func TestServerMiddlewareChain(t *testing.T) {
	cfg := &config.AppConfig{
		Environment:      "test",
		Store:            config.StoreConfig{Driver: "memory"},
		AllowCORSOrigins: []string{"https://admin.example.com"},
	}
	h := handlers.NewHandlerSet(handlers.Deps{Config: cfg, Log: zerolog.Nop(), Store: store.NewMemoryAdapter()})
	srv := NewHTTPServer(cfg, zerolog.Nop(), nil, h)

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsServer(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.AttentionQueue.Set(7)
	srv := NewMetricsServer(":0", zerolog.Nop(), m)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "transit_verifications_needing_attention 7")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
