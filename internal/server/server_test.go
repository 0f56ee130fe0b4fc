package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casepulse/casepulse/internal/api"
	"github.com/casepulse/casepulse/internal/config"
	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/documents"
	"github.com/casepulse/casepulse/internal/registry"
	"github.com/casepulse/casepulse/internal/scrape"
	"github.com/casepulse/casepulse/internal/source"
	"github.com/casepulse/casepulse/internal/store"
	"github.com/casepulse/casepulse/internal/summary"
	"github.com/casepulse/casepulse/pkg/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Host:           "127.0.0.1",
		Port:           "0",
		LogLevel:       "info",
		ScraperTimeout: time.Second,
		ScrapeRetries:  1,
		DemoMode:       true,
		DocumentDir:    t.TempDir(),
	}
	log := logger.NewNop()

	db, err := database.InMemory()
	require.NoError(t, err)
	st := store.New(db, 100, time.Minute, log)

	fixture, err := source.LoadFixture()
	require.NoError(t, err)

	sources := source.NewRegistry()
	for _, profile := range source.BuiltinProfiles() {
		sources.Register(source.NewDemoAdapter(profile.Court, fixture))
	}

	orch := scrape.New(sources, fixture, st, cfg, log)
	reg := registry.New(db, log)
	handlers := api.NewHandlers(st, orch, reg,
		summary.New(cfg, reg, log),
		documents.New(db, cfg.DocumentDir, "test-agent", log),
		cfg, log)

	return New(cfg, handlers, log)
}

func TestRoutesMounted(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
