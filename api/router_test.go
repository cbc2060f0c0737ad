package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/maprank/api/handler"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/models"
	"github.com/use-agent/maprank/pipeline"
)

type stubSearcher struct{}

func (stubSearcher) Run(ctx context.Context, keyword string, limit int) (*pipeline.Result, error) {
	return &pipeline.Result{Keyword: keyword, Entries: []models.RankedResult{{Rank: "1"}}}, nil
}

func (stubSearcher) Target() pipeline.Target { return pipeline.NaverMap }

type stubStats struct{}

func (stubStats) Stats() models.SessionStats { return models.SessionStats{MaxSessions: 2} }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth.Enabled = true
	cfg.Auth.APIKeys = []string{"k"}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}

	return NewRouter(ctx, cfg, Deps{
		Engines: map[string]handler.Searcher{"naver": stubSearcher{}},
		Stats:   stubStats{},
		Started: time.Now(),
	})
}

func TestRouter_HealthIsPublic(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_SearchRequiresKey(t *testing.T) {
	r := newTestRouter(t)
	body := `{"keyword":"피자"}`

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewBufferString(body))
	req.Header.Set("X-API-Key", "k")
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestRouter_Metrics(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "maprank_active_sessions")
}
