package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/maprank/cache"
	"github.com/use-agent/maprank/metrics"
	"github.com/use-agent/maprank/models"
	"github.com/use-agent/maprank/pipeline"
)

// Searcher runs the browser pipeline for one engine.
type Searcher interface {
	Run(ctx context.Context, keyword string, limit int) (*pipeline.Result, error)
	Target() pipeline.Target
}

// Search returns a handler for POST /api/v1/search.
//
// Orchestration flow:
//  1. Parse & validate request, apply defaults.
//  2. Resolve the engine; unknown engines never acquire a session.
//  3. Cache lookup when max_age is set.
//  4. Run the pipeline                           (records pipeline_ms)
//  5. Fill Timing, store in cache, return 200.
func Search(engines map[string]Searcher, cc *cache.Cache, defaultLimit, maxLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		if strings.TrimSpace(req.Keyword) == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "keyword must not be blank", nil))
			return
		}
		req.Defaults(defaultLimit)
		if maxLimit > 0 && req.Limit > maxLimit {
			respondError(c, models.NewScrapeError(
				models.ErrCodeInvalidInput,
				fmt.Sprintf("limit must be at most %d", maxLimit),
				nil,
			))
			return
		}

		// ── 2. Engine ───────────────────────────────────────────────
		runner, ok := engines[req.Engine]
		if !ok {
			respondError(c, models.NewScrapeError(
				models.ErrCodeUnsupportedEngine,
				fmt.Sprintf("engine %q is not supported", req.Engine),
				nil,
			))
			return
		}

		// ── 3. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.Engine, pipeline.ResolveKeyword(req.Keyword, runner.Target().KeywordMarker), req.Limit)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				metrics.CacheLookups.WithLabelValues("hit").Inc()
				resp := *cached
				resp.Keyword = req.Keyword
				resp.CacheStatus = "hit"
				resp.Timing = &models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
				}
				c.JSON(http.StatusOK, resp)
				return
			}
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}

		// ── 4. Pipeline ─────────────────────────────────────────────
		pipelineStart := time.Now()
		result, err := runner.Run(c.Request.Context(), req.Keyword, req.Limit)
		pipelineMs := time.Since(pipelineStart).Milliseconds()
		if err != nil {
			slog.Warn("search failed",
				"request_id", c.GetString("request_id"),
				"engine", req.Engine,
				"keyword", req.Keyword,
				"error", err,
			)
			respondError(c, err)
			return
		}

		// ── 5. Respond ──────────────────────────────────────────────
		resp := &models.SearchResponse{
			Success: true,
			Data:    result.Entries,
			Keyword: req.Keyword,
			Timing: &models.TimingInfo{
				TotalMs:    time.Since(totalStart).Milliseconds(),
				PipelineMs: pipelineMs,
			},
		}

		if cc != nil && req.MaxAge > 0 {
			cc.Set(cacheKey, resp)
			miss := *resp
			miss.CacheStatus = "miss"
			resp = &miss
		}

		c.JSON(http.StatusOK, resp)
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	scrapeErr := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(scrapeErr), models.SearchResponse{
		Success: false,
		Error:   scrapeErr.Message,
		Code:    scrapeErr.Code,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnsupportedEngine:
		return http.StatusNotImplemented // 501
	case models.ErrCodeNavigation, models.ErrCodeInterceptMiss:
		return http.StatusBadGateway // 502
	case models.ErrCodeNavigationTimeout, models.ErrCodeCanceled:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
