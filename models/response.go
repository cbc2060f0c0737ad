package models

// RankedResult is one shaped entry of the provider's ranking, in the
// provider's rank order. Fields absent from the captured payload are
// omitted; present fields are passed through verbatim.
type RankedResult struct {
	Rank            any    `json:"rank,omitempty"`
	ID              any    `json:"id,omitempty"`
	Name            any    `json:"name,omitempty"`
	IsAd            bool   `json:"isAd"`
	Category        any    `json:"category,omitempty"`
	ReviewCount     any    `json:"reviewCount,omitempty"`
	BlogReviewCount any    `json:"blogReviewCount,omitempty"`
	Rating          any    `json:"rating,omitempty"`
	Address         any    `json:"address,omitempty"`
	DetailURL       string `json:"detailUrl,omitempty"`
}

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	// Success indicates whether a ranking was captured.
	Success bool `json:"success"`

	// Data is the ranked list, truncated to the requested limit.
	Data []RankedResult `json:"data,omitempty"`

	// Keyword echoes the caller's keyword as received.
	Keyword string `json:"keyword,omitempty"`

	// Error is a human-readable failure message, set only when Success is false.
	Error string `json:"error,omitempty"`

	// Code is the machine-readable failure code, set only when Success is false.
	Code string `json:"code,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing *TimingInfo `json:"timing,omitempty"`
}

// TimingInfo breaks down the time spent in the request.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// PipelineMs is the time spent inside the browser pipeline.
	PipelineMs int64 `json:"pipeline_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	SessionStats SessionStats `json:"session_stats"`
	Version      string       `json:"version"`
}

// SessionStats reports how many per-request browsers are running.
type SessionStats struct {
	MaxSessions    int `json:"max_sessions"`
	ActiveSessions int `json:"active_sessions"`
}
