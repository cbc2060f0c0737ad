package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent is a current desktop Chrome identity. The map provider
// serves a reduced page to obvious headless user agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Pipeline  PipelineConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how each per-request browser is launched.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxSessions caps the number of browsers running at the same time.
	// Requests beyond the cap wait for a slot (bounded by their context).
	MaxSessions int // default: 4

	// Proxy is passed to Chromium's --proxy-server flag.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserAgent is the client identity presented to the provider.
	UserAgent string

	// AcceptLanguage is sent alongside the user agent override.
	AcceptLanguage string // default: "ko-KR,ko;q=0.9,en-US;q=0.8"

	// BlockedResources lists resource classes whose URLs are blocked.
	// default: ["Image", "Font", "Media"]
	BlockedResources []string

	// BlockAds blocks well-known ad and tracker hosts.
	BlockAds bool // default: true
}

// PipelineConfig holds the bounds of a single search attempt.
type PipelineConfig struct {
	// NavigationTimeout bounds navigation plus network quiescence.
	NavigationTimeout time.Duration // default: 30s

	// FrameTimeout bounds the wait for the result-list iframe during recovery.
	FrameTimeout time.Duration // default: 10s

	// GracePeriod is how long recovery waits for the re-issued data call.
	GracePeriod time.Duration // default: 2s

	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration // default: 500ms

	// DefaultLimit applies when a request omits limit.
	DefaultLimit int // default: 30

	// MaxLimit is the largest limit a caller may ask for.
	MaxLimit int // default: 300
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the search response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	LevelName string // default: "info"
	Format    string // "json" or "text"; default: "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("MAPRANK_HOST", "0.0.0.0"),
			Port: envIntOr("MAPRANK_PORT", 8080),
			Mode: envOr("MAPRANK_MODE", "release"),
		},
		Browser:  LoadBrowser(),
		Pipeline: LoadPipeline(),
		Auth: AuthConfig{
			Enabled: envBoolOr("MAPRANK_AUTH_ENABLED", true),
			APIKeys: envSliceOr("MAPRANK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("MAPRANK_RATE_RPS", 1.0),
			Burst:             envIntOr("MAPRANK_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("MAPRANK_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			LevelName: envOr("MAPRANK_LOG_LEVEL", "info"),
			Format:    envOr("MAPRANK_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("MAPRANK_METRICS_ENABLED", true),
			Path:    envOr("MAPRANK_METRICS_PATH", "/metrics"),
		},
	}
}

// LoadBrowser reads only the browser section. The CLI uses it without
// pulling in server settings.
func LoadBrowser() BrowserConfig {
	return BrowserConfig{
		Headless:         envBoolOr("MAPRANK_HEADLESS", true),
		MaxSessions:      envIntOr("MAPRANK_MAX_SESSIONS", 4),
		Proxy:            os.Getenv("MAPRANK_PROXY"),
		NoSandbox:        envBoolOr("MAPRANK_NO_SANDBOX", false),
		BrowserBin:       os.Getenv("MAPRANK_BROWSER_BIN"),
		UserAgent:        envOr("MAPRANK_USER_AGENT", DefaultUserAgent),
		AcceptLanguage:   envOr("MAPRANK_ACCEPT_LANGUAGE", "ko-KR,ko;q=0.9,en-US;q=0.8"),
		BlockedResources: envSliceOr("MAPRANK_BLOCKED_RESOURCES", []string{"Image", "Font", "Media"}),
		BlockAds:         envBoolOr("MAPRANK_BLOCK_ADS", true),
	}
}

// LoadPipeline reads only the pipeline bounds.
func LoadPipeline() PipelineConfig {
	return PipelineConfig{
		NavigationTimeout: envDurationOr("MAPRANK_NAV_TIMEOUT", 30*time.Second),
		FrameTimeout:      envDurationOr("MAPRANK_FRAME_TIMEOUT", 10*time.Second),
		GracePeriod:       envDurationOr("MAPRANK_GRACE_PERIOD", 2*time.Second),
		IdleWindow:        envDurationOr("MAPRANK_IDLE_WINDOW", 500*time.Millisecond),
		DefaultLimit:      envIntOr("MAPRANK_DEFAULT_LIMIT", 30),
		MaxLimit:          envIntOr("MAPRANK_MAX_LIMIT", 300),
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
