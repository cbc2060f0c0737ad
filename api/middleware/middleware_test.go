package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(KeyIdentity))
	})
	return r
}

func get(r http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp.Code
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"secret", "other"}))

	tests := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"x-api-key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", map[string]string{"Authorization": "Bearer other"}, http.StatusOK},
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"basic scheme", map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.headers)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, models.ErrCodeUnauthorized, errorCode(t, w))
			}
		})
	}
}

func TestAuth_IdentityDoesNotLeakKey(t *testing.T) {
	r := newEngine(Auth([]string{"secret"}))

	w := get(r, map[string]string{"X-API-Key": "secret"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "key:")
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := newEngine(Auth(nil))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newEngine(RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusOK, get(r, nil).Code)

	w := get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, errorCode(t, w))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_PerKeyBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newEngine(
		Auth([]string{"a", "b"}),
		RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}),
	)

	assert.Equal(t, http.StatusOK, get(r, map[string]string{"X-API-Key": "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, map[string]string{"X-API-Key": "a"}).Code)
	assert.Equal(t, http.StatusOK, get(r, map[string]string{"X-API-Key": "b"}).Code)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, "1", retryAfter(1))
	assert.Equal(t, "2", retryAfter(0.5))
	assert.Equal(t, "1", retryAfter(10))
	assert.Equal(t, "60", retryAfter(0))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(KeyRequestID))
	})

	w := get(r, nil)
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	w = get(r, map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc-123", w.Body.String())
}
