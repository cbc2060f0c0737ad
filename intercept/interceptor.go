// Package intercept recognizes the provider's ranking-data responses among
// the many network responses a map-search page produces, and keeps the
// latest list they carry.
package intercept

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ysmood/gson"
)

// AllSearchPath identifies the provider's internal ranking endpoint.
const AllSearchPath = "api/search/allSearch"

// Interceptor matches response URLs and extracts ranking lists from their
// bodies into a Buffer. One Interceptor serves exactly one session.
type Interceptor struct {
	pathMarker string
	strategies []Strategy
	buf        Buffer
}

// New creates an Interceptor for responses whose URL contains pathMarker.
func New(pathMarker string, strategies []Strategy) *Interceptor {
	return &Interceptor{
		pathMarker: pathMarker,
		strategies: strategies,
	}
}

// Match reports whether a response URL is a qualifying response.
func (i *Interceptor) Match(url string) bool {
	return i.pathMarker != "" && strings.Contains(url, i.pathMarker)
}

// Observe parses a qualifying response body and stores its ranking list.
// Bodies that are not JSON, or carry no list, are dropped silently.
func (i *Interceptor) Observe(body []byte) {
	if !json.Valid(body) {
		slog.Debug("intercept: dropping non-JSON body", "bytes", len(body))
		return
	}

	list, strategy := Probe(gson.New(body), i.strategies)
	if !i.buf.Replace(list, strategy) {
		slog.Debug("intercept: qualifying response carried no ranking list")
		return
	}
	slog.Debug("intercept: captured ranking list",
		"strategy", strategy,
		"entries", len(list),
	)
}

// Buffer exposes the capture buffer.
func (i *Interceptor) Buffer() *Buffer {
	return &i.buf
}
