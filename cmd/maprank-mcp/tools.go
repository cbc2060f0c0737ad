package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/maprank/models"
	"golang.org/x/sync/errgroup"
)

// batchConcurrency bounds concurrent API calls from one batch tool call.
const batchConcurrency = 3

// client talks to the maprank HTTP API.
type client struct {
	http   *http.Client
	apiURL string
	apiKey string
}

// search posts to /api/v1/search. API-level failures come back as a
// response with Success=false, transport failures as an error.
func (c *client) search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out models.SearchResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parse response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

func handleMapRank(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keyword, err := request.RequireString("keyword")
		if err != nil || strings.TrimSpace(keyword) == "" {
			return mcp.NewToolResultError("keyword is required"), nil
		}

		resp, err := c.search(ctx, models.SearchRequest{
			Keyword: keyword,
			Engine:  request.GetString("engine", ""),
			Limit:   request.GetInt("limit", 0),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", resp.Code, resp.Error)), nil
		}

		return mcp.NewToolResultText(renderRanking(keyword, resp.Data)), nil
	}
}

func handleMapRankBatch(c *client) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		keywords := request.GetStringSlice("keywords", nil)
		if len(keywords) == 0 {
			return mcp.NewToolResultError("keywords must be a non-empty array of strings"), nil
		}
		limit := request.GetInt("limit", 10)

		sections := make([]string, len(keywords))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for i, kw := range keywords {
			g.Go(func() error {
				resp, err := c.search(gctx, models.SearchRequest{Keyword: kw, Limit: limit})
				switch {
				case err != nil:
					sections[i] = fmt.Sprintf("## %s\nerror: %v", kw, err)
				case !resp.Success:
					sections[i] = fmt.Sprintf("## %s\nerror: [%s] %s", kw, resp.Code, resp.Error)
				default:
					sections[i] = renderRanking(kw, resp.Data)
				}
				return nil
			})
		}
		_ = g.Wait()

		return mcp.NewToolResultText(strings.Join(sections, "\n\n")), nil
	}
}

// renderRanking formats a ranking as a markdown list an LLM can quote.
func renderRanking(keyword string, data []models.RankedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n", keyword)
	if len(data) == 0 {
		b.WriteString("(no results)")
		return b.String()
	}
	for i, r := range data {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%v. %v", valueOr(r.Rank, i+1), valueOr(r.Name, "?"))
		if r.IsAd {
			b.WriteString(" [ad]")
		}
		if r.Category != nil {
			fmt.Fprintf(&b, " (%v)", r.Category)
		}
		if r.ReviewCount != nil {
			fmt.Fprintf(&b, " reviews=%v", r.ReviewCount)
		}
		if r.DetailURL != "" {
			fmt.Fprintf(&b, " %s", r.DetailURL)
		}
	}
	return b.String()
}

func valueOr(v, fallback any) any {
	if v == nil {
		return fallback
	}
	return v
}
