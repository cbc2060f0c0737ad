package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("MAPRANK_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	// Optional: a server without configured keys accepts unauthenticated calls.
	apiKey := os.Getenv("MAPRANK_API_KEY")

	s := server.NewMCPServer(
		"maprank",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	// A single search can spend navigation, frame and grace timeouts back to back.
	c := &client{
		http:   &http.Client{Timeout: 90 * time.Second},
		apiURL: apiURL,
		apiKey: apiKey,
	}

	mapRankTool := mcp.NewTool("map_rank",
		mcp.WithDescription("Look up the live ranking of places on the map provider's search results for a keyword. Returns places in rank order with ad flag, category, review counts and a detail link."),
		mcp.WithString("keyword",
			mcp.Required(),
			mcp.Description("Search keyword, or a full map-search URL containing it"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of ranked places to return (default: 30)"),
		),
		mcp.WithString("engine",
			mcp.Description("Map provider (default: 'naver')"),
			mcp.Enum("naver"),
		),
	)
	s.AddTool(mapRankTool, handleMapRank(c))

	batchTool := mcp.NewTool("map_rank_batch",
		mcp.WithDescription("Look up map rankings for several keywords at once. Each keyword runs its own browser session on the server."),
		mcp.WithArray("keywords",
			mcp.Required(),
			mcp.Description("Keywords to search"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of ranked places per keyword (default: 10)"),
		),
	)
	s.AddTool(batchTool, handleMapRankBatch(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
