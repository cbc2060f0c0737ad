package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/maprank/models"
)

// CLI flags
var (
	apiURL   = flag.String("api-url", "http://localhost:8080", "maprank API base URL")
	apiKey   = flag.String("api-key", "", "API key for authenticated requests")
	runs     = flag.Int("runs", 3, "Number of runs per keyword")
	limit    = flag.Int("limit", 30, "Ranking limit per search")
	keywords = flag.String("keywords", "강남 피부과,홍대 맛집,판교 치과,부산 호텔,제주 렌터카", "Comma-separated keywords")
	output   = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	HTTPStatus int    `json:"http_status"`
	TotalMs    int64  `json:"total_ms"`
	PipelineMs int64  `json:"pipeline_ms"`
	Entries    int    `json:"entries"`
	Ads        int    `json:"ads"`
	Success    bool   `json:"success"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
}

type keywordSummary struct {
	SuccessRate float64 `json:"success_rate"`
	AvgTotalMs  float64 `json:"avg_total_ms"`
	P50TotalMs  int64   `json:"p50_total_ms"`
	MaxTotalMs  int64   `json:"max_total_ms"`
	AvgEntries  float64 `json:"avg_entries"`
}

type keywordResult struct {
	Keyword string          `json:"keyword"`
	Runs    []runResult     `json:"runs"`
	Summary *keywordSummary `json:"summary,omitempty"`
}

type benchmarkReport struct {
	Timestamp      string          `json:"timestamp"`
	APIURL         string          `json:"api_url"`
	RunsPerKeyword int             `json:"runs_per_keyword"`
	Limit          int             `json:"limit"`
	Results        []keywordResult `json:"results"`
}

func main() {
	flag.Parse()

	kws := splitKeywords(*keywords)
	fmt.Println("=== maprank Benchmark ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Keywords:   %d\n", len(kws))
	fmt.Printf("Runs/kw:    %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	// Quick connectivity check.
	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		APIURL:         *apiURL,
		RunsPerKeyword: *runs,
		Limit:          *limit,
	}

	// Searches are run one at a time so latency reflects a single session.
	client := &http.Client{Timeout: 90 * time.Second}
	for _, kw := range kws {
		fmt.Printf("Benchmarking %q ...\n", kw)
		kr := keywordResult{Keyword: kw}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkKeyword(client, kw, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d entries (%d ads)\n", rr.TotalMs, rr.Entries, rr.Ads)
			} else {
				fmt.Printf("FAILED: [%s] %s\n", rr.Code, rr.Error)
			}
			kr.Runs = append(kr.Runs, rr)
		}

		kr.Summary = summarize(kr.Runs)
		report.Results = append(report.Results, kr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkKeyword(client *http.Client, keyword string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(models.SearchRequest{Keyword: keyword, Limit: *limit})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/search", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		rr.TotalMs = time.Since(start).Milliseconds()
		return rr
	}
	defer resp.Body.Close()
	rr.HTTPStatus = resp.StatusCode

	var sr models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.Code = sr.Code
	rr.Error = sr.Error
	rr.Entries = len(sr.Data)
	for _, e := range sr.Data {
		if e.IsAd {
			rr.Ads++
		}
	}
	if sr.Timing != nil {
		rr.TotalMs = sr.Timing.TotalMs
		rr.PipelineMs = sr.Timing.PipelineMs
	} else {
		rr.TotalMs = time.Since(start).Milliseconds()
	}
	return rr
}

func summarize(runs []runResult) *keywordSummary {
	var ok []runResult
	for _, r := range runs {
		if r.Success {
			ok = append(ok, r)
		}
	}
	if len(runs) == 0 {
		return nil
	}

	s := &keywordSummary{SuccessRate: float64(len(ok)) / float64(len(runs))}
	if len(ok) == 0 {
		return s
	}

	totals := make([]int64, len(ok))
	for i, r := range ok {
		totals[i] = r.TotalMs
		s.AvgTotalMs += float64(r.TotalMs)
		s.AvgEntries += float64(r.Entries)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i] < totals[j] })

	n := float64(len(ok))
	s.AvgTotalMs /= n
	s.AvgEntries /= n
	s.P50TotalMs = totals[len(totals)/2]
	s.MaxTotalMs = totals[len(totals)-1]
	return s
}

func printTable(results []keywordResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Keyword\tSuccess\tAvg Latency\tP50\tMax\tAvg Entries\n")
	fmt.Fprintf(w, "───────\t───────\t───────────\t───\t───\t───────────\n")

	for _, r := range results {
		s := r.Summary
		if s == nil || s.SuccessRate == 0 {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\t-\n", r.Keyword)
			continue
		}
		fmt.Fprintf(w, "%s\t%.0f%%\t%dms\t%dms\t%dms\t%.1f\n",
			r.Keyword,
			s.SuccessRate*100,
			int64(s.AvgTotalMs),
			s.P50TotalMs,
			s.MaxTotalMs,
			s.AvgEntries,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
