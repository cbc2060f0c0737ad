package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/models"
	"github.com/use-agent/maprank/pipeline"
	"golang.org/x/sync/errgroup"
)

type searcher interface {
	Run(ctx context.Context, keyword string, limit int) (*pipeline.Result, error)
}

type runnerFactory func(target pipeline.Target, bcfg config.BrowserConfig, pcfg config.PipelineConfig) searcher

type searchOptions struct {
	engine      string
	limit       int
	concurrency int
	format      string
	showUI      bool
	proxy       string
	timeout     time.Duration
	verbose     bool
}

// errSomeFailed makes the process exit non-zero after every result has
// been printed.
var errSomeFailed = errors.New("one or more searches failed")

func newRootCmd(factory runnerFactory) *cobra.Command {
	root := &cobra.Command{
		Use:          "maprankctl",
		Short:        "Capture live map-search rankings from the command line",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(newSearchCmd(factory))
	return root
}

func newSearchCmd(factory runnerFactory) *cobra.Command {
	opts := searchOptions{}
	pcfg := config.LoadPipeline()

	cmd := &cobra.Command{
		Use:   "search KEYWORD...",
		Short: "Search one or more keywords and print the ranking",
		Example: `  # Top 10 for one keyword
  maprankctl search --limit 10 "강남 피부과"

  # Several keywords, two browsers at a time, as JSON
  maprankctl search -c 2 -f json "피자" "치킨" "https://map.naver.com/p/search/족발"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			logCfg := config.LogConfig{LevelName: "warn", Format: "text"}
			if opts.verbose {
				logCfg.LevelName = "debug"
			}
			slog.SetDefault(slog.New(logCfg.Handler(cmd.ErrOrStderr())))

			target, ok := pipeline.Targets[opts.engine]
			if !ok {
				return fmt.Errorf("engine %q is not supported", opts.engine)
			}

			bcfg := config.LoadBrowser()
			bcfg.MaxSessions = opts.concurrency
			if opts.showUI {
				bcfg.Headless = false
			}
			if opts.proxy != "" {
				bcfg.Proxy = opts.proxy
			}
			bounds := pcfg
			if opts.timeout > 0 {
				bounds.NavigationTimeout = opts.timeout
			}

			results := runAll(cmd.Context(), factory(target, bcfg, bounds), args, opts)
			if err := write(cmd.OutOrStdout(), opts.format, results); err != nil {
				return err
			}
			for _, r := range results {
				if !r.Success {
					return errSomeFailed
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "naver", "Map provider")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", pcfg.DefaultLimit, "Maximum ranked places per keyword")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 1, "Browsers running at the same time")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().BoolVar(&opts.showUI, "showui", false, "Show browser UI (disable headless mode)")
	cmd.Flags().StringVarP(&opts.proxy, "proxy", "p", os.Getenv("MAPRANK_PROXY"), "Proxy URL, defaults to MAPRANK_PROXY")
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "Navigation timeout (default from MAPRANK_NAV_TIMEOUT)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	return cmd
}

func (o searchOptions) validate() error {
	if o.limit < 1 {
		return fmt.Errorf("--limit must be at least 1, got %d", o.limit)
	}
	if o.concurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", o.concurrency)
	}
	switch o.format {
	case "table", "json":
	default:
		return fmt.Errorf("unsupported format %q (use table or json)", o.format)
	}
	return nil
}

// runAll searches every keyword with at most opts.concurrency in flight.
// Results keep argument order; a failed keyword does not stop the others.
func runAll(ctx context.Context, s searcher, keywords []string, opts searchOptions) []models.SearchResponse {
	results := make([]models.SearchResponse, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, kw := range keywords {
		g.Go(func() error {
			start := time.Now()
			res, err := s.Run(gctx, kw, opts.limit)
			ms := time.Since(start).Milliseconds()
			timing := &models.TimingInfo{TotalMs: ms, PipelineMs: ms}

			if err != nil {
				se := models.AsScrapeError(err)
				results[i] = models.SearchResponse{Keyword: kw, Error: se.Message, Code: se.Code, Timing: timing}
				return nil
			}
			results[i] = models.SearchResponse{Success: true, Keyword: kw, Data: res.Entries, Timing: timing}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func write(w io.Writer, format string, results []models.SearchResponse) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEYWORD\tRANK\tNAME\tAD\tCATEGORY\tREVIEWS\tDETAIL")
	for _, r := range results {
		if !r.Success {
			fmt.Fprintf(tw, "%s\t-\t[%s] %s\t\t\t\t\n", r.Keyword, r.Code, r.Error)
			continue
		}
		for _, e := range r.Data {
			ad := ""
			if e.IsAd {
				ad = "ad"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Keyword, cell(e.Rank), cell(e.Name), ad, cell(e.Category), cell(e.ReviewCount), e.DetailURL)
		}
	}
	return tw.Flush()
}

// cell renders a pass-through field; absent values print as "-".
func cell(v any) string {
	if v == nil {
		return "-"
	}
	s := fmt.Sprint(v)
	return strings.ReplaceAll(s, "\t", " ")
}
