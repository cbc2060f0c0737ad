// Package pipeline drives one map-search request end to end: acquire a
// session, arm the interceptor, navigate, recover once if nothing was
// captured, shape the result, release the session.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/intercept"
	"github.com/use-agent/maprank/metrics"
	"github.com/use-agent/maprank/models"
)

// Result is the outcome of a successful run.
type Result struct {
	// Keyword is the keyword actually searched for, after URL resolution.
	Keyword string

	// Entries is the shaped ranking, at most limit long.
	Entries []models.RankedResult

	// Strategy names the payload layout the ranking came from.
	Strategy string

	// Recovered reports whether the recovery scroll was needed.
	Recovered bool
}

// Runner executes the search pipeline for a single target.
// It is safe for concurrent use; every Run acquires its own session.
type Runner struct {
	acquirer Acquirer
	target   Target
	cfg      config.PipelineConfig
}

// NewRunner creates a Runner.
func NewRunner(acquirer Acquirer, target Target, cfg config.PipelineConfig) *Runner {
	return &Runner{
		acquirer: acquirer,
		target:   target,
		cfg:      cfg,
	}
}

// Target returns the target this runner drives.
func (r *Runner) Target() Target {
	return r.target
}

// Run searches for keyword and returns at most limit ranked entries.
//
// The session is released on every path out of Run, including panics.
// Timeouts are single attempts: a navigation timeout fails the run, and a
// recovery that captures nothing ends in INTERCEPT_MISS.
func (r *Runner) Run(ctx context.Context, keyword string, limit int) (res *Result, err error) {
	start := time.Now()
	phase := PhaseIdle
	defer func() {
		code := ""
		if err != nil {
			code = models.AsScrapeError(err).Code
		}
		metrics.ObserveRun(r.target.Engine, string(phase), code, time.Since(start), res != nil && res.Recovered)
	}()

	if strings.TrimSpace(keyword) == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "keyword must not be blank", nil)
	}
	if limit < 1 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "limit must be at least 1", nil)
	}

	resolved := ResolveKeyword(keyword, r.target.KeywordMarker)
	log := slog.With("engine", r.target.Engine, "keyword", resolved)

	// ── 1. Session ────────────────────────────────────────────────────
	sess, err := r.acquirer.Acquire(ctx)
	if err != nil {
		phase = PhaseFailed
		return nil, launchError(err)
	}
	defer sess.Release()

	// ── 2. Arm the interceptor BEFORE navigation ──────────────────────
	ic := intercept.New(r.target.APIPathMarker, r.target.Strategies)
	armed, err := sess.Arm(ic.Match, ic.Observe)
	if err != nil {
		phase = PhaseFailed
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to arm response interceptor", err)
	}
	phase = PhaseAwaiting

	// ── 3. Navigate and wait for network quiescence ───────────────────
	target := r.target.SearchPageURL(resolved)
	log.Debug("navigating", "url", target)

	navCtx, cancel := context.WithTimeout(ctx, r.cfg.NavigationTimeout)
	err = armed.Navigate(navCtx, target)
	cancel()
	if err != nil {
		phase = PhaseFailed
		return nil, navigationError(err)
	}

	// ── 4. Single recovery attempt ────────────────────────────────────
	recovered := false
	if ic.Buffer().Len() == 0 {
		phase = PhaseRecovering
		recovered = true
		log.Info("no ranking captured after navigation, attempting recovery")
		if err := r.recover(ctx, armed); err != nil {
			phase = PhaseFailed
			return nil, err
		}
	}

	// ── 5. Shape ──────────────────────────────────────────────────────
	entries, strategy := ic.Buffer().Snapshot()
	if len(entries) == 0 {
		phase = PhaseFailed
		log.Warn("ranking data was not captured", "url", target)
		return nil, models.NewScrapeError(
			models.ErrCodeInterceptMiss,
			"could not capture ranking data from the map search page; check the keyword",
			nil,
		)
	}
	phase = PhaseCaptured

	log.Info("ranking captured",
		"strategy", strategy,
		"captured", len(entries),
		"payloads", ic.Buffer().Writes(),
		"limit", limit,
		"recovered", recovered,
	)

	return &Result{
		Keyword:   resolved,
		Entries:   Shape(entries, limit, r.target),
		Strategy:  strategy,
		Recovered: recovered,
	}, nil
}

// recover scrolls the result frame once to provoke the page into re-issuing
// its data call, then waits out the grace period. A missing frame is not an
// error here; the caller sees an empty buffer and fails the run.
func (r *Runner) recover(ctx context.Context, armed ArmedSession) error {
	frameCtx, cancel := context.WithTimeout(ctx, r.cfg.FrameTimeout)
	err := armed.ScrollFrame(frameCtx, r.target.FrameSelector)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return canceledError(ctx.Err())
		}
		slog.Warn("recovery scroll failed", "selector", r.target.FrameSelector, "error", err)
		return nil
	}

	timer := time.NewTimer(r.cfg.GracePeriod)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return canceledError(ctx.Err())
	}
}

// launchError keeps codes set by the Acquirer and labels the rest as
// launch failures.
func launchError(err error) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return canceledError(err)
	}
	return models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to start browser session", err)
}

// navigationError classifies a Navigate failure.
func navigationError(err error) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeNavigationTimeout, "navigation to the map search page timed out", err)
	case errors.Is(err, context.Canceled):
		return canceledError(err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, "navigation to the map search page failed", err)
	}
}

func canceledError(err error) *models.ScrapeError {
	return models.NewScrapeError(models.ErrCodeCanceled, "request canceled", err)
}
