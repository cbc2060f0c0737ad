// Package browser launches one isolated Chromium per search request and
// exposes it to the pipeline as a pipeline.Session.
package browser

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/metrics"
	"github.com/use-agent/maprank/models"
	"github.com/use-agent/maprank/pipeline"
	"golang.org/x/sync/semaphore"
)

// Manager hands out fresh browser sessions, at most cfg.MaxSessions at a
// time. Nothing is pooled: every session gets its own process and is torn
// down on Release. It is safe for concurrent use.
type Manager struct {
	cfg      config.BrowserConfig
	idle     config.PipelineConfig
	slots    *semaphore.Weighted
	active   atomic.Int32
	patterns []string
}

// NewManager creates a Manager. No browser is started until Acquire.
func NewManager(cfg config.BrowserConfig, pipelineCfg config.PipelineConfig) *Manager {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	return &Manager{
		cfg:      cfg,
		idle:     pipelineCfg,
		slots:    semaphore.NewWeighted(int64(cfg.MaxSessions)),
		patterns: blockedURLPatterns(cfg.BlockedResources, cfg.BlockAds),
	}
}

// Stats returns a snapshot of the running sessions.
func (m *Manager) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    m.cfg.MaxSessions,
		ActiveSessions: int(m.active.Load()),
	}
}

// Acquire waits for a free slot, then launches a new browser with a private
// browsing context and a single page.
func (m *Manager) Acquire(ctx context.Context) (pipeline.Session, error) {
	if err := m.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	sess, err := m.launch(ctx)
	if err != nil {
		m.slots.Release(1)
		return nil, err
	}

	m.active.Add(1)
	metrics.ActiveSessions.Inc()
	sess.onRelease = func() {
		m.active.Add(-1)
		metrics.ActiveSessions.Dec()
		m.slots.Release(1)
	}
	return sess, nil
}

// newLauncher builds the Chromium command line.
func (m *Manager) newLauncher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(m.cfg.Headless).
		NoSandbox(m.cfg.NoSandbox)

	if m.cfg.BrowserBin != "" {
		l = l.Bin(m.cfg.BrowserBin)
	}
	if m.cfg.Proxy != "" {
		l = l.Proxy(m.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	// The result list lives in a cross-origin iframe. Keeping it in the
	// page's own process makes its XHRs visible to the page's Network events.
	l.Set(flags.Flag("disable-features"), "IsolateOrigins,site-per-process,TranslateUI")
	l.Set(flags.Flag("disable-site-isolation-trials"))
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// launch starts the process and prepares the page. Anything already started
// is torn down again when a later step fails.
func (m *Manager) launch(ctx context.Context) (*Session, error) {
	s := &Session{idleWindow: m.idle.IdleWindow}

	l := m.newLauncher(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to launch browser", err)
	}
	s.launcher = l
	slog.Debug("browser launched", "controlURL", controlURL)

	s.browser = rod.New().ControlURL(controlURL)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		s.teardown()
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to connect to browser", err)
	}

	s.incognito, err = s.browser.Incognito()
	if err != nil {
		s.teardown()
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to create browsing context", err)
	}

	s.page, err = s.incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.teardown()
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to open page", err)
	}

	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      m.cfg.UserAgent,
		AcceptLanguage: m.cfg.AcceptLanguage,
	}); err != nil {
		s.teardown()
		return nil, models.NewScrapeError(models.ErrCodeBrowserLaunch, "failed to set user agent", err)
	}

	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	s.blockedURLs = m.patterns
	return s, nil
}
