package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/maprank/pipeline"
)

// scrollToBottom runs inside the result frame.
const scrollToBottom = `() => window.scrollTo(0, document.body.scrollHeight)`

// Session is one launched browser with a single page in a private context.
type Session struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page

	idleWindow  time.Duration
	blockedURLs []string

	stopListener context.CancelFunc
	listenerDone chan struct{}

	releaseOnce sync.Once
	onRelease   func()
}

// Arm enables the Network domain and starts a listener that forwards the
// body of every matching response to onMatch. Resource blocking is applied
// after the listener is running.
func (s *Session) Arm(match func(url string) bool, onMatch func(body []byte)) (pipeline.ArmedSession, error) {
	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		return nil, fmt.Errorf("enable network events: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := s.page.Context(ctx)

	// Response bodies are only retrievable once loading has finished, so
	// the URL is remembered per request until then.
	pending := make(map[proto.NetworkRequestID]string)
	wait := p.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Response != nil && match(e.Response.URL) {
				pending[e.RequestID] = e.Response.URL
			}
		},
		func(e *proto.NetworkLoadingFinished) {
			url, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)

			body, err := responseBody(p, e.RequestID)
			if err != nil {
				slog.Debug("response body unavailable", "url", url, "error", err)
				return
			}
			onMatch(body)
		},
		func(e *proto.NetworkLoadingFailed) {
			delete(pending, e.RequestID)
		},
	)

	s.stopListener = cancel
	s.listenerDone = make(chan struct{})
	go func() {
		defer close(s.listenerDone)
		wait()
	}()

	if len(s.blockedURLs) > 0 {
		if err := (proto.NetworkSetBlockedURLs{Urls: s.blockedURLs}).Call(s.page); err != nil {
			slog.Warn("set blocked urls failed", "error", err)
		}
	}

	return armedSession{s}, nil
}

func responseBody(p *rod.Page, id proto.NetworkRequestID) ([]byte, error) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p)
	if err != nil {
		return nil, err
	}
	if res.Base64Encoded {
		return base64.StdEncoding.DecodeString(res.Body)
	}
	return []byte(res.Body), nil
}

// Release tears everything down in reverse order of creation. Only the
// first call has any effect.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		s.teardown()
		if s.onRelease != nil {
			s.onRelease()
		}
	})
}

func (s *Session) teardown() {
	if s.stopListener != nil {
		s.stopListener()
		<-s.listenerDone
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			slog.Debug("close page", "error", err)
		}
	}
	if s.incognito != nil {
		if err := s.incognito.Close(); err != nil {
			slog.Debug("close browsing context", "error", err)
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			slog.Debug("close browser", "error", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}

// armedSession is the only way to reach Navigate.
type armedSession struct {
	s *Session
}

// Navigate loads url and waits until no request has been in flight for the
// idle window. The idle waiter is registered before navigation so requests
// started by the first response are not missed.
func (a armedSession) Navigate(ctx context.Context, url string) error {
	p := a.s.page.Context(ctx)

	waitIdle := p.WaitRequestIdle(a.s.idleWindow, nil, nil, nil)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	waitIdle()

	// WaitRequestIdle does not report errors; a ctx that ended while it
	// was blocking means the page never went quiet in time.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

// ScrollFrame waits for the iframe element, then scrolls its document.
func (a armedSession) ScrollFrame(ctx context.Context, selector string) error {
	p := a.s.page.Context(ctx)

	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", pipeline.ErrFrameNotFound, selector, err)
	}
	frame, err := el.Frame()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", pipeline.ErrFrameNotFound, selector, err)
	}
	if _, err := frame.Eval(scrollToBottom); err != nil {
		return fmt.Errorf("scroll frame %s: %w", selector, err)
	}
	return nil
}
