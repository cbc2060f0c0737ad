package pipeline

import (
	"context"
	"errors"
)

// ErrFrameNotFound is returned by ArmedSession.ScrollFrame when the
// result-list frame never appears.
var ErrFrameNotFound = errors.New("result frame not found")

// Acquirer hands out one isolated browser session per call. Sessions are
// never shared between requests.
type Acquirer interface {
	Acquire(ctx context.Context) (Session, error)
}

// Session is a freshly acquired browser session that has not navigated yet.
//
// Navigation is only reachable through the ArmedSession returned by Arm, so
// the response listener is always registered before the first request
// leaves the page.
type Session interface {
	// Arm subscribes to the session's network responses. onMatch receives the
	// body of every response whose URL satisfies match, for the rest of the
	// session's lifetime. It may be called from another goroutine.
	Arm(match func(url string) bool, onMatch func(body []byte)) (ArmedSession, error)

	// Release tears down the page, context and browser process. It is safe
	// to call more than once.
	Release()
}

// ArmedSession is a session whose interceptor is already listening.
type ArmedSession interface {
	// Navigate loads url and blocks until network activity settles or ctx
	// ends. A ctx deadline is reported as an error wrapping
	// context.DeadlineExceeded.
	Navigate(ctx context.Context, url string) error

	// ScrollFrame waits for the iframe matched by selector and scrolls its
	// document to the bottom. It returns an error wrapping ErrFrameNotFound
	// when the frame does not show up before ctx ends.
	ScrollFrame(ctx context.Context, selector string) error
}
