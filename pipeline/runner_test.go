package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/maprank/config"
	"github.com/use-agent/maprank/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const allSearchURL = "https://map.naver.com/p/api/search/allSearch?query=x&type=all"

func placeBody(n int) []byte {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"rank":"%d","id":"%d","name":"place-%d"}`, i+1, 100+i, i+1)
	}
	return []byte(`{"result":{"place":{"list":[` + strings.Join(items, ",") + `]}}}`)
}

// fakeSession records the order of calls and lets each test decide what
// the page "emits" during navigation and recovery.
type fakeSession struct {
	mu       sync.Mutex
	calls    []string
	released int
	navURL   string

	match   func(string) bool
	onMatch func([]byte)

	navigate func(ctx context.Context, s *fakeSession) error
	scroll   func(ctx context.Context, s *fakeSession) error
}

func (s *fakeSession) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

// emit delivers a response asynchronously, the way a browser event stream
// would, and waits for the listener to finish handling it.
func (s *fakeSession) emit(url string, body []byte) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if s.match != nil && s.match(url) {
			s.onMatch(body)
		}
	}()
	<-done
}

func (s *fakeSession) Arm(match func(string) bool, onMatch func([]byte)) (ArmedSession, error) {
	s.record("arm")
	s.match = match
	s.onMatch = onMatch
	return fakeArmed{s}, nil
}

func (s *fakeSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "release")
	s.released++
}

func (s *fakeSession) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

type fakeArmed struct{ s *fakeSession }

func (a fakeArmed) Navigate(ctx context.Context, url string) error {
	a.s.record("navigate")
	a.s.navURL = url
	if a.s.navigate == nil {
		return nil
	}
	return a.s.navigate(ctx, a.s)
}

func (a fakeArmed) ScrollFrame(ctx context.Context, selector string) error {
	a.s.record("scroll")
	if a.s.scroll == nil {
		<-ctx.Done()
		return fmt.Errorf("%w: %v", ErrFrameNotFound, ctx.Err())
	}
	return a.s.scroll(ctx, a.s)
}

type fakeAcquirer struct {
	sess *fakeSession
	err  error
}

func (f *fakeAcquirer) Acquire(ctx context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sess, nil
}

func testConfig() config.PipelineConfig {
	return config.PipelineConfig{
		NavigationTimeout: 200 * time.Millisecond,
		FrameTimeout:      50 * time.Millisecond,
		GracePeriod:       20 * time.Millisecond,
		DefaultLimit:      30,
		MaxLimit:          300,
	}
}

func newTestRunner(sess *fakeSession) *Runner {
	return NewRunner(&fakeAcquirer{sess: sess}, NaverMap, testConfig())
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se), "expected a ScrapeError, got %T: %v", err, err)
	assert.Equal(t, code, se.Code)
}

func TestRun_CaptureDuringNavigation(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			s.emit("https://map.naver.com/p/api/search/instant-search?query=x", []byte(`{"place":[]}`))
			s.emit(allSearchURL, placeBody(4))
			return nil
		},
	}

	res, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	require.NoError(t, err)
	require.Len(t, res.Entries, 4)
	for i, e := range res.Entries {
		assert.Equal(t, fmt.Sprint(i+1), e.Rank)
	}
	assert.Equal(t, "place", res.Strategy)
	assert.False(t, res.Recovered)
	assert.Equal(t, []string{"arm", "navigate", "release"}, sess.calls)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRun_ResolvesURLKeyword(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			s.emit(allSearchURL, placeBody(1))
			return nil
		},
	}

	res, err := newTestRunner(sess).Run(context.Background(), "https://site/search/피자?x=1", 30)

	require.NoError(t, err)
	assert.Equal(t, "피자", res.Keyword)
	assert.Equal(t, NaverMap.SearchPageURL("피자"), sess.navURL)
}

func TestRun_LastPayloadWins(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			s.emit(allSearchURL, placeBody(3))
			s.emit(allSearchURL, placeBody(5))
			return nil
		},
	}

	res, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	require.NoError(t, err)
	assert.Len(t, res.Entries, 5)
}

func TestRun_LimitTruncates(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			s.emit(allSearchURL, placeBody(5))
			return nil
		},
	}

	res, err := newTestRunner(sess).Run(context.Background(), "피자", 2)

	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "1", res.Entries[0].Rank)
	assert.Equal(t, "2", res.Entries[1].Rank)
}

func TestRun_RecoveryCapturesSecondCall(t *testing.T) {
	sess := &fakeSession{
		scroll: func(ctx context.Context, s *fakeSession) error {
			s.emit(allSearchURL, placeBody(2))
			return nil
		},
	}

	res, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	require.NoError(t, err)
	assert.Len(t, res.Entries, 2)
	assert.True(t, res.Recovered)
	assert.Equal(t, []string{"arm", "navigate", "scroll", "release"}, sess.calls)
}

func TestRun_FrameMissingIsInterceptMiss(t *testing.T) {
	sess := &fakeSession{}

	_, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	requireCode(t, err, models.ErrCodeInterceptMiss)
	assert.Equal(t, 1, sess.releaseCount(), "session must be released exactly once")
}

func TestRun_ScrollWithoutCaptureIsInterceptMiss(t *testing.T) {
	sess := &fakeSession{
		scroll: func(ctx context.Context, s *fakeSession) error {
			s.emit(allSearchURL, []byte(`{"result":{"place":{"list":[]}}}`))
			return nil
		},
	}

	_, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	requireCode(t, err, models.ErrCodeInterceptMiss)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRun_RecoveryIsSingleAttempt(t *testing.T) {
	scrolls := 0
	sess := &fakeSession{
		scroll: func(ctx context.Context, s *fakeSession) error {
			scrolls++
			return nil
		},
	}

	_, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	requireCode(t, err, models.ErrCodeInterceptMiss)
	assert.Equal(t, 1, scrolls)
}

func TestRun_NavigationTimeout(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			<-ctx.Done()
			return fmt.Errorf("wait for network idle: %w", ctx.Err())
		},
	}

	_, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	requireCode(t, err, models.ErrCodeNavigationTimeout)
	assert.NotContains(t, sess.calls, "scroll", "no recovery after a navigation timeout")
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRun_NavigationFailure(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			return errors.New("net::ERR_NAME_NOT_RESOLVED")
		},
	}

	_, err := newTestRunner(sess).Run(context.Background(), "피자", 30)

	requireCode(t, err, models.ErrCodeNavigation)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRun_LaunchFailure(t *testing.T) {
	r := NewRunner(&fakeAcquirer{err: errors.New("chromium not found")}, NaverMap, testConfig())

	_, err := r.Run(context.Background(), "피자", 30)

	requireCode(t, err, models.ErrCodeBrowserLaunch)
	assert.Contains(t, err.Error(), "chromium not found")
}

func TestRun_CanceledDuringGrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := testConfig()
	cfg.GracePeriod = time.Minute

	sess := &fakeSession{
		scroll: func(_ context.Context, s *fakeSession) error {
			cancel()
			return nil
		},
	}
	r := NewRunner(&fakeAcquirer{sess: sess}, NaverMap, cfg)

	_, err := r.Run(ctx, "피자", 30)

	requireCode(t, err, models.ErrCodeCanceled)
	assert.Equal(t, 1, sess.releaseCount())
}

func TestRun_PanicStillReleases(t *testing.T) {
	sess := &fakeSession{
		navigate: func(ctx context.Context, s *fakeSession) error {
			panic("devtools connection lost")
		},
	}

	func() {
		defer func() {
			require.NotNil(t, recover())
		}()
		_, _ = newTestRunner(sess).Run(context.Background(), "피자", 30)
	}()

	assert.Equal(t, 1, sess.releaseCount())
}

func TestRun_RejectsZeroLimit(t *testing.T) {
	sess := &fakeSession{}

	_, err := newTestRunner(sess).Run(context.Background(), "피자", 0)

	requireCode(t, err, models.ErrCodeInvalidInput)
	assert.Empty(t, sess.calls, "no session should be acquired for invalid input")
}

func TestRun_RejectsBlankKeyword(t *testing.T) {
	for _, kw := range []string{"", "   ", "\t\n"} {
		sess := &fakeSession{}

		_, err := newTestRunner(sess).Run(context.Background(), kw, 30)

		requireCode(t, err, models.ErrCodeInvalidInput)
		assert.Empty(t, sess.calls, "keyword %q must not acquire a session", kw)
		assert.Empty(t, sess.navURL)
	}
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	var wg sync.WaitGroup
	sessions := make([]*fakeSession, 8)
	for i := range sessions {
		n := i + 1
		sessions[i] = &fakeSession{
			navigate: func(ctx context.Context, s *fakeSession) error {
				s.emit(allSearchURL, placeBody(n))
				return nil
			},
		}
	}

	results := make([]int, len(sessions))
	for i, sess := range sessions {
		wg.Add(1)
		go func(i int, sess *fakeSession) {
			defer wg.Done()
			res, err := newTestRunner(sess).Run(context.Background(), "피자", 30)
			if err == nil {
				results[i] = len(res.Entries)
			}
		}(i, sess)
	}
	wg.Wait()

	for i, n := range results {
		assert.Equal(t, i+1, n, "run %d", i)
		assert.Equal(t, 1, sessions[i].releaseCount())
	}
}
