package render

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kapu/enka-kakao-bot-go/internal/domain"
	"github.com/kapu/enka-kakao-bot-go/pkg/errors"
	"go.uber.org/zap"
)

type fakeBrowser struct {
	mu     sync.Mutex
	opened int
	page   *fakePage
}

func (b *fakeBrowser) NewPage(context.Context) (Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened++
	return b.page, nil
}

func (b *fakeBrowser) Close() error { return nil }

type fakePage struct {
	mu       sync.Mutex
	calls    []string
	urls     []string
	failAt   string
	absent   bool
	hang     bool
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	gate     chan struct{} // Navigate blocks until closed, when set
	entered  chan struct{}
}

func (p *fakePage) record(call string) error {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	fail := p.failAt == call
	p.mu.Unlock()
	if fail {
		return fmt.Errorf("%s broke", call)
	}
	return nil
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	n := p.inFlight.Add(1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	p.mu.Lock()
	p.urls = append(p.urls, url)
	p.mu.Unlock()

	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.record("navigate")
}

func (p *fakePage) SelectLocale(_ context.Context, label string) error {
	return p.record("locale:" + label)
}

func (p *fakePage) LocateCharacter(_ context.Context, key string) (Point, bool, error) {
	if err := p.record("locate:" + key); err != nil {
		return Point{}, false, err
	}
	if p.absent {
		return Point{}, false, nil
	}
	return Point{X: 10, Y: 20}, true, nil
}

func (p *fakePage) Click(_ context.Context, at Point) error {
	return p.record(fmt.Sprintf("click:%v,%v", at.X, at.Y))
}

func (p *fakePage) PrepareCard(_ context.Context, text string) error {
	return p.record("prepare:" + text)
}

func (p *fakePage) ObserveResponse(_ context.Context, pattern *regexp.Regexp) (Capture, error) {
	if err := p.record("observe"); err != nil {
		return nil, err
	}
	if !pattern.MatchString("https://enka.network/api/card/8f14e45f-ceea-467e-bd7e-4c0e8654dbb1") {
		return nil, fmt.Errorf("pattern does not match generated card url")
	}
	return &fakeCapture{page: p}, nil
}

func (p *fakePage) TriggerRender(context.Context) error {
	return p.record("trigger")
}

func (p *fakePage) Close() error {
	return p.record("close")
}

func (p *fakePage) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

type fakeCapture struct {
	page *fakePage
}

func (c *fakeCapture) Wait(ctx context.Context) ([]byte, error) {
	defer c.page.inFlight.Add(-1)
	if c.page.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []byte("\x89PNG card"), nil
}

func (c *fakeCapture) Close() {}

func newTestSession(page *fakePage, cfg SessionConfig) (*Session, *fakeBrowser) {
	browser := &fakeBrowser{page: page}
	if cfg.Locale == "" {
		cfg.Locale = "ko"
	}
	if cfg.Watermark == "" {
		cfg.Watermark = "KakaoTalk & Enka Network"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://enka.network/"
	}
	return NewSession(browser, cfg, zap.NewNop()), browser
}

var ayaka = &domain.CharacterReference{ID: "10000002", SelectorKey: "Ayaka"}

func TestRenderRunsStagesInOrder(t *testing.T) {
	page := &fakePage{}
	session, _ := newTestSession(page, SessionConfig{})

	image, err := session.Render(context.Background(), "800000001", ayaka)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(image) != "\x89PNG card" {
		t.Fatalf("unexpected image %q", image)
	}

	want := []string{
		"navigate",
		"locale:한국어",
		"locate:Ayaka",
		"click:10,20",
		"prepare:KakaoTalk & Enka Network",
		"observe",
		"trigger",
	}
	got := page.callLog()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
	if page.urls[0] != "https://enka.network/u/800000001/" {
		t.Fatalf("unexpected url %q", page.urls[0])
	}
}

func TestRenderReportsMissingCharacterDistinctly(t *testing.T) {
	page := &fakePage{absent: true}
	session, _ := newTestSession(page, SessionConfig{})

	_, err := session.Render(context.Background(), "800000001", ayaka)
	if !stderrors.Is(err, errors.ErrCharacterNotInShowcase) {
		t.Fatalf("expected not-in-showcase, got %v", err)
	}
	var renderErr *errors.RenderError
	if stderrors.As(err, &renderErr) {
		t.Fatalf("missing character must not be a render failure")
	}
	for _, call := range page.callLog() {
		if call == "trigger" {
			t.Fatalf("render must stop before triggering")
		}
	}
}

func TestRenderWrapsStageFailures(t *testing.T) {
	tests := []struct {
		failAt string
		stage  string
	}{
		{"locale:한국어", StageSelectLocale},
		{"locate:Ayaka", StageLocateCharacter},
		{"click:10,20", StageSelectCharacter},
		{"prepare:KakaoTalk & Enka Network", StageInjectText},
		{"observe", StageObserve},
		{"trigger", StageTriggerRender},
	}
	for _, tt := range tests {
		t.Run(tt.stage, func(t *testing.T) {
			page := &fakePage{failAt: tt.failAt}
			session, _ := newTestSession(page, SessionConfig{})

			_, err := session.Render(context.Background(), "800000001", ayaka)
			var renderErr *errors.RenderError
			if !stderrors.As(err, &renderErr) {
				t.Fatalf("expected render error, got %v", err)
			}
			if renderErr.Stage != tt.stage || renderErr.UID != "800000001" || renderErr.CharacterID != "10000002" {
				t.Fatalf("unexpected render error %+v", renderErr)
			}

			// The lock must be free again.
			page.failAt = ""
			page.inFlight.Store(0)
			if _, err := session.Render(context.Background(), "800000001", ayaka); err != nil {
				t.Fatalf("render after failure: %v", err)
			}
		})
	}
}

func TestRenderCaptureTimeout(t *testing.T) {
	page := &fakePage{hang: true}
	session, _ := newTestSession(page, SessionConfig{CaptureTimeout: 20 * time.Millisecond})

	_, err := session.Render(context.Background(), "800000001", ayaka)
	var renderErr *errors.RenderError
	if !stderrors.As(err, &renderErr) || renderErr.Stage != StageAwaitCapture {
		t.Fatalf("expected await_capture failure, got %v", err)
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline cause, got %v", err)
	}
}

func TestRenderOpensPageLazilyOnce(t *testing.T) {
	page := &fakePage{}
	session, browser := newTestSession(page, SessionConfig{})

	if browser.opened != 0 {
		t.Fatalf("page must not open before the first render")
	}
	for i := 0; i < 3; i++ {
		if _, err := session.Render(context.Background(), "800000001", ayaka); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if browser.opened != 1 {
		t.Fatalf("expected one page, opened %d", browser.opened)
	}
}

func TestRenderReopensPageAfterNavigationFailure(t *testing.T) {
	page := &fakePage{failAt: "navigate"}
	session, browser := newTestSession(page, SessionConfig{})

	_, err := session.Render(context.Background(), "800000001", ayaka)
	var renderErr *errors.RenderError
	if !stderrors.As(err, &renderErr) || renderErr.Stage != StageNavigate {
		t.Fatalf("expected navigate failure, got %v", err)
	}

	page.failAt = ""
	page.inFlight.Store(0)
	if _, err := session.Render(context.Background(), "800000001", ayaka); err != nil {
		t.Fatalf("render: %v", err)
	}
	if browser.opened != 2 {
		t.Fatalf("expected page to be reopened, opened %d", browser.opened)
	}
}

func TestRenderSerializesConcurrentRequests(t *testing.T) {
	page := &fakePage{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	session, _ := newTestSession(page, SessionConfig{})

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, uid := range []string{"800000001", "700000002"} {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			_, err := session.Render(context.Background(), uid, ayaka)
			errs <- err
		}(uid)
	}

	<-page.entered
	select {
	case <-page.entered:
		t.Fatalf("second render entered the page while the first held it")
	case <-time.After(50 * time.Millisecond):
	}

	close(page.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if page.maxSeen.Load() != 1 {
		t.Fatalf("expected at most one render in flight, saw %d", page.maxSeen.Load())
	}
}

func TestLockAcquireHonoursContext(t *testing.T) {
	lock := NewLock()
	release, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := lock.Acquire(ctx); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}

	release()
	release()
	next, err := lock.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	next()
}
