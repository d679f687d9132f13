package render

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"go.uber.org/zap"
)

type ChromeOptions struct {
	Headless    bool
	ExecPath    string
	RemoteURL   string // DevTools websocket of an already running browser
	UserAgent   string
	SettleDelay time.Duration
}

// ChromeBrowser drives headless Chrome through the DevTools protocol.
type ChromeBrowser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	opts        ChromeOptions
	logger      *zap.Logger
}

var _ Browser = (*ChromeBrowser)(nil)

func NewChromeBrowser(opts ChromeOptions, logger *zap.Logger) *ChromeBrowser {
	var (
		allocCtx context.Context
		cancel   context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.WindowSize(constants.ShowcaseConfig.WindowWidth, constants.ShowcaseConfig.WindowHeight),
		)
		if opts.ExecPath != "" {
			execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
		}
		if opts.UserAgent != "" {
			execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
		}
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	}

	return &ChromeBrowser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		opts:        opts,
		logger:      logger,
	}
}

// NewPage opens a tab. The first Run on the tab context starts the browser,
// so it must not carry a deadline.
func (b *ChromeBrowser) NewPage(_ context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx, chromedp.WithLogf(b.logger.Sugar().Debugf))

	err := chromedp.Run(tabCtx,
		network.Enable(),
		cdppage.SetLifecycleEventsEnabled(true),
		chromedp.EmulateViewport(int64(constants.ShowcaseConfig.WindowWidth), int64(constants.ShowcaseConfig.WindowHeight)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser tab: %w", err)
	}

	return &chromePage{
		ctx:         tabCtx,
		cancel:      cancel,
		settleDelay: b.opts.SettleDelay,
		logger:      b.logger,
	}, nil
}

func (b *ChromeBrowser) Close() error {
	b.allocCancel()
	return nil
}

type chromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	settleDelay time.Duration
	logger      *zap.Logger
}

// opContext derives a context from the tab that also ends with ctx.
func (p *chromePage) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(p.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		opCtx, cancelDeadline = context.WithDeadline(opCtx, deadline)
		prev := cancel
		cancel = func() {
			cancelDeadline()
			prev()
		}
	}
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	var mainFrame cdp.FrameID
	if err := chromedp.Run(opCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := cdppage.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		mainFrame = tree.Frame.ID
		return nil
	})); err != nil {
		return fmt.Errorf("reading frame tree: %w", err)
	}

	waiter := newIdleWaiter(mainFrame)
	listenCtx, stopListening := context.WithCancel(opCtx)
	defer stopListening()

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		if e, ok := ev.(*cdppage.EventLifecycleEvent); ok {
			waiter.observe(e.FrameID, e.Name)
		}
	})

	if err := chromedp.Run(opCtx, chromedp.Navigate(url)); err != nil {
		return err
	}

	select {
	case <-waiter.idle:
		return nil
	case <-opCtx.Done():
		return fmt.Errorf("waiting for network idle: %w", opCtx.Err())
	}
}

// idleWaiter closes idle once the main frame reports networkIdle after a
// fresh init. Subframe events are ignored.
type idleWaiter struct {
	frame cdp.FrameID
	idle  chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

func newIdleWaiter(frame cdp.FrameID) *idleWaiter {
	return &idleWaiter{frame: frame, idle: make(chan struct{})}
}

func (w *idleWaiter) observe(frame cdp.FrameID, name string) {
	if frame != w.frame {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch name {
	case "init":
		w.started = true
	case "networkIdle":
		if w.started && !w.closed {
			w.closed = true
			close(w.idle)
		}
	}
}

const selectLocaleScript = `(() => {
	const label = %s;
	const option = Array.from(document.querySelectorAll('.UI.SelectorElement'))
		.find(el => el.innerHTML.trim() === label || el.textContent.trim() === label);
	if (!option) return false;
	option.click();
	document.querySelectorAll('.Dropdown-list').forEach(el => { el.style.display = 'none'; });
	return true;
})()`

func (p *chromePage) SelectLocale(ctx context.Context, label string) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	var ok bool
	if err := chromedp.Run(opCtx, chromedp.Evaluate(fmt.Sprintf(selectLocaleScript, jsString(label)), &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("locale option %q not found", label)
	}
	return nil
}

const tileRectScript = `(() => {
	const tile = document.querySelectorAll('figure')[%d];
	if (!tile || !tile.parentElement) return null;
	const rect = tile.parentElement.getBoundingClientRect();
	return { x: rect.left, y: rect.top };
})()`

func (p *chromePage) LocateCharacter(ctx context.Context, key string) (Point, bool, error) {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(opCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return Point{}, false, err
	}

	index, found, err := FindCharacterTile(html, key)
	if err != nil || !found {
		return Point{}, false, err
	}

	var rect *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := chromedp.Run(opCtx, chromedp.Evaluate(fmt.Sprintf(tileRectScript, index), &rect)); err != nil {
		return Point{}, false, err
	}
	if rect == nil {
		return Point{}, false, fmt.Errorf("tile %d has no container", index)
	}
	return Point{X: rect.X, Y: rect.Y}, true, nil
}

func (p *chromePage) Click(ctx context.Context, at Point) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	// Offset into the tile; its exact corner is the container border.
	return chromedp.Run(opCtx, chromedp.MouseClickXY(at.X+1, at.Y+1))
}

const prepareCardScript = `(() => {
	document.querySelectorAll('.Checkbox.Control.sm:not(.checked)').forEach(el => el.click());
	const input = %s.map(p => document.querySelector('[placeholder="' + p + '"]')).find(Boolean);
	if (!input) return false;
	const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
	setter.call(input, %s);
	input.dispatchEvent(new Event('input', { bubbles: true }));
	return true;
})()`

func (p *chromePage) PrepareCard(ctx context.Context, text string) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	placeholders, err := json.Marshal(constants.CustomTextPlaceholders)
	if err != nil {
		return err
	}

	var ok bool
	if err := chromedp.Run(opCtx,
		chromedp.Evaluate(fmt.Sprintf(prepareCardScript, placeholders, jsString(text)), &ok),
		chromedp.Sleep(p.settleDelay),
	); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("custom text input not found")
	}
	return nil
}

func (p *chromePage) TriggerRender(ctx context.Context) error {
	opCtx, cancel := p.opContext(ctx)
	defer cancel()

	return chromedp.Run(opCtx, chromedp.Click(constants.ShowcaseConfig.RenderButton, chromedp.ByQuery, chromedp.NodeVisible))
}

func (p *chromePage) ObserveResponse(_ context.Context, pattern *regexp.Regexp) (Capture, error) {
	listenCtx, cancel := context.WithCancel(p.ctx)
	c := newChromeCapture(cancel)

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Response != nil && pattern.MatchString(e.Response.URL) {
				c.match(e.RequestID)
			}
		case *network.EventLoadingFinished:
			if c.matched(e.RequestID) {
				// Listeners run on the event loop; the body fetch must not block it.
				go c.readBody(listenCtx, e.RequestID)
			}
		case *network.EventLoadingFailed:
			if c.matched(e.RequestID) {
				c.deliver(nil, fmt.Errorf("image request failed: %s", e.ErrorText))
			}
		}
	})

	return c, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}

type captureResult struct {
	body []byte
	err  error
}

type chromeCapture struct {
	cancel context.CancelFunc
	result chan captureResult

	mu        sync.Mutex
	requestID network.RequestID
	done      bool
}

func newChromeCapture(cancel context.CancelFunc) *chromeCapture {
	return &chromeCapture{
		cancel: cancel,
		result: make(chan captureResult, 1),
	}
}

// match pins the first request whose URL matched; later matches are ignored.
func (c *chromeCapture) match(id network.RequestID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requestID == "" {
		c.requestID = id
	}
}

func (c *chromeCapture) matched(id network.RequestID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestID != "" && c.requestID == id && !c.done
}

func (c *chromeCapture) readBody(ctx context.Context, id network.RequestID) {
	var body []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	c.deliver(body, err)
}

// deliver publishes the first result and unsubscribes.
func (c *chromeCapture) deliver(body []byte, err error) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.mu.Unlock()

	c.result <- captureResult{body: body, err: err}
	c.cancel()
}

func (c *chromeCapture) Wait(ctx context.Context) ([]byte, error) {
	select {
	case r := <-c.result:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *chromeCapture) Close() {
	c.cancel()
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
