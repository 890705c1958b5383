package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/pkg/log"
)

const (
	DefaultInputSelector  = "#source"
	DefaultElementTimeout = 10 * time.Second
)

// ChromeOptions configures how sessions are launched.
type ChromeOptions struct {
	PageURL        string // defaults to https://translate.google.cn/#en/<Language>
	Language       string
	Endpoint       string
	InputSelector  string
	Headless       bool
	ExecPath       string
	Proxy          string
	InitTimeout    time.Duration // zero waits for the page without limit
	ElementTimeout time.Duration
}

// ChromeDriver launches one Chrome process per session.
type ChromeDriver struct {
	opts   ChromeOptions
	logger *log.Logger
}

func NewChromeDriver(opts ChromeOptions) *ChromeDriver {
	if opts.Language == "" {
		opts.Language = "zh-CN"
	}
	if opts.PageURL == "" {
		opts.PageURL = "https://translate.google.cn/#en/" + opts.Language
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.InputSelector == "" {
		opts.InputSelector = DefaultInputSelector
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = DefaultElementTimeout
	}
	return &ChromeDriver{
		opts:   opts,
		logger: log.GetLogger().With("component", "chrome"),
	}
}

func (d *ChromeDriver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("headless", d.opts.Headless),
	)
	if d.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.opts.ExecPath))
	}
	if d.opts.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(d.opts.Proxy))
	}
	return opts
}

// Open launches a browser, starts watching endpoint traffic and loads the page.
func (d *ChromeDriver) Open(ctx context.Context, observe Observer) (Tab, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), d.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	tab := &chromeTab{
		ctx:    tabCtx,
		opts:   d.opts,
		logger: d.logger,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	// abort the launch when ctx ends before the page is ready
	stop := context.AfterFunc(ctx, tab.cancel)
	defer stop()

	if err := chromedp.Run(tabCtx); err != nil {
		tab.cancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	tab.watch(observe)

	navCtx, navCancel := tabCtx, context.CancelFunc(func() {})
	if d.opts.InitTimeout > 0 {
		navCtx, navCancel = context.WithTimeout(tabCtx, d.opts.InitTimeout)
	}
	defer navCancel()

	if err := chromedp.Run(navCtx, network.Enable(), chromedp.Navigate(d.opts.PageURL)); err != nil {
		tab.cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to load %s: %w", d.opts.PageURL, err)
	}

	d.logger.Debug("Opened %s", d.opts.PageURL)
	return tab, nil
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   ChromeOptions
	logger *log.Logger

	mu      sync.Mutex
	pending map[network.RequestID]*Response
	once    sync.Once
}

// watch follows endpoint requests until their body is available.
func (t *chromeTab) watch(observe Observer) {
	t.pending = make(map[network.RequestID]*Response)

	chromedp.ListenTarget(t.ctx, func(ev any) {
		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			if ev.Request == nil || !strings.Contains(ev.Request.URL, t.opts.Endpoint) {
				return
			}
			t.mu.Lock()
			t.pending[ev.RequestID] = &Response{
				URL:      ev.Request.URL,
				Method:   ev.Request.Method,
				PostData: postData(ev.Request.PostDataEntries),
			}
			t.mu.Unlock()

		case *network.EventResponseReceived:
			t.mu.Lock()
			if resp, ok := t.pending[ev.RequestID]; ok && ev.Response != nil {
				resp.Status = int(ev.Response.Status)
			}
			t.mu.Unlock()

		case *network.EventLoadingFailed:
			t.mu.Lock()
			delete(t.pending, ev.RequestID)
			t.mu.Unlock()

		case *network.EventLoadingFinished:
			t.mu.Lock()
			resp, ok := t.pending[ev.RequestID]
			delete(t.pending, ev.RequestID)
			t.mu.Unlock()
			if !ok {
				return
			}

			// listeners must not block; fetching the body is a round trip
			go func(id network.RequestID) {
				c := chromedp.FromContext(t.ctx)
				if c == nil || c.Target == nil {
					return
				}
				body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(t.ctx, c.Target))
				if err != nil {
					t.logger.Debug("Failed to read body of %s: %v", resp.URL, err)
					return
				}
				resp.Body = body
				observe(*resp)
			}(ev.RequestID)
		}
	})
}

func (t *chromeTab) runContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var runCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(t.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(t.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (t *chromeTab) Type(ctx context.Context, text string) error {
	sel := t.opts.InputSelector

	waitCtx, cancel := t.runContext(ctx, t.opts.ElementTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitReady(sel, chromedp.ByQuery))
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return backend.WrapError(err, backend.KindElementNotFound, "input element not found").
			WithContext("selector", sel)
	}

	runCtx, cancel := t.runContext(ctx, 0)
	defer cancel()
	if err := chromedp.Run(runCtx,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, text, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to type into %s: %w", sel, err)
	}
	return nil
}

func (t *chromeTab) Clear(ctx context.Context) error {
	sel := t.opts.InputSelector
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	el.focus();
	el.select();
	return true;
})()`, sel)

	runCtx, cancel := t.runContext(ctx, t.opts.ElementTimeout)
	defer cancel()

	var ok bool
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &ok)); err != nil {
		return fmt.Errorf("failed to select input: %w", err)
	}
	if !ok {
		return backend.NewError(backend.KindElementNotFound, "input element not found").
			WithContext("selector", sel)
	}
	return chromedp.Run(runCtx, chromedp.KeyEvent(kb.Backspace))
}

func (t *chromeTab) Close() error {
	t.once.Do(t.cancel)
	return nil
}

// postData joins the request body entries, which arrive base64 encoded.
func postData(entries []*network.PostDataEntry) string {
	var b strings.Builder
	for _, e := range entries {
		if e == nil {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(e.Bytes)
		if err != nil {
			b.WriteString(e.Bytes)
			continue
		}
		b.Write(raw)
	}
	return b.String()
}
