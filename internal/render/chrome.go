package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

type ChromeOptions struct {
	UserAgent         string
	Headless          bool
	NavigationTimeout time.Duration
	// QueryTimeout bounds every non-navigation action.
	QueryTimeout time.Duration
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// ChromeBrowser renders pages in headless Chrome; every Page is its own tab.
type ChromeBrowser struct {
	opts          ChromeOptions
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
}

func NewChromeBrowser(opts ChromeOptions) (*ChromeBrowser, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 10 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// the first Run starts the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &ChromeBrowser{
		opts:          opts,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}, nil
}

func (b *ChromeBrowser) NewPage(ctx context.Context) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return &ChromePage{
		tabCtx: tabCtx,
		cancel: cancel,
		opts:   b.opts,
	}, nil
}

func (b *ChromeBrowser) Close() error {
	b.cancelBrowser()
	b.cancelAlloc()
	return nil
}

type ChromePage struct {
	tabCtx context.Context
	cancel context.CancelFunc
	opts   ChromeOptions
}

// run executes actions in the tab, bounded by timeout and by the caller's ctx.
func (p *ChromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *ChromePage) Navigate(ctx context.Context, url string) error {
	err := p.run(ctx, p.opts.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return &NavigationError{URL: url, Err: err}
	}
	return nil
}

func (p *ChromePage) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, p.opts.QueryTimeout, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return strings.TrimSpace(title), nil
}

func (p *ChromePage) Snapshot(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := p.run(ctx, p.opts.QueryTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read page html: %w", err)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (p *ChromePage) Exists(ctx context.Context, selector string) (bool, error) {
	n, err := p.Count(ctx, selector)
	return n > 0, err
}

func (p *ChromePage) Count(ctx context.Context, selector string) (int, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, p.opts.QueryTimeout,
		chromedp.Nodes(selector, &nodes, queryAll(selector), chromedp.AtLeast(0)),
	)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (p *ChromePage) Click(ctx context.Context, selector string) error {
	return p.run(ctx, p.opts.QueryTimeout, chromedp.Click(selector, queryOne(selector)))
}

func (p *ChromePage) Reset(ctx context.Context) error {
	return p.run(ctx, p.opts.QueryTimeout, chromedp.Navigate("about:blank"))
}

func (p *ChromePage) Close() error {
	p.cancel()
	return nil
}

func queryAll(selector string) chromedp.QueryOption {
	if IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQueryAll
}

func queryOne(selector string) chromedp.QueryOption {
	if IsXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
