package render

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// StaticBrowser fetches pages over plain HTTP without executing scripts.
type StaticBrowser struct {
	userAgent string
	timeout   time.Duration
}

func NewStaticBrowser(userAgent string, timeout time.Duration) *StaticBrowser {
	return &StaticBrowser{
		userAgent: userAgent,
		timeout:   timeout,
	}
}

func (b *StaticBrowser) NewPage(ctx context.Context) (Page, error) {
	c := colly.NewCollector(
		colly.UserAgent(b.userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(b.timeout)

	p := &StaticPage{collector: c}
	c.OnResponse(func(r *colly.Response) {
		p.body = r.Body
		p.url = r.Request.URL
	})
	return p, nil
}

func (b *StaticBrowser) Close() error {
	return nil
}

type StaticPage struct {
	collector *colly.Collector
	body      []byte
	url       *url.URL
	doc       *goquery.Document
}

func (p *StaticPage) Navigate(ctx context.Context, target string) error {
	p.body, p.url, p.doc = nil, nil, nil

	if err := ctx.Err(); err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	if err := p.collector.Visit(target); err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	if p.body == nil {
		return &NavigationError{URL: target, Err: errors.New("empty response")}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	doc.Url = p.url
	p.doc = doc
	return nil
}

func (p *StaticPage) document() (*goquery.Document, error) {
	if p.doc == nil {
		return nil, errors.New("no page loaded")
	}
	return p.doc, nil
}

func (p *StaticPage) Title(ctx context.Context) (string, error) {
	doc, err := p.document()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (p *StaticPage) Snapshot(ctx context.Context) (*goquery.Document, error) {
	return p.document()
}

func (p *StaticPage) Exists(ctx context.Context, selector string) (bool, error) {
	n, err := p.Count(ctx, selector)
	return n > 0, err
}

func (p *StaticPage) Count(ctx context.Context, selector string) (int, error) {
	doc, err := p.document()
	if err != nil {
		return 0, err
	}
	return CountMatches(doc, selector)
}

func (p *StaticPage) Click(ctx context.Context, selector string) error {
	return ErrInteractionUnsupported
}

func (p *StaticPage) Reset(ctx context.Context) error {
	p.body, p.url, p.doc = nil, nil, nil
	return nil
}

func (p *StaticPage) Close() error {
	return nil
}
