// Package rendertest provides an in-memory render.Browser for tests.
package rendertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/romangod6/shop-crawler/internal/render"
)

// Site is the content served for one URL.
type Site struct {
	HTML string
	// RevealedHTML replaces HTML once a click succeeded.
	RevealedHTML string
	// RevealAfterPolls delays the revealed content until Count has been
	// called this many times after the click.
	RevealAfterPolls int
	NavErr           error
}

type Browser struct {
	mu         sync.Mutex
	sites      map[string]Site
	pages      []*Page
	NewPageErr error
	closed     bool
}

func NewBrowser(sites map[string]Site) *Browser {
	return &Browser{sites: sites}
}

func (b *Browser) NewPage(ctx context.Context) (render.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	p := &Page{browser: b}
	b.pages = append(b.pages, p)
	return p, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

func (b *Browser) site(url string) (Site, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sites[url]
	return s, ok
}

type Page struct {
	browser    *Browser
	current    string
	site       Site
	clicked    bool
	pollsAfter int
	Visited    []string
	Clicks     int
	Resets     int
	Closed     bool
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.Visited = append(p.Visited, url)
	p.current, p.clicked, p.pollsAfter = "", false, 0

	if err := ctx.Err(); err != nil {
		return &render.NavigationError{URL: url, Err: err}
	}
	site, ok := p.browser.site(url)
	if !ok {
		return &render.NavigationError{URL: url, Err: errors.New("404 Not Found")}
	}
	if site.NavErr != nil {
		return &render.NavigationError{URL: url, Err: site.NavErr}
	}
	p.current = url
	p.site = site
	return nil
}

func (p *Page) html() (string, error) {
	if p.current == "" {
		return "", errors.New("no page loaded")
	}
	if p.clicked && p.site.RevealedHTML != "" && p.pollsAfter >= p.site.RevealAfterPolls {
		return p.site.RevealedHTML, nil
	}
	return p.site.HTML, nil
}

func (p *Page) Snapshot(ctx context.Context) (*goquery.Document, error) {
	html, err := p.html()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (p *Page) Title(ctx context.Context) (string, error) {
	doc, err := p.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("title").First().Text()), nil
}

func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	doc, err := p.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	n, err := render.CountMatches(doc, selector)
	return n > 0, err
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	if p.clicked {
		p.pollsAfter++
	}
	doc, err := p.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return render.CountMatches(doc, selector)
}

func (p *Page) Click(ctx context.Context, selector string) error {
	ok, err := p.Exists(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no node matches %q", selector)
	}
	p.clicked = true
	p.Clicks++
	return nil
}

func (p *Page) Reset(ctx context.Context) error {
	p.current, p.clicked, p.pollsAfter = "", false, 0
	p.Resets++
	return nil
}

func (p *Page) Close() error {
	p.Closed = true
	return nil
}
