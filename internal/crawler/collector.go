package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/romangod6/shop-crawler/internal/extract"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/render"
	"github.com/romangod6/shop-crawler/internal/utils"
)

// ErrNoURLs is returned when a sitemap resolves but lists no pages.
var ErrNoURLs = errors.New("sitemap contains no URLs")

// ErrDisallowed marks a URL skipped because robots.txt forbids it.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const (
	kindAudit   = "audit"
	kindProduct = "product"
)

// SitemapResolver is the part of sitemap.Resolver the crawler needs.
type SitemapResolver interface {
	Resolve(ctx context.Context, rootURL string) ([]models.SitemapEntry, error)
}

// Crawler drives a browser over a list of URLs and extracts one record per
// URL. Records always come back in input order.
type Crawler struct {
	browser     render.Browser
	resolver    SitemapResolver
	products    *extract.ProductExtractor
	audits      *extract.AuditExtractor
	robots      *RobotsPolicy
	metrics     *Metrics
	logger      *utils.CrawlerLogger
	concurrency int
	delay       time.Duration
}

type Option func(*Crawler)

// WithConcurrency sets how many pages are processed at once. Each worker
// owns one page.
func WithConcurrency(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDelay pauses a worker between two URLs.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) { c.delay = d }
}

func WithRobots(policy *RobotsPolicy) Option {
	return func(c *Crawler) { c.robots = policy }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

func WithLogger(logger *utils.CrawlerLogger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCrawler(browser render.Browser, resolver SitemapResolver, products *extract.ProductExtractor, audits *extract.AuditExtractor, opts ...Option) *Crawler {
	c := &Crawler{
		browser:     browser,
		resolver:    resolver,
		products:    products,
		audits:      audits,
		logger:      utils.Discard(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Audit reads title, meta description and H1 of every URL.
func (c *Crawler) Audit(ctx context.Context, urls []string) ([]*models.PageAuditRecord, error) {
	return runBatch(ctx, c, kindAudit, urls,
		func(ctx context.Context, page render.Page, url string) (*models.PageAuditRecord, error) {
			rec := c.audits.Extract(ctx, page, url)
			if rec.Failed() {
				return rec, errors.New(rec.Error)
			}
			return rec, nil
		},
		models.NewFailedAudit,
	)
}

// ScrapeProducts extracts a product record from every URL.
func (c *Crawler) ScrapeProducts(ctx context.Context, urls []string) ([]*models.ProductRecord, error) {
	return runBatch(ctx, c, kindProduct, urls, c.products.Extract, models.NewFailedProduct)
}

// ScrapeProduct extracts a single product. Unlike the batch methods a page
// that cannot be loaded is returned as an error.
func (c *Crawler) ScrapeProduct(ctx context.Context, url string) (*models.ProductRecord, error) {
	page, err := c.browser.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer page.Close()

	start := time.Now()
	rec, err := visit(ctx, c, page, url, c.products.Extract)
	c.metrics.observePage(kindProduct, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AuditSitemap resolves sitemapURL and audits at most limit of its pages.
// A limit of zero or less means all pages.
func (c *Crawler) AuditSitemap(ctx context.Context, sitemapURL string, limit int) ([]*models.PageAuditRecord, error) {
	urls, err := c.resolve(ctx, sitemapURL, limit)
	if err != nil {
		return nil, err
	}
	return c.Audit(ctx, urls)
}

func (c *Crawler) ScrapeSitemap(ctx context.Context, sitemapURL string, limit int) ([]*models.ProductRecord, error) {
	urls, err := c.resolve(ctx, sitemapURL, limit)
	if err != nil {
		return nil, err
	}
	return c.ScrapeProducts(ctx, urls)
}

func (c *Crawler) resolve(ctx context.Context, sitemapURL string, limit int) ([]string, error) {
	entries, err := c.resolver.Resolve(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sitemap: %w", err)
	}
	c.metrics.observeSitemap(len(entries))
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", sitemapURL, ErrNoURLs)
	}

	urls := models.Strings(entries)
	if limit > 0 && len(urls) > limit {
		c.logger.LogInfo("Limiting run to the first %d of %d URLs", limit, len(urls))
		urls = urls[:limit]
	}
	return urls, nil
}

type extractFunc[T any] func(ctx context.Context, page render.Page, url string) (T, error)

// runBatch fans urls out to the crawler's workers. Every URL produces exactly
// one result; failures are turned into records by fail. The returned error
// is non-nil only when no page could be opened or ctx was cancelled.
func runBatch[T any](ctx context.Context, c *Crawler, kind string, urls []string, fn extractFunc[T], fail func(string, error) T) ([]T, error) {
	results := make([]T, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	workers := min(c.concurrency, len(urls))
	pages := make([]render.Page, 0, workers)
	defer func() {
		for _, p := range pages {
			if err := p.Close(); err != nil {
				c.logger.LogError("Error closing page: %v", err)
			}
		}
	}()
	for i := 0; i < workers; i++ {
		page, err := c.browser.NewPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		pages = append(pages, page)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var done, failed int
	var mu sync.Mutex

	for _, page := range pages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				url := urls[idx]
				start := time.Now()

				rec, err := visit(ctx, c, page, url, fn)
				if err != nil {
					c.logger.LogError("Failed %s: %v", url, err)
					rec = fail(url, err)
				}
				results[idx] = rec
				c.metrics.observePage(kind, err, time.Since(start))

				mu.Lock()
				done++
				if err != nil {
					failed++
				}
				c.logger.LogInfo("Processed URL %d/%d: %s", done, len(urls), url)
				mu.Unlock()

				if err := page.Reset(ctx); err != nil {
					c.logger.LogDebug("Error resetting page after %s: %v", url, err)
				}
				if c.delay > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(c.delay):
					}
				}
			}
		}()
	}

	for idx := range urls {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	c.logger.LogInfo("Finished %s run: %d URLs, %d failed", kind, len(urls), failed)
	return results, ctx.Err()
}

func visit[T any](ctx context.Context, c *Crawler, page render.Page, url string, fn extractFunc[T]) (T, error) {
	var zero T
	if c.robots != nil {
		allowed, err := c.robots.Allowed(ctx, url)
		if err != nil {
			return zero, err
		}
		if !allowed {
			return zero, fmt.Errorf("%s: %w", url, ErrDisallowed)
		}
	}

	if err := page.Navigate(ctx, url); err != nil {
		return zero, err
	}
	return fn(ctx, page, url)
}
