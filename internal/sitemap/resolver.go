package sitemap

import (
	"context"
	"errors"

	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/utils"
	"golang.org/x/sync/errgroup"
)

// Resolver turns a root sitemap URL into the flat list of page URLs it
// describes, following at most one level of sitemap index indirection.
type Resolver struct {
	fetcher     Fetcher
	concurrency int
	dedupe      bool
	partial     bool
	logger      *utils.CrawlerLogger
}

type Option func(*Resolver)

// WithConcurrency bounds how many index children are fetched at once.
// Output order never depends on it.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithDeduplication drops repeated URLs, keeping the first occurrence.
func WithDeduplication(enabled bool) Option {
	return func(r *Resolver) { r.dedupe = enabled }
}

// WithPartialIndex keeps the URLs of healthy index children when siblings
// fail, reporting the failures in Resolution.Failures instead of aborting.
func WithPartialIndex(enabled bool) Option {
	return func(r *Resolver) { r.partial = enabled }
}

func WithLogger(logger *utils.CrawlerLogger) Option {
	return func(r *Resolver) { r.logger = logger }
}

func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		concurrency: 1,
		logger:      utils.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type ChildFailure struct {
	URL string `json:"url"`
	Err error  `json:"-"`
}

type Resolution struct {
	Entries  []models.SitemapEntry
	Children int
	Failures []ChildFailure
}

func (r *Resolver) Resolve(ctx context.Context, rootURL string) ([]models.SitemapEntry, error) {
	res, err := r.ResolveDetailed(ctx, rootURL)
	if err != nil {
		return nil, err
	}
	return res.Entries, nil
}

func (r *Resolver) ResolveDetailed(ctx context.Context, rootURL string) (*Resolution, error) {
	doc, err := r.load(ctx, rootURL)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Entries: []models.SitemapEntry{}}

	switch d := doc.(type) {
	case models.URLSet:
		res.Entries = d.Entries
	case models.SitemapIndex:
		res.Children = len(d.Children)
		r.logger.LogInfo("Sitemap index %s lists %d child sitemaps", rootURL, len(d.Children))
		entries, failures, err := r.resolveChildren(ctx, d.Children)
		if err != nil {
			return nil, err
		}
		res.Entries = entries
		res.Failures = failures
	case models.UnrecognizedSitemap:
		r.logger.LogInfo("Sitemap %s has unrecognized root %q, no URLs found", rootURL, d.Root)
	}

	if r.dedupe {
		res.Entries = Deduplicate(res.Entries)
	}

	r.logger.LogInfo("Resolved %d URLs from %s", len(res.Entries), rootURL)
	return res, nil
}

func (r *Resolver) resolveChildren(ctx context.Context, children []models.SitemapEntry) ([]models.SitemapEntry, []ChildFailure, error) {
	results := make([][]models.SitemapEntry, len(children))
	childErrs := make([]error, len(children))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, child := range children {
		g.Go(func() error {
			entries, err := r.resolveLeaf(gctx, string(child))
			if err != nil {
				if r.partial {
					childErrs[i] = err
					return nil
				}
				return err
			}
			results[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entries := []models.SitemapEntry{}
	var failures []ChildFailure
	for i, childEntries := range results {
		if childErrs[i] != nil {
			r.logger.LogError("Child sitemap %s failed: %v", children[i], childErrs[i])
			failures = append(failures, ChildFailure{URL: string(children[i]), Err: childErrs[i]})
			continue
		}
		entries = append(entries, childEntries...)
	}

	return entries, failures, nil
}

func (r *Resolver) resolveLeaf(ctx context.Context, url string) ([]models.SitemapEntry, error) {
	doc, err := r.load(ctx, url)
	if err != nil {
		return nil, err
	}

	switch d := doc.(type) {
	case models.URLSet:
		r.logger.LogDebug("Child sitemap %s lists %d URLs", url, len(d.Entries))
		return d.Entries, nil
	case models.SitemapIndex:
		r.logger.LogInfo("Nested sitemap index %s ignored, only one level is followed", url)
	case models.UnrecognizedSitemap:
		r.logger.LogInfo("Child sitemap %s has unrecognized root %q", url, d.Root)
	}
	return nil, nil
}

func (r *Resolver) load(ctx context.Context, url string) (models.SitemapDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	body, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &FetchError{URL: url, Err: err}
	}

	doc, err := Decode(body)
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	return doc, nil
}

// Deduplicate keeps the first occurrence of every entry, preserving order.
func Deduplicate(entries []models.SitemapEntry) []models.SitemapEntry {
	seen := make(map[models.SitemapEntry]struct{}, len(entries))
	out := make([]models.SitemapEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
