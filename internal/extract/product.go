package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/render"
	"github.com/romangod6/shop-crawler/internal/utils"
)

// ErrRevealTimeout means the specification table did not settle after the
// reveal click within the configured timeout.
var ErrRevealTimeout = errors.New("timed out waiting for revealed specifications")

const (
	DefaultRevealTimeout      = 5 * time.Second
	DefaultRevealPollInterval = 250 * time.Millisecond
)

type ProductOptions struct {
	// BaseOrigin prefixes relative image sources, e.g. "https://shop.example".
	BaseOrigin         string
	Selectors          Selectors
	IncludeBreadcrumbs bool
	RevealTimeout      time.Duration
	RevealPollInterval time.Duration
}

type ProductExtractor struct {
	opts   ProductOptions
	logger *utils.CrawlerLogger
}

func NewProductExtractor(opts ProductOptions, logger *utils.CrawlerLogger) *ProductExtractor {
	opts.Selectors = opts.Selectors.WithDefaults()
	if opts.RevealTimeout <= 0 {
		opts.RevealTimeout = DefaultRevealTimeout
	}
	if opts.RevealPollInterval <= 0 {
		opts.RevealPollInterval = DefaultRevealPollInterval
	}
	if logger == nil {
		logger = utils.Discard()
	}
	return &ProductExtractor{opts: opts, logger: logger}
}

func (e *ProductExtractor) Options() ProductOptions {
	return e.opts
}

// Extract reads a product record from a page that has already been
// navigated to pageURL. Only a failed snapshot is returned as an error;
// missing fields and reveal problems are recorded on the record.
func (e *ProductExtractor) Extract(ctx context.Context, page render.Page, pageURL string) (*models.ProductRecord, error) {
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %s: %w", pageURL, err)
	}

	rec := models.NewProductRecord(pageURL)
	e.readFields(doc, rec)

	if err := e.reveal(ctx, page, rec); err != nil {
		e.logger.LogWarn("Reveal on %s: %v", pageURL, err)
		rec.Warnings = append(rec.Warnings, err.Error())
	}

	return rec, nil
}

func (e *ProductExtractor) readFields(doc *goquery.Document, rec *models.ProductRecord) {
	s := e.opts.Selectors

	rec.Title = e.text(doc, s.Title, "title", rec, CollapseWhitespace)
	rec.SKU = e.text(doc, s.SKU, "sku", rec, strings.TrimSpace)
	rec.Price = e.price(doc, rec)
	rec.Description = e.text(doc, s.Description, "description", rec, strings.TrimSpace)
	rec.InStock = e.text(doc, s.Stock, "inStock", rec, strings.TrimSpace)

	doc.Find(s.Images).Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr(s.ImageAttr)
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		rec.Images = append(rec.Images, AbsoluteURL(e.opts.BaseOrigin, src))
	})

	for _, p := range e.readSpecs(doc) {
		rec.Specifications[p.key] = p.value
	}

	if e.opts.IncludeBreadcrumbs {
		doc.Find(s.Breadcrumbs).Each(func(_ int, a *goquery.Selection) {
			rec.Breadcrumbs = append(rec.Breadcrumbs, strings.TrimSpace(a.Text()))
		})
	}
}

func (e *ProductExtractor) text(doc *goquery.Document, selector, field string, rec *models.ProductRecord, transform func(string) string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		rec.Missing = append(rec.Missing, field)
		return models.MissingValue
	}
	return transform(sel.Text())
}

func (e *ProductExtractor) price(doc *goquery.Document, rec *models.ProductRecord) string {
	s := e.opts.Selectors
	if v := strings.TrimSpace(doc.Find(s.Price).First().Text()); v != "" {
		return v
	}
	if v, ok := doc.Find(s.PriceFallback).First().Attr(s.PriceFallbackAttr); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	rec.Missing = append(rec.Missing, "price")
	return models.MissingValue
}

func (e *ProductExtractor) readSpecs(doc *goquery.Document) []specPair {
	s := e.opts.Selectors
	var pairs []specPair
	doc.Find(s.SpecRows).Each(func(_ int, row *goquery.Selection) {
		key := strings.TrimSpace(row.Find(s.SpecKey).First().Text())
		value := strings.TrimSpace(row.Find(s.SpecValue).Last().Text())
		if key == "" || value == "" {
			return
		}
		pairs = append(pairs, specPair{key: key, value: value})
	})
	return pairs
}

// reveal clicks the "see more" trigger when present, waits for the spec
// table to grow and merges the new rows. The merge still runs after a
// timeout so whatever did appear is kept.
func (e *ProductExtractor) reveal(ctx context.Context, page render.Page, rec *models.ProductRecord) error {
	trigger := e.opts.Selectors.Reveal
	if trigger == "" {
		return nil
	}

	present, err := page.Exists(ctx, trigger)
	if err != nil {
		return fmt.Errorf("failed to look up reveal trigger: %w", err)
	}
	if !present {
		return nil
	}

	before, err := page.Count(ctx, e.opts.Selectors.SpecRows)
	if err != nil {
		return fmt.Errorf("failed to count specification rows: %w", err)
	}

	if err := page.Click(ctx, trigger); err != nil {
		return fmt.Errorf("failed to click reveal trigger: %w", err)
	}

	waitErr := e.waitForRows(ctx, page, before)

	doc, err := page.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read revealed specifications: %w", err)
	}
	MergeSpecs(rec.Specifications, e.readSpecs(doc))

	return waitErr
}

// waitForRows polls the spec row count until it exceeds before and then
// holds for one interval.
func (e *ProductExtractor) waitForRows(ctx context.Context, page render.Page, before int) error {
	waitCtx, cancel := context.WithTimeout(ctx, e.opts.RevealTimeout)
	defer cancel()

	ticker := time.NewTicker(e.opts.RevealPollInterval)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("%w after %s (rows before %d, last seen %d)", ErrRevealTimeout, e.opts.RevealTimeout, before, last)
		case <-ticker.C:
			n, err := page.Count(waitCtx, e.opts.Selectors.SpecRows)
			if err != nil {
				if waitCtx.Err() != nil {
					continue
				}
				return fmt.Errorf("failed to count specification rows: %w", err)
			}
			if n > before && n == last {
				return nil
			}
			last = n
		}
	}
}
