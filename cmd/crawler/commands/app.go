package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/romangod6/shop-crawler/config"
	"github.com/romangod6/shop-crawler/internal/crawler"
	"github.com/romangod6/shop-crawler/internal/extract"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/render"
	"github.com/romangod6/shop-crawler/internal/report"
	"github.com/romangod6/shop-crawler/internal/sitemap"
	"github.com/romangod6/shop-crawler/internal/utils"
)

// app is the wired crawler shared by every command.
type app struct {
	browser  render.Browser
	resolver *sitemap.Resolver
	crawler  *crawler.Crawler
	registry *prometheus.Registry
	logger   *utils.CrawlerLogger
}

func newApp(cfg *config.Config, runName string) (*app, error) {
	logger, err := utils.NewCrawlerLogger(cfg.Crawler.LogDir, runName)
	if err != nil {
		return nil, err
	}
	logger.SetDebug(debug)

	browser, err := newBrowser(cfg)
	if err != nil {
		logger.Close()
		return nil, err
	}

	fetcher := sitemap.NewHTTPFetcher(cfg.Crawler.FetchTimeout, cfg.Crawler.UserAgent)
	resolver := sitemap.NewResolver(fetcher,
		sitemap.WithConcurrency(cfg.Crawler.SitemapConcurrency),
		sitemap.WithDeduplication(cfg.Crawler.Dedupe),
		sitemap.WithPartialIndex(cfg.Crawler.PartialIndex),
		sitemap.WithLogger(logger),
	)

	registry := prometheus.NewRegistry()
	metrics, err := crawler.NewMetrics(registry)
	if err != nil {
		browser.Close()
		logger.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	products := extract.NewProductExtractor(extract.ProductOptions{
		BaseOrigin:         cfg.Crawler.BaseOrigin,
		Selectors:          cfg.Selectors,
		IncludeBreadcrumbs: cfg.Crawler.Breadcrumbs,
		RevealTimeout:      cfg.Crawler.RevealTimeout,
		RevealPollInterval: cfg.Crawler.RevealPollInterval,
	}, logger)
	audits := extract.NewAuditExtractor(cfg.AuditSelectors)

	opts := []crawler.Option{
		crawler.WithConcurrency(cfg.Crawler.Concurrency),
		crawler.WithDelay(cfg.Crawler.Delay),
		crawler.WithMetrics(metrics),
		crawler.WithLogger(logger),
	}
	if cfg.Crawler.RespectRobots {
		opts = append(opts, crawler.WithRobots(crawler.NewRobotsPolicy(fetcher.Client(), cfg.Crawler.UserAgent, logger)))
	}

	return &app{
		browser:  browser,
		resolver: resolver,
		crawler:  crawler.NewCrawler(browser, resolver, products, audits, opts...),
		registry: registry,
		logger:   logger,
	}, nil
}

func newBrowser(cfg *config.Config) (render.Browser, error) {
	switch cfg.Crawler.Renderer {
	case config.RendererStatic:
		return render.NewStaticBrowser(cfg.Crawler.UserAgent, cfg.Crawler.NavigationTimeout), nil
	default:
		browser, err := render.NewChromeBrowser(render.ChromeOptions{
			UserAgent:         cfg.Crawler.UserAgent,
			Headless:          cfg.Crawler.Headless,
			NavigationTimeout: cfg.Crawler.NavigationTimeout,
			ExecPath:          cfg.Crawler.ChromePath,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
		return browser, nil
	}
}

func (a *app) Close() {
	if err := a.browser.Close(); err != nil {
		a.logger.LogError("Error closing browser: %v", err)
	}
	a.logger.Close()
}

// output opens path for writing, or returns stdout when path is empty.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

func writeAudit(w io.Writer, format string, records []*models.PageAuditRecord) error {
	switch format {
	case "csv":
		return report.WriteAuditCSV(w, records)
	case "json":
		return report.WriteJSON(w, records)
	case "table":
		report.RenderAuditTable(w, records)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeProducts(w io.Writer, format string, records []*models.ProductRecord) error {
	switch format {
	case "csv":
		return report.WriteProductCSV(w, records)
	case "json":
		return report.WriteJSON(w, records)
	case "table":
		report.RenderProductTable(w, records)
		return nil
	}
	return fmt.Errorf("unknown format %q", format)
}

func validFormat(format string) error {
	switch format {
	case "csv", "json", "table":
		return nil
	}
	return fmt.Errorf("invalid --format %q: must be csv, json or table", format)
}
