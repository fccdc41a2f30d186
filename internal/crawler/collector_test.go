package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/romangod6/shop-crawler/internal/extract"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/render"
	"github.com/romangod6/shop-crawler/internal/render/rendertest"
	"github.com/romangod6/shop-crawler/internal/sitemap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, rootURL string) ([]models.SitemapEntry, error) {
	args := m.Called(ctx, rootURL)
	entries, _ := args.Get(0).([]models.SitemapEntry)
	return entries, args.Error(1)
}

func productHTML(title, sku string) string {
	return fmt.Sprintf(`<html><head><title>%[1]s</title>
<meta name="description" content="About %[1]s"></head><body>
<h1>%[1]s</h1><span itemprop="name">%[2]s</span>
<label itemprop="offers"><span>$10</span></label>
<table id="specTable"><tr><td>Color</td><td>Red</td></tr></table>
</body></html>`, title, sku)
}

func testSites() map[string]rendertest.Site {
	return map[string]rendertest.Site{
		"https://shop.example/a": {HTML: productHTML("Alpha", "A-1")},
		"https://shop.example/b": {HTML: productHTML("Beta", "B-2"), NavErr: context.DeadlineExceeded},
		"https://shop.example/c": {HTML: productHTML("Gamma", "C-3")},
	}
}

var batch = []string{"https://shop.example/a", "https://shop.example/b", "https://shop.example/c"}

func newTestCrawler(browser render.Browser, resolver SitemapResolver, opts ...Option) *Crawler {
	products := extract.NewProductExtractor(extract.ProductOptions{
		BaseOrigin:         "https://shop.example",
		RevealTimeout:      50 * time.Millisecond,
		RevealPollInterval: time.Millisecond,
	}, nil)
	audits := extract.NewAuditExtractor(extract.AuditSelectors{})
	return NewCrawler(browser, resolver, products, audits, opts...)
}

func TestScrapeProductsContainsFailures(t *testing.T) {
	browser := rendertest.NewBrowser(testSites())
	c := newTestCrawler(browser, nil)

	records, err := c.ScrapeProducts(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Alpha", records[0].Title)
	assert.Equal(t, "A-1", records[0].SKU)
	assert.False(t, records[0].Failed())

	assert.Equal(t, "https://shop.example/b", records[1].URL)
	assert.True(t, records[1].Failed())
	assert.Contains(t, records[1].Error, "deadline exceeded")

	assert.Equal(t, "Gamma", records[2].Title)
	assert.Equal(t, map[string]string{"Color": "Red"}, records[2].Specifications)
}

func TestAuditPreservesOrderWithWorkers(t *testing.T) {
	browser := rendertest.NewBrowser(testSites())
	c := newTestCrawler(browser, nil, WithConcurrency(2))

	records, err := c.Audit(context.Background(), batch)
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i, url := range batch {
		assert.Equal(t, url, records[i].URL)
	}
	assert.Equal(t, "Alpha", records[0].H1)
	assert.Equal(t, "About Alpha", records[0].MetaDescription)
	assert.True(t, records[1].Failed())
	assert.Equal(t, "Gamma", records[2].Title)

	pages := browser.Pages()
	assert.Len(t, pages, 2)
	resets := 0
	for _, p := range pages {
		assert.True(t, p.Closed)
		resets += p.Resets
	}
	assert.Equal(t, 3, resets)
}

func TestRunBatchEmpty(t *testing.T) {
	browser := rendertest.NewBrowser(nil)
	c := newTestCrawler(browser, nil)

	records, err := c.Audit(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, browser.Pages())
}

func TestRunBatchPageOpenFailure(t *testing.T) {
	browser := rendertest.NewBrowser(testSites())
	browser.NewPageErr = errors.New("browser crashed")
	c := newTestCrawler(browser, nil)

	_, err := c.ScrapeProducts(context.Background(), batch)
	assert.ErrorContains(t, err, "browser crashed")
}

func TestScrapeProduct(t *testing.T) {
	browser := rendertest.NewBrowser(testSites())
	c := newTestCrawler(browser, nil)

	rec, err := c.ScrapeProduct(context.Background(), "https://shop.example/c")
	require.NoError(t, err)
	assert.Equal(t, "C-3", rec.SKU)

	_, err = c.ScrapeProduct(context.Background(), "https://shop.example/b")
	var navErr *render.NavigationError
	assert.ErrorAs(t, err, &navErr)
}

func TestAuditSitemapAppliesLimit(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, "https://shop.example/sitemap.xml").
		Return([]models.SitemapEntry{"https://shop.example/a", "https://shop.example/b", "https://shop.example/c"}, nil)

	c := newTestCrawler(rendertest.NewBrowser(testSites()), resolver)
	records, err := c.AuditSitemap(context.Background(), "https://shop.example/sitemap.xml", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://shop.example/b", records[1].URL)
	resolver.AssertExpectations(t)
}

func TestScrapeSitemapNoURLs(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, "https://shop.example/sitemap.xml").
		Return([]models.SitemapEntry{}, nil)

	c := newTestCrawler(rendertest.NewBrowser(testSites()), resolver)
	_, err := c.ScrapeSitemap(context.Background(), "https://shop.example/sitemap.xml", 0)
	assert.ErrorIs(t, err, ErrNoURLs)
}

func TestScrapeSitemapFetchErrorAborts(t *testing.T) {
	fetchErr := &sitemap.FetchError{URL: "https://shop.example/sitemap.xml", StatusCode: http.StatusBadGateway}
	resolver := &mockResolver{}
	resolver.On("Resolve", mock.Anything, mock.Anything).Return(nil, fetchErr)

	browser := rendertest.NewBrowser(testSites())
	c := newTestCrawler(browser, resolver)
	_, err := c.ScrapeSitemap(context.Background(), "https://shop.example/sitemap.xml", 0)

	var target *sitemap.FetchError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, http.StatusBadGateway, target.StatusCode)
	assert.Empty(t, browser.Pages())
}

func TestRobotsDisallowedRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	}))
	defer srv.Close()

	sites := map[string]rendertest.Site{
		srv.URL + "/public":  {HTML: productHTML("Public", "P-1")},
		srv.URL + "/private": {HTML: productHTML("Private", "P-2")},
	}
	browser := rendertest.NewBrowser(sites)
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	require.NoError(t, err)

	c := newTestCrawler(browser, nil,
		WithRobots(NewRobotsPolicy(resty.New(), "shop-crawler", nil)),
		WithMetrics(metrics),
	)

	records, err := c.Audit(context.Background(), []string{srv.URL + "/public", srv.URL + "/private"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.False(t, records[0].Failed())
	assert.True(t, records[1].Failed())
	assert.Contains(t, records[1].Error, ErrDisallowed.Error())

	// the disallowed URL is never navigated
	assert.Equal(t, []string{srv.URL + "/public"}, browser.Pages()[0].Visited)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.pages.WithLabelValues(kindAudit, outcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.pages.WithLabelValues(kindAudit, outcomeDisallowed)))
}

func TestCancelledBatchStillYieldsRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestCrawler(rendertest.NewBrowser(testSites()), nil)
	records, err := c.ScrapeProducts(ctx, batch)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.True(t, rec.Failed())
	}
}
