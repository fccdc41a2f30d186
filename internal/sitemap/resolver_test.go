package sitemap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sitemapServer struct {
	*httptest.Server
	docs   map[string]string
	delays map[string]time.Duration
	hits   atomic.Int32
}

func newSitemapServer(t *testing.T) *sitemapServer {
	s := &sitemapServer{
		docs:   map[string]string{},
		delays: map[string]time.Duration{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if d, ok := s.delays[r.URL.Path]; ok {
			time.Sleep(d)
		}
		body, ok := s.docs[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

// body templates use {base} for the server URL
func (s *sitemapServer) add(path, body string) {
	s.docs[path] = strings.ReplaceAll(body, "{base}", s.URL)
}

func urlset(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<url><loc>%s</loc></url>", l)
	}
	b.WriteString("</urlset>")
	return b.String()
}

func index(locs ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	for _, l := range locs {
		fmt.Fprintf(&b, "<sitemap><loc>%s</loc></sitemap>", l)
	}
	b.WriteString("</sitemapindex>")
	return b.String()
}

func newTestResolver(opts ...Option) *Resolver {
	return NewResolver(NewHTTPFetcher(2*time.Second, "test-agent"), opts...)
}

func TestResolveLeafSitemap(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", urlset("https://shop.test/a", "https://shop.test/b"))

	entries, err := newTestResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []models.SitemapEntry{"https://shop.test/a", "https://shop.test/b"}, entries)
	assert.EqualValues(t, 1, srv.hits.Load())
}

func TestResolveIsRepeatable(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", index("{base}/one.xml", "{base}/two.xml"))
	srv.add("/one.xml", urlset("https://shop.test/a", "https://shop.test/b", "https://shop.test/c"))
	srv.add("/two.xml", urlset("https://shop.test/d", "https://shop.test/a"))

	r := newTestResolver(WithConcurrency(3))
	first, err := r.Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
}

func TestResolveIndexFlattensInChildOrder(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", index("{base}/c1.xml", "{base}/c2.xml"))
	srv.add("/c1.xml", urlset("a", "b"))
	srv.add("/c2.xml", urlset("c", "d"))
	// the first child answers last
	srv.delays["/c1.xml"] = 50 * time.Millisecond

	for _, concurrency := range []int{1, 2} {
		t.Run(fmt.Sprintf("concurrency-%d", concurrency), func(t *testing.T) {
			entries, err := newTestResolver(WithConcurrency(concurrency)).Resolve(context.Background(), srv.URL+"/sitemap.xml")
			require.NoError(t, err)
			assert.Equal(t, []models.SitemapEntry{"a", "b", "c", "d"}, entries)
		})
	}
}

func TestResolveUnrecognizedShapeIsEmpty(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", `<?xml version="1.0"?><feed><entry/></feed>`)

	entries, err := newTestResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestResolveKeepsDuplicatesByDefault(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", index("{base}/c1.xml", "{base}/c2.xml"))
	srv.add("/c1.xml", urlset("a", "b"))
	srv.add("/c2.xml", urlset("b", "c"))

	entries, err := newTestResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []models.SitemapEntry{"a", "b", "b", "c"}, entries)

	entries, err = newTestResolver(WithDeduplication(true)).Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []models.SitemapEntry{"a", "b", "c"}, entries)
}

func TestResolveNestedIndexIsNotFollowed(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", index("{base}/nested.xml", "{base}/leaf.xml"))
	srv.add("/nested.xml", index("{base}/deep.xml"))
	srv.add("/deep.xml", urlset("never"))
	srv.add("/leaf.xml", urlset("x"))

	entries, err := newTestResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []models.SitemapEntry{"x"}, entries)
	assert.EqualValues(t, 3, srv.hits.Load())
}

func TestResolveRootFetchError(t *testing.T) {
	srv := newSitemapServer(t)

	_, err := newTestResolver().Resolve(context.Background(), srv.URL+"/missing.xml")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
}

func TestResolveRootParseError(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", `<urlset><url><loc>a</loc>`)

	_, err := newTestResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, srv.URL+"/sitemap.xml", parseErr.URL)
}

func TestResolveChildFailureAbortsByDefault(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", index("{base}/ok.xml", "{base}/gone.xml"))
	srv.add("/ok.xml", urlset("a"))

	_, err := newTestResolver().Resolve(context.Background(), srv.URL+"/sitemap.xml")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, srv.URL+"/gone.xml", fetchErr.URL)
}

func TestResolvePartialIndexKeepsSiblings(t *testing.T) {
	srv := newSitemapServer(t)
	srv.add("/sitemap.xml", index("{base}/ok.xml", "{base}/gone.xml", "{base}/ok2.xml"))
	srv.add("/ok.xml", urlset("a"))
	srv.add("/ok2.xml", urlset("b"))

	res, err := newTestResolver(WithPartialIndex(true)).ResolveDetailed(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []models.SitemapEntry{"a", "b"}, res.Entries)
	assert.Equal(t, 3, res.Children)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, srv.URL+"/gone.xml", res.Failures[0].URL)
}

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

func TestResolveWrapsPlainFetcherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return nil, boom
	}))

	_, err := r.Resolve(context.Background(), "https://shop.test/sitemap.xml")
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.ErrorIs(t, err, boom)
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		t.Fatal("fetch must not run with a cancelled context")
		return nil, nil
	}))
	_, err := r.Resolve(ctx, "https://shop.test/sitemap.xml")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeduplicate(t *testing.T) {
	in := []models.SitemapEntry{"a", "b", "a", "c", "b"}
	assert.Equal(t, []models.SitemapEntry{"a", "b", "c"}, Deduplicate(in))
	assert.Empty(t, Deduplicate(nil))
}
