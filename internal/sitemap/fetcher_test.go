package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherSendsUserAgent(t *testing.T) {
	var agent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		w.Write([]byte("<urlset/>"))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(time.Second, "shop-crawler/1.0").Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<urlset/>", string(body))
	assert.Equal(t, "shop-crawler/1.0", agent)
}

func TestHTTPFetcherNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(time.Second, "test").Fetch(context.Background(), server.URL)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "status 503")
}

func TestHTTPFetcherTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("<urlset/>"))
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(20*time.Millisecond, "test").Fetch(context.Background(), server.URL)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 0, fetchErr.StatusCode)
}

func TestHTTPFetcherGunzipsRawGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(`<urlset><url><loc>https://shop.test/a</loc></url></urlset>`))
	zw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(time.Second, "test").Fetch(context.Background(), server.URL+"/sitemap.xml.gz")
	require.NoError(t, err)
	assert.Contains(t, string(body), "https://shop.test/a")
}
