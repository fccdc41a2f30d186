package render

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStaticServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/product":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(specPage))
		case "/slow":
			time.Sleep(300 * time.Millisecond)
			w.Write([]byte(specPage))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestStaticPageNavigateAndQuery(t *testing.T) {
	server := newStaticServer(t)
	browser := NewStaticBrowser("test-agent", time.Second)
	defer browser.Close()

	page, err := browser.NewPage(context.Background())
	require.NoError(t, err)
	defer page.Close()

	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, server.URL+"/product"))

	title, err := page.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bus Plug", title)

	n, err := page.Count(ctx, "#specTable tr")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := page.Exists(ctx, `//span[text()="See More"]`)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, page.Click(ctx, "span.toggle"), ErrInteractionUnsupported)

	doc, err := page.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "600V", doc.Find("#specTable tr td").Eq(1).Text())

	// the same URL can be loaded again
	require.NoError(t, page.Navigate(ctx, server.URL+"/product"))
}

func TestStaticPageNavigationErrors(t *testing.T) {
	server := newStaticServer(t)
	page, err := NewStaticBrowser("test-agent", 50*time.Millisecond).NewPage(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	for _, path := range []string{"/missing", "/slow"} {
		err := page.Navigate(ctx, server.URL+path)
		var navErr *NavigationError
		require.True(t, errors.As(err, &navErr), "path %s", path)
		assert.Equal(t, server.URL+path, navErr.URL)
	}

	_, err = page.Snapshot(ctx)
	assert.Error(t, err, "a failed navigation must not leave the previous document behind")
}

func TestStaticPageReset(t *testing.T) {
	server := newStaticServer(t)
	page, err := NewStaticBrowser("test-agent", time.Second).NewPage(context.Background())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, page.Navigate(ctx, server.URL+"/product"))
	require.NoError(t, page.Reset(ctx))

	_, err = page.Title(ctx)
	assert.Error(t, err)
}
