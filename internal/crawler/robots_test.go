package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRobotsPolicyCachesPerHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "User-agent: shop-crawler\nDisallow: /checkout\n\nUser-agent: *\nDisallow: /\n")
	}))
	defer srv.Close()

	policy := NewRobotsPolicy(resty.New(), "shop-crawler", nil)

	ok, err := policy.Allowed(context.Background(), srv.URL+"/products/a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = policy.Allowed(context.Background(), srv.URL+"/checkout?step=1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int32(1), hits.Load())
}

func TestRobotsPolicyMissingFileAllowsAll(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	policy := NewRobotsPolicy(resty.New(), "shop-crawler", nil)
	ok, err := policy.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRobotsPolicyServerErrorDisallows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	policy := NewRobotsPolicy(resty.New(), "shop-crawler", nil)
	ok, err := policy.Allowed(context.Background(), srv.URL+"/anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRobotsPolicyInvalidURL(t *testing.T) {
	policy := NewRobotsPolicy(resty.New(), "shop-crawler", nil)
	_, err := policy.Allowed(context.Background(), "://bad")
	assert.Error(t, err)
}
