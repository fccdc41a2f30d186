package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/romangod6/shop-crawler/internal/utils"
	"github.com/temoto/robotstxt"
)

// RobotsPolicy answers whether the crawler's user agent may visit a URL.
// robots.txt is fetched once per scheme and host.
type RobotsPolicy struct {
	client    *resty.Client
	userAgent string
	logger    *utils.CrawlerLogger

	mu     sync.Mutex
	groups map[string]*robotstxt.Group
}

func NewRobotsPolicy(client *resty.Client, userAgent string, logger *utils.CrawlerLogger) *RobotsPolicy {
	if logger == nil {
		logger = utils.Discard()
	}
	return &RobotsPolicy{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		groups:    make(map[string]*robotstxt.Group),
	}
}

func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	group, err := p.group(ctx, u)
	if err != nil {
		return false, err
	}
	return group.Test(u.RequestURI()), nil
}

func (p *RobotsPolicy) group(ctx context.Context, u *url.URL) (*robotstxt.Group, error) {
	origin := u.Scheme + "://" + u.Host

	p.mu.Lock()
	defer p.mu.Unlock()

	if g, ok := p.groups[origin]; ok {
		return g, nil
	}

	data, err := p.fetch(ctx, origin)
	if err != nil {
		return nil, err
	}
	g := data.FindGroup(p.userAgent)
	p.groups[origin] = g
	return g, nil
}

// fetch treats an unreachable robots.txt as allowing everything, the same
// way a 404 is treated.
func (p *RobotsPolicy) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", p.userAgent).
		Get(origin + "/robots.txt")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.LogWarn("Could not fetch robots.txt for %s, allowing all: %v", origin, err)
		return robotstxt.FromStatusAndBytes(404, nil)
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode(), resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt for %s: %w", origin, err)
	}
	p.logger.LogDebug("Loaded robots.txt for %s (status %d)", origin, resp.StatusCode())
	return data, nil
}
