package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/romangod6/shop-crawler/internal/extract"
	"github.com/spf13/viper"
)

const (
	RendererChrome = "chrome"
	RendererStatic = "static"
)

type Config struct {
	Database struct {
		URL string
	}
	Server struct {
		Port int
	}
	Crawler        CrawlerConfig
	Selectors      extract.Selectors
	AuditSelectors extract.AuditSelectors
}

type CrawlerConfig struct {
	SitemapURL         string
	BaseOrigin         string
	UserAgent          string
	Renderer           string
	Headless           bool
	ChromePath         string
	FetchTimeout       time.Duration
	NavigationTimeout  time.Duration
	RevealTimeout      time.Duration
	RevealPollInterval time.Duration
	Concurrency        int
	SitemapConcurrency int
	Limit              int
	Delay              time.Duration
	Dedupe             bool
	PartialIndex       bool
	RespectRobots      bool
	Breadcrumbs        bool
	Interval           time.Duration
	LogDir             string
}

// LoadConfig reads config.yaml from . or ./config, or the file at path when
// path is set. Every key can be overridden from the environment with the
// CRAWLER_ prefix, e.g. CRAWLER_CRAWLER_CONCURRENCY=4. Only an explicit path
// has to exist.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	config.Selectors = config.Selectors.WithDefaults()
	config.AuditSelectors = config.AuditSelectors.WithDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "crawler.db")
	v.SetDefault("server.port", 8080)

	v.SetDefault("crawler.sitemapurl", "")
	v.SetDefault("crawler.baseorigin", "")
	v.SetDefault("crawler.useragent", "Shop Crawler Bot v1.0")
	v.SetDefault("crawler.renderer", RendererChrome)
	v.SetDefault("crawler.headless", true)
	v.SetDefault("crawler.chromepath", "")
	v.SetDefault("crawler.fetchtimeout", "30s")
	v.SetDefault("crawler.navigationtimeout", "60s")
	v.SetDefault("crawler.revealtimeout", "5s")
	v.SetDefault("crawler.revealpollinterval", "250ms")
	v.SetDefault("crawler.concurrency", 1)
	v.SetDefault("crawler.sitemapconcurrency", 1)
	v.SetDefault("crawler.limit", 0)
	v.SetDefault("crawler.delay", "0s")
	v.SetDefault("crawler.dedupe", false)
	v.SetDefault("crawler.partialindex", false)
	v.SetDefault("crawler.respectrobots", false)
	v.SetDefault("crawler.breadcrumbs", true)
	v.SetDefault("crawler.interval", "24h")
	v.SetDefault("crawler.logdir", "logs")

	s := extract.DefaultSelectors()
	for key, value := range map[string]string{
		"title":             s.Title,
		"sku":               s.SKU,
		"price":             s.Price,
		"pricefallback":     s.PriceFallback,
		"pricefallbackattr": s.PriceFallbackAttr,
		"description":       s.Description,
		"stock":             s.Stock,
		"images":            s.Images,
		"imageattr":         s.ImageAttr,
		"specrows":          s.SpecRows,
		"speckey":           s.SpecKey,
		"specvalue":         s.SpecValue,
		"breadcrumbs":       s.Breadcrumbs,
		"reveal":            s.Reveal,
	} {
		v.SetDefault("selectors."+key, value)
	}

	a := extract.DefaultAuditSelectors()
	v.SetDefault("auditselectors.metadescription", a.MetaDescription)
	v.SetDefault("auditselectors.metadescriptionattr", a.MetaDescriptionAttr)
	v.SetDefault("auditselectors.h1", a.H1)
}

func (c *Config) Validate() error {
	switch c.Crawler.Renderer {
	case RendererChrome, RendererStatic:
	default:
		return fmt.Errorf("invalid crawler.renderer %q: must be %q or %q", c.Crawler.Renderer, RendererChrome, RendererStatic)
	}
	if c.Crawler.Concurrency < 1 {
		return fmt.Errorf("invalid crawler.concurrency %d: must be at least 1", c.Crawler.Concurrency)
	}
	if c.Crawler.SitemapConcurrency < 1 {
		return fmt.Errorf("invalid crawler.sitemapconcurrency %d: must be at least 1", c.Crawler.SitemapConcurrency)
	}
	return nil
}

func (c *Config) GetCrawlInterval() time.Duration {
	if c.Crawler.Interval <= 0 {
		return 24 * time.Hour
	}
	return c.Crawler.Interval
}
