package crawler

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	prometheusLabelKind    = "kind"
	prometheusLabelOutcome = "outcome"

	outcomeOK         = "ok"
	outcomeFailed     = "failed"
	outcomeDisallowed = "disallowed"
)

// Metrics are the crawler's prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	pages        *prometheus.CounterVec
	durations    *prometheus.SummaryVec
	sitemapURLs  prometheus.Counter
	sitemapEmpty prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_pages_total",
				Help: "Pages visited, by run kind and outcome.",
			},
			[]string{prometheusLabelKind, prometheusLabelOutcome},
		),
		durations: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "crawler_page_duration_seconds",
				Help:       "Time spent on one page including navigation and extraction.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{prometheusLabelKind},
		),
		sitemapURLs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_sitemap_urls_total",
			Help: "URLs resolved from sitemaps.",
		}),
		sitemapEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crawler_sitemap_empty_total",
			Help: "Sitemaps that resolved to no URLs.",
		}),
	}

	for _, c := range []prometheus.Collector{m.pages, m.durations, m.sitemapURLs, m.sitemapEmpty} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observePage(kind string, err error, took time.Duration) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(kind, outcome(err)).Inc()
	m.durations.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Metrics) observeSitemap(urls int) {
	if m == nil {
		return
	}
	if urls == 0 {
		m.sitemapEmpty.Inc()
		return
	}
	m.sitemapURLs.Add(float64(urls))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrDisallowed):
		return outcomeDisallowed
	default:
		return outcomeFailed
	}
}
