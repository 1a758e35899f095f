package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for platform scrapes and searches.
type Metrics struct {
	Registry          *prometheus.Registry
	ScrapesTotal      *prometheus.CounterVec
	ScrapeDuration    *prometheus.HistogramVec
	ListingsTotal     *prometheus.CounterVec
	CacheHitsTotal    *prometheus.CounterVec
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	SearchesCancelled prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	scrapes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_scrapes_total",
			Help: "Platform scrapes by outcome (ok, empty, error, cached).",
		},
		[]string{"platform", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricescout_scrape_duration_seconds",
			Help:    "Wall time of uncached platform scrapes.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 15, 20, 30},
		},
		[]string{"platform"},
	)
	listings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_listings_total",
			Help: "Listings extracted per platform.",
		},
		[]string{"platform"},
	)
	cacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_cache_hits_total",
			Help: "Scrapes served from the result cache.",
		},
		[]string{"platform"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_fetch_retries_total",
			Help: "Total number of fetch retries.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricescout_errors_total",
			Help: "Scrape errors by type.",
		},
		[]string{"error_type"},
	)
	cancelled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricescout_searches_cancelled_total",
			Help: "Searches whose results were discarded after cancellation.",
		},
	)

	registry.MustRegister(scrapes, duration, listings, cacheHits, retries, errorsTotal, cancelled)

	return &Metrics{
		Registry:          registry,
		ScrapesTotal:      scrapes,
		ScrapeDuration:    duration,
		ListingsTotal:     listings,
		CacheHitsTotal:    cacheHits,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
		SearchesCancelled: cancelled,
	}
}

// ObserveScrape records one finished scrape.
func (m *Metrics) ObserveScrape(platform, outcome string, listings int, d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapesTotal.WithLabelValues(platform, outcome).Inc()
	m.ListingsTotal.WithLabelValues(platform).Add(float64(listings))
	if outcome != "cached" {
		m.ScrapeDuration.WithLabelValues(platform).Observe(d.Seconds())
	}
}

// IncCacheHit counts a cache hit for platform.
func (m *Metrics) IncCacheHit(platform string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(platform).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncCancelled counts a discarded search.
func (m *Metrics) IncCancelled() {
	if m == nil {
		return
	}
	m.SearchesCancelled.Inc()
}
