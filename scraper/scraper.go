// Package scraper turns a query into listings: per platform through Scraper,
// across platforms through Orchestrator.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/pricescout/cache"
	"github.com/aluiziolira/pricescout/fetch"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/parser"
	"github.com/aluiziolira/pricescout/platform"
)

// Scraper scrapes one platform at a time: cache lookup, fetch, parse,
// extract, cache write. It never returns an error; failures are reported in
// the PlatformResult.
type Scraper struct {
	registry *platform.Registry
	strategy fetch.Strategy
	cache    cache.Listings
	Metrics  *Metrics

	now func() time.Time
}

// New builds a scraper. A zero cache.Listings disables caching.
func New(reg *platform.Registry, strategy fetch.Strategy, results cache.Listings, metrics *Metrics) *Scraper {
	return &Scraper{
		registry: reg,
		strategy: strategy,
		cache:    results,
		Metrics:  metrics,
		now:      time.Now,
	}
}

// Registry exposes the platforms this scraper knows.
func (s *Scraper) Registry() *platform.Registry {
	return s.registry
}

// Scrape returns at most maxResults listings for query on the named platform.
// A non-positive maxResults means no limit.
func (s *Scraper) Scrape(ctx context.Context, name, query string, maxResults int) (result models.PlatformResult) {
	start := time.Now()
	result = models.PlatformResult{Platform: name, Products: []models.ProductListing{}}

	defer func() {
		if r := recover(); r != nil {
			result = s.failed(name, fmt.Errorf("scrape panic: %v", r), start)
		}
	}()

	p, ok := s.registry.Lookup(name)
	if !ok {
		return s.failed(name, fmt.Errorf("unknown platform %q", name), start)
	}
	result.Platform = p.Name
	key := cache.SearchKey(query, p.Name)

	cached, hit, err := s.cache.GetListings(ctx, key)
	if err != nil {
		slog.Warn("cache read failed", slog.String("platform", p.Name), slog.Any("error", err))
	}
	if hit {
		cached = capListings(cached, maxResults)
		s.Metrics.IncCacheHit(p.Name)
		s.Metrics.ObserveScrape(p.Name, "cached", len(cached), 0)
		return models.PlatformResult{
			Platform: p.Name,
			Products: cached,
			Count:    len(cached),
			Cached:   true,
		}
	}

	url := p.SearchURLFor(query)
	html, err := s.strategy.For(p).Fetch(ctx, url)
	if err != nil {
		return s.failed(p.Name, err, start)
	}
	doc, err := parser.ParseDocument(html)
	if err != nil {
		return s.failed(p.Name, err, start)
	}
	listings := parser.ExtractAll(doc, p.Source(), maxResults, s.now())

	if len(listings) > 0 {
		if err := s.cache.PutListings(ctx, key, listings); err != nil {
			slog.Warn("cache write failed", slog.String("platform", p.Name), slog.Any("error", err))
		}
	}

	elapsed := time.Since(start)
	outcome := "ok"
	if len(listings) == 0 {
		outcome = "empty"
	}
	s.Metrics.ObserveScrape(p.Name, outcome, len(listings), elapsed)
	slog.Info("platform scraped",
		slog.String("platform", p.Name),
		slog.String("query", query),
		slog.Int("listings", len(listings)),
		slog.Duration("elapsed", elapsed),
	)

	return models.PlatformResult{
		Platform:   p.Name,
		Products:   listings,
		Count:      len(listings),
		SearchTime: elapsed,
	}
}

func (s *Scraper) failed(name string, err error, start time.Time) models.PlatformResult {
	elapsed := time.Since(start)
	label := fetch.ErrorLabel(err)
	s.Metrics.IncError(label)
	s.Metrics.ObserveScrape(name, "error", 0, elapsed)
	slog.Error("platform scrape failed",
		slog.String("platform", name),
		slog.String("category", label),
		slog.Any("error", err),
	)
	return models.PlatformResult{
		Platform:   name,
		Products:   []models.ProductListing{},
		SearchTime: elapsed,
		Error:      err.Error(),
	}
}

func capListings(listings []models.ProductListing, max int) []models.ProductListing {
	if max > 0 && len(listings) > max {
		return listings[:max]
	}
	return listings
}
