package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/pricescout/cache"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/platform"
	"github.com/aluiziolira/pricescout/ranking"
	"github.com/aluiziolira/pricescout/worker"
)

// ErrSearchCancelled is returned by Search when its results were discarded.
var ErrSearchCancelled = errors.New("search cancelled")

// Orchestrator fans a query out to many platforms and merges the outcome.
type Orchestrator struct {
	Scraper *Scraper
	// Quick serves ScrapeQuick. When nil the quick path goes through Scraper.
	Quick   *worker.Runner
	Engine  *ranking.Engine
	Tracker *Tracker
	// Analysis caches scam detection per listing set. Zero disables it.
	Analysis cache.Listings
}

// NewOrchestrator wires an orchestrator with a default ranking engine and a
// fresh tracker.
func NewOrchestrator(s *Scraper, quick *worker.Runner) *Orchestrator {
	return &Orchestrator{
		Scraper: s,
		Quick:   quick,
		Engine:  ranking.NewEngine(),
		Tracker: NewTracker(),
	}
}

// ScrapeAll scrapes every requested platform concurrently and waits for all
// of them. Every requested platform gets an entry, failed or not. An empty
// platforms list means the whole registry.
func (o *Orchestrator) ScrapeAll(ctx context.Context, query string, platforms []string, maxResults int) map[string]models.PlatformResult {
	names := normalizeNames(platforms)
	if len(names) == 0 {
		names = o.Scraper.Registry().Names()
	}

	results := make(map[string]models.PlatformResult, len(names))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			res := o.scrapeOne(ctx, name, query, maxResults)
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) scrapeOne(ctx context.Context, name, query string, maxResults int) (res models.PlatformResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("platform scrape panicked", slog.String("platform", name), slog.Any("panic", r))
			res = models.PlatformResult{
				Platform: name,
				Products: []models.ProductListing{},
				Error:    fmt.Sprintf("scrape panic: %v", r),
			}
		}
	}()
	return o.Scraper.Scrape(ctx, name, query, maxResults)
}

// ScrapeQuick scrapes the curated fast platforms, each capped to
// platform.QuickMaxResults listings, through isolated workers.
func (o *Orchestrator) ScrapeQuick(ctx context.Context, query string) map[string]models.PlatformResult {
	if o.Quick == nil {
		return o.ScrapeAll(ctx, query, platform.QuickPlatforms, platform.QuickMaxResults)
	}

	pending := make(map[string]<-chan worker.Result, len(platform.QuickPlatforms))
	for _, name := range platform.QuickPlatforms {
		pending[name] = o.Quick.Invoke(ctx, worker.Task{
			Platform:   name,
			Query:      query,
			MaxResults: platform.QuickMaxResults,
		})
	}

	results := make(map[string]models.PlatformResult, len(pending))
	for name, ch := range pending {
		r := <-ch
		res := models.PlatformResult{
			Platform:   name,
			Products:   r.Products,
			Count:      len(r.Products),
			SearchTime: r.Elapsed,
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
			res.Count = 0
			slog.Warn("quick scrape failed", slog.String("platform", name), slog.Any("error", r.Err))
		}
		results[name] = res
	}
	return results
}

// SearchRequest describes a cancellable multi-platform search.
type SearchRequest struct {
	// ID lets the caller cancel the search through the Tracker before it
	// returns. Empty gets a generated id.
	ID         string
	Query      string
	Platforms  []string
	MaxResults int
	MaxPrice   float64
	MinRating  float64
	// Quick uses the curated fast path and ignores Platforms and MaxResults.
	Quick bool
}

// Search scrapes, filters and ranks. If the search is cancelled while in
// flight its results are discarded and ErrSearchCancelled is returned.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (models.SearchSummary, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return models.SearchSummary{}, fmt.Errorf("query cannot be empty")
	}

	id, sctx, done := o.Tracker.BeginID(ctx, req.ID)
	defer done()

	started := time.Now()
	var results map[string]models.PlatformResult
	if req.Quick {
		results = o.ScrapeQuick(sctx, query)
	} else {
		results = o.ScrapeAll(sctx, query, req.Platforms, req.MaxResults)
	}

	if sctx.Err() != nil {
		o.Scraper.Metrics.IncCancelled()
		slog.Info("search cancelled", slog.String("id", id), slog.String("query", query))
		return models.SearchSummary{}, fmt.Errorf("%w: %s", ErrSearchCancelled, id)
	}

	listings := Merge(results)
	filtered := ranking.ApplyFilter(listings, ranking.Filter{MaxPrice: req.MaxPrice, MinRating: req.MinRating})

	summary := models.SearchSummary{
		ID:            id,
		Query:         query,
		Results:       results,
		Listings:      filtered,
		TotalProducts: len(listings),
		StartedAt:     started,
		Duration:      time.Since(started),
	}
	if best, ok := o.Engine.FindBestDeal(filtered); ok {
		summary.BestDeal = &best
	}
	return summary, nil
}

// Suspicious returns the in-stock listings the ranking engine flags as likely
// scams, judged against the same in-stock set FindBestDeal and Rank use.
// Results are cached under the content hash of that set.
func (o *Orchestrator) Suspicious(ctx context.Context, listings []models.ProductListing) []models.ProductListing {
	listings = ranking.FilterAvailable(listings)
	if len(listings) == 0 {
		return []models.ProductListing{}
	}
	encoded, err := cache.EncodeListings(listings)
	if err != nil {
		return o.Engine.Flagged(listings)
	}
	key := cache.AnalysisKey(encoded)
	if hit, ok, err := o.Analysis.GetListings(ctx, key); err != nil {
		slog.Warn("analysis cache read failed", slog.Any("error", err))
	} else if ok {
		return hit
	}

	flagged := o.Engine.Flagged(listings)
	if err := o.Analysis.PutListings(ctx, key, flagged); err != nil {
		slog.Warn("analysis cache write failed", slog.Any("error", err))
	}
	return flagged
}

// Merge flattens results in platform-name order so repeated merges of the
// same results are identical.
func Merge(results map[string]models.PlatformResult) []models.ProductListing {
	names := make([]string, 0, len(results))
	total := 0
	for name, r := range results {
		names = append(names, name)
		total += len(r.Products)
	}
	sort.Strings(names)

	out := make([]models.ProductListing, 0, total)
	for _, name := range names {
		out = append(out, results[name].Products...)
	}
	return out
}

func normalizeNames(platforms []string) []string {
	seen := make(map[string]bool, len(platforms))
	out := make([]string, 0, len(platforms))
	for _, p := range platforms {
		name := strings.ToLower(strings.TrimSpace(p))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
