package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/pricescout/browser"
	"github.com/aluiziolira/pricescout/cache"
	"github.com/aluiziolira/pricescout/config"
	"github.com/aluiziolira/pricescout/fetch"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/pipeline"
	"github.com/aluiziolira/pricescout/platform"
	"github.com/aluiziolira/pricescout/ranking"
	"github.com/aluiziolira/pricescout/scraper"
	"github.com/aluiziolira/pricescout/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment: %v\n", err)
		os.Exit(1)
	}

	query := flag.String("q", "", "Search query (or pass it as arguments)")
	platforms := flag.String("platforms", "", "Comma-separated platforms (default: all)")
	listPlatforms := flag.Bool("list-platforms", false, "Print supported platforms and exit")
	quick := flag.Bool("quick", false, "Search the fast platform subset with isolated workers")
	maxPrice := flag.Float64("max-price", 0, "Drop listings above this price (0 = no limit)")
	minRating := flag.Float64("min-rating", 0, "Drop listings rated below this value")
	top := flag.Int("top", 5, "Number of ranked listings to print")
	flag.IntVar(&cfg.MaxResults, "max", cfg.MaxResults, "Maximum listings per platform")
	flag.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request HTTP timeout")
	flag.DurationVar(&cfg.NavigationTimeout, "nav-timeout", cfg.NavigationTimeout, "Browser navigation timeout")
	flag.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries per static fetch")
	flag.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "Cache backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the redis cache backend")
	flag.StringVar(&cfg.BrowserMode, "browser", cfg.BrowserMode, "Browser mode for full searches: shared or isolated")
	flag.StringVar(&cfg.ChromeBin, "chrome", cfg.ChromeBin, "Chrome/Chromium binary path")
	flag.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Output file path")
	flag.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Export format: csv, json, dual, postgres, or none")
	flag.StringVar(&cfg.PostgresDSN, "pg-dsn", cfg.PostgresDSN, "Postgres DSN for the postgres format")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flag.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	registry := platform.Default()
	if *listPlatforms {
		for _, name := range registry.Names() {
			p, _ := registry.Lookup(name)
			mode := "static"
			if p.RequiresJS {
				mode = "browser"
			}
			fmt.Printf("%-12s %-8s %s\n", name, mode, p.Currency)
		}
		return
	}

	q := strings.TrimSpace(*query)
	if q == "" {
		q = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if q == "" {
		slog.Error("a search query is required")
		os.Exit(2)
	}

	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	opts := searchOptions{
		query:     q,
		platforms: splitList(*platforms),
		quick:     *quick,
		maxPrice:  *maxPrice,
		minRating: *minRating,
		top:       *top,
	}
	if err := run(cfg, registry, opts); err != nil {
		slog.Error("pricescout failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type searchOptions struct {
	query     string
	platforms []string
	quick     bool
	maxPrice  float64
	minRating float64
	top       int
}

// run owns every resource of a search so deferred cleanup, browser shutdown
// included, happens before the process exits.
func run(cfg *config.Config, registry *platform.Registry, opts searchOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics)
	defer stopMetricsServer(metricsServer)

	store, closeStore, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer closeStore()

	static := fetch.NewStaticFetcher(cfg.UserAgent, cfg.Timeout, fetch.Policy{
		MaxAttempts: cfg.MaxRetries + 1,
		Backoff:     fetch.LinearBackoff(cfg.RetryBackoff, cfg.RetryBackoffMax),
		Retryable:   fetch.IsTransient,
		OnRetry: func(attempt int, err error) {
			metrics.IncRetries()
			slog.Debug("retrying fetch", slog.Int("attempt", attempt), slog.String("error_type", fetch.ErrorLabel(err)))
		},
	})

	browserOpts := browser.Options{ChromePath: cfg.ChromeBin, UserAgent: cfg.UserAgent}
	var primary browser.Manager = browser.NewShared(browserOpts)
	if cfg.BrowserMode == "isolated" {
		primary = browser.NewIsolated(browserOpts)
	}
	workers := browser.NewIsolated(browserOpts)
	defer shutdownBrowsers(cfg.ShutdownGrace, primary, workers)

	scr := scraper.New(registry, fetch.Strategy{
		Static:   static,
		Rendered: &fetch.RenderedFetcher{Browser: primary, Navigation: cfg.NavigationTimeout, SelectorWait: cfg.SelectorWait},
	}, cache.Listings{Cache: store, TTL: cfg.SearchCacheTTL}, metrics)

	quickRunner := worker.NewRunner(registry, fetch.Strategy{
		Static:   static,
		Rendered: &fetch.RenderedFetcher{Browser: workers, Navigation: cfg.NavigationTimeout, SelectorWait: cfg.SelectorWait},
	}, cfg.QuickTimeout)

	orch := scraper.NewOrchestrator(scr, quickRunner)
	orch.Analysis = cache.Listings{Cache: store, TTL: cfg.AnalysisCacheTTL}

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			slog.Info("shutdown signal received, cancelling searches")
			orch.Tracker.CancelAll()
		case <-finished:
		}
	}()

	slog.Info("starting search",
		slog.String("query", opts.query),
		slog.Bool("quick", opts.quick),
		slog.Int("max_results", cfg.MaxResults),
	)

	summary, err := orch.Search(ctx, scraper.SearchRequest{
		Query:      opts.query,
		Platforms:  opts.platforms,
		MaxResults: cfg.MaxResults,
		MaxPrice:   opts.maxPrice,
		MinRating:  opts.minRating,
		Quick:      opts.quick,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printSummary(summary, orch.Engine.Rank(summary.Listings), orch.Suspicious(ctx, summary.Listings), opts.top)

	if cfg.OutputFormat != "none" && len(summary.Listings) > 0 {
		if err := export(ctx, cfg, summary); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return srv
}

func stopMetricsServer(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func(), error) {
	switch cfg.CacheBackend {
	case "redis":
		r, err := cache.NewRedis(ctx, cfg.RedisAddr, "pricescout:")
		if err != nil {
			return nil, nil, err
		}
		return r, func() {
			if err := r.Close(); err != nil {
				slog.Warn("close redis", slog.Any("error", err))
			}
		}, nil
	default:
		m, err := cache.NewMemory(cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		return m, func() {}, nil
	}
}

// shutdownBrowsers closes every manager within grace and exits the process
// if Chrome refuses to go away.
func shutdownBrowsers(grace time.Duration, managers ...browser.Manager) {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, m := range managers {
			if err := m.Shutdown(ctx); err != nil {
				slog.Warn("browser shutdown", slog.Any("error", err))
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(grace + time.Second):
		slog.Error("browser shutdown exceeded grace period, exiting", slog.Duration("grace", grace))
		os.Exit(1)
	}
}

func export(ctx context.Context, cfg *config.Config, summary models.SearchSummary) error {
	writer, err := createWriter(ctx, cfg, summary.ID)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	p, err := pipeline.NewPipeline(writer, pipeline.DefaultOptions())
	if err != nil {
		return err
	}
	p.Start(2)
	if cfg.Verbose {
		p.StartMetricsReporting(5 * time.Second)
	}
	if err := p.Process(summary.Listings); err != nil {
		_ = p.Close()
		return err
	}
	if err := p.Close(); err != nil {
		return fmt.Errorf("pipeline shutdown: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("output validation: %w", err)
	}

	stats := p.Stats()
	slog.Info("export complete",
		slog.String("format", cfg.OutputFormat),
		slog.Int64("written", stats.Processed),
		slog.Any("rejected", stats.Rejected),
	)
	if pw, ok := writer.(*pipeline.PostgresWriter); ok {
		slog.Info("postgres rows inserted", slog.Int("inserted", pw.Inserted()))
	}
	return nil
}

func createWriter(ctx context.Context, cfg *config.Config, searchID string) (pipeline.OutputWriter, error) {
	switch cfg.OutputFormat {
	case "json":
		return pipeline.NewJSONWriter(cfg.OutputFile)
	case "csv":
		return pipeline.NewCSVWriter(cfg.OutputFile)
	case "dual":
		jsonFilename := strings.TrimSuffix(cfg.OutputFile, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(cfg.OutputFile, jsonFilename)
	case "postgres":
		return pipeline.NewPostgresWriter(ctx, cfg.PostgresDSN, searchID)
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

func printSummary(summary models.SearchSummary, ranked []ranking.Scored, suspicious []models.ProductListing, top int) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Search %q complete (%s)\n", summary.Query, summary.Duration.Round(time.Millisecond))

	for _, name := range sortedPlatforms(summary.Results) {
		r := summary.Results[name]
		switch {
		case r.Failed():
			fmt.Printf("  %-12s failed: %s\n", name, r.Error)
		case r.Cached:
			fmt.Printf("  %-12s %3d listings (cached)\n", name, r.Count)
		default:
			fmt.Printf("  %-12s %3d listings in %s\n", name, r.Count, r.SearchTime.Round(time.Millisecond))
		}
	}

	stats := ranking.Summarize(summary.Listings)
	fmt.Printf("  Listings:      %d scraped, %d after filters\n", summary.TotalProducts, stats.Count)
	if stats.Count > 0 {
		fmt.Printf("  Price range:   %.2f - %.2f (avg %.2f)\n", stats.MinPrice, stats.MaxPrice, stats.AvgPrice)
		fmt.Printf("  Avg rating:    %.2f\n", stats.AvgRating)
		fmt.Printf("  In stock:      %d\n", stats.InStock)
	}
	if len(suspicious) > 0 {
		fmt.Printf("  Suspicious:    %d listings excluded from ranking\n", len(suspicious))
	}

	if summary.BestDeal != nil {
		b := summary.BestDeal
		fmt.Printf("\nBest deal: %s\n  %s %.2f on %s (%s)\n  %s\n", b.Name, b.Currency, b.TotalCost(), b.Platform, b.Seller, b.URL)
	} else {
		fmt.Println("\nNo deal found.")
	}

	if len(ranked) > 1 {
		fmt.Println("\nRanking:")
		for i, s := range ranked {
			if i >= top {
				break
			}
			fmt.Printf("  %d. [%5.1f] %s %.2f  %s (%s)\n", i+1, s.Score, s.Listing.Currency, s.Listing.TotalCost(), s.Listing.Name, s.Listing.Platform)
		}
		fmt.Println("\n" + ranking.Compare(ranked[0].Listing, ranked[1].Listing))
	}
	fmt.Println(separator)
}

func sortedPlatforms(results map[string]models.PlatformResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
