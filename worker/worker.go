// Package worker runs single-platform scrapes in their own fault domain:
// a panic, hang or browser crash in one task only fails that task.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/aluiziolira/pricescout/fetch"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/parser"
	"github.com/aluiziolira/pricescout/platform"
)

// DefaultTimeout bounds a task when the runner has none configured.
const DefaultTimeout = 15 * time.Second

// Task is one platform search.
type Task struct {
	Platform   string
	Query      string
	MaxResults int
}

// Result is delivered exactly once per task.
type Result struct {
	Platform string
	Products []models.ProductListing
	Err      error
	Elapsed  time.Duration
}

// ScrapeFunc performs a task.
type ScrapeFunc func(ctx context.Context, task Task) ([]models.ProductListing, error)

// Runner executes tasks in isolated goroutines.
type Runner struct {
	Timeout time.Duration
	scrape  ScrapeFunc
}

// NewRunner builds a runner that resolves platforms in reg and fetches with
// strategy. Callers wanting browser isolation give strategy a rendered
// fetcher backed by browser.Isolated.
func NewRunner(reg *platform.Registry, strategy fetch.Strategy, timeout time.Duration) *Runner {
	return &Runner{
		Timeout: timeout,
		scrape: func(ctx context.Context, task Task) ([]models.ProductListing, error) {
			p, ok := reg.Lookup(task.Platform)
			if !ok {
				return nil, fmt.Errorf("unknown platform %q", task.Platform)
			}
			html, err := strategy.For(p).Fetch(ctx, p.SearchURLFor(task.Query))
			if err != nil {
				return nil, err
			}
			doc, err := parser.ParseDocument(html)
			if err != nil {
				return nil, err
			}
			return parser.ExtractAll(doc, p.Source(), task.MaxResults, time.Now()), nil
		},
	}
}

// NewRunnerFunc builds a runner around an arbitrary scrape function.
func NewRunnerFunc(fn ScrapeFunc, timeout time.Duration) *Runner {
	return &Runner{Timeout: timeout, scrape: fn}
}

// Invoke starts task and returns a channel that yields its single Result and
// is then closed. The result arrives no later than the runner timeout even
// if the scrape itself ignores cancellation.
func (r *Runner) Invoke(ctx context.Context, task Task) <-chan Result {
	out := make(chan Result, 1)
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	go func() {
		defer close(out)
		start := time.Now()
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		done := make(chan Result, 1)
		go func() {
			var res Result
			defer func() {
				if p := recover(); p != nil {
					slog.Error("worker panic",
						slog.String("platform", task.Platform),
						slog.Any("panic", p),
						slog.String("stack", string(debug.Stack())),
					)
					res = Result{Err: fmt.Errorf("worker panic: %v", p)}
				}
				done <- res
			}()
			products, err := r.scrape(ctx, task)
			res = Result{Products: products, Err: err}
		}()

		var res Result
		select {
		case res = <-done:
		case <-ctx.Done():
			res = Result{Err: fetch.ErrTimeout{Err: ctx.Err()}}
			if ctx.Err() == context.Canceled {
				res.Err = ctx.Err()
			}
		}

		res.Platform = task.Platform
		res.Elapsed = time.Since(start)
		if res.Err != nil || res.Products == nil {
			res.Products = []models.ProductListing{}
		}
		if task.MaxResults > 0 && len(res.Products) > task.MaxResults {
			res.Products = res.Products[:task.MaxResults]
		}
		out <- res
	}()
	return out
}
