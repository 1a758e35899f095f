package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
)

// ErrClosed is returned by Acquire after Shutdown.
var ErrClosed = errors.New("browser manager is shut down")

// Shared lazily launches one browser on first use and hands out tabs from it
// until Shutdown. Concurrent first callers share a single launch; a caller
// whose ctx ends while waiting for it gives up without disturbing the others.
type Shared struct {
	opts Options

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	started int
	// launching is closed when the launch in flight finishes.
	launching chan struct{}
}

// NewShared returns a manager that has not launched anything yet.
func NewShared(opts Options) *Shared {
	return &Shared{opts: opts}
}

// Acquire opens a tab on the shared browser, launching it when needed or when
// the previous process died. It returns no later than ctx allows.
func (s *Shared) Acquire(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserCtx, err := s.browser(ctx)
	if err != nil {
		return nil, err
	}
	return newTab(ctx, browserCtx, s.opts.launchTimeout(), s.opts.UserAgent, nil)
}

func (s *Shared) browser(ctx context.Context) (context.Context, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		if s.ctx != nil && s.ctx.Err() == nil {
			browserCtx := s.ctx
			s.mu.Unlock()
			return browserCtx, nil
		}
		if wait := s.launching; wait != nil {
			s.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		wait := make(chan struct{})
		s.launching = wait
		s.mu.Unlock()

		browserCtx, cancel, err := launch(ctx, s.opts)

		s.mu.Lock()
		s.launching = nil
		close(wait)
		if err != nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		if s.closed {
			s.mu.Unlock()
			cancel()
			return nil, ErrClosed
		}
		s.ctx, s.cancel = browserCtx, cancel
		s.started++
		started := s.started
		s.mu.Unlock()
		slog.Debug("shared browser launched", slog.Int("launches", started))
		return browserCtx, nil
	}
}

// Shutdown closes the browser gracefully, killing it if ctx expires first.
// A launch still in flight is killed by its launcher once it completes.
func (s *Shared) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	browserCtx, cancel := s.ctx, s.cancel
	s.ctx, s.cancel = nil, nil
	s.mu.Unlock()

	if browserCtx == nil {
		return nil
	}
	return closeBrowser(ctx, browserCtx, cancel)
}

func closeBrowser(ctx, browserCtx context.Context, cancel context.CancelFunc) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(browserCtx) }()

	select {
	case err := <-done:
		cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("close browser: %w", err)
		}
		return nil
	case <-ctx.Done():
		cancel()
		return fmt.Errorf("close browser: %w", ctx.Err())
	}
}
