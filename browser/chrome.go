// Package browser owns headless Chrome processes and hands out pages for
// rendering JavaScript-heavy search results.
package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configures how Chrome is launched.
type Options struct {
	// ChromePath overrides binary discovery.
	ChromePath string
	// UserAgent is applied to the browser and to every page.
	UserAgent string
	// LaunchTimeout bounds waiting for the DevTools endpoint.
	LaunchTimeout time.Duration
}

// Manager hands out pages and owns the browser processes behind them.
type Manager interface {
	Acquire(ctx context.Context) (Page, error)
	Shutdown(ctx context.Context) error
}

// Page is a single tab. Close must be called exactly once.
type Page interface {
	Render(ctx context.Context, req RenderRequest) (string, error)
	Close() error
}

// RenderRequest describes one navigation.
type RenderRequest struct {
	URL string
	// WaitSelector is awaited after navigation; a miss is not an error.
	WaitSelector string
	WaitTimeout  time.Duration
}

func allocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	opts = append(opts, chromedp.WSURLReadTimeout(o.launchTimeout()))
	bin := o.ChromePath
	if bin == "" {
		bin = findChromeBinary()
	}
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	return opts
}

// DefaultLaunchTimeout bounds a launch or tab creation when Options leaves
// LaunchTimeout unset.
const DefaultLaunchTimeout = 20 * time.Second

func (o Options) launchTimeout() time.Duration {
	if o.LaunchTimeout > 0 {
		return o.LaunchTimeout
	}
	return DefaultLaunchTimeout
}

// launch starts a browser process and returns its context. cancel kills it.
// The process outlives ctx, but waiting for it to come up does not.
func launch(ctx context.Context, o Options) (context.Context, context.CancelFunc, error) {
	o.LaunchTimeout = o.launchTimeout()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(o)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}
	// An empty Run starts the process.
	if err := await(ctx, o.LaunchTimeout, browserCtx, cancel); err != nil {
		return nil, nil, err
	}
	return browserCtx, cancel, nil
}

// await runs an empty chromedp.Run on target and stops waiting when ctx is
// done or timeout elapses. abort is called on every failure so a stuck Run
// unwinds and its process or tab is released.
func await(ctx context.Context, timeout time.Duration, target context.Context, abort func()) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(target) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			abort()
		}
		return err
	case <-ctx.Done():
		abort()
		return ctx.Err()
	case <-timer.C:
		abort()
		return fmt.Errorf("browser did not respond within %s: %w", timeout, context.DeadlineExceeded)
	}
}

// findChromeBinary locates a Chrome or Chromium binary. Empty lets chromedp
// fall back to its own lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
