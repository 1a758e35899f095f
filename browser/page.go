package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

var blockedResources = map[string]bool{
	"image":      true,
	"stylesheet": true,
	"font":       true,
	"media":      true,
}

var blockedHosts = []string{
	"google-analytics.com",
	"googletagmanager.com",
	"doubleclick.net",
	"facebook.net",
	"hotjar.com",
	"criteo.com",
	"scorecardresearch.com",
}

// ShouldBlock reports whether a sub-resource request should be aborted.
// Markup and scripts always load; bulky assets and trackers never do.
func ShouldBlock(resourceType, url string) bool {
	if blockedResources[strings.ToLower(resourceType)] {
		return true
	}
	u := strings.ToLower(url)
	for _, host := range blockedHosts {
		if strings.Contains(u, host) {
			return true
		}
	}
	return false
}

// tab is a chromedp target. onClose releases whatever the owning manager
// allocated for it.
type tab struct {
	ctx       context.Context
	cancel    context.CancelFunc
	userAgent string
	onClose   func()

	closeOnce sync.Once
}

// newTab opens a target on the browser behind parent. Waiting for the target
// is bounded by ctx and timeout.
func newTab(ctx, parent context.Context, timeout time.Duration, userAgent string, onClose func()) (*tab, error) {
	tabCtx, cancel := chromedp.NewContext(parent)
	abort := func() {
		cancel()
		if onClose != nil {
			onClose()
		}
	}
	// The first Run must use the tab context itself so the target outlives
	// any per-render deadline.
	if err := await(ctx, timeout, tabCtx, abort); err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &tab{ctx: tabCtx, cancel: cancel, userAgent: userAgent, onClose: onClose}, nil
}

func (t *tab) Render(ctx context.Context, req RenderRequest) (string, error) {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	intercept(runCtx)

	setup := []chromedp.Action{fetch.Enable()}
	if t.userAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(t.userAgent))
	}
	setup = append(setup, chromedp.Navigate(req.URL))
	if err := chromedp.Run(runCtx, setup...); err != nil {
		return "", navigationError(ctx, err)
	}

	if req.WaitSelector != "" && req.WaitTimeout > 0 {
		waitCtx, cancelWait := context.WithTimeout(runCtx, req.WaitTimeout)
		err := chromedp.Run(waitCtx, chromedp.WaitReady(req.WaitSelector, chromedp.ByQuery))
		cancelWait()
		if err != nil && ctx.Err() == nil {
			slog.Debug("selector wait elapsed",
				slog.String("url", req.URL),
				slog.String("selector", req.WaitSelector),
			)
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", navigationError(ctx, err)
	}
	return html, nil
}

func (t *tab) Close() error {
	t.closeOnce.Do(func() {
		t.cancel()
		if t.onClose != nil {
			t.onClose()
		}
	})
	return nil
}

// navigationError prefers the caller's context error so deadlines are
// reported as such rather than as a generic chromedp failure.
func navigationError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("navigate: %w", ctxErr)
	}
	return fmt.Errorf("navigate: %w", err)
}

// intercept pauses every request on the tab and aborts the ones
// ShouldBlock rejects.
func intercept(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(ctx)
			if c == nil || c.Target == nil {
				return
			}
			execCtx := cdp.WithExecutor(ctx, c.Target)

			var url string
			if paused.Request != nil {
				url = paused.Request.URL
			}
			var err error
			if ShouldBlock(paused.ResourceType.String(), url) {
				err = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
			} else {
				err = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
			}
			if err != nil && ctx.Err() == nil {
				slog.Debug("request interception failed", slog.String("url", url), slog.Any("error", err))
			}
		}()
	})
}
