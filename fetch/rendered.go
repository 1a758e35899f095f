package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aluiziolira/pricescout/browser"
	"github.com/aluiziolira/pricescout/platform"
)

// RenderedFetcher loads pages in a headless browser so client-side rendered
// listings are present in the returned markup.
type RenderedFetcher struct {
	Browser browser.Manager
	// Navigation bounds acquiring the page, navigating and reading the DOM.
	Navigation time.Duration
	// SelectorWait bounds the wait for WaitFor to appear.
	SelectorWait time.Duration
	WaitFor      string
}

// Waiting returns a copy that waits for selector after navigation.
func (f RenderedFetcher) Waiting(selector string) *RenderedFetcher {
	f.WaitFor = selector
	return &f
}

// Fetch renders url and returns the document's outer HTML. The page is always
// released, including on timeout.
func (f *RenderedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.Browser == nil {
		return "", ErrRender{Err: errors.New("no browser configured")}
	}
	nav := f.Navigation
	if nav <= 0 {
		nav = 20 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, nav)
	defer cancel()

	page, err := f.Browser.Acquire(navCtx)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, renderError(ctx, err))
	}
	defer page.Close()

	html, err := page.Render(navCtx, browser.RenderRequest{
		URL:          url,
		WaitSelector: f.WaitFor,
		WaitTimeout:  f.SelectorWait,
	})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, renderError(ctx, err))
	}
	return html, nil
}

func renderError(parent context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) && parent.Err() != nil:
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout{Err: err}
	}
	return ErrRender{Err: err}
}

// Strategy picks the fetch method for a platform from its static
// RequiresJS property.
type Strategy struct {
	Static   Fetcher
	Rendered *RenderedFetcher
}

// For returns the fetcher to use for p.
func (s Strategy) For(p platform.Platform) Fetcher {
	if !p.RequiresJS {
		return s.Static
	}
	if s.Rendered == nil {
		return FetcherFunc(func(context.Context, string) (string, error) {
			return "", ErrRender{Err: fmt.Errorf("platform %s requires a browser", p.Name)}
		})
	}
	return s.Rendered.Waiting(p.Rules.ContainerQuery())
}
