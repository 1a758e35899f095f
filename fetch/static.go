// Package fetch retrieves search result pages, either over plain HTTP or
// through a headless browser, and classifies what goes wrong.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Fetcher returns the markup behind url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (string, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) (string, error) { return f(ctx, url) }

// StaticFetcher issues plain HTTP GETs through a colly collector.
type StaticFetcher struct {
	userAgent string
	timeout   time.Duration
	policy    Policy
	transport http.RoundTripper
}

// NewStaticFetcher builds a fetcher. A zero policy gets three retries with a
// one second linear backoff; a nil Retryable retries transient errors only.
func NewStaticFetcher(userAgent string, timeout time.Duration, policy Policy) *StaticFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if policy.MaxAttempts == 0 {
		policy.MaxAttempts = 4
	}
	if policy.Backoff == nil {
		policy.Backoff = LinearBackoff(time.Second, 0)
	}
	if policy.Retryable == nil {
		policy.Retryable = IsTransient
	}
	return &StaticFetcher{
		userAgent: userAgent,
		timeout:   timeout,
		policy:    policy,
		transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// WithTransport replaces the HTTP transport, mainly for tests.
func (f *StaticFetcher) WithTransport(rt http.RoundTripper) *StaticFetcher {
	f.transport = rt
	return f
}

// Fetch downloads url, retrying transient failures per the policy.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (string, error) {
	return Retry(ctx, f.policy, func(ctx context.Context) (string, error) {
		return f.fetchOnce(ctx, url)
	})
}

func (f *StaticFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(f.timeout)
	c.WithTransport(contextTransport{ctx: ctx, base: f.transport})

	var (
		body     []byte
		status   int
		fetchErr error
	)
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		r.Headers.Set("Cache-Control", "no-cache")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = Classify(err, status)
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = Classify(err, status)
	}
	if fetchErr != nil {
		return "", fmt.Errorf("fetch %s: %w", url, fetchErr)
	}
	return string(body), nil
}

// contextTransport binds outgoing requests to ctx so cancelling a search
// aborts in-flight downloads.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(t.ctx))
}
