package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/pricescout/fetch"
	"github.com/aluiziolira/pricescout/models"
	"github.com/aluiziolira/pricescout/platform"
)

func listings(n int) []models.ProductListing {
	out := make([]models.ProductListing, n)
	for i := range out {
		out[i] = models.ProductListing{Name: "item", Price: float64(10 + i), Currency: "NGN"}
	}
	return out
}

func TestInvokeDeliversExactlyOnce(t *testing.T) {
	r := NewRunnerFunc(func(ctx context.Context, task Task) ([]models.ProductListing, error) {
		return listings(6), nil
	}, time.Second)

	ch := r.Invoke(context.Background(), Task{Platform: "jumia", Query: "tv", MaxResults: 4})
	res, ok := <-ch
	if !ok {
		t.Fatal("channel closed without a result")
	}
	if res.Err != nil {
		t.Fatalf("err=%v", res.Err)
	}
	if res.Platform != "jumia" || len(res.Products) != 4 {
		t.Fatalf("platform=%q products=%d", res.Platform, len(res.Products))
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after one result")
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	r := NewRunnerFunc(func(ctx context.Context, task Task) ([]models.ProductListing, error) {
		panic("selector engine exploded")
	}, time.Second)

	res := <-r.Invoke(context.Background(), Task{Platform: "konga"})
	if res.Err == nil || !strings.Contains(res.Err.Error(), "panic") {
		t.Fatalf("err=%v, want panic error", res.Err)
	}
	if res.Products == nil || len(res.Products) != 0 {
		t.Fatalf("products=%v, want empty non-nil", res.Products)
	}
}

func TestInvokeEnforcesTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := NewRunnerFunc(func(ctx context.Context, task Task) ([]models.ProductListing, error) {
		<-release
		return listings(1), nil
	}, 20*time.Millisecond)

	start := time.Now()
	res := <-r.Invoke(context.Background(), Task{Platform: "jiji"})
	if !errors.As(res.Err, new(fetch.ErrTimeout)) {
		t.Fatalf("err=%v, want timeout", res.Err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout was not enforced")
	}
	if len(res.Products) != 0 {
		t.Fatalf("products=%d, want 0", len(res.Products))
	}
}

func TestInvokeErrorYieldsEmptyProducts(t *testing.T) {
	r := NewRunnerFunc(func(ctx context.Context, task Task) ([]models.ProductListing, error) {
		return listings(2), errors.New("partial failure")
	}, time.Second)

	res := <-r.Invoke(context.Background(), Task{Platform: "slot"})
	if res.Err == nil || len(res.Products) != 0 {
		t.Fatalf("err=%v products=%d", res.Err, len(res.Products))
	}
}

func TestNewRunnerExtractsFromFetchedMarkup(t *testing.T) {
	html := `<html><body>
		<article class="prd"><a class="core" href="/tv-1.html"><h3 class="name">Smart TV 43"</h3><div class="prc">₦ 250,000</div></a></article>
		<article class="prd"><a class="core" href="/tv-2.html"><h3 class="name">Smart TV 55"</h3><div class="prc">₦ 410,500</div></a></article>
	</body></html>`
	var fetched string
	strategy := fetch.Strategy{Static: fetch.FetcherFunc(func(ctx context.Context, url string) (string, error) {
		fetched = url
		return html, nil
	})}

	r := NewRunner(platform.Default(), strategy, time.Second)
	res := <-r.Invoke(context.Background(), Task{Platform: "jumia", Query: "smart tv", MaxResults: 4})
	if res.Err != nil {
		t.Fatalf("err=%v", res.Err)
	}
	if fetched != "https://www.jumia.com.ng/catalog/?q=smart+tv" {
		t.Fatalf("fetched %q", fetched)
	}
	if len(res.Products) != 2 {
		t.Fatalf("products=%d, want 2", len(res.Products))
	}
	first := res.Products[0]
	if first.Price != 250000 || first.Currency != "NGN" || first.URL != "https://www.jumia.com.ng/tv-1.html" {
		t.Fatalf("unexpected listing: %+v", first)
	}
}

func TestNewRunnerUnknownPlatform(t *testing.T) {
	r := NewRunner(platform.Default(), fetch.Strategy{}, time.Second)
	res := <-r.Invoke(context.Background(), Task{Platform: "nowhere"})
	if res.Err == nil {
		t.Fatal("expected error for unknown platform")
	}
}
