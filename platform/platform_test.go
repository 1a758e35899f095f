package platform

import (
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/pricescout/parser"
)

func TestDefaultRegistryPlatforms(t *testing.T) {
	r := Default()
	want := []string{"aliexpress", "amazon", "bestbuy", "ebay", "etsy", "jiji", "jumia", "konga", "slot", "target", "walmart"}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("names=%v, want %v", got, want)
	}

	for _, name := range QuickPlatforms {
		if _, ok := r.Lookup(name); !ok {
			t.Errorf("quick platform %q is not registered", name)
		}
	}
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := Default()
	p, ok := r.Lookup("  AmAzOn ")
	if !ok {
		t.Fatal("expected amazon to be found")
	}
	if p.Name != "amazon" || p.Currency != "USD" || p.RequiresJS {
		t.Fatalf("unexpected platform: %+v", p)
	}
	if _, ok := r.Lookup("nowhere"); ok {
		t.Fatal("unknown platform should not be found")
	}
}

func TestSearchURLForEncodesQuery(t *testing.T) {
	p, _ := Default().Lookup("jumia")
	got := p.SearchURLFor(" iphone 15 & case ")
	want := "https://www.jumia.com.ng/catalog/?q=iphone+15+%26+case"
	if got != want {
		t.Fatalf("url=%q, want %q", got, want)
	}
}

func TestPlatformValidate(t *testing.T) {
	valid := Platform{
		Name:      "shop",
		SearchURL: "https://shop.test/s?q=",
		Currency:  "USD",
		Rules: parser.Rules{
			Containers: []string{".card"},
			Name:       parser.Text("h2"),
			Price:      parser.Text(".price"),
		},
	}

	tests := []struct {
		name    string
		mutate  func(p *Platform)
		wantErr string
	}{
		{name: "valid", mutate: func(p *Platform) {}},
		{name: "no name", mutate: func(p *Platform) { p.Name = "" }, wantErr: "name"},
		{name: "no search url", mutate: func(p *Platform) { p.SearchURL = "" }, wantErr: "search url"},
		{name: "no currency", mutate: func(p *Platform) { p.Currency = "" }, wantErr: "currency"},
		{name: "no containers", mutate: func(p *Platform) { p.Rules.Containers = nil }, wantErr: "container"},
		{name: "no price rule", mutate: func(p *Platform) { p.Rules.Price = parser.Field{} }, wantErr: "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err=%v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterNormalizesName(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	err = r.Register(Platform{
		Name:      " Shop ",
		SearchURL: "https://shop.test/s?q=",
		Currency:  "EUR",
		Rules: parser.Rules{
			Containers: []string{".card"},
			Name:       parser.Text("h2"),
			Price:      parser.Text(".price"),
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "shop" {
		t.Fatalf("names=%v", names)
	}
}

func TestFieldOrFallsBack(t *testing.T) {
	doc, err := parser.ParseDocument(`<div class="card"><img src="/a.jpg"></div>`)
	if err != nil {
		t.Fatal(err)
	}
	f := parser.Attr("data-src", "img").Or(parser.Attr("src", "img"))
	if got := f.Value(doc.Find(".card")); got != "/a.jpg" {
		t.Fatalf("value=%q, want /a.jpg", got)
	}
}

const jumiaCatalog = `<html><body><section class="card">
<article class="prd _fb col c-prd"><a class="core" href="/tecno-spark-20-123.html">
<div class="img-c"><img class="img" data-src="https://ng.jumia.is/spark.jpg"></div>
<div class="info"><h3 class="name">Tecno Spark 20 128GB</h3><div class="prc">₦ 120,000</div>
<div class="rev"><div class="stars _s">4.5 out of 5<div class="in" style="width:90%"></div></div>(123)</div></div></a></article>
<article class="prd _fb col c-prd"><a class="core" href="/itel-a70-456.html">
<div class="info"><h3 class="name">Itel A70</h3><div class="prc">₦ 78,500</div>
<div class="rev"><div class="stars _s">5 out of 5<div class="in" style="width:100%"></div></div>(2)</div></div></a></article>
<article class="prd _fb col c-prd"><a class="core" href="/nokia-c32-789.html">
<div class="info"><h3 class="name">Nokia C32</h3><div class="prc">₦ 99,000</div></div></a></article>
</section></body></html>`

func TestJumiaExtraction(t *testing.T) {
	p, ok := Default().Lookup("jumia")
	if !ok {
		t.Fatalf("jumia not registered")
	}
	doc, err := parser.ParseDocument(jumiaCatalog)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := parser.ExtractAll(doc, p.Source(), 0, time.Now())
	if len(got) != 3 {
		t.Fatalf("listings=%d, want 3", len(got))
	}

	tests := []struct {
		name    string
		price   float64
		rating  float64
		reviews int
		url     string
	}{
		{"Tecno Spark 20 128GB", 120000, 4.5, 123, "https://www.jumia.com.ng/tecno-spark-20-123.html"},
		{"Itel A70", 78500, 5, 2, "https://www.jumia.com.ng/itel-a70-456.html"},
		{"Nokia C32", 99000, 0, 0, "https://www.jumia.com.ng/nokia-c32-789.html"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := got[i]
			if l.Name != tt.name || l.Price != tt.price || l.URL != tt.url {
				t.Fatalf("listing=%+v", l)
			}
			if l.RatingValue() != tt.rating || l.ReviewCount != tt.reviews {
				t.Fatalf("rating/reviews=%v/%d, want %v/%d", l.RatingValue(), l.ReviewCount, tt.rating, tt.reviews)
			}
		})
	}
}

const aliexpressCatalog = `<html><body><div id="card-list">
<div class="search-item-card-wrapper-gallery"><a class="search-card-item" href="/item/1005001.html">
<img src="https://ae01.alicdn.com/kf/earbuds.jpg">
<h3 class="multi--titleText">Wireless Earbuds</h3>
<div class="search-card-e-price-main">US $15</div>
<span class="search-card-e-starRating__rate">4.8</span>
<span class="search-card-e-sold">5,000+ sold</span>
<span class="cards--store">Audio Store</span></a></div>
</div></body></html>`

// Sales volume is not a review count and must not feed trust scoring.
func TestAliExpressIgnoresSoldCount(t *testing.T) {
	p, ok := Default().Lookup("aliexpress")
	if !ok {
		t.Fatalf("aliexpress not registered")
	}
	doc, err := parser.ParseDocument(aliexpressCatalog)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := parser.ExtractAll(doc, p.Source(), 0, time.Now())
	if len(got) != 1 {
		t.Fatalf("listings=%d, want 1", len(got))
	}
	l := got[0]
	if l.Name != "Wireless Earbuds" || l.Price != 15 || l.RatingValue() != 4.8 {
		t.Fatalf("listing=%+v", l)
	}
	if l.ReviewCount != 0 {
		t.Fatalf("reviews=%d, want 0", l.ReviewCount)
	}
}
