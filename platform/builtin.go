package platform

import "github.com/aluiziolira/pricescout/parser"

const (
	ratingPattern = `(\d+(?:\.\d+)?)`
	starsPattern  = `(\d+(?:\.\d+)?) out of 5`

	// parenCountPattern picks "123" out of "4.5 out of 5(123)".
	parenCountPattern = `\((\d[\d,.]*[kKmM]?)\)`
)

func builtin() []Platform {
	return []Platform{
		{
			Name:          "amazon",
			SearchURL:     "https://www.amazon.com/s?k=",
			Origin:        "https://www.amazon.com",
			Currency:      "USD",
			DefaultSeller: "Amazon",
			Rules: parser.Rules{
				Containers:    []string{`[data-component-type="s-search-result"]`, `div.s-result-item[data-asin]`},
				Name:          parser.Text("h2 a span", "h2 span", "h2"),
				Price:         parser.Text(".a-price .a-price-whole", ".a-price-whole"),
				PriceFraction: parser.Text(".a-price .a-price-fraction", ".a-price-fraction"),
				Link:          parser.Attr("href", "h2 a", "a.a-link-normal"),
				Image:         parser.Attr("src", "img.s-image", "img"),
				Rating:        parser.Text(".a-icon-star-small span", ".a-icon-alt").Match(starsPattern),
				ReviewCount:   parser.Attr("aria-label", `span[aria-label$="ratings"]`, `a[href*="customerReviews"] span`),
				Shipping:      parser.Attr("aria-label", `[data-cy="delivery-recipe"] span[aria-label]`),
				Availability:  parser.Text(".a-color-price"),
			},
		},
		{
			Name:          "jumia",
			SearchURL:     "https://www.jumia.com.ng/catalog/?q=",
			Origin:        "https://www.jumia.com.ng",
			Currency:      "NGN",
			DefaultSeller: "Jumia",
			Rules: parser.Rules{
				Containers:  []string{"article.prd", ".prd"},
				Name:        parser.Text(".prd-name", ".info .name", "h3.name", ".name"),
				Price:       parser.Text(".prd-price .prc", ".price .prc", ".prc"),
				Link:        parser.Attr("href", "a.core", "a"),
				Image:       parser.Attr("data-src", "img").Or(parser.Attr("src", "img")),
				Rating:      parser.Text(".stars._s", ".rev .stars").Match(ratingPattern),
				ReviewCount: parser.Text(".rev").Match(parenCountPattern),
				Seller:      parser.Text(".seller-name"),
				Shipping:    parser.Text(".bdg._glb", ".shipping"),
			},
		},
		{
			Name:          "konga",
			SearchURL:     "https://www.konga.com/search?search=",
			Origin:        "https://www.konga.com",
			Currency:      "NGN",
			DefaultSeller: "Konga",
			Rules: parser.Rules{
				Containers: []string{`[data-testid="product-card"]`, ".product-card", ".product-item", ".productItem", ".af885"},
				Name:       parser.Text(".product-title", ".productTitle", ".product-name", `[class*="name"]`, `[class*="title"]`, "h3"),
				Price:      parser.Text(".product-price", ".productPrice", `[class*="price"]`, ".amount"),
				Link:       parser.Attr("href", "a"),
				Image:      parser.Attr("src", "img"),
				Seller:     parser.Text(`[class*="seller"]`),
			},
		},
		{
			Name:          "ebay",
			SearchURL:     "https://www.ebay.com/sch/i.html?_nkw=",
			Origin:        "https://www.ebay.com",
			Currency:      "USD",
			DefaultSeller: "eBay",
			Rules: parser.Rules{
				Containers:   []string{"li.s-item", ".s-item", ".s-card"},
				Name:         parser.Text(".s-item__title span", ".s-item__title", ".s-card__title"),
				Price:        parser.Text(".s-item__price", ".s-card__price"),
				Link:         parser.Attr("href", "a.s-item__link", "a"),
				Image:        parser.Attr("src", ".s-item__image img", "img"),
				Rating:       parser.Text(".x-star-rating .clipped", ".s-item__reviews .clipped").Match(starsPattern),
				ReviewCount:  parser.Text(".s-item__reviews-count span", ".s-item__reviews-count"),
				Seller:       parser.Text(".s-item__seller-info-text", ".s-item__seller"),
				Shipping:     parser.Text(".s-item__shipping", ".s-item__logisticsCost", ".s-item__freeXDays"),
				Availability: parser.Text(".s-item__availability"),
			},
		},
		{
			Name:          "aliexpress",
			SearchURL:     "https://www.aliexpress.com/wholesale?SearchText=",
			Origin:        "https://www.aliexpress.com",
			Currency:      "USD",
			RequiresJS:    true,
			DefaultSeller: "AliExpress",
			Rules: parser.Rules{
				Containers:  []string{".search-item-card-wrapper-gallery", ".search-item-card", ".organic-item"},
				Name:        parser.Text("a.organic-item-offer", `[class*="title"]`, "h3"),
				Price:       parser.Text(".search-card-e-price-main", ".organic-price", `[class*="price"]`),
				Link:        parser.Attr("href", "a"),
				Image:       parser.Attr("src", "img"),
				Rating:      parser.Text(".search-card-e-starRating__rate", ".organic-recommend").Match(ratingPattern),
				Seller:      parser.Text(`[class*="store"]`, `[class*="seller"]`),
				Shipping:    parser.Text(`[class*="shipping"]`, `[class*="delivery"]`),
			},
		},
		{
			Name:          "walmart",
			SearchURL:     "https://www.walmart.com/search/?query=",
			Origin:        "https://www.walmart.com",
			Currency:      "USD",
			RequiresJS:    true,
			DefaultSeller: "Walmart",
			Rules: parser.Rules{
				Containers:   []string{"[data-item-id]", `[data-testid="list-view"]`},
				Name:         parser.Text(`[data-automation-id="product-title"]`, `[data-testid="productTitle"]`, "span.w_iUH7"),
				Price:        parser.Text(`[data-automation-id="product-price"] .w_iUH7`, `[data-testid="listPrice"]`, ".pricing", `[data-automation-id="product-price"]`),
				Link:         parser.Attr("href", `a[href*="/ip/"]`, "a"),
				Image:        parser.Attr("src", `img[data-testid="productTileImage"]`, "img"),
				Rating:       parser.Text(`[data-testid="product-ratings"]`, ".w_iUH7").Match(starsPattern),
				ReviewCount:  parser.Text(`[data-testid="product-reviews"]`),
				Shipping:     parser.Text(`[data-automation-id="fulfillment-badge"]`),
				Availability: parser.Text(`[data-automation-id="inventory-status"]`),
			},
		},
		{
			Name:          "bestbuy",
			SearchURL:     "https://www.bestbuy.com/site/searchpage.jsp?st=",
			Origin:        "https://www.bestbuy.com",
			Currency:      "USD",
			RequiresJS:    true,
			DefaultSeller: "Best Buy",
			Rules: parser.Rules{
				Containers:   []string{".sku-item", "li.product-list-item"},
				Name:         parser.Text(".sku-title a", ".sku-header a", `[class*="title"]`),
				Price:        parser.Text(`.priceView-customer-price span[aria-hidden="true"]`, `[data-testid*="price"]`, `[aria-hidden="true"]`),
				Link:         parser.Attr("href", `a[href*="/site/"]`, `a[href*="/product/"]`),
				Image:        parser.Attr("src", "img.product-image", "img"),
				Rating:       parser.Text(`.c-ratings-reviews p.visually-hidden`, `[aria-label*="rating"]`).Match(ratingPattern),
				ReviewCount:  parser.Text(".c-reviews"),
				Availability: parser.Text(".fulfillment-add-to-cart-button button"),
			},
		},
		{
			Name:          "etsy",
			SearchURL:     "https://www.etsy.com/search?q=",
			Origin:        "https://www.etsy.com",
			Currency:      "USD",
			RequiresJS:    true,
			DefaultSeller: "Etsy",
			Rules: parser.Rules{
				Containers:  []string{".v2-listing-card", `[data-listing-id]`},
				Name:        parser.Attr("title", `a[data-etsy-link*="title"]`, "a.listing-link").Or(parser.Text("h3", "a h2")),
				Price:       parser.Text(".currency-value", `[data-etsy-link*="price"]`, ".lc-price"),
				Link:        parser.Attr("href", `a[href*="/listing/"]`, "a"),
				Image:       parser.Attr("src", "img"),
				Rating:      parser.Text(".stars-svg .screen-reader-only", ".star-rating").Match(ratingPattern),
				ReviewCount: parser.Text(".wt-text-body-smaller.wt-text-gray", `[class*="review"]`),
				Seller:      parser.Text(`[class*="shop-name"]`, `[class*="shop"]`),
				Shipping:    parser.Text(`[class*="shipping"]`),
			},
		},
		{
			Name:          "target",
			SearchURL:     "https://www.target.com/s?searchTerm=",
			Origin:        "https://www.target.com",
			Currency:      "USD",
			RequiresJS:    true,
			DefaultSeller: "Target",
			Rules: parser.Rules{
				Containers:   []string{`[data-test="@web/ProductCard"]`, `[data-test="@web/site-top-of-funnel/ProductCardWrapper"]`},
				Name:         parser.Text(`a[data-test="product-title"]`, `span[data-test="product-title"]`),
				Price:        parser.Text(`[data-test="current-price"]`, `[data-test*="price"]`),
				Link:         parser.Attr("href", `a[href*="/p/"]`),
				Image:        parser.Attr("src", "picture img", "img"),
				Rating:       parser.Text(`[data-test="ratings"]`, `[data-test*="rating"]`).Match(starsPattern),
				ReviewCount:  parser.Text(`[data-test="rating-count"]`),
				Shipping:     parser.Text(`[data-test="LPFulfillmentSectionShippingFA_standardShippingMessage"]`),
				Availability: parser.Text(`[data-test="LPFulfillmentSectionShippingFA_unavailableMessage"]`),
			},
		},
		{
			Name:          "jiji",
			SearchURL:     "https://jiji.ng/search?query=",
			Origin:        "https://jiji.ng",
			Currency:      "NGN",
			RequiresJS:    true,
			DefaultSeller: "Jiji",
			Rules: parser.Rules{
				Containers: []string{".b-list-advert-base", `[data-testid="advert-card"]`, ".b-list-advert__gallery__item"},
				Name:       parser.Text(".b-advert-title-inner", `[class*="title"]`),
				Price:      parser.Text(".qa-advert-price", `[class*="price"]`),
				Link:       parser.Attr("href", "a"),
				Image:      parser.Attr("src", "img"),
				Seller:     parser.Text(".b-list-advert-base__item-attr", `[class*="seller"]`),
			},
		},
		{
			Name:          "slot",
			SearchURL:     "https://slot.ng/catalogsearch/result/?q=",
			Origin:        "https://slot.ng",
			Currency:      "NGN",
			DefaultSeller: "Slot",
			Rules: parser.Rules{
				Containers:   []string{".product-item", "li.item.product"},
				Name:         parser.Text(".product-item-link", ".product-name"),
				Price:        parser.Text(".special-price .price", ".price", ".special-price"),
				Link:         parser.Attr("href", ".product-item-link", "a"),
				Image:        parser.Attr("src", "img.product-image-photo", "img"),
				Availability: parser.Text(".stock"),
			},
		},
	}
}
