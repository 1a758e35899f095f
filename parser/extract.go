package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/pricescout/models"
)

// ParseDocument parses raw markup.
func ParseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// Containers applies the container fallback chain and returns the matched
// elements together with the selector that produced them.
func Containers(root *goquery.Selection, rules Rules) (*goquery.Selection, string) {
	for _, sel := range rules.Containers {
		found := root.Find(sel)
		if found.Length() > 0 {
			return found, sel
		}
	}
	return root.Slice(0, 0), ""
}

// ExtractListing builds a listing from one container. It reports false when
// the container has no usable name or price. Malformed markup never escapes:
// a panic while reading the container is treated as "no listing".
func ExtractListing(s *goquery.Selection, src Source, now time.Time) (listing models.ProductListing, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("container extraction failed",
				slog.String("platform", src.Platform),
				slog.Any("panic", r),
			)
			listing, ok = models.ProductListing{}, false
		}
	}()

	rules := src.Rules
	name := rules.Name.Value(s)
	if name == "" {
		return models.ProductListing{}, false
	}

	var price float64
	if rules.PriceFraction.Empty() {
		price = ParsePrice(rules.Price.Value(s))
	} else {
		price = JoinPrice(rules.Price.Value(s), rules.PriceFraction.Value(s))
	}
	if price <= 0 {
		return models.ProductListing{}, false
	}

	seller := rules.Seller.Value(s)
	if seller == "" {
		seller = src.Seller
	}
	if seller == "" {
		seller = src.Platform
	}

	listing = models.ProductListing{
		Name:         name,
		Price:        price,
		Currency:     src.Currency,
		Seller:       seller,
		Rating:       ParseRating(rules.Rating.Value(s), rules.RatingScale),
		ReviewCount:  ParseCount(rules.ReviewCount.Value(s)),
		Availability: models.ParseAvailability(rules.Availability.Value(s)),
		Shipping:     ParseShipping(rules.Shipping.Value(s)),
		URL:          AbsoluteURL(src.Origin, rules.Link.Value(s)),
		Platform:     src.Platform,
		ImageURL:     AbsoluteURL(src.Origin, rules.Image.Value(s)),
		ExtractedAt:  now,
	}
	return listing, listing.Valid()
}

// ExtractAll runs the container chain over doc and extracts up to max valid
// listings in document order. A non-positive max means no limit.
func ExtractAll(doc *goquery.Document, src Source, max int, now time.Time) []models.ProductListing {
	containers, matched := Containers(doc.Selection, src.Rules)
	listings := make([]models.ProductListing, 0, containers.Length())
	if matched == "" {
		return listings
	}

	dropped := 0
	containers.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(listings) >= max {
			return false
		}
		listing, ok := ExtractListing(s, src, now)
		if !ok {
			dropped++
			return true
		}
		listings = append(listings, listing)
		return true
	})

	slog.Debug("extracted listings",
		slog.String("platform", src.Platform),
		slog.String("selector", matched),
		slog.Int("containers", containers.Length()),
		slog.Int("listings", len(listings)),
		slog.Int("dropped", dropped),
	)
	return listings
}
