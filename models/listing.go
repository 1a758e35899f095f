// Package models defines data structures shared by the scraper and ranking code.
package models

import (
	"strings"
	"time"
)

// Availability describes the stock state of an offer.
type Availability string

const (
	InStock    Availability = "in_stock"
	OutOfStock Availability = "out_of_stock"
	Preorder   Availability = "preorder"
)

// ParseAvailability maps free-form stock text to an Availability.
// Unknown or empty text is treated as in stock.
func ParseAvailability(text string) Availability {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return InStock
	case t == string(OutOfStock), t == string(Preorder), t == string(InStock):
		return Availability(t)
	case strings.Contains(t, "pre-order"), strings.Contains(t, "preorder"), strings.Contains(t, "pre order"):
		return Preorder
	case strings.Contains(t, "out of stock"), strings.Contains(t, "sold out"),
		strings.Contains(t, "unavailable"), strings.Contains(t, "currently not available"):
		return OutOfStock
	default:
		return InStock
	}
}

// ProductListing is a normalized observation of one product offer.
// Listings are values: code that needs a different listing builds a new one.
type ProductListing struct {
	Name         string       `csv:"name" json:"name"`
	Price        float64      `csv:"price" json:"price"`
	Currency     string       `csv:"currency" json:"currency"`
	Seller       string       `csv:"seller" json:"seller"`
	Rating       *float64     `csv:"rating" json:"rating"`
	ReviewCount  int          `csv:"review_count" json:"reviewCount"`
	Availability Availability `csv:"availability" json:"availability"`
	Shipping     *float64     `csv:"shipping" json:"shipping"`
	URL          string       `csv:"url" json:"url,omitempty"`
	Platform     string       `csv:"platform" json:"platform"`
	ImageURL     string       `csv:"image_url" json:"imageUrl,omitempty"`
	ExtractedAt  time.Time    `csv:"extracted_at" json:"extractedAt"`
}

// Valid reports whether the listing has a name and a positive price.
func (l ProductListing) Valid() bool {
	return strings.TrimSpace(l.Name) != "" && l.Price > 0
}

// RatingValue returns the rating or 0 when unknown.
func (l ProductListing) RatingValue() float64 {
	if l.Rating == nil {
		return 0
	}
	return *l.Rating
}

// ShippingValue returns the shipping cost or 0 when unknown.
func (l ProductListing) ShippingValue() float64 {
	if l.Shipping == nil {
		return 0
	}
	return *l.Shipping
}

// TotalCost is price plus shipping, counting unknown shipping as free.
func (l ProductListing) TotalCost() float64 {
	return l.Price + l.ShippingValue()
}

// Float returns a pointer to v, for optional listing fields.
func Float(v float64) *float64 {
	return &v
}

// PlatformResult is the outcome of scraping one platform for one query.
type PlatformResult struct {
	Platform   string           `json:"platform"`
	Products   []ProductListing `json:"products"`
	Count      int              `json:"count"`
	SearchTime time.Duration    `json:"searchTime"`
	Cached     bool             `json:"cached"`
	Error      string           `json:"error,omitempty"`
}

// Failed reports whether the platform attempt ended with an error.
func (r PlatformResult) Failed() bool {
	return r.Error != ""
}

// SearchSummary holds the combined outcome of a multi-platform search.
type SearchSummary struct {
	ID            string                    `json:"id"`
	Query         string                    `json:"query"`
	Results       map[string]PlatformResult `json:"results"`
	Listings      []ProductListing          `json:"listings"`
	BestDeal      *ProductListing           `json:"bestDeal"`
	TotalProducts int                       `json:"totalProducts"`
	StartedAt     time.Time                 `json:"startedAt"`
	Duration      time.Duration             `json:"duration"`
}
