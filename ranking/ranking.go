// Package ranking picks the best deal out of a merged listing set and offers
// the pure helpers used to display listings: sorting, totals and summaries.
package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/pricescout/models"
)

// Weights of the four sub-scores. They are expected to sum to 1.
type Weights struct {
	Price        float64
	Trust        float64
	Shipping     float64
	Availability float64
}

// DefaultWeights favours price, then seller trust.
var DefaultWeights = Weights{Price: 0.5, Trust: 0.3, Shipping: 0.15, Availability: 0.05}

// ScamConfig holds the thresholds of the suspicious-listing heuristics.
type ScamConfig struct {
	// MinFlags is the number of red flags that excludes a listing.
	MinFlags int
	// StdDevs below the mean price counts as "too cheap".
	StdDevs float64
	// MinReviews a perfect rating needs to be believable.
	MinReviews int
	// LowRating under which an above-average price is suspicious.
	LowRating float64
	// SuspiciousSellers are matched case-insensitively as substrings.
	SuspiciousSellers []string
}

// DefaultScamConfig returns the standard thresholds.
func DefaultScamConfig() ScamConfig {
	return ScamConfig{
		MinFlags:          2,
		StdDevs:           2,
		MinReviews:        5,
		LowRating:         2,
		SuspiciousSellers: []string{"wholesale", "dropship", "replica", "fake", "copy", "imitation", "clone"},
	}
}

// Engine scores listings. The zero value is not usable; call NewEngine.
type Engine struct {
	Weights Weights
	Scam    ScamConfig
}

// NewEngine returns an engine with default weights and scam thresholds.
func NewEngine() *Engine {
	return &Engine{Weights: DefaultWeights, Scam: DefaultScamConfig()}
}

// Scored pairs a listing with its score within one ranking call.
type Scored struct {
	Listing models.ProductListing
	Score   float64
}

// FindBestDeal runs availability filtering, scam filtering and scoring, and
// returns the top listing. When every available listing is flagged the first
// available one is returned; when nothing is in stock ok is false.
func (e *Engine) FindBestDeal(listings []models.ProductListing) (best models.ProductListing, ok bool) {
	available := FilterAvailable(listings)
	if len(available) == 0 {
		return models.ProductListing{}, false
	}
	ranked := e.rank(e.DetectScams(available))
	if len(ranked) == 0 {
		return available[0], true
	}
	return ranked[0].Listing, true
}

// Rank returns the available, non-flagged listings ordered best first.
func (e *Engine) Rank(listings []models.ProductListing) []Scored {
	return e.rank(e.DetectScams(FilterAvailable(listings)))
}

func (e *Engine) rank(set []models.ProductListing) []Scored {
	scored := make([]Scored, len(set))
	for i, l := range set {
		scored[i] = Scored{Listing: l, Score: e.Score(l, set)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if ta, tb := a.Listing.TotalCost(), b.Listing.TotalCost(); ta != tb {
			return ta < tb
		}
		if a.Listing.Price != b.Listing.Price {
			return a.Listing.Price < b.Listing.Price
		}
		return a.Listing.ReviewCount > b.Listing.ReviewCount
	})
	return scored
}

// Score is the weighted sum of the sub-scores of l against set.
func (e *Engine) Score(l models.ProductListing, set []models.ProductListing) float64 {
	w := e.Weights
	return PriceScore(l, set)*w.Price +
		TrustScore(l)*w.Trust +
		ShippingScore(l, set)*w.Shipping +
		AvailabilityScore(l)*w.Availability
}

// PriceScore maps price linearly onto [0,100] against the set, cheapest
// scoring 100. An empty set scores 50 and a flat set 100.
func PriceScore(l models.ProductListing, set []models.ProductListing) float64 {
	if len(set) == 0 {
		return 50
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, o := range set {
		min = math.Min(min, o.Price)
		max = math.Max(max, o.Price)
	}
	if min == max {
		return 100
	}
	return clamp((max - l.Price) / (max - min) * 100)
}

// TrustScore rewards rating (up to 70) and review volume (up to 30, log scale).
func TrustScore(l models.ProductListing) float64 {
	rating := l.RatingValue() / 5 * 70
	reviews := math.Min(30, math.Log10(float64(max(l.ReviewCount, 0))+1)*10)
	return rating + reviews
}

// ShippingScore gives free shipping 100 and unknown shipping 50. Paid
// shipping is normalized against the other paid shipping costs in set.
func ShippingScore(l models.ProductListing, set []models.ProductListing) float64 {
	if l.Shipping == nil {
		return 50
	}
	cost := *l.Shipping
	if cost == 0 {
		return 100
	}
	if len(set) == 0 {
		return 50
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, o := range set {
		if s := o.ShippingValue(); s > 0 {
			min = math.Min(min, s)
			max = math.Max(max, s)
		}
	}
	switch {
	case math.IsInf(min, 1):
		return 100
	case min == max:
		return 50
	}
	return clamp((max - cost) / (max - min) * 100)
}

// AvailabilityScore is 100 in stock, 50 on preorder and 0 otherwise.
func AvailabilityScore(l models.ProductListing) float64 {
	switch l.Availability {
	case models.InStock:
		return 100
	case models.Preorder:
		return 50
	}
	return 0
}

// PriceStats are the price moments scam detection compares against.
type PriceStats struct {
	Mean   float64
	StdDev float64
}

// PriceStatsOf computes population mean and standard deviation of prices.
func PriceStatsOf(listings []models.ProductListing) PriceStats {
	if len(listings) == 0 {
		return PriceStats{}
	}
	var sum float64
	for _, l := range listings {
		sum += l.Price
	}
	mean := sum / float64(len(listings))
	var sq float64
	for _, l := range listings {
		sq += (l.Price - mean) * (l.Price - mean)
	}
	return PriceStats{Mean: mean, StdDev: math.Sqrt(sq / float64(len(listings)))}
}

// ScamFlags counts the red flags raised by l.
func (e *Engine) ScamFlags(l models.ProductListing, stats PriceStats) int {
	cfg := e.Scam
	flags := 0
	if stats.Mean > 0 && l.Price < stats.Mean-cfg.StdDevs*stats.StdDev {
		flags++
	}
	if (l.Rating == nil || *l.Rating < cfg.LowRating) && l.Price > stats.Mean {
		flags++
	}
	if l.Rating != nil && *l.Rating == 5 && l.ReviewCount < cfg.MinReviews {
		flags++
	}
	if suspiciousSeller(l.Seller, cfg.SuspiciousSellers) {
		flags++
	}
	return flags
}

// DetectScams drops listings raising at least MinFlags red flags.
func (e *Engine) DetectScams(listings []models.ProductListing) []models.ProductListing {
	return e.partition(listings, false)
}

// Flagged is the complement of DetectScams: the listings it would drop.
func (e *Engine) Flagged(listings []models.ProductListing) []models.ProductListing {
	return e.partition(listings, true)
}

func (e *Engine) partition(listings []models.ProductListing, flagged bool) []models.ProductListing {
	stats := PriceStatsOf(listings)
	threshold := e.Scam.MinFlags
	if threshold <= 0 {
		threshold = 2
	}
	out := make([]models.ProductListing, 0, len(listings))
	for _, l := range listings {
		if (e.ScamFlags(l, stats) >= threshold) == flagged {
			out = append(out, l)
		}
	}
	return out
}

func suspiciousSeller(seller string, patterns []string) bool {
	s := strings.ToLower(seller)
	for _, p := range patterns {
		if p != "" && strings.Contains(s, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
