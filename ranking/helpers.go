package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/aluiziolira/pricescout/models"
)

// FilterAvailable keeps in-stock listings, preserving order.
func FilterAvailable(listings []models.ProductListing) []models.ProductListing {
	out := make([]models.ProductListing, 0, len(listings))
	for _, l := range listings {
		if l.Availability == models.InStock {
			out = append(out, l)
		}
	}
	return out
}

// Filter narrows a result set before ranking. Zero fields are ignored.
type Filter struct {
	MaxPrice  float64
	MinRating float64
}

// ApplyFilter keeps listings within f. An unknown rating counts as 0.
func ApplyFilter(listings []models.ProductListing, f Filter) []models.ProductListing {
	out := make([]models.ProductListing, 0, len(listings))
	for _, l := range listings {
		if f.MaxPrice > 0 && l.Price > f.MaxPrice {
			continue
		}
		if f.MinRating > 0 && l.RatingValue() < f.MinRating {
			continue
		}
		out = append(out, l)
	}
	return out
}

// SortKey selects the ordering used by SortBy.
type SortKey string

const (
	ByPrice     SortKey = "price"
	ByRating    SortKey = "rating"
	ByTotalCost SortKey = "total_cost"
)

// SortBy returns a stably sorted copy. Prices and totals ascend; ratings
// descend with unknown ratings last. An unknown key returns the copy unsorted.
func SortBy(listings []models.ProductListing, key SortKey) []models.ProductListing {
	out := append([]models.ProductListing(nil), listings...)
	switch key {
	case ByPrice:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case ByRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].RatingValue() > out[j].RatingValue() })
	case ByTotalCost:
		sort.SliceStable(out, func(i, j int) bool { return TotalCost(out[i]) < TotalCost(out[j]) })
	}
	return out
}

// TotalCost is price plus shipping, unknown shipping counted as 0.
func TotalCost(l models.ProductListing) float64 {
	return l.TotalCost()
}

// Stats summarizes a listing set for display.
type Stats struct {
	Count     int     `json:"count"`
	AvgPrice  float64 `json:"avgPrice"`
	MinPrice  float64 `json:"minPrice"`
	MaxPrice  float64 `json:"maxPrice"`
	AvgRating float64 `json:"avgRating"`
	InStock   int     `json:"inStock"`
}

// Summarize computes Stats. Only known, positive ratings enter AvgRating.
func Summarize(listings []models.ProductListing) Stats {
	if len(listings) == 0 {
		return Stats{}
	}
	s := Stats{Count: len(listings), MinPrice: math.Inf(1), MaxPrice: math.Inf(-1)}
	var priceSum, ratingSum float64
	rated := 0
	for _, l := range listings {
		priceSum += l.Price
		s.MinPrice = math.Min(s.MinPrice, l.Price)
		s.MaxPrice = math.Max(s.MaxPrice, l.Price)
		if r := l.RatingValue(); r > 0 {
			ratingSum += r
			rated++
		}
		if l.Availability == models.InStock {
			s.InStock++
		}
	}
	s.AvgPrice = priceSum / float64(len(listings))
	if rated > 0 {
		s.AvgRating = ratingSum / float64(rated)
	}
	return s
}

// Compare explains the cost difference between two listings, mentioning the
// rating gap when the pricier one is rated more than half a point higher.
func Compare(a, b models.ProductListing) string {
	ta, tb := TotalCost(a), TotalCost(b)
	if ta == tb {
		return fmt.Sprintf("%s and %s both cost %s %.2f.", a.Seller, b.Seller, a.Currency, ta)
	}
	cheaper, pricier := a, b
	if tb < ta {
		cheaper, pricier = b, a
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is %s %.2f cheaper than %s.", cheaper.Seller, cheaper.Currency, math.Abs(ta-tb), pricier.Seller)
	if cheaper.Rating != nil && pricier.Rating != nil {
		if diff := *pricier.Rating - *cheaper.Rating; diff > 0.5 {
			fmt.Fprintf(&sb, " However, %s has a %.1f point higher rating.", pricier.Seller, diff)
		}
	}
	return sb.String()
}
