// Package parser turns scraped markup into normalized product listings.
package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/aluiziolira/pricescout/models"
)

var (
	nonPriceChars = regexp.MustCompile(`[^\d.,]`)
	nonDigits     = regexp.MustCompile(`[^\d]`)
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	countPattern  = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*([kKmM])?`)
	amountPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// ParsePrice extracts a price from display text such as "$1,299.99" or "₦ 250,000".
// Commas are treated as thousands separators and anything after the first '.'
// is dropped, since separators are ambiguous across storefronts. Unparseable
// text yields 0.
func ParsePrice(text string) float64 {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		cleaned = cleaned[:i]
	}
	if cleaned == "" {
		return 0
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}
	return price
}

// JoinPrice combines a whole-units node and a fraction node ("1,299." and "99")
// for storefronts that render the two parts separately.
func JoinPrice(whole, fraction string) float64 {
	w := nonDigits.ReplaceAllString(whole, "")
	if w == "" {
		return 0
	}
	f := nonDigits.ReplaceAllString(fraction, "")
	if f == "" {
		f = "0"
	}
	price, err := strconv.ParseFloat(w+"."+f, 64)
	if err != nil {
		return 0
	}
	return price
}

// ParseRating reads the first number in text and multiplies it by scale.
// It returns nil when no number is present or the scaled value leaves [0,5].
func ParseRating(text string, scale float64) *float64 {
	m := numberPattern.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return nil
	}
	if scale > 0 {
		v *= scale
	}
	if v < 0 || v > 5 {
		return nil
	}
	v = math.Round(v*100) / 100
	return &v
}

// ParseCount reads a review count like "(1,234)" or "2.3K ratings".
func ParseCount(text string) int {
	m := countPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}
	switch strings.ToLower(m[2]) {
	case "k":
		v *= 1_000
	case "m":
		v *= 1_000_000
	}
	return int(math.Round(v))
}

// ParseShipping reads a shipping cost. Free shipping yields 0 and text without
// an amount yields nil (unknown).
func ParseShipping(text string) *float64 {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return nil
	}
	if strings.Contains(t, "free") {
		return models.Float(0)
	}
	m := amountPattern.FindString(t)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// AbsoluteURL resolves href against the platform origin.
func AbsoluteURL(origin, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(strings.ToLower(href), "javascript:"), strings.HasPrefix(href, "data:"):
		return ""
	}
	origin = strings.TrimRight(origin, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return origin + href
}

// CleanText collapses runs of whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
