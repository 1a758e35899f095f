// Package cache stores scrape results between searches. Values are opaque
// bytes; listing helpers encode them as JSON.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aluiziolira/pricescout/models"
)

// Cache is a TTL key/value store.
type Cache interface {
	// Get reports a miss with ok=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SearchKey identifies one platform's results for a query.
func SearchKey(query, platform string) string {
	return strings.ToLower(strings.TrimSpace(query)) + ":" + strings.ToLower(platform)
}

// AnalysisKey identifies a derived result by a hash of its input.
func AnalysisKey(content []byte) string {
	sum := sha256.Sum256(content)
	return "analysis:" + hex.EncodeToString(sum[:])
}

// EncodeListings serializes listings for storage.
func EncodeListings(listings []models.ProductListing) ([]byte, error) {
	if listings == nil {
		listings = []models.ProductListing{}
	}
	b, err := json.Marshal(listings)
	if err != nil {
		return nil, fmt.Errorf("encode listings: %w", err)
	}
	return b, nil
}

// DecodeListings is the inverse of EncodeListings.
func DecodeListings(b []byte) ([]models.ProductListing, error) {
	var listings []models.ProductListing
	if err := json.Unmarshal(b, &listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	if listings == nil {
		listings = []models.ProductListing{}
	}
	return listings, nil
}

// Listings reads and writes listing slices through a Cache.
type Listings struct {
	Cache Cache
	TTL   time.Duration
}

// GetListings returns the cached listings under key. A corrupt entry is
// reported as an error, never as a hit.
func (l Listings) GetListings(ctx context.Context, key string) ([]models.ProductListing, bool, error) {
	if l.Cache == nil {
		return nil, false, nil
	}
	b, ok, err := l.Cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	listings, err := DecodeListings(b)
	if err != nil {
		return nil, false, err
	}
	return listings, true, nil
}

// PutListings stores listings under key with the configured TTL.
func (l Listings) PutListings(ctx context.Context, key string, listings []models.ProductListing) error {
	if l.Cache == nil {
		return nil
	}
	b, err := EncodeListings(listings)
	if err != nil {
		return err
	}
	return l.Cache.Set(ctx, key, b, l.TTL)
}
