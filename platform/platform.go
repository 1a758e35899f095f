// Package platform holds the registry of supported retail sites and the
// extraction rules for each of them.
package platform

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/aluiziolira/pricescout/parser"
)

// QuickMaxResults caps each platform on the quick path.
const QuickMaxResults = 4

// QuickPlatforms is the curated subset scraped by latency-sensitive callers.
var QuickPlatforms = []string{"jumia", "konga", "jiji", "slot"}

// Platform describes one retail site.
type Platform struct {
	Name          string
	SearchURL     string // the URL-encoded query is appended
	Origin        string
	Currency      string
	RequiresJS    bool
	DefaultSeller string
	Rules         parser.Rules
}

// SearchURLFor builds the search URL for query.
func (p Platform) SearchURLFor(query string) string {
	return p.SearchURL + url.QueryEscape(strings.TrimSpace(query))
}

// Source returns the facts the extractor needs.
func (p Platform) Source() parser.Source {
	return parser.Source{
		Platform: p.Name,
		Origin:   p.Origin,
		Currency: p.Currency,
		Seller:   p.DefaultSeller,
		Rules:    p.Rules,
	}
}

// Validate checks the platform is usable.
func (p Platform) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("platform name cannot be empty")
	}
	if _, err := url.Parse(p.SearchURL); err != nil || p.SearchURL == "" {
		return fmt.Errorf("platform %s: invalid search url %q", p.Name, p.SearchURL)
	}
	if p.Currency == "" {
		return fmt.Errorf("platform %s: currency cannot be empty", p.Name)
	}
	if len(p.Rules.Containers) == 0 {
		return fmt.Errorf("platform %s: at least one container selector is required", p.Name)
	}
	if p.Rules.Name.Empty() || p.Rules.Price.Empty() {
		return fmt.Errorf("platform %s: name and price rules are required", p.Name)
	}
	return nil
}

// Registry maps platform identifiers to their configuration.
type Registry struct {
	mu        sync.RWMutex
	platforms map[string]Platform
}

// NewRegistry builds a registry from platforms.
func NewRegistry(platforms ...Platform) (*Registry, error) {
	r := &Registry{platforms: make(map[string]Platform, len(platforms))}
	for _, p := range platforms {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default returns a registry with every built-in platform.
func Default() *Registry {
	r, err := NewRegistry(builtin()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds or replaces a platform.
func (r *Registry) Register(p Platform) error {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	r.platforms[p.Name] = p
	r.mu.Unlock()
	return nil
}

// Lookup finds a platform by case-insensitive name.
func (r *Registry) Lookup(name string) (Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.platforms[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names returns the sorted platform identifiers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
