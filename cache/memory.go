package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is a bounded in-process cache. The least recently used entry is
// evicted when full; expired entries are dropped when read.
type Memory struct {
	// mu makes the expiry check and removal in Get atomic with respect to Set.
	mu      sync.Mutex
	entries *lru.Cache[string, entry]
	now     func() time.Time
}

// NewMemory builds a cache holding at most size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Memory{entries: entries, now: time.Now}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.entries.Remove(key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a copy of value. A non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries.Add(key, e)
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	return m.entries.Len()
}
