package browser

import (
	"context"
	"fmt"
	"sync"
)

// Isolated launches a private browser per Acquire. Closing the page tears the
// browser down, so a crash affects only one scrape.
type Isolated struct {
	opts Options

	mu     sync.Mutex
	live   map[int]context.CancelFunc
	next   int
	closed bool
}

// NewIsolated returns a per-call browser manager.
func NewIsolated(opts Options) *Isolated {
	return &Isolated{opts: opts, live: make(map[int]context.CancelFunc)}
}

func (m *Isolated) Acquire(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.mu.Unlock()

	browserCtx, cancel, err := launch(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return nil, ErrClosed
	}
	id := m.next
	m.next++
	m.live[id] = cancel
	m.mu.Unlock()

	return newTab(ctx, browserCtx, m.opts.launchTimeout(), m.opts.UserAgent, func() {
		m.mu.Lock()
		delete(m.live, id)
		m.mu.Unlock()
		cancel()
	})
}

// Shutdown kills every browser still open. Pages closed afterwards are no-ops.
func (m *Isolated) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	live := m.live
	m.live = make(map[int]context.CancelFunc)
	m.mu.Unlock()

	for _, cancel := range live {
		cancel()
	}
	return ctx.Err()
}

// Open reports how many private browsers are running.
func (m *Isolated) Open() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}
