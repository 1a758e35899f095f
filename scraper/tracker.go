package scraper

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Tracker keeps the cancel functions of in-flight searches so a caller other
// than the one waiting on a search can stop it.
type Tracker struct {
	mu     sync.Mutex
	active map[string]*search
}

type search struct {
	cancel context.CancelFunc
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]*search)}
}

// Begin registers a search under a fresh id. The returned context is
// cancelled by Cancel, CancelAll or done; done must be called once the
// search finishes.
func (t *Tracker) Begin(parent context.Context) (string, context.Context, func()) {
	return t.BeginID(parent, "")
}

// BeginID is Begin with a caller-chosen id; an empty id gets a uuid.
func (t *Tracker) BeginID(parent context.Context, id string) (string, context.Context, func()) {
	if id == "" {
		id = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(parent)
	entry := &search{cancel: cancel}

	t.mu.Lock()
	if prev, ok := t.active[id]; ok {
		prev.cancel()
	}
	t.active[id] = entry
	t.mu.Unlock()

	var once sync.Once
	done := func() {
		once.Do(func() {
			t.mu.Lock()
			// A newer search may have reused the id.
			if t.active[id] == entry {
				delete(t.active, id)
			}
			t.mu.Unlock()
			cancel()
		})
	}
	return id, ctx, done
}

// Cancel stops the search with id and reports whether it was in flight.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	entry, ok := t.active[id]
	delete(t.active, id)
	t.mu.Unlock()
	if ok {
		entry.cancel()
	}
	return ok
}

// CancelAll stops every in-flight search.
func (t *Tracker) CancelAll() {
	t.mu.Lock()
	active := t.active
	t.active = make(map[string]*search)
	t.mu.Unlock()
	for _, entry := range active {
		entry.cancel()
	}
}

// Active lists in-flight search ids, sorted.
func (t *Tracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
