package enrich

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/anticine/anticine/internal/cinema"
)

// Memo caches enrichment results by corporate film id. Concurrent requests
// for the same id share one computation.
type Memo struct {
	mu    sync.RWMutex
	items map[string]*cinema.Enrichment
	group singleflight.Group
}

// NewMemo creates an empty memo.
func NewMemo() *Memo {
	return &Memo{items: make(map[string]*cinema.Enrichment)}
}

// Get returns the memoized enrichment for a film.
func (m *Memo) Get(filmID string) (*cinema.Enrichment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[filmID]
	return e, ok
}

// Do returns the memoized value for filmID or computes it with fn. Errors
// are returned to every waiting caller and nothing is stored.
func (m *Memo) Do(filmID string, fn func() (*cinema.Enrichment, error)) (*cinema.Enrichment, error) {
	if e, ok := m.Get(filmID); ok {
		return e, nil
	}

	v, err, _ := m.group.Do(filmID, func() (any, error) {
		// a previous flight may have finished between Get and Do
		if e, ok := m.Get(filmID); ok {
			return e, nil
		}
		e, err := fn()
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.items[filmID] = e
		m.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cinema.Enrichment), nil
}

// Len returns the number of memoized films.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Clear drops every memoized film.
func (m *Memo) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*cinema.Enrichment)
}
