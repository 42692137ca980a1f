package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a process local sliding log limiter
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemory returns a limiter admitting limit requests per key per window
func NewMemory(limit int, window time.Duration) *Memory {
	return &Memory{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   map[string][]time.Time{},
	}
}

// Allow records a request for key when it fits in the window
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := trim(m.hits[key], now.Add(-m.window))
	d := Decision{Limit: m.limit}

	if len(hits) >= m.limit {
		m.hits[key] = hits
		d.Reset = hits[0].Add(m.window)
		d.RetryAfter = d.Reset.Sub(now)
		return d, nil
	}

	hits = append(hits, now)
	m.hits[key] = hits
	d.Allowed = true
	d.Remaining = m.limit - len(hits)
	d.Reset = hits[0].Add(m.window)
	return d, nil
}

// Prune forgets keys with no request inside the window and returns how many
// were dropped
func (m *Memory) Prune() int {
	cutoff := m.now().Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for key, hits := range m.hits {
		if hits = trim(hits, cutoff); len(hits) == 0 {
			delete(m.hits, key)
			dropped++
			continue
		}
		m.hits[key] = hits
	}
	return dropped
}

// trim drops hits at or before cutoff. hits is sorted ascending.
func trim(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}
