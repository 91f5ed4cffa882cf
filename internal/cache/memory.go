package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// sweepInterval is the minimum time between scans for expired entries
const sweepInterval = time.Minute

type entry struct {
	value   string
	expires time.Time
}

// Memory is an in-process Store. It backs tests and local runs without Redis.
// Expired entries are dropped by writes at most once per sweepInterval.
type Memory struct {
	mu        sync.Mutex
	items     map[string]entry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok || m.expired(e) {
		delete(m.items, key)
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep()
	m.items[key] = m.entry(value, ttl)
	return nil
}

func (m *Memory) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep()
	var n int64
	if e, ok := m.items[key]; ok && !m.expired(e) {
		n, _ = strconv.ParseInt(e.value, 10, 64)
	}
	n++
	m.items[key] = m.entry(strconv.FormatInt(n, 10), ttl)
	return n, nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Len reports the number of stored entries, expired ones included until swept
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// sweep must be called with mu held
func (m *Memory) sweep() {
	now := m.now()
	if now.Before(m.nextSweep) {
		return
	}
	for k, e := range m.items {
		if m.expired(e) {
			delete(m.items, k)
		}
	}
	m.nextSweep = now.Add(sweepInterval)
}

func (m *Memory) entry(value string, ttl time.Duration) entry {
	e := entry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	return e
}

func (m *Memory) expired(e entry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
