package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

const defaultMaxItems = 10000

type memEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is the in-process tier. It also satisfies Backend, which lets tests
// run the full cache without Redis.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memEntry
	max   int
	now   func() time.Time
}

// NewMemory returns an empty memory tier. now overrides the clock; pass nil
// for time.Now.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{items: make(map[string]memEntry), max: defaultMaxItems, now: now}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memEntry{value: value, expiresAt: m.now().Add(ttl)}
	if len(m.items) > m.max {
		m.evictLocked()
	}
	return nil
}

// evictLocked drops expired entries first, then arbitrary ones until under
// the cap. Best effort, same as the rest of this tier.
func (m *Memory) evictLocked() {
	now := m.now()
	for k, e := range m.items {
		if now.After(e.expiresAt) {
			delete(m.items, k)
		}
	}
	for k := range m.items {
		if len(m.items) <= m.max {
			return
		}
		delete(m.items, k)
	}
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.items {
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
