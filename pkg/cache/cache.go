package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a string key/value store with per-key expiry. Both the redis
// client and Memory satisfy it.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Take(ctx context.Context, key string) (string, bool, error)
}

type item struct {
	value      string
	expiration int64
}

// Memory is an in-process Store used when redis is disabled. Entries are not
// shared between replicas.
type Memory struct {
	items map[string]item
	mu    sync.Mutex
	stop  chan struct{}
	once  sync.Once
}

func NewMemory(gcInterval time.Duration) *Memory {
	m := &Memory{
		items: make(map[string]item),
		stop:  make(chan struct{}),
	}
	go m.startGC(gcInterval)
	return m
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = item{
		value:      value,
		expiration: time.Now().Add(ttl).UnixNano(),
	}
	return nil
}

// Take returns and removes the entry for key if it has not expired.
func (m *Memory) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, found := m.items[key]
	if !found {
		return "", false, nil
	}
	delete(m.items, key)

	if time.Now().UnixNano() > it.expiration {
		return "", false, nil
	}
	return it.value, true, nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stop ends the background sweeper.
func (m *Memory) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Memory) startGC(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := time.Now().UnixNano()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.items {
		if now > v.expiration {
			delete(m.items, k)
		}
	}
}
