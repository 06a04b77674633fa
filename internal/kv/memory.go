package kv

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

func (e memEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// Memory is an in-process Store, used for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	data    map[string]memEntry
	nowFunc func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: map[string]memEntry{}, nowFunc: time.Now}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok || !e.live(m.nowFunc()) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Apply(ctx context.Context, writes ...Write) error {
	if err := validate(writes); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	for _, w := range writes {
		if e, ok := m.data[w.Key]; ok && w.IfAbsent && e.live(now) {
			return ErrConflict
		}
	}
	for _, w := range writes {
		if w.Delete {
			delete(m.data, w.Key)
			continue
		}
		m.data[w.Key] = memEntry{value: w.Value, expiresAt: w.ExpiresAt}
	}
	return nil
}

// Len reports how many live keys are stored. Expired keys are dropped.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	for k, e := range m.data {
		if !e.live(now) {
			delete(m.data, k)
		}
	}
	return len(m.data)
}
