package worker

import (
	"context"
	"sync"
	"time"
)

// Deduper claims a key for ttl. Claim reports false when the key is already held.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// MemoryDeduper is a process-local Deduper used when redis is not configured.
type MemoryDeduper struct {
	mu   sync.Mutex
	now  func() time.Time
	keys map[string]time.Time
}

// NewMemoryDeduper builds a deduper reading time from now.
func NewMemoryDeduper(now func() time.Time) *MemoryDeduper {
	if now == nil {
		now = time.Now
	}
	return &MemoryDeduper{now: now, keys: make(map[string]time.Time)}
}

func (d *MemoryDeduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.keys[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.keys[key] = now.Add(ttl)
	return true, nil
}
