// Package ledger records which authorization codes have been redeemed, so a
// code can only be exchanged once. Keys are opaque to the ledger; the server
// passes a digest of the code, never the code itself.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is a ledger held in process. Entries are dropped once their ttl has
// passed, by which time the code they record has expired anyway.
type Memory struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, struct{}]
}

// NewMemory creates a Memory ledger and starts its cleanup loop. Call Close
// to stop it.
func NewMemory() *Memory {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)

	go cache.Start()

	return &Memory{cache: cache}
}

// Consume records key, returning false if it was already recorded and has not
// yet expired.
func (m *Memory) Consume(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if item := m.cache.Get(key); item != nil {
		return false, nil
	}

	m.cache.Set(key, struct{}{}, ttl)
	return true, nil
}

// Len returns the number of codes currently recorded.
func (m *Memory) Len() int {
	return m.cache.Len()
}

// Close stops the cleanup loop.
func (m *Memory) Close() error {
	m.cache.Stop()

	return nil
}
