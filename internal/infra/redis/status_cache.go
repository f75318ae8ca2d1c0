package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"quiz-payment-engine/internal/domain"
	"quiz-payment-engine/internal/domain/ports/repository"
)

var _ repository.StatusCache = (*statusCache)(nil)

// statusCache is a per-instance, TTL-bounded projection of the ledger in
// Redis. Entries are written opportunistically by whichever component last
// observed a status; the ledger remains the source of truth.
type statusCache struct {
	cache RedisClient
	ttl   time.Duration
}

func NewStatusCache(cache RedisClient, ttl time.Duration) *statusCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &statusCache{cache: cache, ttl: ttl}
}

func statusKey(provider, clientTxnID string) string {
	return fmt.Sprintf("txn:%s:%s", provider, clientTxnID)
}

func (c *statusCache) Get(ctx context.Context, provider, clientTxnID string) (*repository.StatusEntry, error) {
	val, err := c.cache.Get(ctx, statusKey(provider, clientTxnID))
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var e repository.StatusEntry
	if err := json.Unmarshal([]byte(val), &e); err != nil {
		// A corrupt entry is indistinguishable from a miss; the ledger
		// fallback repairs it.
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (c *statusCache) Put(ctx context.Context, provider, clientTxnID string, e *repository.StatusEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, statusKey(provider, clientTxnID), b, c.ttl)
}
