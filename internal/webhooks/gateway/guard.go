package gateway

import (
	"context"
	"time"

	"github.com/soko-labs/sokolist-backend/pkg/logger"
	"github.com/soko-labs/sokolist-backend/pkg/redis"
)

const guardScope = "webhook:gateway"

// IdempotencyGuard short-circuits webhook redeliveries before they hit the
// database. It is purely an optimization: the conditional ledger write is
// what actually guarantees exactly-once side effects, so a Redis outage
// degrades to extra database work, never to double processing.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewIdempotencyGuard builds a guard. A nil store yields a guard that always
// lets deliveries through, which keeps the caller free of nil checks when
// Redis is not configured.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{store: store, ttl: ttl, logg: logg}
}

// CheckAndMark records the delivery and reports whether it is the first one
// seen. Errors are logged and treated as first delivery.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, reference, status string) bool {
	if g == nil || g.store == nil {
		return true
	}
	key := g.store.IdempotencyKey(guardScope, reference+":"+status)
	first, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		if g.logg != nil {
			g.logg.Warn(ctx, "webhook dedup check failed, processing anyway")
		}
		return true
	}
	return first
}

// Release clears the mark so a redelivery can retry after a processing
// failure.
func (g *IdempotencyGuard) Release(ctx context.Context, reference, status string) {
	if g == nil || g.store == nil {
		return
	}
	key := g.store.IdempotencyKey(guardScope, reference+":"+status)
	if err := g.store.Del(ctx, key); err != nil && g.logg != nil {
		g.logg.Warn(ctx, "webhook dedup release failed")
	}
}
