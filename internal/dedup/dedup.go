// Package dedup keeps threads from being processed twice. A set-if-absent
// marker per thread in Redis makes ingestion idempotent across worker
// restarts and concurrent pollers.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "leadpipe:seen:"

type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Filter {
	return &Filter{rdb: rdb, ttl: ttl}
}

// FirstSeen marks the thread as processed and reports whether this call was
// the first to do so. Only the winner of the SETNX race should continue.
func (f *Filter) FirstSeen(ctx context.Context, threadID string) (bool, error) {
	return f.rdb.SetNX(ctx, keyPrefix+threadID, "1", f.ttl).Result()
}

// Forget clears the marker so the thread can be reprocessed, used when a
// pipeline run fails after claiming the thread.
func (f *Filter) Forget(ctx context.Context, threadID string) error {
	return f.rdb.Del(ctx, keyPrefix+threadID).Err()
}
