package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses repeats of the same action within ttl.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce returns true the first time action+key is seen within ttl.
// Without Redis, or when Redis fails, it always returns true.
func (d *Deduper) AcquireOnce(ctx context.Context, action string, key string) bool {
	if d == nil || d.rdb == nil {
		return true
	}
	k := fmt.Sprintf("dedup:%s:%s", action, key)

	ok, err := d.rdb.SetNX(ctx, k, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
