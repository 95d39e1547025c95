package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/exdock/exdock"
)

// compareAndClearScript clears the dirty bit only when the version counter
// still matches the caller's snapshot. KEYS[1] is the version key, KEYS[2]
// the dirty key, ARGV[1] the snapshot.
var errRedisUnavailable = fmt.Errorf("redis circuit breaker open")

var compareAndClearScript = redis.NewScript(`
local version = tonumber(redis.call('GET', KEYS[1]) or '0')
if version == tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], '0')
	return 1
end
return 0
`)

// RedisFlagStore is the multi-process variant of the cache invalidation bus.
// Every process sharing the Redis instance observes the same flags under the
// same compare-and-clear contract as the in-process FlagSet.
//
// A circuit breaker guards the Redis round-trips. While it is open, reads
// degrade to the safe side: every domain reports dirty and no clear is ever
// acknowledged, so caches keep rebuilding from the source of truth until
// Redis recovers.
type RedisFlagStore struct {
	client    *redis.Client
	keyPrefix string
	breaker   *CircuitBreaker
}

func NewRedisFlagStore(client *redis.Client, keyPrefix string) *RedisFlagStore {
	return &RedisFlagStore{
		client:    client,
		keyPrefix: keyPrefix,
		breaker:   NewCircuitBreaker(5, 30*time.Second, 15*time.Second),
	}
}

func (r *RedisFlagStore) versionKey(domain string) string {
	return fmt.Sprintf("%s:%s:version", r.keyPrefix, domain)
}

func (r *RedisFlagStore) dirtyKey(domain string) string {
	return fmt.Sprintf("%s:%s:dirty", r.keyPrefix, domain)
}

func (r *RedisFlagStore) MarkDirty(ctx context.Context, domain string) error {
	if r.breaker.IsOpen() {
		return exdock.NewStoreFailureError("mark cache domain dirty", errRedisUnavailable).WithDetail("domain", domain)
	}
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, r.versionKey(domain))
	pipe.Set(ctx, r.dirtyKey(domain), "1", 0)
	if _, err := pipe.Exec(ctx); err != nil {
		r.breaker.RecordFailure()
		return exdock.NewStoreFailureError("mark cache domain dirty", err).WithDetail("domain", domain)
	}
	r.breaker.RecordSuccess()
	cacheInvalidations.WithLabelValues(domain).Inc()
	return nil
}

func (r *RedisFlagStore) IsDirty(ctx context.Context, domain string) (bool, error) {
	if r.breaker.IsOpen() {
		return true, nil
	}
	value, err := r.client.Get(ctx, r.dirtyKey(domain)).Result()
	if err != nil {
		if err == redis.Nil {
			r.breaker.RecordSuccess()
			return false, nil
		}
		r.breaker.RecordFailure()
		return false, exdock.NewStoreFailureError("read cache domain flag", err).WithDetail("domain", domain)
	}
	r.breaker.RecordSuccess()
	return value == "1", nil
}

func (r *RedisFlagStore) Snapshot(ctx context.Context, domain string) (uint64, error) {
	if r.breaker.IsOpen() {
		return 0, nil
	}
	version, err := r.client.Get(ctx, r.versionKey(domain)).Uint64()
	if err != nil {
		if err == redis.Nil {
			r.breaker.RecordSuccess()
			return 0, nil
		}
		r.breaker.RecordFailure()
		return 0, exdock.NewStoreFailureError("read cache domain version", err).WithDetail("domain", domain)
	}
	r.breaker.RecordSuccess()
	return version, nil
}

func (r *RedisFlagStore) CompareAndClear(ctx context.Context, domain string, snapshot uint64) (bool, error) {
	if r.breaker.IsOpen() {
		return false, nil
	}
	keys := []string{r.versionKey(domain), r.dirtyKey(domain)}
	cleared, err := compareAndClearScript.Run(ctx, r.client, keys, snapshot).Int()
	if err != nil {
		r.breaker.RecordFailure()
		return false, exdock.NewStoreFailureError("compare-and-clear cache domain flag", err).WithDetail("domain", domain)
	}
	r.breaker.RecordSuccess()
	return cleared == 1, nil
}

var _ exdock.FlagStore = (*RedisFlagStore)(nil)
