package internal

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/exdock/exdock"
)

// RebuildFunc loads a cache domain's payload from the source of truth.
type RebuildFunc func(ctx context.Context) (any, error)

// CacheService serves named cache domains in front of the datastore. Reads
// trust the held payload only while the domain's flag is clean; rebuilds
// follow the snapshot / compare-and-clear discipline so an invalidation that
// races into the rebuild window is never lost.
type CacheService struct {
	flags exdock.FlagStore

	mu       sync.RWMutex
	payloads map[string]any
	rebuilds map[string]RebuildFunc
}

func NewCacheService(flags exdock.FlagStore) *CacheService {
	return &CacheService{
		flags:    flags,
		payloads: make(map[string]any),
		rebuilds: make(map[string]RebuildFunc),
	}
}

// Register binds a rebuild function to a cache domain. Domains without a
// rebuild function are unknown to Fetch.
func (c *CacheService) Register(domain string, rebuild RebuildFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuilds[domain] = rebuild
}

// Fetch returns the domain's payload, rebuilding it first when the domain is
// dirty or has never been built.
func (c *CacheService) Fetch(ctx context.Context, domain string) (any, error) {
	c.mu.RLock()
	rebuild, registered := c.rebuilds[domain]
	payload, built := c.payloads[domain]
	c.mu.RUnlock()

	if !registered {
		return nil, exdock.NewUnknownCacheKeyError(domain)
	}

	dirty, err := c.flags.IsDirty(ctx, domain)
	if err != nil {
		return nil, err
	}
	if built && !dirty {
		cacheHits.WithLabelValues(domain).Inc()
		return payload, nil
	}
	cacheMisses.WithLabelValues(domain).Inc()

	// Snapshot before the rebuild read starts. If a write lands between here
	// and CompareAndClear, the clear is refused and the flag stays dirty.
	snapshot, err := c.flags.Snapshot(ctx, domain)
	if err != nil {
		return nil, err
	}

	payload, err = rebuild(ctx)
	if err != nil {
		return nil, err
	}
	cacheRebuilds.WithLabelValues(domain).Inc()

	c.mu.Lock()
	c.payloads[domain] = payload
	c.mu.Unlock()

	cleared, err := c.flags.CompareAndClear(ctx, domain, snapshot)
	if err != nil {
		return nil, err
	}
	if !cleared {
		zap.S().Debugw("cache rebuild raced a write, staying dirty", "domain", domain)
	}
	return payload, nil
}

// FetchMany serves a semicolon-separated domain list in one call, the request
// shape the storefront uses ("accounts;categories"). Unknown keys fail the
// whole request.
func (c *CacheService) FetchMany(ctx context.Context, domains string) (map[string]any, error) {
	keys := strings.Split(domains, ";")
	result := make(map[string]any, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		payload, err := c.Fetch(ctx, key)
		if err != nil {
			return nil, err
		}
		result[key] = payload
	}
	return result, nil
}
