package internal

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/exdock/exdock"
)

// PostgresStoreHierarchy resolves the website owning a store view from the
// store_views table. The mapping changes only when a storefront is added or
// moved, so hits are cached for the process lifetime.
type PostgresStoreHierarchy struct {
	pool dbPool

	cacheMu sync.RWMutex
	cache   map[int64]int64
}

func NewPostgresStoreHierarchy(pool dbPool) *PostgresStoreHierarchy {
	return &PostgresStoreHierarchy{
		pool:  pool,
		cache: make(map[int64]int64),
	}
}

func (h *PostgresStoreHierarchy) WebsiteFor(ctx context.Context, storeViewID int64) (int64, error) {
	h.cacheMu.RLock()
	websiteID, ok := h.cache[storeViewID]
	h.cacheMu.RUnlock()
	if ok {
		return websiteID, nil
	}

	err := h.pool.QueryRow(ctx,
		`SELECT website_id FROM store_views WHERE store_view_id = $1`, storeViewID,
	).Scan(&websiteID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, exdock.NewNotFoundError("store view is not registered").WithDetail("storeViewId", storeViewID)
		}
		return 0, exdock.NewStoreFailureError("select store view website", err)
	}

	h.cacheMu.Lock()
	h.cache[storeViewID] = websiteID
	h.cacheMu.Unlock()
	return websiteID, nil
}

// StaticStoreHierarchy is a fixed store-view to website mapping, used by tests
// and single-website deployments.
type StaticStoreHierarchy map[int64]int64

func (m StaticStoreHierarchy) WebsiteFor(_ context.Context, storeViewID int64) (int64, error) {
	websiteID, ok := m[storeViewID]
	if !ok {
		return 0, exdock.NewNotFoundError("store view is not registered").WithDetail("storeViewId", storeViewID)
	}
	return websiteID, nil
}

var (
	_ exdock.StoreHierarchy = (*PostgresStoreHierarchy)(nil)
	_ exdock.StoreHierarchy = (StaticStoreHierarchy)(nil)
)
