package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exdock/exdock"
)

// With the breaker open no Redis round-trip happens, so a nil client is safe
// here. Reads must degrade to "dirty, never cleared".
func TestRedisFlagStoreDegradesWhileBreakerOpen(t *testing.T) {
	store := NewRedisFlagStore(nil, "test:cacheflag")
	for i := 0; i < 5; i++ {
		store.breaker.RecordFailure()
	}
	require.True(t, store.breaker.IsOpen())
	ctx := context.Background()

	dirty, err := store.IsDirty(ctx, exdock.CacheDomainProducts)
	require.NoError(t, err)
	assert.True(t, dirty)

	snapshot, err := store.Snapshot(ctx, exdock.CacheDomainProducts)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), snapshot)

	cleared, err := store.CompareAndClear(ctx, exdock.CacheDomainProducts, snapshot)
	require.NoError(t, err)
	assert.False(t, cleared)

	err = store.MarkDirty(ctx, exdock.CacheDomainProducts)
	assert.True(t, exdock.IsCode(err, exdock.ErrCodeStoreFailure))
}

func TestRedisFlagStoreKeys(t *testing.T) {
	store := NewRedisFlagStore(nil, "exdock:cacheflag")
	assert.Equal(t, "exdock:cacheflag:products:version", store.versionKey("products"))
	assert.Equal(t, "exdock:cacheflag:products:dirty", store.dirtyKey("products"))
}
