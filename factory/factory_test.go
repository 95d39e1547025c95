package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exdock/exdock"
)

func TestNewFlagStoreFallsBackToMemory(t *testing.T) {
	config := exdock.DefaultConfig()
	config.Cache.Enabled = false

	flags, err := newFlagStore(config)
	require.NoError(t, err)
	assert.NotNil(t, flags)
	assert.Equal(t, "memory", cacheBackendName(config))

	// Enabled but without an address still means in-process flags.
	config.Cache.Enabled = true
	config.Cache.RedisAddr = ""
	flags, err = newFlagStore(config)
	require.NoError(t, err)
	assert.NotNil(t, flags)
	assert.Equal(t, "memory", cacheBackendName(config))
}

func TestCacheBackendNameRedis(t *testing.T) {
	config := exdock.DefaultConfig()
	config.Cache.Enabled = true
	config.Cache.RedisAddr = "localhost:6379"
	assert.Equal(t, "redis", cacheBackendName(config))
}

func TestNewCatalogServiceRejectsInvalidConfig(t *testing.T) {
	config := exdock.DefaultConfig()
	config.Database.MaxConnections = 0

	_, err := NewCatalogService(config, nil)
	require.Error(t, err)
}
