package factory

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/exdock/exdock"
	"github.com/exdock/exdock/internal"
)

// NewCatalogService wires the catalog subsystem on top of the provided pool
// and returns its dispatcher. This is the primary way for external projects
// to embed the catalog.
//
// Usage:
//
//	import (
//	    "github.com/exdock/exdock"
//	    "github.com/exdock/exdock/factory"
//	)
//
//	config := exdock.DefaultConfig()
//	dispatcher, err := factory.NewCatalogService(config, pool)
//	if err != nil {
//	    // handle error
//	}
func NewCatalogService(config *exdock.Config, pool *pgxpool.Pool) (exdock.Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := verifySchema(pool); err != nil {
		return nil, err
	}

	flags, err := newFlagStore(config)
	if err != nil {
		return nil, err
	}

	registry := internal.NewPostgresAttributeRegistry(pool, flags)
	options := internal.NewPostgresOptionStore(pool, registry, flags)
	values := internal.NewPostgresValueStore(pool, registry, options, flags)
	hierarchy := internal.NewPostgresStoreHierarchy(pool)
	resolver := internal.NewScopeResolver(registry, values, hierarchy)
	accounts := internal.NewPostgresAccountRepository(pool, flags)

	cache := internal.NewCacheService(flags)
	cache.Register(exdock.CacheDomainProducts, func(ctx context.Context) (any, error) {
		return registry.List(ctx)
	})
	cache.Register(exdock.CacheDomainAccounts, func(ctx context.Context) (any, error) {
		return accounts.GetAllUsers(ctx)
	})

	zap.S().Infow("catalog service wired",
		"cacheBackend", cacheBackendName(config),
		"maxConnections", config.Database.MaxConnections)
	return internal.NewDispatcher(registry, values, options, resolver, flags, cache, accounts), nil
}

// verifySchema checks that the core tables exist before any repository is
// handed out, so a misapplied migration fails loudly at startup.
func verifySchema(pool *pgxpool.Pool) error {
	rows, err := pool.Query(context.Background(), `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE';`)
	if err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	for _, required := range []string{"custom_product_attributes", "eav", "users", "backend_permissions"} {
		if !slices.Contains(tables, required) {
			return fmt.Errorf("required table %q is missing in the database", required)
		}
	}
	return nil
}

func newFlagStore(config *exdock.Config) (exdock.FlagStore, error) {
	if !config.Cache.Enabled || config.Cache.RedisAddr == "" {
		return internal.NewFlagSet(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: config.Cache.RedisAddr,
		DB:   config.Cache.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach redis at %s: %w", config.Cache.RedisAddr, err)
	}
	return internal.NewRedisFlagStore(client, config.Cache.KeyPrefix), nil
}

func cacheBackendName(config *exdock.Config) string {
	if config.Cache.Enabled && config.Cache.RedisAddr != "" {
		return "redis"
	}
	return "memory"
}
