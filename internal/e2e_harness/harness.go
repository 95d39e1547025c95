package e2e_harness

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/exdock/exdock/internal"
)

// TestHarness holds lightweight runners for dependencies used by E2E tests.
type TestHarness struct {
	PGContainer    testcontainers.Container
	PGDSN          string
	Pool           *pgxpool.Pool
	RedisContainer testcontainers.Container
	RedisAddr      string
	Redis          *redis.Client
}

// StartPostgres starts a postgres container, waits until it is reachable and
// applies the catalog schema. Caller is responsible for calling StopPostgres.
func (h *TestHarness) StartPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	h.PGContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}
	dsn := fmt.Sprintf("postgres://postgres:password@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	h.PGDSN = dsn

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return "", err
	}
	deadline := time.Now().Add(20 * time.Second)
	for {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		if time.Now().After(deadline) {
			pool.Close()
			return "", fmt.Errorf("postgres did not become ready: %w", err)
		}
		time.Sleep(200 * time.Millisecond)
	}

	if _, err := pool.Exec(ctx, internal.SchemaDDL()); err != nil {
		pool.Close()
		return "", fmt.Errorf("apply catalog schema: %w", err)
	}
	h.Pool = pool
	return dsn, nil
}

// StopPostgres stops the Postgres container and closes the pool.
func (h *TestHarness) StopPostgres(ctx context.Context) error {
	if h.Pool != nil {
		h.Pool.Close()
		h.Pool = nil
	}
	if h.PGContainer != nil {
		if err := h.PGContainer.Terminate(ctx); err != nil {
			return err
		}
		h.PGContainer = nil
	}
	return nil
}

// StartRedis starts a Redis container for the shared cache flag store and
// returns its address. Caller is responsible for calling StopRedis.
func (h *TestHarness) StartRedis(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	h.RedisContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	mapped, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return "", err
	}
	addr := fmt.Sprintf("%s:%s", host, mapped.Port())
	h.RedisAddr = addr

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return "", fmt.Errorf("redis did not become ready: %w", err)
	}
	h.Redis = client
	return addr, nil
}

// StopRedis stops the Redis container and closes the client.
func (h *TestHarness) StopRedis(ctx context.Context) error {
	if h.Redis != nil {
		h.Redis.Close()
		h.Redis = nil
	}
	if h.RedisContainer != nil {
		if err := h.RedisContainer.Terminate(ctx); err != nil {
			return err
		}
		h.RedisContainer = nil
	}
	return nil
}
