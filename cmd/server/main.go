package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/exdock/exdock"
	"github.com/exdock/exdock/factory"
	"github.com/exdock/exdock/internal"
)

// Server is the HTTP front of the catalog dispatcher.
type Server struct {
	dispatcher exdock.Dispatcher
	health     func(ctx context.Context) error
	mux        *http.ServeMux
}

func NewServer(dispatcher exdock.Dispatcher, health func(ctx context.Context) error) *Server {
	return &Server{
		dispatcher: dispatcher,
		health:     health,
		mux:        http.NewServeMux(),
	}
}

// RegisterRoutes registers all API routes plus the operational endpoints.
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("POST /api/v1/attributes", s.handleDefineAttribute)
	s.mux.HandleFunc("GET /api/v1/attributes", s.handleListAttributes)
	s.mux.HandleFunc("DELETE /api/v1/attributes/{key}", s.handleRemoveAttribute)

	s.mux.HandleFunc("POST /api/v1/attributes/{key}/options", s.handleAddOption)
	s.mux.HandleFunc("GET /api/v1/attributes/{key}/options", s.handleListOptions)
	s.mux.HandleFunc("DELETE /api/v1/attributes/{key}/options/{option}", s.handleRemoveOption)

	s.mux.HandleFunc("PUT /api/v1/products/{product}/values/{key}", s.handleSetValue)
	s.mux.HandleFunc("GET /api/v1/products/{product}/values/{key}", s.handleGetValue)
	s.mux.HandleFunc("DELETE /api/v1/products/{product}/values/{key}", s.handleDeleteValue)
	s.mux.HandleFunc("GET /api/v1/products/{product}/resolved/{key}", s.handleResolveValue)

	s.mux.HandleFunc("POST /api/v1/cache/{domain}/dirty", s.handleMarkDirty)
	s.mux.HandleFunc("GET /api/v1/cache/{domain}/dirty", s.handleIsDirty)
	s.mux.HandleFunc("GET /api/v1/cache", s.handleCacheData)

	s.mux.HandleFunc("GET /api/v1/users", s.handleGetUsers)
	s.mux.HandleFunc("POST /api/v1/users", s.handleCreateUser)
	s.mux.HandleFunc("GET /api/v1/users/{user}", s.handleGetUser)
	s.mux.HandleFunc("PUT /api/v1/users/{user}", s.handleUpdateUser)
	s.mux.HandleFunc("DELETE /api/v1/users/{user}", s.handleDeleteUser)
	s.mux.HandleFunc("GET /api/v1/users/{user}/permissions", s.handleGetPermissions)
	s.mux.HandleFunc("POST /api/v1/users/{user}/permissions", s.handleCreatePermissions)
	s.mux.HandleFunc("PUT /api/v1/users/{user}/permissions", s.handleUpdatePermissions)
	s.mux.HandleFunc("DELETE /api/v1/users/{user}/permissions", s.handleDeletePermissions)

	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if s.health != nil {
			if err := s.health(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

// Start starts the HTTP server on the given port.
func (s *Server) Start(port string) error {
	zap.S().Infow("starting server", "port", port)
	return http.ListenAndServe(":"+port, s.mux)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	config := exdock.DefaultConfig()
	config.Database.Host = getEnv("DB_HOST", "localhost")
	config.Database.Port = getEnvInt("DB_PORT", 5432)
	config.Database.Database = getEnv("DB_NAME", "exdock")
	config.Database.Username = getEnv("DB_USER", "postgres")
	config.Database.Password = getEnv("DB_PASSWORD", "")
	config.Database.SSLMode = getEnv("DB_SSL_MODE", "disable")
	config.Database.MaxConnections = getEnvInt("DB_MAX_CONNECTIONS", config.Database.MaxConnections)
	config.Cache.Enabled = getEnv("REDIS_ADDR", "") != ""
	config.Cache.RedisAddr = getEnv("REDIS_ADDR", "")
	config.Cache.RedisDB = getEnvInt("REDIS_DB", 0)

	pool, err := createDatabasePool(config.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	dispatcher, err := factory.NewCatalogService(config, pool)
	if err != nil {
		sugar.Fatalf("failed to wire catalog service: %v", err)
	}

	server := NewServer(dispatcher, func(ctx context.Context) error {
		return internal.PostgresHealthCheck(ctx, pool, config.Database.Timeout)
	})
	server.RegisterRoutes()

	port := getEnv("PORT", "8080")
	if err := server.Start(port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}

// createDatabasePool creates a PostgreSQL connection pool from config.
func createDatabasePool(config exdock.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.Database,
		config.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(config.MaxConnections)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
