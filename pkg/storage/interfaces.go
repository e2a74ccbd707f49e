package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by every backend. Callers match them with errors.Is.
var (
	// ErrNotFound is returned when no record matches the query predicate.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("duplicate key")

	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("storage unavailable")
)

// Backend types accepted by Config.Type
const (
	TypeMongo    = "mongo"
	TypeMemory   = "memory"
	TypePostgres = "postgres"
)

// HealthChecker is implemented by every backend
type HealthChecker interface {
	// Ready reports whether a connection has been established, connecting
	// lazily when there is none yet.
	Ready(ctx context.Context) error

	// Ping performs a round trip to the backend.
	Ping(ctx context.Context) error
}

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "mongo", "postgres", "memory"

	// MongoDB config
	MongoURI            string        `yaml:"mongo_uri"`
	MongoConnectTimeout time.Duration `yaml:"mongo_connect_timeout"`

	// PostgreSQL config
	PostgresURL      string        `yaml:"postgres_url"`
	PostgresMaxConns int           `yaml:"postgres_max_conns"`
	PostgresTimeout  time.Duration `yaml:"postgres_timeout"`

	// Redis config (rate limiting and health only)
	RedisURL        string `yaml:"redis_url"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:                TypeMongo,
		MongoURI:            "mongodb://localhost:27017/todoapp",
		MongoConnectTimeout: 10 * time.Second,
		PostgresMaxConns:    10,
		PostgresTimeout:     10 * time.Second,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
	}
}
