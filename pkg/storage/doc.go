// Package storage holds what every persistence backend of the task tracker shares.
//
// # Overview
//
// Users and todos are persisted by one of three backends:
//
//   - mongo: the document store used in production (package storage/mongo)
//   - postgres: a relational alternative with goose migrations (package storage/postgres)
//   - memory: a process-local store for development and tests (package storage/memory)
//
// The repositories themselves are declared by their consumers (users.Repository and
// todos.Repository). This package only carries the pieces that have no domain types:
// sentinel errors, configuration, the lazily connected Handle and the redis client
// used by rate limiting and health checks.
//
// # Errors
//
// Backends translate driver errors into three sentinels so that the HTTP layer can
// classify them without knowing the driver:
//
//	ErrNotFound     no record matched (also used for malformed identifiers)
//	ErrDuplicate    a unique index rejected the write
//	ErrUnavailable  the backend could not be reached or timed out
//
// Errors are wrapped with %w so the original driver error stays in the chain for logging.
//
// # Lazy connections
//
// Handle defers connecting until the first request needs the backend and retries on
// later requests if the first attempt failed:
//
//	h := storage.NewHandle(func(ctx context.Context) (*mongo.Client, error) {
//		return mongo.Connect(ctx, opts)
//	})
//	client, err := h.Get(ctx) // err wraps ErrUnavailable on failure
package storage
