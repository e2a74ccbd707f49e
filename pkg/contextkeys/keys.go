// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers agree on names and value types.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/tasktrack/pkg/contextkeys"
//	ctx = contextkeys.WithUser(ctx, user)
//	user, _ := ctx.Value(contextkeys.UserKey).(*users.User)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated *users.User (password hash cleared)
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: All /api/todos handlers
	// Type: *users.User
	UserKey Key = "user"

	// UserIDKey contains the authenticated user's ID
	// Set by: middleware.AuthMiddleware alongside UserKey
	// Used by: Logger, owner-scoped todo queries
	// Type: string
	UserIDKey Key = "user_id"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestLoggingMiddleware
	// Used by: Logger, X-Request-ID response header
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.RequestLoggingMiddleware
	// Used by: Handlers and services that log with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
