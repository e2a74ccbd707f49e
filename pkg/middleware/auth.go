package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/tasktrack/pkg/auth"
	"github.com/platinummonkey/tasktrack/pkg/contextkeys"
	"github.com/platinummonkey/tasktrack/pkg/httputil"
	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// Gate failure messages
const (
	MsgTokenRequired      = "Access token is required"
	MsgStoreNotReady      = "Database connection not ready. Please try again."
	MsgUserNotFound       = "Invalid token or user not found"
	MsgGateUnavailable    = "Database connection error. Please try again."
	MsgAuthenticationFail = "Authentication failed"
)

// Resolver turns a bearer token into the user it was issued for.
// users.Service implements it: the token is verified first, then store
// readiness, then the user lookup.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*users.User, error)
}

// AuthMiddleware provides bearer token authentication
type AuthMiddleware struct {
	resolver Resolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(resolver Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// Handler wraps an HTTP handler with authentication. On success the resolved
// user and its ID are attached to the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			httputil.WriteUnauthorized(w, MsgTokenRequired)
			return
		}

		user, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := contextkeys.WithUser(r.Context(), user)
		ctx = contextkeys.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrInvalidToken):
		// clients only learn that the token was rejected
		observability.FromContext(r.Context()).WithError(err).Info("Bearer token rejected")
		httputil.WriteUnauthorized(w, MsgAuthenticationFail)
	case errors.Is(err, users.ErrUserNotFound):
		httputil.WriteUnauthorized(w, MsgUserNotFound)
	case errors.Is(err, users.ErrStoreNotReady):
		observability.FromContext(r.Context()).WithError(err).Error("Store not ready")
		httputil.WriteServiceUnavailable(w, MsgStoreNotReady)
	case errors.Is(err, storage.ErrUnavailable):
		observability.FromContext(r.Context()).WithError(err).Error("Auth gate could not reach the store")
		httputil.WriteServiceUnavailable(w, MsgGateUnavailable)
	default:
		observability.FromContext(r.Context()).WithError(err).Warn("Authentication failed")
		httputil.WriteUnauthorized(w, MsgAuthenticationFail)
	}
}

// bearerToken extracts the token from "Bearer <token>"
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// UserFromContext returns the user attached by AuthMiddleware
func UserFromContext(ctx context.Context) (*users.User, bool) {
	user, ok := ctx.Value(contextkeys.UserKey).(*users.User)
	return user, ok && user != nil
}
