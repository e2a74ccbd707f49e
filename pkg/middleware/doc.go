// Package middleware provides HTTP middleware for authentication and rate
// limiting.
//
// # Middleware Components
//
// AuthMiddleware: bearer token gate for protected routes. A missing or
// rejected token is a 401 even while the store is down; only an accepted
// token can produce the 503 store-not-ready answer.
//
//	gate := middleware.NewAuthMiddleware(userService)
//	todos.Use(gate.Handler)
//	// handlers read the user with middleware.UserFromContext(r.Context())
//
// RateLimitMiddleware: per client IP, backed by memory or Redis
//
//	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
//	// or middleware.NewDistributedRateLimiter(redisClient, cfg, "")
//	authRoutes.Use(middleware.NewRateLimitMiddleware(limiter, "auth", metrics).Handler)
//
// Rate limiter errors fail open unless SetFailOpen(false) is called.
package middleware
