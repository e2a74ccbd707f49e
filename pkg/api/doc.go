// Package api provides the HTTP server for the todo backend.
//
// # Overview
//
// Server wires the user and todo services onto a gorilla/mux router and
// wraps it with the request middleware stack. Every response body is an
// envelope:
//
//	{"success": true, "message": "Login successful", "token": "...", "user": {...}}
//
// # Routes
//
//	GET    /                         liveness message
//	POST   /api/auth/register        create an account, returns token and user
//	POST   /api/auth/login           phone and password, returns token and user
//	GET    /api/todos                {count, todos}, newest first
//	POST   /api/todos                {todo}
//	GET    /api/todos/{id}           {todo}
//	PUT    /api/todos/{id}           {todo}
//	PATCH  /api/todos/{id}/toggle    {todo} with "Todo status changed to <status>"
//	DELETE /api/todos/{id}           message only
//	GET    /health, /health/live, /health/ready
//	GET    /metrics                  when a registry is configured
//
// /api/auth routes pass the optional rate limiter; the user service checks
// store readiness only after the body has been validated. Every request under
// /api/todos, matched or not, passes the bearer token gate, which verifies the
// token before it checks store readiness. Handlers read the owner from the
// request context. Unmatched routes answer with a 404 or 405 envelope.
//
// # Errors
//
// Handlers hand service errors to writeError, which maps validation errors
// and duplicate identities to 400, bad credentials to 401, missing todos to
// 404, and users.ErrStoreNotReady and storage.ErrUnavailable to 503. Anything else is logged and answered
// with a 500 naming the failed operation.
//
// # Usage
//
//	srv := api.NewServer(store, api.Options{
//		Tokens:  auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
//		Hasher:  auth.NewPasswordHasher(cfg.Auth.BcryptCost),
//		Logger:  logger,
//		Limiter: limiter,
//	})
//	http.ListenAndServe(":5000", srv)
package api
