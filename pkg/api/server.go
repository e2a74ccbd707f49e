package api

import (
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/tasktrack/pkg/auth"
	"github.com/platinummonkey/tasktrack/pkg/httputil"
	"github.com/platinummonkey/tasktrack/pkg/middleware"
	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// MsgRunning is returned by GET /
const MsgRunning = "Todo App Server is running!"

// Store is everything the server needs from a backend. The mongo, postgres
// and memory stores all satisfy it.
type Store interface {
	storage.HealthChecker
	users.Repository
	todos.Repository
}

// Options configures a Server
type Options struct {
	Tokens *auth.TokenManager
	Hasher *auth.PasswordHasher

	Logger *observability.Logger

	// Metrics and Registry enable instrumentation and GET /metrics when set
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	// Limiter guards /api/auth. Nil disables rate limiting.
	Limiter middleware.Limiter

	// Redis is reported by the readiness probe when set
	Redis *redis.Client

	CORS         httputil.CORSConfig
	MaxBodyBytes int64
	Tracing      bool
	Version      string
}

// Server represents our API server
type Server struct {
	store   Store
	router  *mux.Router
	handler http.Handler
	opts    Options

	authHandlers *AuthHandlers
	todoHandlers *TodoHandlers
}

// NewServer creates a new API server on top of store
func NewServer(store Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if opts.CORS.AllowedOrigins == nil {
		opts.CORS = httputil.DefaultCORSConfig()
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.NewTokenManager(auth.DefaultSecret, auth.DefaultTokenTTL)
	}
	if opts.Hasher == nil {
		opts.Hasher = auth.NewPasswordHasher(auth.DefaultBcryptCost)
	}

	s := &Server{
		store:  store,
		router: mux.NewRouter(),
		opts:   opts,
	}

	var repo Store = store
	if opts.Metrics != nil {
		repo = newInstrumentedStore(store, opts.Metrics)
	}

	userService := users.NewService(repo, opts.Hasher, opts.Tokens)
	userService.SetReadinessCheck(store)
	s.authHandlers = NewAuthHandlers(userService, opts.Metrics)
	s.todoHandlers = NewTodoHandlers(todos.NewService(repo, opts.Metrics))

	s.setupRoutes(userService)
	s.handler = s.wrap(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(resolver middleware.Resolver) {
	if s.opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	}

	s.router.HandleFunc("/", s.root).Methods(http.MethodGet)

	// Probes and metrics
	observability.RegisterHealthRoutes(s.router, observability.NewHealthChecker(s.store, s.opts.Redis, s.opts.Version))
	if s.opts.Registry != nil {
		observability.RegisterMetricsEndpoint(s.router, s.opts.Registry)
	}

	notFound := http.HandlerFunc(routeNotFound)
	notAllowed := http.HandlerFunc(methodNotAllowed)
	s.router.NotFoundHandler = notFound
	s.router.MethodNotAllowedHandler = notAllowed

	// Auth routes. Store readiness is checked by the service once the body
	// has been validated.
	authRouter := s.router.PathPrefix("/api/auth").Subrouter()
	if s.opts.Limiter != nil {
		authRouter.Use(middleware.NewRateLimitMiddleware(s.opts.Limiter, "auth", s.opts.Metrics).Handler)
	}
	authRouter.NotFoundHandler = notFound
	authRouter.MethodNotAllowedHandler = notAllowed
	s.authHandlers.RegisterRoutes(authRouter)

	// Todo routes. Subrouter middleware does not run for unmatched requests,
	// so the fallbacks are gated explicitly.
	gate := middleware.NewAuthMiddleware(resolver)
	todoRouter := s.router.PathPrefix("/api/todos").Subrouter()
	todoRouter.Use(gate.Handler)
	todoRouter.NotFoundHandler = gate.Handler(notFound)
	todoRouter.MethodNotAllowedHandler = gate.Handler(notAllowed)
	s.todoHandlers.RegisterRoutes(todoRouter)
}

// wrap applies the middleware that must run for every request, matched or
// not. CORS preflights never reach a route.
func (s *Server) wrap(next http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware,
	}
	if s.opts.Tracing {
		chain = append(chain, observability.TracingMiddleware("tasktrack"))
	}
	chain = append(chain,
		httputil.RequestLoggingMiddleware(s.opts.Logger),
		httputil.CORSMiddleware(s.opts.CORS),
	)
	if s.opts.MaxBodyBytes > 0 {
		chain = append(chain, httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes))
	}
	return httputil.Chain(chain...)(next)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router for additional routes
func (s *Server) Router() *mux.Router {
	return s.router
}

// root handles GET /
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, MsgRunning, nil)
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFound(w, MsgRouteNotFound)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteFailure(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}
