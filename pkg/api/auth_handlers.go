package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tasktrack/pkg/httputil"
	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// AuthHandlers handles registration and login
type AuthHandlers struct {
	users   *users.Service
	metrics *observability.Metrics
}

// NewAuthHandlers creates a new auth handlers instance. metrics may be nil.
func NewAuthHandlers(service *users.Service, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		users:   service,
		metrics: metrics,
	}
}

// RegisterRoutes registers authentication routes on a router mounted at /api/auth
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/register", h.register).Methods(http.MethodPost)
	router.HandleFunc("/login", h.login).Methods(http.MethodPost)
}

// register handles POST /api/auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.users.Register(r.Context(), req)
	h.record("register", err)
	if err != nil {
		writeError(w, r, err, MsgRegisterFailed)
		return
	}

	observability.FromContext(r.Context()).WithField("user_id", session.User.ID).Info("User registered")
	httputil.WriteCreated(w, "User registered successfully", sessionPayload(session))
}

// login handles POST /api/auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req users.LoginInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.users.Login(r.Context(), req)
	h.record("login", err)
	if err != nil {
		writeError(w, r, err, MsgLoginFailed)
		return
	}

	httputil.WriteSuccess(w, "Login successful", sessionPayload(session))
}

func sessionPayload(session *users.Session) httputil.Payload {
	return httputil.Payload{
		"token": session.Token,
		"user":  session.User,
	}
}

func (h *AuthHandlers) record(operation string, err error) {
	if h.metrics == nil {
		return
	}

	var validation *users.ValidationError
	result := "success"
	switch {
	case err == nil:
	case errors.As(err, &validation):
		result = "invalid"
	case errors.Is(err, users.ErrDuplicateIdentity):
		result = "duplicate"
	case errors.Is(err, users.ErrInvalidCredentials):
		result = "rejected"
	case errors.Is(err, storage.ErrUnavailable):
		result = "unavailable"
	default:
		result = "error"
	}
	h.metrics.RecordAuthAttempt(operation, result)
}
