package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/tasktrack/pkg/httputil"
	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// Failure messages not owned by a domain package
const (
	MsgStoreNotReady    = "Database connection not ready. Please try again in a moment."
	MsgStoreUnavailable = "Database connection error. Please try again in a moment."
	MsgRouteNotFound    = "Route not found"
	MsgMethodNotAllowed = "Method not allowed"
	MsgRegisterFailed   = "Server error during registration"
	MsgLoginFailed      = "Server error during login"
	MsgListTodosFailed  = "Server error while fetching todos"
	MsgGetTodoFailed    = "Server error while fetching todo"
	MsgCreateTodoFailed = "Server error while creating todo"
	MsgUpdateTodoFailed = "Server error while updating todo"
	MsgToggleTodoFailed = "Server error while toggling todo status"
	MsgDeleteTodoFailed = "Server error while deleting todo"
)

// writeError maps a service error onto the response envelope. internalMsg is
// sent for anything unclassified; the error itself is only logged.
func writeError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	var userValidation *users.ValidationError
	var todoValidation *todos.ValidationError

	switch {
	case errors.As(err, &userValidation):
		httputil.WriteBadRequest(w, userValidation.Message)
	case errors.As(err, &todoValidation):
		httputil.WriteBadRequest(w, todoValidation.Message)
	case errors.Is(err, users.ErrDuplicateIdentity):
		httputil.WriteBadRequest(w, users.MsgDuplicateIdentity)
	case errors.Is(err, users.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, users.MsgInvalidCredentials)
	case errors.Is(err, todos.ErrNotFound):
		httputil.WriteNotFound(w, todos.MsgNotFound)
	case errors.Is(err, users.ErrStoreNotReady):
		observability.FromContext(r.Context()).WithError(err).Error("Store not ready")
		httputil.WriteServiceUnavailable(w, MsgStoreNotReady)
	case errors.Is(err, storage.ErrUnavailable):
		observability.FromContext(r.Context()).WithError(err).Error("Store unavailable")
		httputil.WriteServiceUnavailable(w, MsgStoreUnavailable)
	default:
		observability.FromContext(r.Context()).WithError(err).Error(internalMsg)
		httputil.WriteInternalError(w, internalMsg)
	}
}
