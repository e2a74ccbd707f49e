package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tasktrack/pkg/contextkeys"
	"github.com/platinummonkey/tasktrack/pkg/httputil"
	"github.com/platinummonkey/tasktrack/pkg/todos"
)

// TodoHandlers handles the owner-scoped todo routes. Every handler runs
// behind the auth gate, so the owner is always present in the context.
type TodoHandlers struct {
	todos *todos.Service
}

// NewTodoHandlers creates a new todo handlers instance
func NewTodoHandlers(service *todos.Service) *TodoHandlers {
	return &TodoHandlers{todos: service}
}

// RegisterRoutes registers todo routes on a router mounted at /api/todos
func (h *TodoHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.listTodos).Methods(http.MethodGet)
	router.HandleFunc("", h.createTodo).Methods(http.MethodPost)
	router.HandleFunc("/{id}", h.getTodo).Methods(http.MethodGet)
	router.HandleFunc("/{id}", h.updateTodo).Methods(http.MethodPut)
	router.HandleFunc("/{id}", h.deleteTodo).Methods(http.MethodDelete)
	router.HandleFunc("/{id}/toggle", h.toggleTodo).Methods(http.MethodPatch)
}

// listTodos handles GET /api/todos
func (h *TodoHandlers) listTodos(w http.ResponseWriter, r *http.Request) {
	list, err := h.todos.List(r.Context(), contextkeys.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err, MsgListTodosFailed)
		return
	}

	httputil.WriteSuccess(w, "", httputil.Payload{
		"count": len(list),
		"todos": list,
	})
}

// getTodo handles GET /api/todos/{id}
func (h *TodoHandlers) getTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.Get(r.Context(), id, contextkeys.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err, MsgGetTodoFailed)
		return
	}

	httputil.WriteSuccess(w, "", httputil.Payload{"todo": todo})
}

// createTodo handles POST /api/todos
func (h *TodoHandlers) createTodo(w http.ResponseWriter, r *http.Request) {
	var req todos.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	todo, err := h.todos.Create(r.Context(), contextkeys.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, r, err, MsgCreateTodoFailed)
		return
	}

	httputil.WriteCreated(w, "Todo created successfully", httputil.Payload{"todo": todo})
}

// updateTodo handles PUT /api/todos/{id}
func (h *TodoHandlers) updateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	var req todos.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	todo, err := h.todos.Update(r.Context(), id, contextkeys.GetUserID(r.Context()), req)
	if err != nil {
		writeError(w, r, err, MsgUpdateTodoFailed)
		return
	}

	httputil.WriteSuccess(w, "Todo updated successfully", httputil.Payload{"todo": todo})
}

// toggleTodo handles PATCH /api/todos/{id}/toggle
func (h *TodoHandlers) toggleTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	todo, err := h.todos.Toggle(r.Context(), id, contextkeys.GetUserID(r.Context()))
	if err != nil {
		writeError(w, r, err, MsgToggleTodoFailed)
		return
	}

	httputil.WriteSuccess(w, "Todo status changed to "+string(todo.Status), httputil.Payload{"todo": todo})
}

// deleteTodo handles DELETE /api/todos/{id}
func (h *TodoHandlers) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := todoID(w, r)
	if !ok {
		return
	}

	if err := h.todos.Delete(r.Context(), id, contextkeys.GetUserID(r.Context())); err != nil {
		writeError(w, r, err, MsgDeleteTodoFailed)
		return
	}

	httputil.WriteSuccess(w, "Todo deleted successfully", nil)
}

func todoID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := httputil.ParsePathString(r, "id")
	if err != nil {
		httputil.WriteNotFound(w, todos.MsgNotFound)
		return "", false
	}
	return id, true
}
