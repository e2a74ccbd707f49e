package todos

import (
	"context"
	"time"
)

// Status is the workflow state of a todo
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "inprogress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the three known states
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// NextStatus returns the successor of s on the cycle
// new -> inprogress -> completed -> new. Unknown values map to new and
// report ok=false so callers can flag the stored value.
func NextStatus(s Status) (next Status, ok bool) {
	switch s {
	case StatusNew:
		return StatusInProgress, true
	case StatusInProgress:
		return StatusCompleted, true
	case StatusCompleted:
		return StatusNew, true
	default:
		return StatusNew, false
	}
}

// Todo is a task owned by exactly one user
type Todo struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	UserID      string    `json:"user"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Patch lists the fields an update sets. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	UpdatedAt   time.Time
}

// Repository persists todos. Every lookup is scoped by id AND owner, so a todo
// owned by someone else is reported as storage.ErrNotFound. Malformed ids are
// storage.ErrNotFound too.
type Repository interface {
	// ListTodos returns the owner's todos, newest first
	ListTodos(ctx context.Context, ownerID string) ([]*Todo, error)

	FindTodo(ctx context.Context, id, ownerID string) (*Todo, error)

	// InsertTodo stores t and sets t.ID
	InsertTodo(ctx context.Context, t *Todo) error

	// UpdateTodo applies p and returns the updated todo
	UpdateTodo(ctx context.Context, id, ownerID string, p Patch) (*Todo, error)

	DeleteTodo(ctx context.Context, id, ownerID string) error
}
