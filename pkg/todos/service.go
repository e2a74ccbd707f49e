package todos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/storage"
)

// Service implements owner-scoped todo operations
type Service struct {
	repo    Repository
	metrics *observability.Metrics
	now     func() time.Time
}

// NewService creates a todo service. metrics may be nil.
func NewService(repo Repository, metrics *observability.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		now:     time.Now,
	}
}

// List returns the owner's todos, newest first
func (s *Service) List(ctx context.Context, ownerID string) ([]*Todo, error) {
	list, err := s.repo.ListTodos(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list todos: %w", err)
	}
	if list == nil {
		list = []*Todo{}
	}
	return list, nil
}

// Get returns one todo of the owner
func (s *Service) Get(ctx context.Context, id, ownerID string) (*Todo, error) {
	t, err := s.repo.FindTodo(ctx, id, ownerID)
	if err != nil {
		return nil, translate(err, "failed to get todo")
	}
	return t, nil
}

// Create stores a new todo for the owner
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Todo, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	status := StatusNew
	if in.Status != nil && *in.Status != "" {
		status = *in.Status
	}

	now := s.now().UTC()
	t := &Todo{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertTodo(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	return t, nil
}

// Update applies the present fields of in to the owner's todo
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (*Todo, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	patch := Patch{
		Title:       in.Title,
		Description: in.Description,
		UpdatedAt:   s.now().UTC(),
	}
	if in.Status != nil && *in.Status != "" {
		patch.Status = in.Status
	}

	t, err := s.repo.UpdateTodo(ctx, id, ownerID, patch)
	if err != nil {
		return nil, translate(err, "failed to update todo")
	}
	return t, nil
}

// Toggle advances the owner's todo to the next status on the cycle
func (s *Service) Toggle(ctx context.Context, id, ownerID string) (*Todo, error) {
	current, err := s.repo.FindTodo(ctx, id, ownerID)
	if err != nil {
		return nil, translate(err, "failed to get todo")
	}

	next, ok := NextStatus(current.Status)
	if !ok {
		observability.FromContext(ctx).
			WithFields(map[string]interface{}{
				"todo_id":       current.ID,
				"stored_status": string(current.Status),
			}).
			Warn("Todo has unknown status, resetting to new")
	}

	t, err := s.repo.UpdateTodo(ctx, id, ownerID, Patch{
		Status:    &next,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, translate(err, "failed to toggle todo")
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(current.Status), string(next), ok)
	}
	return t, nil
}

// Delete removes the owner's todo
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if err := s.repo.DeleteTodo(ctx, id, ownerID); err != nil {
		return translate(err, "failed to delete todo")
	}
	return nil
}

func translate(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
