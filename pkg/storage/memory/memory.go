// Package memory implements the user and todo repositories in process memory.
// It backs tests and STORAGE_TYPE=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// Store keeps users and todos in maps guarded by a single RWMutex
type Store struct {
	mu      sync.RWMutex
	users   map[string]users.User
	byEmail map[string]string
	byPhone map[string]string
	todos   map[string]todos.Todo
	newID   func() string
}

// New creates an empty store
func New() *Store {
	return &Store{
		users:   make(map[string]users.User),
		byEmail: make(map[string]string),
		byPhone: make(map[string]string),
		todos:   make(map[string]todos.Todo),
		newID:   uuid.NewString,
	}
}

// Ready always succeeds
func (s *Store) Ready(context.Context) error { return nil }

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }

// CreateUser inserts u and sets its ID
func (s *Store) CreateUser(_ context.Context, u *users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return storage.ErrDuplicate
	}
	if _, ok := s.byPhone[u.Phone]; ok {
		return storage.ErrDuplicate
	}

	u.ID = s.newID()
	s.users[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	s.byPhone[u.Phone] = u.ID
	return nil
}

// FindUserByID returns the user without its password hash
func (s *Store) FindUserByID(_ context.Context, id string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u.PasswordHash = ""
	return &u, nil
}

// FindUserByPhone returns the user registered with phone
func (s *Store) FindUserByPhone(_ context.Context, phone string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPhone[phone]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

// FindUserByEmailOrPhone returns any user holding either value
func (s *Store) FindUserByEmailOrPhone(_ context.Context, email, phone string) (*users.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		id, ok = s.byPhone[phone]
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

// ListTodos returns the owner's todos, newest first
func (s *Store) ListTodos(_ context.Context, ownerID string) ([]*todos.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*todos.Todo{}
	for _, t := range s.todos {
		if t.UserID == ownerID {
			t := t
			result = append(result, &t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// FindTodo returns the todo with id owned by ownerID
func (s *Store) FindTodo(_ context.Context, id, ownerID string) (*todos.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok || t.UserID != ownerID {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

// InsertTodo stores t and sets its ID
func (s *Store) InsertTodo(_ context.Context, t *todos.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.newID()
	s.todos[t.ID] = *t
	return nil
}

// UpdateTodo applies p to the owner's todo and returns the result
func (s *Store) UpdateTodo(_ context.Context, id, ownerID string, p todos.Patch) (*todos.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok || t.UserID != ownerID {
		return nil, storage.ErrNotFound
	}

	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = p.UpdatedAt

	s.todos[id] = t
	return &t, nil
}

// DeleteTodo removes the owner's todo
func (s *Store) DeleteTodo(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok || t.UserID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.todos, id)
	return nil
}
