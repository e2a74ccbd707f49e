package api

import (
	"context"
	"time"

	"github.com/platinummonkey/tasktrack/pkg/observability"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// instrumentedStore records the latency and outcome of every repository call
type instrumentedStore struct {
	Store
	metrics *observability.Metrics
}

func newInstrumentedStore(store Store, metrics *observability.Metrics) *instrumentedStore {
	return &instrumentedStore{Store: store, metrics: metrics}
}

func (s *instrumentedStore) CreateUser(ctx context.Context, u *users.User) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("create_user", start, err) }(time.Now())
	return s.Store.CreateUser(ctx, u)
}

func (s *instrumentedStore) FindUserByID(ctx context.Context, id string) (u *users.User, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("find_user_by_id", start, err) }(time.Now())
	return s.Store.FindUserByID(ctx, id)
}

func (s *instrumentedStore) FindUserByPhone(ctx context.Context, phone string) (u *users.User, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("find_user_by_phone", start, err) }(time.Now())
	return s.Store.FindUserByPhone(ctx, phone)
}

func (s *instrumentedStore) FindUserByEmailOrPhone(ctx context.Context, email, phone string) (u *users.User, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("find_user_by_email_or_phone", start, err) }(time.Now())
	return s.Store.FindUserByEmailOrPhone(ctx, email, phone)
}

func (s *instrumentedStore) ListTodos(ctx context.Context, ownerID string) (list []*todos.Todo, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("list_todos", start, err) }(time.Now())
	return s.Store.ListTodos(ctx, ownerID)
}

func (s *instrumentedStore) FindTodo(ctx context.Context, id, ownerID string) (t *todos.Todo, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("find_todo", start, err) }(time.Now())
	return s.Store.FindTodo(ctx, id, ownerID)
}

func (s *instrumentedStore) InsertTodo(ctx context.Context, t *todos.Todo) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("insert_todo", start, err) }(time.Now())
	return s.Store.InsertTodo(ctx, t)
}

func (s *instrumentedStore) UpdateTodo(ctx context.Context, id, ownerID string, p todos.Patch) (t *todos.Todo, err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("update_todo", start, err) }(time.Now())
	return s.Store.UpdateTodo(ctx, id, ownerID, p)
}

func (s *instrumentedStore) DeleteTodo(ctx context.Context, id, ownerID string) (err error) {
	defer func(start time.Time) { s.metrics.ObserveStoreOperation("delete_todo", start, err) }(time.Now())
	return s.Store.DeleteTodo(ctx, id, ownerID)
}
