package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

const (
	ownerID = "4f6d3b2a-1c1e-4e0a-9a55-0d1f2b3c4d5e"
	todoID  = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func todoRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "status", "user_id", "created_at", "updated_at"})
}

func TestCreateUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "Alice", "a@x.io", "5551234567", "hash", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &users.User{Fullname: "Alice", Email: "a@x.io", Phone: "5551234567", PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_Duplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_phone_key"})

	err := store.CreateUser(context.Background(), &users.User{Fullname: "Bob"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByID(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, fullname, email, phone, created_at, updated_at FROM users WHERE id = \$1`).
		WithArgs(ownerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullname", "email", "phone", "created_at", "updated_at"}).
			AddRow(ownerID, "Alice", "a@x.io", "5551234567", now, now))

	u, err := store.FindUserByID(context.Background(), ownerID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Fullname)
	assert.Empty(t, u.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByID_MalformedAndMissing(t *testing.T) {
	store, mock := newMockStore(t)

	_, err := store.FindUserByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	mock.ExpectQuery(`FROM users WHERE id`).WithArgs(ownerID).WillReturnError(sql.ErrNoRows)
	_, err = store.FindUserByID(context.Background(), ownerID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByEmailOrPhone(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM users WHERE email = \$1 OR phone = \$2`).
		WithArgs("a@x.io", "5551234567").
		WillReturnRows(sqlmock.NewRows([]string{"id", "fullname", "email", "phone", "password_hash", "created_at", "updated_at"}).
			AddRow(ownerID, "Alice", "a@x.io", "5551234567", "hash", now, now))

	u, err := store.FindUserByEmailOrPhone(context.Background(), "a@x.io", "5551234567")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTodos(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery(`FROM todos WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(ownerID).
		WillReturnRows(todoRows().
			AddRow(todoID, "newer", "", "inprogress", ownerID, now, now).
			AddRow("11111111-2222-4333-8444-555555555555", "older", "d", "new", ownerID, now.Add(-time.Hour), now))

	list, err := store.ListTodos(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Title)
	assert.Equal(t, todos.StatusInProgress, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTodos_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM todos WHERE user_id`).WithArgs(ownerID).WillReturnRows(todoRows())

	list, err := store.ListTodos(context.Background(), ownerID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestFindTodo_ScopedToOwner(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM todos WHERE id = \$1 AND user_id = \$2`).
		WithArgs(todoID, ownerID).
		WillReturnRows(todoRows())

	_, err := store.FindTodo(context.Background(), todoID, ownerID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.FindTodo(context.Background(), "abc", ownerID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertTodo(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO todos`).
		WithArgs(sqlmock.AnyArg(), "write tests", "", "new", ownerID, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	td := &todos.Todo{Title: "write tests", Status: todos.StatusNew, UserID: ownerID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.InsertTodo(context.Background(), td))
	assert.NotEmpty(t, td.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTodo_PartialPatch(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	status := todos.StatusCompleted

	mock.ExpectQuery(`UPDATE todos SET`).
		WithArgs(todoID, ownerID, nil, nil, "completed", now).
		WillReturnRows(todoRows().AddRow(todoID, "kept", "kept too", "completed", ownerID, now, now))

	td, err := store.UpdateTodo(context.Background(), todoID, ownerID, todos.Patch{Status: &status, UpdatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, "kept", td.Title)
	assert.Equal(t, todos.StatusCompleted, td.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTodo(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM todos WHERE id = \$1 AND user_id = \$2`).
		WithArgs(todoID, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM todos`).
		WithArgs(todoID, ownerID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.DeleteTodo(context.Background(), todoID, ownerID))
	assert.ErrorIs(t, store.DeleteTodo(context.Background(), todoID, ownerID), storage.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, storage.ErrNotFound},
		{"unique", &pq.Error{Code: "23505"}, storage.ErrDuplicate},
		{"connection failure", &pq.Error{Code: "08006"}, storage.ErrUnavailable},
		{"admin shutdown", &pq.Error{Code: "57P01"}, storage.ErrUnavailable},
		{"bad conn", driver.ErrBadConn, storage.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.in), tt.want)
		})
	}

	assert.NoError(t, translate(nil))
	other := errors.New("syntax error")
	assert.Equal(t, other, translate(other))
}

func TestReadyAndClose(t *testing.T) {
	store, mock := newMockStore(t)

	require.NoError(t, store.Ready(context.Background()))

	mock.ExpectClose()
	require.NoError(t, store.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReady_Unreachable(t *testing.T) {
	store := New(storage.Config{PostgresURL: "postgres://nobody@127.0.0.1:1/none?sslmode=disable", PostgresMaxConns: 1, PostgresTimeout: 500 * time.Millisecond})

	err := store.Ready(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestRunMigrations(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}
	require.NoError(t, RunMigrations(context.Background(), db))
	assert.Equal(t, "migrations", gotDir)

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	assert.Error(t, RunMigrations(context.Background(), db))
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/00001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "users_phone_key")
	assert.Contains(t, string(data), "-- +goose Up")
}
