// Package postgres implements the user and todo repositories on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/platinummonkey/tasktrack/pkg/storage"
	"github.com/platinummonkey/tasktrack/pkg/todos"
	"github.com/platinummonkey/tasktrack/pkg/users"
)

// uniqueViolation is the SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// Store implements users.Repository and todos.Repository on PostgreSQL
type Store struct {
	db *storage.Handle[*sql.DB]
}

// New creates a store that connects on first use
func New(config storage.Config) *Store {
	return &Store{db: storage.NewHandle(connector(config))}
}

// NewWithDB wraps an open database. Migrations are not run.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: storage.NewReadyHandle(db)}
}

// Ready connects if needed
func (s *Store) Ready(ctx context.Context) error {
	_, err := s.db.Get(ctx)
	return err
}

// Ping checks the database round trip
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db.Get(ctx)
	if err != nil {
		return err
	}
	return translate(db.PingContext(ctx))
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Reset(func(db *sql.DB) error { return db.Close() })
}

// translate maps driver errors onto the storage sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Constraint)
		case strings.HasPrefix(string(pqErr.Code), "08"), pqErr.Code.Class() == "57":
			return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	return err
}

// validID reports whether id can be a primary key. Anything else cannot
// match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

const userColumns = `id, fullname, email, phone, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*users.User, error) {
	u := &users.User{}
	if err := row.Scan(&u.ID, &u.Fullname, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// CreateUser inserts u and sets its ID
func (s *Store) CreateUser(ctx context.Context, u *users.User) error {
	db, err := s.db.Get(ctx)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, u.Fullname, u.Email, u.Phone, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}

	u.ID = id
	return nil
}

// FindUserByID returns the user without its password hash
func (s *Store) FindUserByID(ctx context.Context, id string) (*users.User, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	db, err := s.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	u := &users.User{}
	err = db.QueryRowContext(ctx,
		`SELECT id, fullname, email, phone, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Fullname, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// FindUserByPhone returns the user registered with phone
func (s *Store) FindUserByPhone(ctx context.Context, phone string) (*users.User, error) {
	db, err := s.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	return scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone))
}

// FindUserByEmailOrPhone returns any user holding either value
func (s *Store) FindUserByEmailOrPhone(ctx context.Context, email, phone string) (*users.User, error) {
	db, err := s.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	return scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 OR phone = $2 LIMIT 1`, email, phone))
}

const todoColumns = `id, title, description, status, user_id, created_at, updated_at`

func scanTodo(row interface{ Scan(...any) error }) (*todos.Todo, error) {
	t := &todos.Todo{}
	var status string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.UserID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	t.Status = todos.Status(status)
	return t, nil
}

// ListTodos returns the owner's todos, newest first
func (s *Store) ListTodos(ctx context.Context, ownerID string) ([]*todos.Todo, error) {
	if !validID(ownerID) {
		return []*todos.Todo{}, nil
	}
	db, err := s.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := []*todos.Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return result, nil
}

// FindTodo returns the todo with id owned by ownerID
func (s *Store) FindTodo(ctx context.Context, id, ownerID string) (*todos.Todo, error) {
	if !validID(id) || !validID(ownerID) {
		return nil, storage.ErrNotFound
	}
	db, err := s.db.Get(ctx)
	if err != nil {
		return nil, err
	}
	return scanTodo(db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, ownerID))
}

// InsertTodo stores t and sets its ID
func (s *Store) InsertTodo(ctx context.Context, t *todos.Todo) error {
	db, err := s.db.Get(ctx)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO todos (`+todoColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, t.Title, t.Description, string(t.Status), t.UserID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}

	t.ID = id
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// UpdateTodo applies p to the owner's todo and returns the result
func (s *Store) UpdateTodo(ctx context.Context, id, ownerID string, p todos.Patch) (*todos.Todo, error) {
	if !validID(id) || !validID(ownerID) {
		return nil, storage.ErrNotFound
	}
	db, err := s.db.Get(ctx)
	if err != nil {
		return nil, err
	}

	var status sql.NullString
	if p.Status != nil {
		status = sql.NullString{String: string(*p.Status), Valid: true}
	}

	return scanTodo(db.QueryRowContext(ctx,
		`UPDATE todos SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			status = COALESCE($5, status),
			updated_at = $6
		WHERE id = $1 AND user_id = $2
		RETURNING `+todoColumns,
		id, ownerID, nullString(p.Title), nullString(p.Description), status, p.UpdatedAt,
	))
}

// DeleteTodo removes the owner's todo
func (s *Store) DeleteTodo(ctx context.Context, id, ownerID string) error {
	if !validID(id) || !validID(ownerID) {
		return storage.ErrNotFound
	}
	db, err := s.db.Get(ctx)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
