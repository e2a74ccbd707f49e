package users

import (
	"context"
	"time"
)

// User is an account. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Fullname     string    `json:"fullname"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the client-facing view of a user
type Summary struct {
	ID       string `json:"id"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Summary returns the client-facing view of u
func (u *User) Summary() Summary {
	return Summary{
		ID:       u.ID,
		Fullname: u.Fullname,
		Email:    u.Email,
		Phone:    u.Phone,
	}
}

// Session is the result of a successful register or login
type Session struct {
	Token string
	User  Summary
}

// Repository persists users. Implementations return storage.ErrNotFound,
// storage.ErrDuplicate and storage.ErrUnavailable (wrapped) as appropriate.
type Repository interface {
	// CreateUser inserts u and sets u.ID. Unique violations on email or phone
	// return storage.ErrDuplicate.
	CreateUser(ctx context.Context, u *User) error

	// FindUserByID returns the user without loading the password hash
	FindUserByID(ctx context.Context, id string) (*User, error)

	FindUserByPhone(ctx context.Context, phone string) (*User, error)

	// FindUserByEmailOrPhone returns any user holding either value
	FindUserByEmailOrPhone(ctx context.Context, email, phone string) (*User, error)
}
