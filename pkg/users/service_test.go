package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tasktrack/pkg/auth"
	"github.com/platinummonkey/tasktrack/pkg/storage"
)

// fakeRepo is a minimal Repository kept in maps
type fakeRepo struct {
	users     map[string]User
	nextID    int
	createErr error
	findErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]User)}
}

func (r *fakeRepo) CreateUser(_ context.Context, u *User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	u.ID = fmt.Sprintf("user-%d", r.nextID)
	r.users[u.ID] = *u
	return nil
}

func (r *fakeRepo) FindUserByID(_ context.Context, id string) (*User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &u, nil
}

func (r *fakeRepo) FindUserByPhone(_ context.Context, phone string) (*User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Phone == phone {
			u := u
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (r *fakeRepo) FindUserByEmailOrPhone(_ context.Context, email, phone string) (*User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Email == email || u.Phone == phone {
			u := u
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func newTestService(repo Repository) (*Service, *auth.TokenManager) {
	tokens := auth.NewTokenManager("test-secret", auth.DefaultTokenTTL)
	return NewService(repo, auth.NewPasswordHasher(bcrypt.MinCost), tokens), tokens
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Fullname: "  Alice Doe ",
		Email:    " Alice@Example.COM ",
		Phone:    " 5551234567 ",
		Password: "secret1",
	}
}

func TestRegister(t *testing.T) {
	repo := newFakeRepo()
	svc, tokens := newTestService(repo)

	session, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, "Alice Doe", session.User.Fullname)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, "5551234567", session.User.Phone)

	userID, err := tokens.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, userID)

	stored := repo.users[session.User.ID]
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")))
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
		msg    string
	}{
		{"missing fullname", func(in *RegisterInput) { in.Fullname = "   " }, MsgMissingRegisterFields},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, MsgMissingRegisterFields},
		{"short fullname", func(in *RegisterInput) { in.Fullname = "A" }, MsgInvalidFullname},
		{"long fullname", func(in *RegisterInput) { in.Fullname = strings.Repeat("a", 51) }, MsgInvalidFullname},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }, MsgInvalidEmail},
		{"short phone", func(in *RegisterInput) { in.Phone = "123" }, MsgInvalidPhone},
		{"long phone", func(in *RegisterInput) { in.Phone = strings.Repeat("1", 16) }, MsgInvalidPhone},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, MsgInvalidPassword},
		{"long password", func(in *RegisterInput) { in.Password = strings.Repeat("p", 73) }, MsgPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc, _ := newTestService(repo)

			in := validRegistration()
			tt.mutate(&in)
			_, err := svc.Register(context.Background(), in)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
			assert.Equal(t, tt.msg, vErr.Message)
			assert.Empty(t, repo.users)
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	t.Run("same phone", func(t *testing.T) {
		in := validRegistration()
		in.Email = "other@example.com"
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("same email different case", func(t *testing.T) {
		in := validRegistration()
		in.Email = "ALICE@example.com"
		in.Phone = "5550000000"
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
	})

	t.Run("unique index race", func(t *testing.T) {
		racing := newFakeRepo()
		racing.createErr = fmt.Errorf("%w: users_phone_key", storage.ErrDuplicate)
		svc, _ := newTestService(racing)

		_, err := svc.Register(context.Background(), validRegistration())
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
	})
}

func TestRegister_StoreUnavailable(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	svc, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), validRegistration())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestLogin(t *testing.T) {
	repo := newFakeRepo()
	svc, tokens := newTestService(repo)

	registered, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		session, err := svc.Login(context.Background(), LoginInput{Phone: " 5551234567 ", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, registered.User, session.User)

		userID, err := tokens.ValidateToken(session.Token)
		require.NoError(t, err)
		assert.Equal(t, registered.User.ID, userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{Phone: "5551234567", Password: "wrong!"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown phone", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{Phone: "5559999999", Password: "secret1"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(context.Background(), LoginInput{Phone: "  "})
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, MsgMissingLoginFields, vErr.Message)
	})
}

func TestResolve(t *testing.T) {
	repo := newFakeRepo()
	svc, tokens := newTestService(repo)

	session, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	t.Run("resolves registered user", func(t *testing.T) {
		user, err := svc.Resolve(context.Background(), session.Token)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, user.ID)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewTokenManager("other-secret", time.Hour)
		token, err := other.IssueToken(session.User.ID)
		require.NoError(t, err)

		_, err = svc.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("user removed", func(t *testing.T) {
		token, err := tokens.IssueToken("user-404")
		require.NoError(t, err)

		_, err = svc.Resolve(context.Background(), token)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("store down", func(t *testing.T) {
		down := newFakeRepo()
		down.findErr = storage.ErrUnavailable
		svc := NewService(down, auth.NewPasswordHasher(bcrypt.MinCost), tokens)

		_, err := svc.Resolve(context.Background(), session.Token)
		assert.ErrorIs(t, err, storage.ErrUnavailable)
	})
}

func TestUserJSONHidesHash(t *testing.T) {
	u := &User{ID: "1", Fullname: "A", PasswordHash: "secret-hash"}
	assert.Equal(t, Summary{ID: "1", Fullname: "A"}, u.Summary())
}

type fakeReadiness struct {
	err   error
	calls int
}

func (f *fakeReadiness) Ready(context.Context) error {
	f.calls++
	return f.err
}

func (f *fakeReadiness) Ping(context.Context) error { return f.err }

func TestReadinessCheckedAfterInput(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc, tokens := newTestService(repo)
	session, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	ready := &fakeReadiness{err: fmt.Errorf("%w: no reachable servers", storage.ErrUnavailable)}
	svc.SetReadinessCheck(ready)

	t.Run("bad input wins over readiness", func(t *testing.T) {
		ready.calls = 0

		_, err := svc.Register(ctx, RegisterInput{})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, MsgMissingRegisterFields, validation.Message)

		_, err = svc.Login(ctx, LoginInput{Phone: "  "})
		require.ErrorAs(t, err, &validation)
		assert.Equal(t, MsgMissingLoginFields, validation.Message)

		_, err = svc.Resolve(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		assert.Zero(t, ready.calls)
	})

	t.Run("accepted input reports not ready", func(t *testing.T) {
		in := validRegistration()
		in.Email = "other@example.com"
		in.Phone = "5550000000"
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, ErrStoreNotReady)
		assert.ErrorIs(t, err, storage.ErrUnavailable)
		assert.Len(t, repo.users, 1)

		_, err = svc.Login(ctx, LoginInput{Phone: "5551234567", Password: "secret1"})
		assert.ErrorIs(t, err, ErrStoreNotReady)

		_, err = svc.Resolve(ctx, session.Token)
		assert.ErrorIs(t, err, ErrStoreNotReady)
	})

	t.Run("ready store passes through", func(t *testing.T) {
		ready.err = nil
		user, err := svc.Resolve(ctx, session.Token)
		require.NoError(t, err)
		assert.Equal(t, session.User.ID, user.ID)

		other, err := tokens.IssueToken("user-404")
		require.NoError(t, err)
		_, err = svc.Resolve(ctx, other)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
