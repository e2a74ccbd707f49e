package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/tasktrack/pkg/auth"
	"github.com/platinummonkey/tasktrack/pkg/storage"
)

// Service implements registration, login and token resolution
type Service struct {
	repo   Repository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	now    func() time.Time

	// ready, when set, is consulted after input checks and before the first
	// store round trip
	ready storage.HealthChecker

	// dummyHash is compared against when the phone is unknown so both login
	// failures cost one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a user service
func NewService(repo Repository, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

// SetReadinessCheck makes the service verify the store connection before it
// touches the repository. Input and token errors are still reported first.
func (s *Service) SetReadinessCheck(check storage.HealthChecker) {
	s.ready = check
}

// Register creates an account and issues a token for it
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.checkReady(ctx); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindUserByEmailOrPhone(ctx, in.Email, in.Phone)
	switch {
	case err == nil && existing != nil:
		return nil, ErrDuplicateIdentity
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		Fullname:     in.Fullname,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique indexes catch registrations racing past the check above.
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.session(user)
}

// Login verifies a phone and password pair and issues a token
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" || in.Password == "" {
		return nil, invalid(MsgMissingLoginFields)
	}
	if err := s.checkReady(ctx); err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		s.burnComparison(in.Password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return s.session(user)
}

// Resolve verifies a bearer token and loads the user it names.
// Token failures return auth.ErrInvalidToken or auth.ErrTokenExpired and are
// reported before store readiness; a missing user returns ErrUserNotFound.
func (s *Service) Resolve(ctx context.Context, token string) (*User, error) {
	userID, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkReady(ctx); err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) checkReady(ctx context.Context) error {
	if s.ready == nil {
		return nil
	}
	if err := s.ready.Ready(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreNotReady, err)
	}
	return nil
}

func (s *Service) session(user *User) (*Session, error) {
	token, err := s.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user.Summary()}, nil
}

func (s *Service) burnComparison(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("tasktrack-unknown-user")
	})
	if s.dummyHash != "" {
		_ = s.hasher.Verify(s.dummyHash, password)
	}
}
