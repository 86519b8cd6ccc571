package auth

import (
	"context"
	"strings"
	"time"
)

// User is the stored account record behind a login.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserStore is the persistence contract the login flow needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Service authenticates credentials and issues access tokens.
type Service struct {
	users    UserStore
	tokenTTL time.Duration
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL overrides the issued token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a login service over the given user store.
func NewService(users UserStore, opts ...ServiceOption) *Service {
	svc := &Service{
		users:    users,
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Login authenticates email/password and mints an access token. Unknown email
// and wrong password produce the same ErrInvalidCredentials so the endpoint
// does not leak which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", time.Time{}, ErrInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}

	identity := Identity{ID: user.ID, Email: user.Email, Role: user.Role, Name: user.Name}
	token, err := GenerateToken(identity, s.tokenTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, s.now().UTC().Add(s.tokenTTL), nil
}
