package ports

import (
	"context"
	"time"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// PrincipalResolver turns a session token into the caller's Principal.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (domain.Principal, error)
}

// TokenBlocklist records revoked token ids until they would have expired.
type TokenBlocklist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RegisterInput carries the fields needed to create a user.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	PrincipalResolver
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, principal domain.Principal) (*domain.User, error)
}
