package ports

import (
	"context"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// UserDirectory is the read-only view of users the core consumes.
type UserDirectory interface {
	// GetUserByID returns domain.ErrUserNotFound when no user has id.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// GetTeamMembers returns the direct reports of managerID.
	GetTeamMembers(ctx context.Context, managerID string) ([]*domain.User, error)
}

// UserRepository extends the directory with the write paths used by
// registration, team assignment and seeding.
type UserRepository interface {
	UserDirectory
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	// AssignManager sets the employee's manager only if none is set yet;
	// otherwise it returns domain.ErrConflict.
	AssignManager(ctx context.Context, employeeID, managerID string) error
	Count(ctx context.Context) (int64, error)
}
