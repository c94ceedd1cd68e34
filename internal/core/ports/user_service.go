package ports

import (
	"context"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
)

// UserService exposes directory reads and team assignment under the
// caller's authorization rules.
type UserService interface {
	GetUser(ctx context.Context, principal domain.Principal, id string) (*domain.User, error)
	GetTeamMembers(ctx context.Context, principal domain.Principal, managerID string) ([]*domain.User, error)
	AssignTeamMember(ctx context.Context, principal domain.Principal, managerID, employeeID string) (*domain.User, error)
}
