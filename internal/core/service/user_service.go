package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
	"github.com/feedbackflow/feedback-system/internal/pkg/ids"
)

var (
	errTeamOnly     = fmt.Errorf("%w: managers can only view their own team members", domain.ErrForbidden)
	errEmployeeSelf = fmt.Errorf("%w: employees can only view themselves", domain.ErrForbidden)
	errOwnTeamOnly  = fmt.Errorf("%w: you can only manage your own team", domain.ErrForbidden)
)

// UserService serves directory reads and team assignment.
type UserService struct {
	repo    ports.UserRepository
	timeout time.Duration
	logger  zerolog.Logger
}

func NewUserService(repo ports.UserRepository, timeout time.Duration, logger zerolog.Logger) *UserService {
	return &UserService{repo: repo, timeout: timeout, logger: logger}
}

// GetUser returns the caller themself or, for a manager, one of their direct
// reports.
func (s *UserService) GetUser(ctx context.Context, p domain.Principal, id string) (*domain.User, error) {
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	if id != p.UserID && !p.IsManager() {
		return nil, errEmployeeSelf
	}
	// A malformed id names nobody on the team, same as an unknown one.
	if !ids.Valid(id) {
		return nil, errTeamOnly
	}

	user, err := s.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) && id != p.UserID {
			return nil, errTeamOnly
		}
		return nil, err
	}
	if id != p.UserID && !user.IsDirectReportOf(p.UserID) {
		return nil, errTeamOnly
	}
	return user, nil
}

func (s *UserService) GetTeamMembers(ctx context.Context, p domain.Principal, managerID string) ([]*domain.User, error) {
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	if !p.IsManager() || managerID != p.UserID {
		return nil, errOwnTeamOnly
	}
	return bounded(ctx, s.timeout, func(ctx context.Context) ([]*domain.User, error) {
		return s.repo.GetTeamMembers(ctx, managerID)
	})
}

// AssignTeamMember places an unassigned employee on the calling manager's
// team. An employee has at most one manager.
func (s *UserService) AssignTeamMember(ctx context.Context, p domain.Principal, managerID, employeeID string) (*domain.User, error) {
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	if !p.IsManager() || managerID != p.UserID {
		return nil, errOwnTeamOnly
	}
	if !ids.Valid(employeeID) {
		return nil, domain.Invalid("employee_id must be a valid id")
	}

	employee, err := s.lookup(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if employee.Role != domain.RoleEmployee {
		return nil, domain.Invalid("can only assign users with the employee role")
	}
	if employee.ManagerID == managerID {
		return nil, fmt.Errorf("%w: employee is already on this team", domain.ErrConflict)
	}
	if employee.ManagerID != "" {
		return nil, fmt.Errorf("%w: employee already has a manager", domain.ErrConflict)
	}

	if err := s.repo.AssignManager(ctx, employeeID, managerID); err != nil {
		return nil, fmt.Errorf("assign team member: %w", err)
	}

	s.logger.Info().Str("manager_id", managerID).Str("employee_id", employeeID).Msg("team member assigned")
	employee.ManagerID = managerID
	return employee, nil
}

func (s *UserService) lookup(ctx context.Context, id string) (*domain.User, error) {
	return bounded(ctx, s.timeout, func(ctx context.Context) (*domain.User, error) {
		return s.repo.GetUserByID(ctx, id)
	})
}
