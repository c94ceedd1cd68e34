package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/feedbackflow/feedback-system/internal/api/metrics"
	"github.com/feedbackflow/feedback-system/internal/core/domain"
	"github.com/feedbackflow/feedback-system/internal/core/ports"
)

const (
	DefaultRecentLimit = 5
	MaxRecentLimit     = 20

	teamOverviewConcurrency = 8
)

// StatsService folds over the feedback store on every call. It keeps no
// counters of its own, so its numbers always match the stored records.
type StatsService struct {
	repo      ports.FeedbackRepository
	directory ports.UserDirectory
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewStatsService(repo ports.FeedbackRepository, directory ports.UserDirectory, timeout time.Duration, logger zerolog.Logger) *StatsService {
	return &StatsService{repo: repo, directory: directory, timeout: timeout, logger: logger}
}

// scope returns the filter selecting every record the principal owns.
func scope(p domain.Principal) (ports.FeedbackFilter, error) {
	switch {
	case !p.Valid():
		return ports.FeedbackFilter{}, domain.ErrUnauthenticated
	case p.IsManager():
		return ports.FeedbackFilter{ManagerID: p.UserID}, nil
	default:
		return ports.FeedbackFilter{EmployeeID: p.UserID}, nil
	}
}

// DashboardStats tallies the caller's records. A transient store failure
// yields zero counts flagged as degraded instead of an error.
func (s *StatsService) DashboardStats(ctx context.Context, p domain.Principal) (*domain.DashboardStats, error) {
	filter, err := scope(p)
	if err != nil {
		return nil, err
	}

	stats := &domain.DashboardStats{Role: p.Role}
	if p.IsManager() {
		stats.Manager = &domain.ManagerStats{}
	} else {
		stats.Employee = &domain.EmployeeStats{}
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		if domain.IsTransient(err) {
			metrics.DegradedAggregationsTotal.WithLabelValues("dashboard_stats").Inc()
			s.logger.Warn().Err(err).Str("user_id", p.UserID).Msg("dashboard stats degraded to zero counts")
			stats.Degraded = true
			return stats, nil
		}
		metrics.OperationErrorsTotal.WithLabelValues("dashboard_stats", domain.Kind(err)).Inc()
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	for _, fb := range records {
		if stats.Manager != nil {
			stats.Manager.Add(fb)
		} else {
			stats.Employee.Add(fb)
		}
	}
	return stats, nil
}

// RecentFeedback returns the caller's newest records, newest first. Records
// created at the same instant are ordered by id, highest first.
func (s *StatsService) RecentFeedback(ctx context.Context, p domain.Principal, limit int) ([]*domain.FeedbackView, error) {
	filter, err := scope(p)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultRecentLimit
	}
	if limit < 1 || limit > MaxRecentLimit {
		return nil, domain.Invalid("limit must be between 1 and %d", MaxRecentLimit)
	}

	records, err := s.repo.List(ctx, filter)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("recent_feedback", domain.Kind(err)).Inc()
		return nil, fmt.Errorf("recent feedback: %w", err)
	}

	sortNewestFirst(records)
	if len(records) > limit {
		records = records[:limit]
	}

	names := &nameCache{directory: s.directory, timeout: s.timeout, logger: s.logger, names: make(map[string]string)}
	return names.views(ctx, records), nil
}

func sortNewestFirst(records []*domain.Feedback) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// TeamOverview derives acknowledgment counts for each of the manager's direct
// reports. Members are enriched concurrently; a member whose counts cannot be
// derived is returned with zero counts rather than failing the overview.
func (s *StatsService) TeamOverview(ctx context.Context, p domain.Principal) ([]domain.TeamMemberOverview, error) {
	if !p.Valid() {
		return nil, domain.ErrUnauthenticated
	}
	if !p.IsManager() {
		return nil, fmt.Errorf("%w: only managers have a team overview", domain.ErrForbidden)
	}

	start := time.Now()
	defer func() { metrics.TeamOverviewDuration.Observe(time.Since(start).Seconds()) }()

	members, err := bounded(ctx, s.timeout, func(ctx context.Context) ([]*domain.User, error) {
		return s.directory.GetTeamMembers(ctx, p.UserID)
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("team_overview", domain.Kind(err)).Inc()
		return nil, fmt.Errorf("team overview: %w", err)
	}

	out := make([]domain.TeamMemberOverview, len(members))
	var g errgroup.Group
	g.SetLimit(teamOverviewConcurrency)
	for i, member := range members {
		i, member := i, member
		g.Go(func() error {
			out[i] = domain.TeamMemberOverview{User: *member}
			counts, err := s.memberCounts(ctx, p.UserID, member.ID)
			if err != nil {
				metrics.DegradedAggregationsTotal.WithLabelValues("team_overview_member").Inc()
				s.logger.Warn().Err(err).
					Str("manager_id", p.UserID).
					Str("employee_id", member.ID).
					Msg("team member counts unavailable, using zero counts")
				out[i].Degraded = true
				return nil
			}
			out[i].Counts = counts
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

// memberCounts tallies the records this manager wrote for one employee.
func (s *StatsService) memberCounts(ctx context.Context, managerID, employeeID string) (domain.TeamMemberCounts, error) {
	records, err := s.repo.List(ctx, ports.FeedbackFilter{ManagerID: managerID, EmployeeID: employeeID})
	if err != nil {
		return domain.TeamMemberCounts{}, err
	}
	var c domain.TeamMemberCounts
	for _, fb := range records {
		c.FeedbackCount++
		if fb.Acknowledged {
			c.AcknowledgedCount++
		}
	}
	c.PendingCount = c.FeedbackCount - c.AcknowledgedCount
	return c, nil
}
